package main

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/osr-alliance/leadtrack/config"
	"github.com/osr-alliance/leadtrack/relay"
)

func providerFromConfig(cfg config.Provider) (relay.ProviderCall, string, error) {
	switch cfg.Name {
	case relay.TwilioProviderName:
		return relay.TwilioProviderCall(cfg.AccountSID, cfg.AuthToken, cfg.Timeout()), relay.TwilioProviderName, nil
	case relay.HTTPProviderName:
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, "", errors.New("provider.url is required for http")
		}
		return relay.HTTPProviderCall(cfg.URL, cfg.AuthToken, cfg.ConnectTimeout()), relay.HTTPProviderName, nil
	default:
		return nil, "", errors.New("provider.name must be one of: twilio, http")
	}
}

func newRelay(cfg config.Provider, logger *logrus.Logger) (*relay.Relay, error) {
	call, name, err := providerFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if name == relay.TwilioProviderName && (cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "") {
		logger.Warn("twilio credentials are incomplete; sends will fail until TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER are set")
	}

	return relay.New(relay.Config{
		ProviderCall: call,
		ProviderName: name,
		From:         cfg.FromNumber,
		Timeout:      cfg.Timeout(),
		Logger:       logrus.NewEntry(logger),
	})
}
