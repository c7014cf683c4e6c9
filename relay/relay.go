package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SendRequest is the input for relaying one SMS.
type SendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendResponse is the outcome of a send; SID on success, Message on error.
type SendResponse struct {
	Status  string `json:"status"`
	SID     string `json:"sid,omitempty"`
	Message string `json:"message,omitempty"`
}

// Message is what a provider is asked to deliver.
type Message struct {
	From string
	To   string
	Body string
}

// ProviderCall delivers msg and returns the provider-assigned message id.
type ProviderCall func(ctx context.Context, msg Message) (string, error)

// Config defines Relay configuration. It is fixed for the life of the process.
type Config struct {
	ProviderCall ProviderCall
	ProviderName string
	From         string        // origin number; not validated, the provider rejects a bad one
	Timeout      time.Duration // per send; zero leaves it to the provider client
	Logger       *logrus.Entry
}

// Relay forwards messages to a single provider. It keeps no state between sends.
type Relay struct {
	providerCall ProviderCall
	providerName string
	from         string
	timeout      time.Duration
	log          *logrus.Entry
}

func New(cfg Config) (*Relay, error) {
	if cfg.ProviderCall == nil {
		return nil, errMissingProviderCall
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Relay{
		providerCall: cfg.ProviderCall,
		providerName: cfg.ProviderName,
		from:         cfg.From,
		timeout:      cfg.Timeout,
		log:          logger.WithFields(logrus.Fields{"component": "relay", "provider": cfg.ProviderName}),
	}, nil
}

// Send makes exactly one attempt. A non-nil error is either ErrInvalidRequest or a *ProviderError; the response is always filled in.
func (r *Relay) Send(ctx context.Context, req SendRequest) (SendResponse, error) {
	if strings.TrimSpace(req.To) == "" {
		err := invalidRequest("to")
		return SendResponse{Status: StatusError, Message: err.Error()}, err
	}
	if strings.TrimSpace(req.Message) == "" {
		err := invalidRequest("message")
		return SendResponse{Status: StatusError, Message: err.Error()}, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	entry := r.log.WithFields(logrus.Fields{
		"recipientMasked": maskRecipient(req.To),
		"messageLen":      len(req.Message),
		"messageHash":     hashMessage(req.Message),
	})

	start := time.Now()
	sid, err := r.call(ctx, Message{From: r.from, To: req.To, Body: req.Message})
	if err != nil {
		var pe *ProviderError
		if !errors.As(err, &pe) {
			pe = Transport(err)
		}
		if pe.Provider == "" {
			pe.Provider = r.providerName
		}

		entry.WithFields(logrus.Fields{
			"kind":    pe.Kind,
			"code":    pe.Code,
			"latency": time.Since(start),
		}).WithError(pe.Err).Warn("sms send failed")
		return SendResponse{Status: StatusError, Message: pe.Error()}, pe
	}

	entry.WithFields(logrus.Fields{
		"sid":     sid,
		"latency": time.Since(start),
	}).Info("sms sent")
	return SendResponse{Status: StatusSuccess, SID: sid}, nil
}

// call runs the provider once; a panic comes back as a transport failure
func (r *Relay) call(ctx context.Context, msg Message) (sid string, err error) {
	defer func() {
		if p := recover(); p != nil {
			sid = ""
			err = Transport(fmt.Errorf("provider call panicked: %v", p))
		}
	}()
	return r.providerCall(ctx, msg)
}
