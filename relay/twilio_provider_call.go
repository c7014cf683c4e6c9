package relay

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const TwilioProviderName = "twilio"

// messageCreator is the slice of the Twilio REST API the relay uses.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioProviderCall builds the ProviderCall for Twilio's Messages API.
// Empty credentials are accepted; Twilio answers the first send with an authentication error.
// timeout bounds each HTTP call to Twilio; zero keeps the SDK default.
func TwilioProviderCall(accountSID, authToken string, timeout time.Duration) ProviderCall {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Client: newTwilioClient(accountSID, authToken, timeout),
	})
	return twilioProviderCall(client.Api)
}

func newTwilioClient(accountSID, authToken string, timeout time.Duration) *twclient.Client {
	c := &twclient.Client{
		Credentials: twclient.NewCredentials(accountSID, authToken),
	}
	if timeout > 0 {
		c.HTTPClient = &http.Client{Timeout: timeout}
	}
	c.SetAccountSid(accountSID)
	return c
}

func twilioProviderCall(api messageCreator) ProviderCall {
	return func(ctx context.Context, msg Message) (string, error) {
		// the SDK call is not context-aware; its http.Client timeout bounds it once dialed
		if err := ctx.Err(); err != nil {
			return "", Transport(err)
		}

		params := &openapi.CreateMessageParams{}
		params.SetTo(msg.To)
		params.SetFrom(msg.From)
		params.SetBody(msg.Body)

		resp, err := api.CreateMessage(params)
		if err != nil {
			var restErr *twclient.TwilioRestError
			if errors.As(err, &restErr) {
				return "", Rejected(restErr.Code, err)
			}
			return "", Transport(err)
		}
		if resp == nil || resp.Sid == nil || *resp.Sid == "" {
			return "", Transport(errors.New("twilio response missing sid"))
		}
		return *resp.Sid, nil
	}
}
