package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const HTTPProviderName = "http"

const maxProviderResponseBytes = 64 << 10

type httpProviderRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type httpProviderResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message,omitempty"`
}

// HTTPProviderCall builds a ProviderCall that POSTs the message as JSON to providerURL and expects `{"sid": "..."}` back.
// authToken, when set, is sent as a bearer token.
func HTTPProviderCall(providerURL, authToken string, connectTimeout time.Duration) ProviderCall {
	if providerURL == "" {
		return nil
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext

	client := &http.Client{
		Transport: transport,
	}
	return func(ctx context.Context, msg Message) (string, error) {
		body, err := json.Marshal(httpProviderRequest{
			From: msg.From,
			To:   msg.To,
			Body: msg.Body,
		})
		if err != nil {
			return "", Transport(err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, providerURL, bytes.NewReader(body))
		if err != nil {
			return "", Transport(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if authToken != "" {
			httpReq.Header.Set("Authorization", "Bearer "+authToken)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return "", Transport(err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderResponseBytes))
		if err != nil {
			return "", Transport(err)
		}

		var providerResp httpProviderResponse
		decodeErr := json.Unmarshal(raw, &providerResp)

		// We are looking for status codes in the 2xx range for success.
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			description := strings.TrimSpace(providerResp.Message)
			if decodeErr != nil || description == "" {
				description = fmt.Sprintf("provider returned status %d", resp.StatusCode)
			}
			return "", Rejected(resp.StatusCode, errors.New(description))
		}

		if decodeErr != nil {
			return "", Transport(fmt.Errorf("decode provider response: %w", decodeErr))
		}
		if providerResp.SID == "" {
			return "", Transport(errors.New("provider response missing sid"))
		}
		return providerResp.SID, nil
	}
}
