// Package upstream holds the thin REST clients for the third-party services
// the edge handlers proxy: Twilio, Stripe, Resend and Google.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 30 * time.Second

// Default service base URLs.
const (
	TwilioBaseURL   = "https://api.twilio.com"
	StripeBaseURL   = "https://api.stripe.com"
	ResendBaseURL   = "https://api.resend.com"
	GoogleUserInfo  = "https://www.googleapis.com/oauth2/v2/userinfo"
	maxErrorBodyLen = 512
)

// NewHTTPClient returns the client used for upstream calls.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// StatusError is a non-2xx upstream response. Message is the provider's own
// error text when the body carried one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// doJSON sends req and decodes a 2xx JSON body into out.
func doJSON(ctx context.Context, hc *http.Client, req *http.Request, out any) error {
	if hc == nil {
		hc = NewHTTPClient()
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts the human-readable text from the error shapes the
// providers use: {"message"}, {"error":"..."}, {"error":{"message"}}.
func errorMessage(body []byte) string {
	var shape struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &shape); err == nil {
		if shape.Message != "" {
			return shape.Message
		}
		if len(shape.Error) > 0 {
			var s string
			if json.Unmarshal(shape.Error, &s) == nil && s != "" {
				return s
			}
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(shape.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodyLen {
		text = text[:maxErrorBodyLen]
	}
	return text
}
