package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Resend sends transactional email.
type Resend struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// Email is one outbound message.
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// Send returns the provider message id.
func (r *Resend) Send(ctx context.Context, e Email) (string, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	base := r.BaseURL
	if base == "" {
		base = ResendBaseURL
	}
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(base, "/")+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		ID string `json:"id"`
	}
	if err := doJSON(ctx, r.HTTP, req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}
