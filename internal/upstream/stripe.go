package upstream

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Stripe creates hosted Checkout Sessions.
type Stripe struct {
	BaseURL   string
	SecretKey string
	HTTP      *http.Client
}

// CheckoutParams describes a one-item payment session.
type CheckoutParams struct {
	PlanName   string
	Amount     float64 // major units
	Currency   string
	SuccessURL string
	CancelURL  string
}

// ToMinorUnits converts a major-unit amount to cents, rounding to the
// nearest cent.
func ToMinorUnits(amount float64) (int64, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, errors.New("amount must be a positive number")
	}
	return int64(math.Round(amount * 100)), nil
}

type checkoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession returns the hosted checkout page URL.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	cents, err := ToMinorUnits(p.Amount)
	if err != nil {
		return "", err
	}
	currency := p.Currency
	if currency == "" {
		currency = "usd"
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(cents, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.PlanName)
	form.Set("metadata[plan_name]", p.PlanName)

	base := s.BaseURL
	if base == "" {
		base = StripeBaseURL
	}
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(base, "/")+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var sess checkoutSession
	if err := doJSON(ctx, s.HTTP, req, &sess); err != nil {
		return "", err
	}
	if sess.URL == "" {
		return "", errors.New("checkout session has no url")
	}
	return sess.URL, nil
}
