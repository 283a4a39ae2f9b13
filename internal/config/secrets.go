package config

import (
	"os"
	"strings"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
)

// Names of per-request secrets.
const (
	TwilioAccountSID   = "TWILIO_ACCOUNT_SID"
	TwilioAuthToken    = "TWILIO_AUTH_TOKEN"
	TwilioWhatsAppFrom = "TWILIO_WHATSAPP_FROM"
	TwilioSMSFrom      = "TWILIO_SMS_FROM"
	TwilioWebhookURL   = "TWILIO_WEBHOOK_URL"

	StripeSecretKey = "STRIPE_SECRET_KEY"
	StripeCurrency  = "STRIPE_CURRENCY"

	GoogleClientID     = "GOOGLE_CLIENT_ID"
	GoogleClientSecret = "GOOGLE_CLIENT_SECRET"
	GoogleRedirectURI  = "GOOGLE_REDIRECT_URI"
	OAuthStateSecret   = "OAUTH_STATE_SECRET"

	ResendAPIKey = "RESEND_API_KEY"
	EmailFrom    = "EMAIL_FROM"
)

// Secrets resolves named credentials. Implementations must not cache:
// every call reflects the current environment.
type Secrets interface {
	Lookup(name string) (string, bool)
}

// EnvSecrets reads secrets from the process environment.
type EnvSecrets struct{}

func (EnvSecrets) Lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// MapSecrets is a fixed set of secrets, used in tests.
type MapSecrets map[string]string

func (m MapSecrets) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok && v != ""
}

// Require returns the named secrets in order, or a CONFIG_MISSING error
// naming the first one that is absent.
func Require(s Secrets, names ...string) ([]string, error) {
	out := make([]string, len(names))
	for i, name := range names {
		v, ok := s.Lookup(name)
		if !ok {
			return nil, apperr.MissingConfig(name)
		}
		out[i] = v
	}
	return out, nil
}

// Optional returns the named secret or "".
func Optional(s Secrets, name string) string {
	v, _ := s.Lookup(name)
	return v
}
