package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/PratikDhanave/intake-edge/internal/config"
	"github.com/PratikDhanave/intake-edge/internal/edge"
	"github.com/PratikDhanave/intake-edge/internal/models"
	"github.com/PratikDhanave/intake-edge/internal/notify"
)

// InboundStore persists webhook messages.
type InboundStore interface {
	InsertInbound(ctx context.Context, m models.InboundMessage) (bool, error)
}

// GmailStore persists Gmail grants.
type GmailStore interface {
	SaveGmailConnection(ctx context.Context, g models.GmailConnection) error
}

// Upstreams overrides third-party endpoints. Zero values use the public APIs.
type Upstreams struct {
	TwilioURL      string
	StripeURL      string
	ResendURL      string
	GoogleEndpoint oauth2.Endpoint
	GoogleUserInfo string
	HTTP           *http.Client
}

// Functions holds what the integration handlers share. Credentials are not
// held here; each invocation reads them from Secrets.
type Functions struct {
	Secrets   config.Secrets
	AppURL    string
	Upstreams Upstreams
	Inbound   InboundStore
	Gmail     GmailStore
	Inbox     *notify.Hub
	// SendLimit bounds the outbound send endpoints. Nil disables limiting.
	SendLimit *rate.Limiter
	Now       func() time.Time
}

func (f *Functions) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// RegisterFunctionRoutes registers the integration endpoints under
// /functions.
func RegisterFunctionRoutes(r gin.IRoutes, f *Functions) {
	send := []gin.HandlerFunc{}
	if f.SendLimit != nil {
		send = append(send, edge.RateLimit(f.SendLimit))
	}

	r.POST("/functions/whatsapp-send", append(send, edge.Handle(f.whatsAppSend))...)
	r.POST("/functions/sms-send", append(send, edge.Handle(f.smsSend))...)
	r.POST("/functions/send-email", append(send, edge.Handle(f.sendEmail))...)

	r.POST("/functions/whatsapp-webhook", edge.Handle(f.whatsAppWebhook))
	r.POST("/functions/create-checkout", edge.Handle(f.createCheckout))
	r.GET("/functions/gmail-auth", edge.Handle(f.gmailAuth))
	r.GET("/functions/gmail-callback", edge.Handle(f.gmailCallback))
}
