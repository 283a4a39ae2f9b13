package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
	"github.com/PratikDhanave/intake-edge/internal/config"
	"github.com/PratikDhanave/intake-edge/internal/edge"
	"github.com/PratikDhanave/intake-edge/internal/models"
	"github.com/PratikDhanave/intake-edge/internal/upstream"
)

// TwiMLAck is the empty acknowledgement Twilio expects from a webhook.
const TwiMLAck = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

type twimlAck struct{}

func (twimlAck) Respond(c *gin.Context) {
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(TwiMLAck))
}

func (f *Functions) whatsAppSend(c *gin.Context) (any, error) {
	return f.sendMessage(c, models.ChannelWhatsApp)
}

func (f *Functions) smsSend(c *gin.Context) (any, error) {
	return f.sendMessage(c, models.ChannelSMS)
}

func (f *Functions) sendMessage(c *gin.Context, ch models.Channel) (any, error) {
	fromName := config.TwilioSMSFrom
	if ch == models.ChannelWhatsApp {
		fromName = config.TwilioWhatsAppFrom
	}
	creds, err := config.Require(f.Secrets, config.TwilioAccountSID, config.TwilioAuthToken, fromName)
	if err != nil {
		return nil, err
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, apperr.Invalid("to and message are required")
	}

	from, to := creds[2], strings.TrimSpace(req.To)
	if ch == models.ChannelWhatsApp {
		from, to = upstream.WhatsAppAddress(from), upstream.WhatsAppAddress(to)
	}

	tw := &upstream.Twilio{
		BaseURL:    f.Upstreams.TwilioURL,
		AccountSID: creds[0],
		AuthToken:  creds[1],
		HTTP:       f.Upstreams.HTTP,
	}
	msg, err := tw.Send(c.Request.Context(), from, to, req.Message)
	if err != nil {
		return nil, apperr.Upstream("twilio", err)
	}

	log := edge.Logger(c)
	log.Info().Str("channel", string(ch)).Str("sid", msg.SID).Msg("message sent")
	return models.SendMessageResponse{Success: true, SID: msg.SID, Status: msg.Status}, nil
}

// whatsAppWebhook receives inbound WhatsApp and SMS messages. When the auth
// token is configured the request must carry a valid X-Twilio-Signature.
func (f *Functions) whatsAppWebhook(c *gin.Context) (any, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, apperr.Invalid("form body required")
	}
	form := c.Request.PostForm

	if token := config.Optional(f.Secrets, config.TwilioAuthToken); token != "" {
		if !upstream.VerifySignature(token, f.webhookURL(c), form, c.GetHeader("X-Twilio-Signature")) {
			return nil, apperr.New(apperr.CodeUnauthorized, "invalid twilio signature")
		}
	}

	msg := models.InboundMessage{
		ProviderSID: strings.TrimSpace(form.Get("MessageSid")),
		From:        strings.TrimSpace(form.Get("From")),
		To:          strings.TrimSpace(form.Get("To")),
		Body:        form.Get("Body"),
		Channel:     models.ChannelSMS,
		ReceivedAt:  f.now().UTC(),
	}
	if msg.ProviderSID == "" || msg.From == "" {
		return nil, apperr.Invalid("MessageSid and From are required")
	}
	if strings.HasPrefix(msg.From, "whatsapp:") {
		msg.Channel = models.ChannelWhatsApp
	}

	if f.Inbound != nil {
		fresh, err := f.Inbound.InsertInbound(c.Request.Context(), msg)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeStorage, "failed to store inbound message", err)
		}
		if !fresh {
			return twimlAck{}, nil
		}
	}
	if f.Inbox != nil {
		f.Inbox.Publish(msg)
	}

	log := edge.Logger(c)
	log.Info().Str("channel", string(msg.Channel)).Str("sid", msg.ProviderSID).Msg("inbound message")
	return twimlAck{}, nil
}

// webhookURL is the URL Twilio signed: the configured public URL, or the
// request URL as seen through any proxy.
func (f *Functions) webhookURL(c *gin.Context) string {
	if u := config.Optional(f.Secrets, config.TwilioWebhookURL); u != "" {
		return u
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}
