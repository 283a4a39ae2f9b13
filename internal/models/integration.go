package models

import "time"

// Channel is the transport an inbound or outbound message used.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// InboundMessage is a message received through the Twilio webhook.
type InboundMessage struct {
	ProviderSID string    `json:"provider_sid"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Body        string    `json:"body"`
	Channel     Channel   `json:"channel"`
	ReceivedAt  time.Time `json:"received_at"`
}

// SendMessageRequest is the body of the WhatsApp and SMS send endpoints.
type SendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendMessageResponse reports the provider's message id and status.
type SendMessageResponse struct {
	Success bool   `json:"success"`
	SID     string `json:"sid"`
	Status  string `json:"status"`
}

// CheckoutRequest is the body of POST /functions/create-checkout.
// Amount is in major currency units.
type CheckoutRequest struct {
	PlanName string  `json:"planName"`
	Amount   float64 `json:"amount"`
}

// CheckoutResponse carries the hosted checkout page URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}

// GmailAuthResponse carries the Google consent URL.
type GmailAuthResponse struct {
	AuthURL string `json:"authUrl"`
}

// GmailConnection is a stored Gmail OAuth grant.
type GmailConnection struct {
	Email        string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// SendEmailRequest is the body of POST /functions/send-email.
type SendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	ReplyTo string `json:"replyTo,omitempty"`
}

// SendEmailResponse reports the provider's message id.
type SendEmailResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}
