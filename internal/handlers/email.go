package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
	"github.com/PratikDhanave/intake-edge/internal/config"
	"github.com/PratikDhanave/intake-edge/internal/models"
	"github.com/PratikDhanave/intake-edge/internal/upstream"
)

func (f *Functions) sendEmail(c *gin.Context) (any, error) {
	creds, err := config.Require(f.Secrets, config.ResendAPIKey, config.EmailFrom)
	if err != nil {
		return nil, err
	}

	var req models.SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.HTML) == "" {
		return nil, apperr.Invalid("to, subject and html are required")
	}

	r := &upstream.Resend{BaseURL: f.Upstreams.ResendURL, APIKey: creds[0], HTTP: f.Upstreams.HTTP}
	id, err := r.Send(c.Request.Context(), upstream.Email{
		From:    creds[1],
		To:      []string{strings.TrimSpace(req.To)},
		Subject: req.Subject,
		HTML:    req.HTML,
		ReplyTo: strings.TrimSpace(req.ReplyTo),
	})
	if err != nil {
		return nil, apperr.Upstream("email", err)
	}
	return models.SendEmailResponse{Success: true, ID: id}, nil
}
