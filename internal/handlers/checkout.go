package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
	"github.com/PratikDhanave/intake-edge/internal/config"
	"github.com/PratikDhanave/intake-edge/internal/edge"
	"github.com/PratikDhanave/intake-edge/internal/models"
	"github.com/PratikDhanave/intake-edge/internal/upstream"
)

func (f *Functions) createCheckout(c *gin.Context) (any, error) {
	creds, err := config.Require(f.Secrets, config.StripeSecretKey)
	if err != nil {
		return nil, err
	}

	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PlanName) == "" || req.Amount <= 0 {
		return nil, apperr.Invalid("planName and a positive amount are required")
	}

	s := &upstream.Stripe{BaseURL: f.Upstreams.StripeURL, SecretKey: creds[0], HTTP: f.Upstreams.HTTP}
	url, err := s.CreateCheckoutSession(c.Request.Context(), upstream.CheckoutParams{
		PlanName:   strings.TrimSpace(req.PlanName),
		Amount:     req.Amount,
		Currency:   config.Optional(f.Secrets, config.StripeCurrency),
		SuccessURL: f.AppURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  f.AppURL + "/pricing",
	})
	if err != nil {
		return nil, apperr.Upstream("stripe", err)
	}

	log := edge.Logger(c)
	log.Info().Str("plan", req.PlanName).Float64("amount", req.Amount).Msg("checkout session created")
	return models.CheckoutResponse{URL: url}, nil
}
