package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
	"github.com/PratikDhanave/intake-edge/internal/auth"
	"github.com/PratikDhanave/intake-edge/internal/edge"
	"github.com/PratikDhanave/intake-edge/internal/models"
)

// RegisterMetricRoutes registers the serving-path endpoint.
//
// GET /metrics?event_name=...&from=...&to=...
// - Requires an API key (tenant context)
// - Returns count for the window [from,to)
func RegisterMetricRoutes(r gin.IRoutes, st EventStore) {
	r.GET("/metrics", edge.Handle(func(c *gin.Context) (any, error) {
		tenantID := auth.TenantID(c)
		if tenantID == "" {
			return nil, apperr.New(apperr.CodeUnauthorized, "unauthorized")
		}

		eventName := c.Query("event_name")
		fromStr := c.Query("from")
		toStr := c.Query("to")
		if eventName == "" || fromStr == "" || toStr == "" {
			return nil, apperr.Invalid("event_name, from, to are required")
		}

		from, err := parseRFC3339(fromStr)
		if err != nil {
			return nil, apperr.Invalid("from must be RFC3339")
		}
		to, err := parseRFC3339(toStr)
		if err != nil {
			return nil, apperr.Invalid("to must be RFC3339")
		}
		if !from.Before(to) {
			return nil, apperr.Invalid("from must be < to")
		}

		count, err := st.CountEvents(c.Request.Context(), tenantID, eventName, from, to)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeStorage, "db query failed", err)
		}
		return models.MetricResponse{EventName: eventName, Count: count}, nil
	}))
}
