package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
	"github.com/PratikDhanave/intake-edge/internal/auth"
	"github.com/PratikDhanave/intake-edge/internal/edge"
	"github.com/PratikDhanave/intake-edge/internal/models"
)

// EventStore is the analytics event persistence used by the relay and
// metrics endpoints.
type EventStore interface {
	InsertEvent(ctx context.Context, tenantID, eventID, eventName string, ts time.Time, properties map[string]any) (bool, error)
	CountEvents(ctx context.Context, tenantID, eventName string, from, to time.Time) (int64, error)
}

// parseRFC3339 parses an RFC3339 timestamp and normalizes it to UTC.
func parseRFC3339(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// RegisterEventRoutes registers the analytics relay.
//
// POST /functions/track-event
// - Requires an API key (tenant context)
// - Durable: returns success only after DB write completes
// - Idempotent: duplicates detected via (tenant_id, event_id) uniqueness
func RegisterEventRoutes(r gin.IRoutes, st EventStore) {
	r.POST("/functions/track-event", edge.Handle(func(c *gin.Context) (any, error) {
		tenantID := auth.TenantID(c)
		if tenantID == "" {
			return nil, apperr.New(apperr.CodeUnauthorized, "unauthorized")
		}

		var req models.EventIngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, apperr.Invalid("invalid JSON payload")
		}
		if req.EventName == "" {
			return nil, apperr.Invalid("event_name required")
		}

		// Beacons from the browser may omit the timestamp; the relay stamps it.
		ts := time.Now().UTC()
		if req.Timestamp != "" {
			var err error
			if ts, err = parseRFC3339(req.Timestamp); err != nil {
				return nil, apperr.Invalid("timestamp must be RFC3339")
			}
		}

		// Idempotency precedence:
		// 1) Idempotency-Key header
		// 2) event_id in payload
		// 3) generated UUID (cannot dedupe client retries)
		eventID := c.GetHeader("Idempotency-Key")
		if eventID == "" {
			eventID = req.EventID
		}
		if eventID == "" {
			eventID = uuid.New().String()
		}

		inserted, err := st.InsertEvent(c.Request.Context(), tenantID, eventID, req.EventName, ts, req.Properties)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeStorage, "db insert failed", err)
		}

		// 201 for new events, 200 for duplicates (idempotent success).
		status := http.StatusCreated
		if !inserted {
			status = http.StatusOK
		}
		return edge.JSON(status, models.EventIngestResponse{EventID: eventID, Duplicate: !inserted}), nil
	}))
}
