package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
	"github.com/PratikDhanave/intake-edge/internal/auth"
	"github.com/PratikDhanave/intake-edge/internal/edge"
	"github.com/PratikDhanave/intake-edge/internal/intake"
	"github.com/PratikDhanave/intake-edge/internal/models"
	"github.com/PratikDhanave/intake-edge/internal/syncqueue"
)

// CRMStore persists tickets, leads and contacts. Inserts are idempotent on
// (tenant, client ref) and report whether a row was created.
type CRMStore interface {
	InsertTicket(ctx context.Context, t models.Ticket) (string, bool, error)
	ListTickets(ctx context.Context, tenantID string, limit int) ([]models.Ticket, error)
	InsertLead(ctx context.Context, l models.Lead) (string, bool, error)
	ListLeads(ctx context.Context, tenantID string, limit int) ([]models.Lead, error)
	InsertContact(ctx context.Context, c models.Contact) (string, bool, error)
	ListContacts(ctx context.Context, tenantID string, limit int) ([]models.Contact, error)
}

// RegisterCRMRoutes registers create and list endpoints for the CRM records.
// Replayed offline actions carry X-Client-Ref, so a retried create returns
// the original record instead of a duplicate.
func RegisterCRMRoutes(r gin.IRoutes, st CRMStore, v *intake.Validator) {
	r.POST("/api/tickets", edge.Handle(func(c *gin.Context) (any, error) {
		return create(c, v.Ticket, func(t *models.Ticket, id, tenant, ref string) {
			t.ID, t.TenantID, t.ClientRef = id, tenant, ref
		}, st.InsertTicket)
	}))
	r.GET("/api/tickets", edge.Handle(func(c *gin.Context) (any, error) {
		return list(c, st.ListTickets)
	}))

	r.POST("/api/leads", edge.Handle(func(c *gin.Context) (any, error) {
		return create(c, v.Lead, func(l *models.Lead, id, tenant, ref string) {
			l.ID, l.TenantID, l.ClientRef = id, tenant, ref
		}, st.InsertLead)
	}))
	r.GET("/api/leads", edge.Handle(func(c *gin.Context) (any, error) {
		return list(c, st.ListLeads)
	}))

	r.POST("/api/contacts", edge.Handle(func(c *gin.Context) (any, error) {
		return create(c, v.Contact, func(ct *models.Contact, id, tenant, ref string) {
			ct.ID, ct.TenantID, ct.ClientRef = id, tenant, ref
		}, st.InsertContact)
	}))
	r.GET("/api/contacts", edge.Handle(func(c *gin.Context) (any, error) {
		return list(c, st.ListContacts)
	}))
}

func create[T any](
	c *gin.Context,
	decode func([]byte) (T, error),
	stamp func(rec *T, id, tenant, ref string),
	insert func(context.Context, T) (string, bool, error),
) (any, error) {
	tenantID := auth.TenantID(c)
	if tenantID == "" {
		return nil, apperr.New(apperr.CodeUnauthorized, "unauthorized")
	}

	body, err := c.GetRawData()
	if err != nil {
		return nil, apperr.Invalid("could not read body")
	}
	rec, err := decode(body)
	if err != nil {
		var ve *intake.ValidationError
		if errors.As(err, &ve) {
			return nil, apperr.Wrap(apperr.CodeInvalid, ve.Error(), err)
		}
		return nil, err
	}

	id := uuid.NewString()
	ref := strings.TrimSpace(c.GetHeader(syncqueue.ClientRefHeader))
	if ref == "" {
		ref = id
	}
	stamp(&rec, id, tenantID, ref)

	storedID, created, err := insert(c.Request.Context(), rec)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, "failed to save record", err)
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return edge.JSON(status, models.CreateResponse{ID: storedID, Duplicate: !created}), nil
}

func list[T any](c *gin.Context, fetch func(context.Context, string, int) ([]T, error)) (any, error) {
	tenantID := auth.TenantID(c)
	if tenantID == "" {
		return nil, apperr.New(apperr.CodeUnauthorized, "unauthorized")
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, apperr.Invalid("limit must be a non-negative integer")
		}
		limit = n
	}

	items, err := fetch(c.Request.Context(), tenantID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStorage, "failed to list records", err)
	}
	if items == nil {
		items = []T{}
	}
	return gin.H{"items": items}, nil
}
