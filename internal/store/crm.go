package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/PratikDhanave/intake-edge/internal/models"
)

// DefaultListLimit caps list queries when the caller passes no limit.
const DefaultListLimit = 50

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultListLimit
	}
	return limit
}

// InsertTicket stores t unless a ticket with the same client ref already
// exists for the tenant. It returns the stored id and whether a row was
// created.
func (p *PostgresStore) InsertTicket(ctx context.Context, t models.Ticket) (string, bool, error) {
	return p.insertOnce(ctx, "tickets", t.TenantID, t.ClientRef, `
		INSERT INTO tickets(id, tenant_id, client_ref, subject, description, priority, email, name, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (tenant_id, client_ref) DO NOTHING
		RETURNING id::text
	`, t.ID, t.TenantID, t.ClientRef, t.Subject, t.Description, t.Priority, t.Email, t.Name, t.Status)
}

// ListTickets returns the newest tickets for a tenant.
func (p *PostgresStore) ListTickets(ctx context.Context, tenantID string, limit int) ([]models.Ticket, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, client_ref, subject, description, priority, email, name, status, created_at
		FROM tickets
		WHERE tenant_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, tenantID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Ticket, error) {
		t := models.Ticket{TenantID: tenantID}
		err := row.Scan(&t.ID, &t.ClientRef, &t.Subject, &t.Description, &t.Priority, &t.Email, &t.Name, &t.Status, &t.CreatedAt)
		return t, err
	})
}

// InsertLead stores l idempotently by client ref.
func (p *PostgresStore) InsertLead(ctx context.Context, l models.Lead) (string, bool, error) {
	return p.insertOnce(ctx, "leads", l.TenantID, l.ClientRef, `
		INSERT INTO leads(id, tenant_id, client_ref, name, email, phone, company, source, message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (tenant_id, client_ref) DO NOTHING
		RETURNING id::text
	`, l.ID, l.TenantID, l.ClientRef, l.Name, l.Email, l.Phone, l.Company, l.Source, l.Message)
}

// ListLeads returns the newest leads for a tenant.
func (p *PostgresStore) ListLeads(ctx context.Context, tenantID string, limit int) ([]models.Lead, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, client_ref, name, email, phone, company, source, message, created_at
		FROM leads
		WHERE tenant_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, tenantID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Lead, error) {
		l := models.Lead{TenantID: tenantID}
		err := row.Scan(&l.ID, &l.ClientRef, &l.Name, &l.Email, &l.Phone, &l.Company, &l.Source, &l.Message, &l.CreatedAt)
		return l, err
	})
}

// InsertContact stores c idempotently by client ref.
func (p *PostgresStore) InsertContact(ctx context.Context, c models.Contact) (string, bool, error) {
	return p.insertOnce(ctx, "contacts", c.TenantID, c.ClientRef, `
		INSERT INTO contacts(id, tenant_id, client_ref, name, email, phone, message)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (tenant_id, client_ref) DO NOTHING
		RETURNING id::text
	`, c.ID, c.TenantID, c.ClientRef, c.Name, c.Email, c.Phone, c.Message)
}

// ListContacts returns the newest contacts for a tenant.
func (p *PostgresStore) ListContacts(ctx context.Context, tenantID string, limit int) ([]models.Contact, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, client_ref, name, email, phone, message, created_at
		FROM contacts
		WHERE tenant_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, tenantID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Contact, error) {
		c := models.Contact{TenantID: tenantID}
		err := row.Scan(&c.ID, &c.ClientRef, &c.Name, &c.Email, &c.Phone, &c.Message, &c.CreatedAt)
		return c, err
	})
}
