package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable persistence layer for events, CRM records,
// inbound messages and Gmail grants.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pool and pings it, giving up after 10s.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates missing tables and indexes.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	return err
}

// Ping checks the pool for /ready.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

// InsertEvent stores a tracked event. A repeated (tenant, event id) pair is
// reported as inserted=false, so relayed retries are harmless.
func (p *PostgresStore) InsertEvent(ctx context.Context, tenantID, eventID, eventName string, ts time.Time, properties map[string]any) (bool, error) {
	if tenantID == "" || eventID == "" || eventName == "" {
		return false, errors.New("store: tenant, event id and event name are required")
	}

	if properties == nil {
		properties = map[string]any{}
	}

	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return false, err
	}

	var one int
	err = p.pool.QueryRow(ctx, `
		INSERT INTO events(tenant_id, event_id, event_name, ts, properties)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (tenant_id, event_id) DO NOTHING
		RETURNING 1
	`, tenantID, eventID, eventName, ts, propsJSON).Scan(&one)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// CountEvents counts a tenant's events named eventName with from <= ts < to.
func (p *PostgresStore) CountEvents(ctx context.Context, tenantID, eventName string, from, to time.Time) (int64, error) {
	var count int64
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM events
		WHERE tenant_id=$1 AND event_name=$2 AND ts >= $3 AND ts < $4
	`, tenantID, eventName, from, to).Scan(&count)
	return count, err
}

// insertOnce runs an INSERT ... ON CONFLICT (tenant_id, client_ref) DO NOTHING
// RETURNING id. On conflict it looks up the id already stored for the ref.
func (p *PostgresStore) insertOnce(ctx context.Context, table, tenantID, clientRef, insertSQL string, args ...any) (string, bool, error) {
	var id string
	err := p.pool.QueryRow(ctx, insertSQL, args...).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, err
	}

	err = p.pool.QueryRow(ctx,
		`SELECT id::text FROM `+table+` WHERE tenant_id=$1 AND client_ref=$2`,
		tenantID, clientRef,
	).Scan(&id)
	return id, false, err
}
