package store

import (
	"context"

	"github.com/PratikDhanave/intake-edge/internal/models"
)

// InsertInbound records a webhook message. Twilio retries deliver the same
// MessageSid, so duplicates are ignored.
func (p *PostgresStore) InsertInbound(ctx context.Context, m models.InboundMessage) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO inbound_messages(provider_sid, from_number, to_number, body, channel, received_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (provider_sid) DO NOTHING
	`, m.ProviderSID, m.From, m.To, m.Body, string(m.Channel), m.ReceivedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SaveGmailConnection upserts the grant for an account.
func (p *PostgresStore) SaveGmailConnection(ctx context.Context, g models.GmailConnection) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO gmail_connections(email, access_token, refresh_token, expiry)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (email) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), gmail_connections.refresh_token),
		    expiry = EXCLUDED.expiry,
		    connected_at = now()
	`, g.Email, g.AccessToken, g.RefreshToken, g.Expiry)
	return err
}
