package syncqueue

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// StorageKey is the key the pending set is persisted under.
const StorageKey = "offline_pending_actions"

// Kind classifies a pending action for display. It does not affect replay.
type Kind string

const (
	KindTicket  Kind = "ticket"
	KindLead    Kind = "lead"
	KindContact Kind = "contact"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTicket, KindLead, KindContact:
		return true
	}
	return false
}

// PendingAction is a mutating request waiting for connectivity.
type PendingAction struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Endpoint  string          `json:"endpoint"`
	Method    string          `json:"method"`
}

// PendingActionInput is what callers hand to Enqueue. Payload is encoded
// as JSON; a json.RawMessage is stored as is.
type PendingActionInput struct {
	Kind     Kind
	Payload  any
	Endpoint string
	Method   string
}

func (in PendingActionInput) normalize() (Kind, json.RawMessage, string, string, error) {
	if !in.Kind.Valid() {
		return "", nil, "", "", fmt.Errorf("unknown action kind %q", in.Kind)
	}
	endpoint := strings.TrimSpace(in.Endpoint)
	if endpoint == "" {
		return "", nil, "", "", fmt.Errorf("endpoint is required")
	}
	method := strings.ToUpper(strings.TrimSpace(in.Method))
	if method == "" {
		method = http.MethodPost
	}

	var payload json.RawMessage
	switch p := in.Payload.(type) {
	case json.RawMessage:
		if !json.Valid(p) {
			return "", nil, "", "", fmt.Errorf("payload is not valid JSON")
		}
		payload = append(json.RawMessage(nil), p...)
	case nil:
		payload = json.RawMessage(`{}`)
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return "", nil, "", "", fmt.Errorf("encode payload: %w", err)
		}
		payload = b
	}
	return in.Kind, payload, endpoint, method, nil
}

// SkipReason explains why SyncPending did not run.
type SkipReason string

const (
	SkipNone     SkipReason = ""
	SkipOffline  SkipReason = "offline"
	SkipEmpty    SkipReason = "empty"
	SkipInFlight SkipReason = "in_flight"
)

// SyncResult reports the outcome of one sync run.
type SyncResult struct {
	Attempted  int
	Succeeded  int
	Failed     int
	Skipped    SkipReason
	PersistErr error
}

// Ran reports whether the run attempted any replay.
func (r SyncResult) Ran() bool {
	return r.Skipped == SkipNone
}
