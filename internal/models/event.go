package models

// EventIngestRequest is the POST /functions/track-event payload.
// event_id is optional; the Idempotency-Key header takes precedence.
type EventIngestRequest struct {
	EventID    string         `json:"event_id,omitempty"`
	EventName  string         `json:"event_name"`
	Timestamp  string         `json:"timestamp"`
	Properties map[string]any `json:"properties,omitempty"`
}

// EventIngestResponse is returned by the track-event relay.
// Duplicate indicates idempotent success (the event already existed).
type EventIngestResponse struct {
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// MetricResponse is returned by GET /metrics.
type MetricResponse struct {
	EventName string `json:"event_name"`
	Count     int64  `json:"count"`
}
