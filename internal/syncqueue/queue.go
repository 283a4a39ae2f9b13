// Package syncqueue buffers CRM-mutating actions while the client is offline
// and replays them against the edge server once connectivity returns.
//
// Delivery is best-effort and at-least-once: a replayed action is removed
// only after a 2xx response, and the pending set is persisted after every
// mutation. Failed actions stay queued forever until they succeed or the
// set is cleared.
//
// Usage:
//
//	q, err := syncqueue.New(ctx, kv, syncqueue.WithBaseURL("https://edge.example.com"))
//	q.Enqueue(ctx, syncqueue.PendingActionInput{Kind: syncqueue.KindTicket, Endpoint: "/api/tickets", Payload: t})
//	bus.Subscribe(signal.Connectivity, q)
package syncqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/PratikDhanave/intake-edge/internal/kvstore"
	"github.com/PratikDhanave/intake-edge/internal/signal"
)

// ErrOffline is returned by RetrySync when there is no connectivity.
var ErrOffline = errors.New("cannot sync while offline")

// ClientRefHeader carries the action id on replay so the server can
// deduplicate at-least-once deliveries.
const ClientRefHeader = "X-Client-Ref"

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Queue is the offline pending-action set.
type Queue struct {
	store    kvstore.Store
	client   Doer
	baseURL  *url.URL
	headers  http.Header
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string

	mu      sync.Mutex
	pending []PendingAction
	online  bool
	syncing bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithHTTPClient sets the client used for replay.
func WithHTTPClient(d Doer) Option { return func(q *Queue) { q.client = d } }

// WithBaseURL resolves relative endpoints against base.
func WithBaseURL(base string) Option {
	return func(q *Queue) {
		if u, err := url.Parse(base); err == nil && base != "" {
			q.baseURL = u
		}
	}
}

// WithHeader adds a header sent with every replay request.
func WithHeader(key, value string) Option {
	return func(q *Queue) { q.headers.Set(key, value) }
}

// WithNotifier sets the receiver of user-facing notifications.
func WithNotifier(n Notifier) Option { return func(q *Queue) { q.notifier = n } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(q *Queue) { q.logger = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(q *Queue) { q.now = now } }

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(gen func() string) Option { return func(q *Queue) { q.newID = gen } }

// WithOnline sets the initial connectivity state. The default is online.
func WithOnline(online bool) Option { return func(q *Queue) { q.online = online } }

// New creates a queue and loads the persisted pending set from store.
// A missing key starts empty. An undecodable blob also starts empty and is
// reported through the notifier; a storage read failure is returned.
func New(ctx context.Context, store kvstore.Store, opts ...Option) (*Queue, error) {
	q := &Queue{
		store:    store,
		client:   &http.Client{Timeout: 30 * time.Second},
		headers:  make(http.Header),
		notifier: nopNotifier{},
		logger:   zerolog.Nop(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		online:   true,
	}
	for _, opt := range opts {
		opt(q)
	}

	raw, err := store.Get(ctx, StorageKey)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		return q, nil
	case err != nil:
		return nil, fmt.Errorf("load pending actions: %w", err)
	}

	var pending []PendingAction
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		q.logger.Error().Err(err).Msg("discarding unreadable pending actions")
		q.notifier.Notify(Notification{
			Level:   LevelError,
			Title:   "Offline queue reset",
			Message: "Stored offline actions could not be read and were discarded.",
		})
		return q, nil
	}
	q.pending = pending
	q.logger.Debug().Int("pending", len(pending)).Msg("loaded pending actions")
	return q, nil
}

// Online reports the current connectivity state.
func (q *Queue) Online() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.online
}

// IsSyncing reports whether a sync run is in flight.
func (q *Queue) IsSyncing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.syncing
}

// Pending returns a copy of the pending set in replay order.
func (q *Queue) Pending() []PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]PendingAction(nil), q.pending...)
}

// State returns the signal-relevant state.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return State{Online: q.online, Pending: len(q.pending), Syncing: q.syncing}
}

// Enqueue appends an action and persists the set. When persisting fails the
// action stays in memory for this session and the error is returned.
func (q *Queue) Enqueue(ctx context.Context, in PendingActionInput) (PendingAction, error) {
	kind, payload, endpoint, method, err := in.normalize()
	if err != nil {
		return PendingAction{}, err
	}

	action := PendingAction{
		ID:        q.newID(),
		Timestamp: q.now().UnixMilli(),
		Kind:      kind,
		Payload:   payload,
		Endpoint:  endpoint,
		Method:    method,
	}

	q.mu.Lock()
	q.pending = append(q.pending, action)
	err = q.persistLocked(ctx)
	q.mu.Unlock()

	if err != nil {
		q.logger.Error().Err(err).Str("id", action.ID).Msg("persist after enqueue failed")
		q.notifier.Notify(Notification{
			Level:   LevelError,
			Title:   "Could not save offline action",
			Message: err.Error(),
		})
		return action, err
	}

	q.logger.Info().Str("id", action.ID).Str("kind", string(kind)).Msg("queued offline action")
	q.notifier.Notify(Notification{
		Level:   LevelSuccess,
		Title:   "Saved offline",
		Message: fmt.Sprintf("Your %s will be sent when the connection is restored.", kind),
	})
	return action, nil
}

// ClearPending empties the pending set and persists the empty state.
func (q *Queue) ClearPending(ctx context.Context) error {
	q.mu.Lock()
	q.pending = nil
	err := q.persistLocked(ctx)
	q.mu.Unlock()

	if err != nil {
		q.notifier.Notify(Notification{Level: LevelError, Title: "Could not clear offline actions", Message: err.Error()})
		return err
	}
	q.logger.Info().Msg("cleared pending actions")
	q.notifier.Notify(Notification{Level: LevelInfo, Title: "Offline actions cleared"})
	return nil
}

// SyncPending replays every pending action once, in insertion order.
//
// It does nothing when offline, when nothing is pending, or when another
// run is in flight. Failures do not stop later actions. Delivered actions
// are removed and the set is persisted once at the end; actions enqueued
// during the run are kept for the next one.
func (q *Queue) SyncPending(ctx context.Context) SyncResult {
	q.mu.Lock()
	switch {
	case !q.online:
		q.mu.Unlock()
		return SyncResult{Skipped: SkipOffline}
	case q.syncing:
		q.mu.Unlock()
		return SyncResult{Skipped: SkipInFlight}
	case len(q.pending) == 0:
		q.mu.Unlock()
		return SyncResult{Skipped: SkipEmpty}
	}
	q.syncing = true
	snapshot := append([]PendingAction(nil), q.pending...)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.syncing = false
		q.mu.Unlock()
	}()

	result := SyncResult{Attempted: len(snapshot)}
	delivered := make(map[string]bool, len(snapshot))
	for _, action := range snapshot {
		if err := q.replay(ctx, action); err != nil {
			result.Failed++
			q.logger.Warn().Err(err).Str("id", action.ID).Str("endpoint", action.Endpoint).Msg("replay failed")
			continue
		}
		result.Succeeded++
		delivered[action.ID] = true
	}

	q.mu.Lock()
	remaining := make([]PendingAction, 0, len(q.pending))
	for _, action := range q.pending {
		if !delivered[action.ID] {
			remaining = append(remaining, action)
		}
	}
	q.pending = remaining
	result.PersistErr = q.persistLocked(ctx)
	q.mu.Unlock()

	q.logger.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("sync finished")
	q.report(result)
	return result
}

// RetrySync is the user-triggered sync. It fails with ErrOffline instead of
// attempting network calls when there is no connectivity.
func (q *Queue) RetrySync(ctx context.Context) (SyncResult, error) {
	if !q.Online() {
		q.notifier.Notify(Notification{
			Level:   LevelError,
			Title:   "Still offline",
			Message: "Pending actions will be sent when the connection is restored.",
		})
		return SyncResult{Skipped: SkipOffline}, ErrOffline
	}
	return q.SyncPending(ctx), nil
}

// SetOnline records a connectivity change and syncs when coming back online
// with pending work.
func (q *Queue) SetOnline(ctx context.Context, online bool) {
	q.OnSignal(ctx, signal.Event{Name: signal.Connectivity, Value: online})
}

// OnSignal implements signal.Observer.
func (q *Queue) OnSignal(ctx context.Context, ev signal.Event) {
	if ev.Name != signal.Connectivity {
		return
	}

	q.mu.Lock()
	changed := q.online != ev.Value
	q.online = ev.Value
	st := State{Online: q.online, Pending: len(q.pending), Syncing: q.syncing}
	q.mu.Unlock()

	if changed {
		if ev.Value {
			q.notifier.Notify(Notification{Level: LevelInfo, Title: "Back online"})
		} else {
			q.notifier.Notify(Notification{
				Level:   LevelWarning,
				Title:   "You are offline",
				Message: "Changes will be saved and synced when you reconnect.",
			})
		}
	}

	if React(ev, st) == ReactSync {
		q.SyncPending(ctx)
	}
}

func (q *Queue) report(r SyncResult) {
	if r.PersistErr != nil {
		q.logger.Error().Err(r.PersistErr).Msg("persist after sync failed")
		q.notifier.Notify(Notification{Level: LevelError, Title: "Could not save sync progress", Message: r.PersistErr.Error()})
	}
	switch {
	case r.Failed == 0:
		q.notifier.Notify(Notification{
			Level:   LevelSuccess,
			Title:   "Sync complete",
			Message: fmt.Sprintf("%d pending action(s) synced.", r.Succeeded),
		})
	default:
		q.notifier.Notify(Notification{
			Level:   LevelError,
			Title:   "Sync incomplete",
			Message: fmt.Sprintf("%d synced, %d failed. Failed actions will be retried.", r.Succeeded, r.Failed),
		})
	}
}

// persistLocked writes the full pending set. Callers hold q.mu.
func (q *Queue) persistLocked(ctx context.Context) error {
	pending := q.pending
	if pending == nil {
		pending = []PendingAction{}
	}
	b, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("encode pending actions: %w", err)
	}
	if err := q.store.Set(ctx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("persist pending actions: %w", err)
	}
	return nil
}

func (q *Queue) replay(ctx context.Context, action PendingAction) error {
	target, err := q.resolve(action.Endpoint)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, action.Method, target, bytes.NewReader(action.Payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range q.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ClientRefHeader, action.ID)

	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

func (q *Queue) resolve(endpoint string) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if q.baseURL == nil {
		return "", fmt.Errorf("relative endpoint %q with no base URL", endpoint)
	}
	return q.baseURL.ResolveReference(ref).String(), nil
}
