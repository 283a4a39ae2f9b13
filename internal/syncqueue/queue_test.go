package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/intake-edge/internal/kvstore"
	"github.com/PratikDhanave/intake-edge/internal/signal"
)

// ============================================================================
// Test Helpers
// ============================================================================

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recordingNotifier) last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return Notification{}
	}
	return r.notes[len(r.notes)-1]
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("act-%d", n.Add(1)) }
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.UnixMilli(1700000000000) }
}

func newQueue(t *testing.T, kv kvstore.Store, opts ...Option) *Queue {
	t.Helper()
	base := []Option{WithIDGenerator(sequentialIDs()), WithClock(fixedClock())}
	q, err := New(context.Background(), kv, append(base, opts...)...)
	require.NoError(t, err)
	return q
}

func ticket(subject string) PendingActionInput {
	return PendingActionInput{
		Kind:     KindTicket,
		Endpoint: "/api/tickets",
		Method:   "POST",
		Payload:  map[string]any{"subject": subject},
	}
}

func persisted(t *testing.T, kv kvstore.Store) []PendingAction {
	t.Helper()
	raw, err := kv.Get(context.Background(), StorageKey)
	require.NoError(t, err)
	var out []PendingAction
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func ids(actions []PendingAction) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.ID
	}
	return out
}

// failingStore fails every Set.
type failingStore struct{ *kvstore.Memory }

func (failingStore) Set(context.Context, string, string) error { return errors.New("quota exceeded") }

// ============================================================================
// Enqueue
// ============================================================================

func TestEnqueue_WhileOffline(t *testing.T) {
	kv := kvstore.NewMemory()
	q := newQueue(t, kv, WithOnline(false))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(ctx, ticket(fmt.Sprintf("subject-%d", i)))
		require.NoError(t, err)
	}

	pending := q.Pending()
	require.Len(t, pending, 5)
	for i, a := range pending {
		assert.JSONEq(t, fmt.Sprintf(`{"subject":"subject-%d"}`, i), string(a.Payload))
		assert.Equal(t, KindTicket, a.Kind)
		assert.Equal(t, "POST", a.Method)
		assert.Equal(t, int64(1700000000000), a.Timestamp)
	}
	assert.Equal(t, pending, persisted(t, kv))
}

func TestEnqueue_AssignsUniqueIDs(t *testing.T) {
	q, err := New(context.Background(), kvstore.NewMemory(), WithOnline(false))
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		a, err := q.Enqueue(context.Background(), ticket("x"))
		require.NoError(t, err)
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}
}

func TestEnqueue_DefaultsMethodAndKeepsRawPayload(t *testing.T) {
	q := newQueue(t, kvstore.NewMemory())
	a, err := q.Enqueue(context.Background(), PendingActionInput{
		Kind:     KindLead,
		Endpoint: "/api/leads",
		Payload:  json.RawMessage(`{"name":"Ada"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, a.Method)
	assert.JSONEq(t, `{"name":"Ada"}`, string(a.Payload))
}

func TestEnqueue_RejectsBadInput(t *testing.T) {
	q := newQueue(t, kvstore.NewMemory())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, PendingActionInput{Kind: "invoice", Endpoint: "/x"})
	assert.ErrorContains(t, err, "unknown action kind")

	_, err = q.Enqueue(ctx, PendingActionInput{Kind: KindContact})
	assert.ErrorContains(t, err, "endpoint is required")

	_, err = q.Enqueue(ctx, PendingActionInput{Kind: KindContact, Endpoint: "/x", Payload: json.RawMessage(`{`)})
	assert.ErrorContains(t, err, "not valid JSON")

	assert.Empty(t, q.Pending())
}

func TestEnqueue_StorageFailureKeepsActionInMemory(t *testing.T) {
	notes := &recordingNotifier{}
	q := newQueue(t, failingStore{kvstore.NewMemory()}, WithNotifier(notes))

	a, err := q.Enqueue(context.Background(), ticket("Help"))
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Equal(t, []PendingAction{a}, q.Pending())
	assert.Equal(t, LevelError, notes.last().Level)
}

// ============================================================================
// SyncPending
// ============================================================================

func TestSyncPending_OfflineIsNoop(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	kv := kvstore.NewMemory()
	q := newQueue(t, kv, WithOnline(false), WithBaseURL(srv.URL))
	_, err := q.Enqueue(context.Background(), ticket("Help"))
	require.NoError(t, err)
	before := persisted(t, kv)

	res := q.SyncPending(context.Background())

	assert.Equal(t, SkipOffline, res.Skipped)
	assert.False(t, res.Ran())
	assert.Zero(t, calls.Load())
	assert.Equal(t, before, persisted(t, kv))
	assert.Len(t, q.Pending(), 1)
}

func TestSyncPending_EmptyIsNoop(t *testing.T) {
	q := newQueue(t, kvstore.NewMemory())
	res := q.SyncPending(context.Background())
	assert.Equal(t, SkipEmpty, res.Skipped)
}

func TestSyncPending_ExampleTicketScenario(t *testing.T) {
	var got struct {
		method, path, contentType, ref string
		body                           string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got.method, got.path = r.Method, r.URL.Path
		got.contentType = r.Header.Get("Content-Type")
		got.ref = r.Header.Get(ClientRefHeader)
		got.body = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	kv := kvstore.NewMemory()
	q := newQueue(t, kv, WithOnline(false), WithBaseURL(srv.URL))
	ctx := context.Background()

	a, err := q.Enqueue(ctx, ticket("Help"))
	require.NoError(t, err)
	require.Len(t, q.Pending(), 1)

	q.mu.Lock()
	q.online = true
	q.mu.Unlock()

	res := q.SyncPending(ctx)

	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 0, res.Failed)
	assert.NoError(t, res.PersistErr)
	assert.Empty(t, q.Pending())
	assert.Empty(t, persisted(t, kv))

	assert.Equal(t, "POST", got.method)
	assert.Equal(t, "/api/tickets", got.path)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, a.ID, got.ref)
	assert.JSONEq(t, `{"subject":"Help"}`, got.body)
}

func TestSyncPending_KeepsFailuresInOriginalOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/unavailable":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/invalid":
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
	}))
	defer srv.Close()

	kv := kvstore.NewMemory()
	q := newQueue(t, kv, WithBaseURL(srv.URL), WithOnline(false))
	ctx := context.Background()

	paths := []string{"/unavailable", "/ok", "/invalid", "/ok", "http://127.0.0.1:1/down"}
	for _, p := range paths {
		_, err := q.Enqueue(ctx, PendingActionInput{Kind: KindContact, Endpoint: p})
		require.NoError(t, err)
	}
	q.mu.Lock()
	q.online = true
	q.mu.Unlock()

	res := q.SyncPending(ctx)

	assert.Equal(t, 5, res.Attempted)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, []string{"act-1", "act-3", "act-5"}, ids(q.Pending()))
	assert.Equal(t, []string{"act-1", "act-3", "act-5"}, ids(persisted(t, kv)))
}

func TestSyncPending_FirstFailsSecondSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tickets" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notes := &recordingNotifier{}
	q := newQueue(t, kvstore.NewMemory(), WithBaseURL(srv.URL), WithNotifier(notes))
	ctx := context.Background()

	first, err := q.Enqueue(ctx, ticket("Help"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, PendingActionInput{Kind: KindLead, Endpoint: "/api/leads", Payload: map[string]string{"name": "Ada"}})
	require.NoError(t, err)

	res := q.SyncPending(ctx)

	assert.Equal(t, SyncResult{Attempted: 2, Succeeded: 1, Failed: 1}, res)
	assert.Equal(t, []PendingAction{first}, q.Pending())
	assert.Equal(t, LevelError, notes.last().Level)
	assert.Contains(t, notes.last().Message, "1 synced, 1 failed")
}

func TestSyncPending_SingleFlight(t *testing.T) {
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	q := newQueue(t, kvstore.NewMemory(), WithBaseURL(srv.URL))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, ticket("x"))
		require.NoError(t, err)
	}

	done := make(chan SyncResult)
	go func() { done <- q.SyncPending(ctx) }()

	<-started
	assert.True(t, q.IsSyncing())
	second := q.SyncPending(ctx)
	assert.Equal(t, SkipInFlight, second.Skipped)

	close(release)
	first := <-done

	assert.Equal(t, 3, first.Succeeded)
	assert.Equal(t, int32(3), calls.Load())
	assert.False(t, q.IsSyncing())
	assert.Empty(t, q.Pending())
}

func TestSyncPending_EnqueueDuringSyncIsKeptForNextRun(t *testing.T) {
	started := make(chan struct{}, 10)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	kv := kvstore.NewMemory()
	q := newQueue(t, kv, WithBaseURL(srv.URL))
	ctx := context.Background()
	_, err := q.Enqueue(ctx, ticket("first"))
	require.NoError(t, err)

	done := make(chan SyncResult)
	go func() { done <- q.SyncPending(ctx) }()
	<-started

	late, err := q.Enqueue(ctx, ticket("late"))
	require.NoError(t, err)

	close(release)
	res := <-done

	assert.Equal(t, 1, res.Attempted)
	assert.Equal(t, []PendingAction{late}, q.Pending())
	assert.Equal(t, []PendingAction{late}, persisted(t, kv))
}

func TestSyncPending_SendsConfiguredHeaders(t *testing.T) {
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("X-API-Key")
	}))
	defer srv.Close()

	q := newQueue(t, kvstore.NewMemory(), WithBaseURL(srv.URL), WithHeader("X-API-Key", "tenant-key-123"))
	_, err := q.Enqueue(context.Background(), ticket("x"))
	require.NoError(t, err)

	res := q.SyncPending(context.Background())
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, "tenant-key-123", key)
}

func TestSyncPending_RelativeEndpointWithoutBaseFails(t *testing.T) {
	q := newQueue(t, kvstore.NewMemory())
	_, err := q.Enqueue(context.Background(), ticket("x"))
	require.NoError(t, err)

	res := q.SyncPending(context.Background())
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, q.Pending(), 1)
}

func TestSyncPending_PersistFailureIsReportedNotReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	mem := kvstore.NewMemory()
	q := newQueue(t, mem, WithBaseURL(srv.URL))
	_, err := q.Enqueue(context.Background(), ticket("x"))
	require.NoError(t, err)

	notes := &recordingNotifier{}
	q.store = failingStore{mem}
	q.notifier = notes

	res := q.SyncPending(context.Background())
	assert.Equal(t, 1, res.Succeeded)
	assert.ErrorContains(t, res.PersistErr, "quota exceeded")
	assert.Empty(t, q.Pending())
	assert.Equal(t, "Could not save sync progress", notes.notes[0].Title)
}

// ============================================================================
// ClearPending / RetrySync / persistence
// ============================================================================

func TestClearPending(t *testing.T) {
	kv := kvstore.NewMemory()
	q := newQueue(t, kv, WithOnline(false))
	ctx := context.Background()

	require.NoError(t, q.ClearPending(ctx))
	assert.Empty(t, persisted(t, kv))

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, ticket("x"))
		require.NoError(t, err)
	}
	require.NoError(t, q.ClearPending(ctx))

	assert.Empty(t, q.Pending())
	raw, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestRetrySync_OfflineReportsFailure(t *testing.T) {
	notes := &recordingNotifier{}
	q := newQueue(t, kvstore.NewMemory(), WithOnline(false), WithNotifier(notes))

	res, err := q.RetrySync(context.Background())
	assert.ErrorIs(t, err, ErrOffline)
	assert.Equal(t, SkipOffline, res.Skipped)
	assert.Equal(t, LevelError, notes.last().Level)
}

func TestRetrySync_Online(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	q := newQueue(t, kvstore.NewMemory(), WithBaseURL(srv.URL))
	_, err := q.Enqueue(context.Background(), ticket("x"))
	require.NoError(t, err)

	res, err := q.RetrySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
}

func TestReload_RestoresPendingSet(t *testing.T) {
	kv := kvstore.NewMemory()
	ctx := context.Background()
	q := newQueue(t, kv, WithOnline(false))
	for _, s := range []string{"a", "b", "c"} {
		_, err := q.Enqueue(ctx, ticket(s))
		require.NoError(t, err)
	}
	before := q.Pending()

	restarted, err := New(ctx, kv)
	require.NoError(t, err)

	assert.Equal(t, before, restarted.Pending())
}

func TestNew_CorruptBlobStartsEmpty(t *testing.T) {
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(context.Background(), StorageKey, "{not json"))
	notes := &recordingNotifier{}

	q, err := New(context.Background(), kv, WithNotifier(notes))
	require.NoError(t, err)
	assert.Empty(t, q.Pending())
	assert.Equal(t, "Offline queue reset", notes.last().Title)
}

type brokenReader struct{ *kvstore.Memory }

func (brokenReader) Get(context.Context, string) (string, error) { return "", errors.New("io error") }

func TestNew_StorageReadErrorIsReturned(t *testing.T) {
	_, err := New(context.Background(), brokenReader{kvstore.NewMemory()})
	assert.ErrorContains(t, err, "io error")
}

// ============================================================================
// Signals
// ============================================================================

func TestOnSignal_ReconnectTriggersSync(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	bus := signal.NewBus(zerolog.Nop())
	q := newQueue(t, kvstore.NewMemory(), WithOnline(false), WithBaseURL(srv.URL))
	bus.Subscribe(signal.Connectivity, q)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, ticket("x"))
	require.NoError(t, err)

	bus.Publish(ctx, signal.Event{Name: signal.Connectivity, Value: true})

	assert.True(t, q.Online())
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, q.Pending())

	q.SetOnline(ctx, false)
	assert.False(t, q.Online())
}

func TestOnSignal_IgnoresOtherSignals(t *testing.T) {
	q := newQueue(t, kvstore.NewMemory(), WithOnline(false))
	q.OnSignal(context.Background(), signal.Event{Name: signal.Visibility, Value: true})
	assert.False(t, q.Online())
}

func TestReact(t *testing.T) {
	online := signal.Event{Name: signal.Connectivity, Value: true}
	offline := signal.Event{Name: signal.Connectivity, Value: false}
	visible := signal.Event{Name: signal.Visibility, Value: true}

	tests := []struct {
		name string
		ev   signal.Event
		st   State
		want Reaction
	}{
		{"online with work", online, State{Online: true, Pending: 2}, ReactSync},
		{"online nothing pending", online, State{Online: true}, ReactNone},
		{"online already syncing", online, State{Online: true, Pending: 1, Syncing: true}, ReactNone},
		{"offline", offline, State{Pending: 1}, ReactNone},
		{"other signal", visible, State{Online: true, Pending: 1}, ReactNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, React(tt.ev, tt.st))
		})
	}
}

func TestPendingAction_JSONShape(t *testing.T) {
	q := newQueue(t, kvstore.NewMemory(), WithOnline(false))
	_, err := q.Enqueue(context.Background(), ticket("Help"))
	require.NoError(t, err)

	raw, err := q.store.Get(context.Background(), StorageKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "["))
	assert.JSONEq(t, `[{"id":"act-1","timestamp":1700000000000,"kind":"ticket","payload":{"subject":"Help"},"endpoint":"/api/tickets","method":"POST"}]`, raw)
}
