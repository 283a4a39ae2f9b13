package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/PratikDhanave/intake-edge/internal/auth"
	"github.com/PratikDhanave/intake-edge/internal/edge"
	"github.com/PratikDhanave/intake-edge/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testKey = "key1"

// newTestEngine mirrors the production middleware order.
func newTestEngine() (*gin.Engine, gin.IRoutes) {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(edge.Recovery(zerolog.Nop()), edge.CORS(), edge.WithLogger(zerolog.Nop()))
	r.NoRoute(edge.NoRoute)
	r.NoMethod(edge.NoMethod)
	authed := r.Group("/")
	authed.Use(auth.APIKeyMiddleware(map[string]string{testKey: "tenant1"}))
	return r, authed
}

func do(r http.Handler, method, path, contentType, body string, headers map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	return do(r, method, path, "application/json", body, nil)
}

func assertCORS(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", w.Header().Get("Access-Control-Allow-Headers"))
}

type fakeInbound struct {
	mu   sync.Mutex
	seen map[string]models.InboundMessage
	err  error
}

func (f *fakeInbound) InsertInbound(_ context.Context, m models.InboundMessage) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]models.InboundMessage{}
	}
	if _, ok := f.seen[m.ProviderSID]; ok {
		return false, nil
	}
	f.seen[m.ProviderSID] = m
	return true, nil
}

type fakeGmail struct {
	saved []models.GmailConnection
}

func (f *fakeGmail) SaveGmailConnection(_ context.Context, g models.GmailConnection) error {
	f.saved = append(f.saved, g)
	return nil
}

type eventKey struct{ tenant, id string }

type fakeEvents struct {
	mu     sync.Mutex
	events map[eventKey]string
	err    error
}

func (f *fakeEvents) InsertEvent(_ context.Context, tenantID, eventID, eventName string, _ time.Time, _ map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.events == nil {
		f.events = map[eventKey]string{}
	}
	k := eventKey{tenantID, eventID}
	if _, ok := f.events[k]; ok {
		return false, nil
	}
	f.events[k] = eventName
	return true, nil
}

func (f *fakeEvents) CountEvents(_ context.Context, tenantID, eventName string, _, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, name := range f.events {
		if k.tenant == tenantID && name == eventName {
			n++
		}
	}
	return n, f.err
}

type fakeCRM struct {
	mu       sync.Mutex
	refs     map[string]string
	tickets  []models.Ticket
	leads    []models.Lead
	contacts []models.Contact
}

func (f *fakeCRM) once(tenant, ref, id string) (string, bool) {
	if f.refs == nil {
		f.refs = map[string]string{}
	}
	k := tenant + "/" + ref
	if existing, ok := f.refs[k]; ok {
		return existing, false
	}
	f.refs[k] = id
	return id, true
}

func (f *fakeCRM) InsertTicket(_ context.Context, t models.Ticket) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, created := f.once(t.TenantID, t.ClientRef, t.ID)
	if created {
		f.tickets = append(f.tickets, t)
	}
	return id, created, nil
}

func (f *fakeCRM) ListTickets(_ context.Context, tenantID string, _ int) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Ticket
	for _, t := range f.tickets {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeCRM) InsertLead(_ context.Context, l models.Lead) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, created := f.once(l.TenantID, l.ClientRef, l.ID)
	if created {
		f.leads = append(f.leads, l)
	}
	return id, created, nil
}

func (f *fakeCRM) ListLeads(_ context.Context, _ string, _ int) ([]models.Lead, error) {
	return f.leads, nil
}

func (f *fakeCRM) InsertContact(_ context.Context, c models.Contact) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, created := f.once(c.TenantID, c.ClientRef, c.ID)
	if created {
		f.contacts = append(f.contacts, c)
	}
	return id, created, nil
}

func (f *fakeCRM) ListContacts(_ context.Context, _ string, _ int) ([]models.Contact, error) {
	return f.contacts, nil
}
