package signal

import (
	"context"
	"net/http"
	"time"
)

// Prober turns a health endpoint into a connectivity signal. It publishes
// only on transitions; the first probe always publishes.
type Prober struct {
	URL      string
	Client   *http.Client
	Interval time.Duration
	Bus      *Bus

	known bool
	last  bool
}

// Probe checks reachability once and publishes on change. It returns the
// observed state.
func (p *Prober) Probe(ctx context.Context) bool {
	online := p.reachable(ctx)
	if !p.known || online != p.last {
		p.known = true
		p.last = online
		p.Bus.Publish(ctx, Event{Name: Connectivity, Value: online})
	}
	return online
}

// Run probes every Interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	p.Probe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}

func (p *Prober) reachable(ctx context.Context) bool {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
