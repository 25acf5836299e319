// Package poller drives backend chunking and embedding work for documents
// the client has handed off, until none are left in flight.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/apiclient"
	"github.com/kiranshivaraju/docingest/pkg/models"
)

const (
	DefaultInterval = 3 * time.Second

	// maxConsecutiveErrors stops the loop when the backend keeps failing.
	maxConsecutiveErrors = 5
)

var ErrGaveUp = errors.New("poller stopped after repeated errors")

// API is the subset of the backend the poller uses.
type API interface {
	ProcessJob(ctx context.Context) (*models.JobResult, error)
	IngestFinish(ctx context.Context, documentID uuid.UUID) (*models.IngestResult, error)
	ListDocuments(ctx context.Context) ([]models.DocumentView, error)
}

var _ API = (apiclient.Client)(nil)

// Poller asks the backend for one unit of outstanding work per tick. The loop
// runs only while the in-flight set is non-empty: it starts on the first
// Track and exits as soon as the set drains.
type Poller struct {
	api      API
	interval time.Duration
	inflight *InflightSet

	onRefresh func([]models.DocumentView)
	onStuck   func(models.DocumentView)

	mu      sync.Mutex
	running bool
	done    chan struct{}
	err     error
}

type Option func(*Poller)

// WithRefresh is called with the full document list after every completion.
func WithRefresh(fn func([]models.DocumentView)) Option {
	return func(p *Poller) { p.onRefresh = fn }
}

// WithStuckHandler is called once for each tracked document found stuck.
func WithStuckHandler(fn func(models.DocumentView)) Option {
	return func(p *Poller) { p.onStuck = fn }
}

func New(api API, interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		api:      api,
		interval: interval,
		inflight: NewInflightSet(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Inflight exposes the tracked set.
func (p *Poller) Inflight() *InflightSet { return p.inflight }

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Track adds a document to the in-flight set and starts the loop if it is
// not running. The loop stops when ctx is cancelled.
func (p *Poller) Track(ctx context.Context, id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inflight.Add(id) {
		slog.Debug("tracking document", "document_id", id)
	}
	if p.running {
		return
	}
	p.running = true
	p.err = nil
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Wait blocks until the loop has exited or ctx is done. It returns ErrGaveUp
// if the loop stopped on errors.
func (p *Poller) Wait(ctx context.Context) error {
	p.mu.Lock()
	running, done := p.running, p.done
	p.mu.Unlock()
	if !running {
		return p.lastErr()
	}

	select {
	case <-done:
		return p.lastErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry re-runs the finish step for a document from its stored text, then
// tracks it if the backend left work outstanding.
func (p *Poller) Retry(ctx context.Context, id uuid.UUID) (*models.IngestResult, error) {
	res, err := p.api.IngestFinish(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("retrying document %s: %w", id, err)
	}
	slog.Info("retry accepted", "document_id", id, "status", res.Status, "warning", res.Warning)
	if models.IsProcessingStatus(res.Status) {
		p.Track(ctx, id)
	}
	return res, nil
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			p.stop(done, nil)
			return
		case <-ticker.C:
		}

		if err := p.tick(ctx); err != nil {
			failures++
			slog.Warn("process-job failed", "attempt", failures, "error", err)
			if apiclient.IsTerminal(err) || failures >= maxConsecutiveErrors {
				p.stop(done, fmt.Errorf("%w: %w", ErrGaveUp, err))
				return
			}
		} else {
			failures = 0
		}

		p.mu.Lock()
		if p.inflight.Len() == 0 {
			p.running = false
			close(done)
			p.mu.Unlock()
			slog.Debug("in-flight set drained, poller stopped")
			return
		}
		p.mu.Unlock()
	}
}

func (p *Poller) stop(done chan struct{}, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.inflight.IDs() {
		p.inflight.Remove(id)
	}
	p.err = err
	p.running = false
	close(done)
}

func (p *Poller) lastErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// tick performs one unit of backend work and reconciles the tracked set.
// The list is reloaded every tick: a backend that keeps answering
// processing for other documents must not hide stuck or finished ones.
func (p *Poller) tick(ctx context.Context) error {
	res, err := p.api.ProcessJob(ctx)
	if err != nil {
		return err
	}

	if res.Status == models.JobStatusCompleted {
		p.inflight.Remove(res.DocumentID)
		slog.Info("document ready", "document_id", res.DocumentID)
	}
	return p.refresh(ctx)
}

// refresh reloads the document list, drops tracked documents that reached a
// terminal status, and reports stuck ones. Stuck documents leave the set;
// they wait for an explicit Retry.
func (p *Poller) refresh(ctx context.Context) error {
	docs, err := p.api.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("refreshing documents: %w", err)
	}
	for _, d := range docs {
		if !p.inflight.Contains(d.ID) {
			continue
		}
		switch {
		case models.IsTerminalStatus(d.Status):
			p.inflight.Remove(d.ID)
			slog.Info("document finished", "document_id", d.ID, "status", d.Status)
		case d.Stuck:
			p.inflight.Remove(d.ID)
			slog.Warn("document stuck", "document_id", d.ID, "status", d.Status, "updated_at", d.UpdatedAt)
			if p.onStuck != nil {
				p.onStuck(d)
			}
		}
	}
	if p.onRefresh != nil {
		p.onRefresh(docs)
	}
	return nil
}

// Stuck filters docs down to those reported stuck.
func Stuck(docs []models.DocumentView) []models.DocumentView {
	var out []models.DocumentView
	for _, d := range docs {
		if d.Stuck {
			out = append(out, d)
		}
	}
	return out
}
