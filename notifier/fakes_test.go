package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront-service/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type memAttempts struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]models.NotificationAttempt
	order     []uuid.UUID
	createErr error
	updates   int
}

func newMemAttempts() *memAttempts {
	return &memAttempts{rows: make(map[uuid.UUID]models.NotificationAttempt)}
}

func (m *memAttempts) Create(_ context.Context, a *models.NotificationAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	a.ID = uuid.New()
	m.rows[a.ID] = *a
	m.order = append(m.order, a.ID)
	return nil
}

func (m *memAttempts) UpdateOutcome(_ context.Context, a *models.NotificationAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[a.ID]
	if !ok {
		return errors.New("missing row")
	}
	row.Status = a.Status
	row.Provider = a.Provider
	row.ProviderResponse = a.ProviderResponse
	row.Error = a.Error
	row.Attempts = a.Attempts
	m.rows[a.ID] = row
	m.updates++
	return nil
}

func (m *memAttempts) List(_ context.Context, _ models.NotificationFilter) ([]models.NotificationAttempt, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.NotificationAttempt, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out, int64(len(out)), nil
}

func (m *memAttempts) all() []models.NotificationAttempt {
	out, _, _ := m.List(context.Background(), models.NotificationFilter{})
	return out
}

// stubProvider fails its first failures sends, then succeeds.
type stubProvider struct {
	name     string
	email    bool
	failures int
	err      error

	mu    sync.Mutex
	calls []string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Accepts(destination string) bool { return IsEmail(destination) == p.email }

func (p *stubProvider) Send(_ context.Context, destination, body string, _ *uuid.UUID) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, destination+"|"+body)
	if p.failures != 0 {
		if p.failures > 0 {
			p.failures--
		}
		if p.err != nil {
			return "", p.err
		}
		return "", errors.New(p.name + " unavailable")
	}
	return p.name + "-msg-1", nil
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestDispatcher(repo *memAttempts, providers ...Provider) (*Dispatcher, *recordedSleeps) {
	d := NewDispatcher(repo, MustTemplates(), providers,
		DispatcherConfig{MaxRounds: 3, Backoff: time.Second}, nil, zap.NewNop())
	sleeps := &recordedSleeps{}
	d.sleep = sleeps.sleep
	return d, sleeps
}

type recordingHandler struct {
	mu   sync.Mutex
	msgs []Message
}

func (h *recordingHandler) Notify(_ context.Context, msg Message) *models.NotificationAttempt {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	return &models.NotificationAttempt{Status: models.AttemptStatusSent}
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

type recordingQueue struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}
