package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Queue hands a message off for asynchronous delivery.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
}

// WorkerPool delivers queued messages on a fixed number of goroutines.
// Enqueue never blocks; a full buffer rejects the message.
type WorkerPool struct {
	handler    Handler
	jobs       chan Message
	workers    int
	jobTimeout time.Duration
	logger     *zap.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewWorkerPool(handler Handler, workers, size int, logger *zap.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		handler:    handler,
		jobs:       make(chan Message, size),
		workers:    workers,
		jobTimeout: 2 * time.Minute,
		logger:     logger,
	}
}

// Start launches the workers. It is a no-op after the first call.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	p.logger.Info("notification workers started", zap.Int("workers", p.workers))
}

func (p *WorkerPool) run() {
	defer p.wg.Done()
	for msg := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
		p.handler.Notify(ctx, msg)
		cancel()
	}
}

func (p *WorkerPool) Enqueue(_ context.Context, msg Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueClosed
	}
	select {
	case p.jobs <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new messages, lets the workers drain what is buffered and
// waits for them or for ctx, whichever comes first.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("notification workers stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification workers did not drain: %w", ctx.Err())
	}
}

// MessageSender is the part of an SQS queue the notifier needs.
type MessageSender interface {
	SendMessage(ctx context.Context, body string) error
}

// SQSQueue publishes messages to SQS for the consumer to deliver.
type SQSQueue struct {
	sender MessageSender
}

func NewSQSQueue(sender MessageSender) *SQSQueue {
	return &SQSQueue{sender: sender}
}

func (q *SQSQueue) Enqueue(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	return q.sender.SendMessage(ctx, string(body))
}
