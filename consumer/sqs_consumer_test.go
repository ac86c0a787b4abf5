package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-service/models"
	"storefront-service/notifier"
	aws_pkg "storefront-service/pkg/aws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeQueue struct {
	mu      sync.Mutex
	batches [][]aws_pkg.Message
	err     error
	deleted []string
}

func (q *fakeQueue) Receive(ctx context.Context, _ int32, _ int32) ([]aws_pkg.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	if len(q.batches) == 0 {
		return nil, ctx.Err()
	}
	b := q.batches[0]
	q.batches = q.batches[1:]
	return b, nil
}

func (q *fakeQueue) Delete(_ context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, handle)
	return nil
}

type fakeHandler struct {
	mu   sync.Mutex
	msgs []notifier.Message
}

func (h *fakeHandler) Notify(_ context.Context, msg notifier.Message) *models.NotificationAttempt {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	return &models.NotificationAttempt{Status: models.AttemptStatusSent}
}

func body(t *testing.T, msg notifier.Message) string {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return string(b)
}

func TestProcessMessage_RawAndEnvelope(t *testing.T) {
	msg := notifier.Message{Destination: "09171234567", Template: notifier.TemplateAccepted}
	env, err := json.Marshal(map[string]string{"Type": "Notification", "Message": body(t, msg)})
	require.NoError(t, err)

	q := &fakeQueue{}
	h := &fakeHandler{}
	c := NewSQSConsumer(q, h, nil, zap.NewNop())

	c.processMessage(context.Background(), aws_pkg.Message{Body: body(t, msg), ReceiptHandle: "r1"})
	c.processMessage(context.Background(), aws_pkg.Message{Body: string(env), ReceiptHandle: "r2"})

	require.Len(t, h.msgs, 2)
	assert.Equal(t, msg, h.msgs[0])
	assert.Equal(t, msg, h.msgs[1])
	assert.Equal(t, []string{"r1", "r2"}, q.deleted)
}

func TestProcessMessage_DropsGarbage(t *testing.T) {
	q := &fakeQueue{}
	h := &fakeHandler{}
	c := NewSQSConsumer(q, h, nil, zap.NewNop())

	c.processMessage(context.Background(), aws_pkg.Message{Body: "not json", ReceiptHandle: "r1"})
	c.processMessage(context.Background(), aws_pkg.Message{Body: `{"template":"order_accepted"}`, ReceiptHandle: "r2"})

	assert.Empty(t, h.msgs)
	assert.Equal(t, []string{"r1", "r2"}, q.deleted)
}

func TestStart_StopsOnCancel(t *testing.T) {
	msg := notifier.Message{Destination: "09171234567", Template: notifier.TemplateDelivered}
	q := &fakeQueue{batches: [][]aws_pkg.Message{{{Body: body(t, msg), ReceiptHandle: "r1"}}}}
	h := &fakeHandler{}
	c := NewSQSConsumer(q, h, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.msgs) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestPoll_BacksOffOnError(t *testing.T) {
	q := &fakeQueue{err: errors.New("throttled")}
	c := NewSQSConsumer(q, &fakeHandler{}, nil, zap.NewNop())
	c.errorBackoff = 10 * time.Millisecond

	start := time.Now()
	c.poll(context.Background())
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
