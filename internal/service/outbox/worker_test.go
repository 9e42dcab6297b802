package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ecom/internal/domain"
	"github.com/vladislavdragonenkov/ecom/internal/storage/memory"
)

type stubPublisher struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	published []domain.OutboxMessage
}

func (p *stubPublisher) Publish(msg domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.calls <= p.failFirst {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, msg)
	return nil
}

func enqueueEvent(t *testing.T, repo domain.OutboxRepository, eventType string) domain.OutboxMessage {
	t.Helper()

	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     eventType,
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	return msg
}

func TestWorkerProcessOncePublishesPending(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := &stubPublisher{}
	enqueueEvent(t, repo, "order.created")
	enqueueEvent(t, repo, "order.paid")

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0))
	worker.ProcessOnce(context.Background())

	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 published messages, got %d", len(publisher.published))
	}
	if publisher.published[0].EventType != "order.created" {
		t.Errorf("expected order.created first, got %s", publisher.published[0].EventType)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending messages after processing, got %d", len(pending))
	}
}

func TestWorkerRetriesTransientPublishErrors(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := &stubPublisher{failFirst: 2}
	enqueueEvent(t, repo, "order.created")

	worker := NewWorker(repo, publisher, WithMaxAttempts(3), WithRetryBaseDelay(time.Millisecond))
	worker.ProcessOnce(context.Background())

	if publisher.calls != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", publisher.calls)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected message published on third attempt, got %d", len(publisher.published))
	}
}

func TestWorkerMarksFailedAfterRetriesExhausted(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := &stubPublisher{failFirst: 100}
	enqueueEvent(t, repo, "order.created")

	worker := NewWorker(repo, publisher, WithMaxAttempts(2), WithRetryBaseDelay(0))
	worker.ProcessOnce(context.Background())

	if publisher.calls != 2 {
		t.Fatalf("expected 2 publish attempts, got %d", publisher.calls)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected failed message removed from pending queue, got %d", len(pending))
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Errorf("expected pending count 0, got %d", stats.PendingCount)
	}
}

func TestWorkerRunStopsOnContextCancel(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := &stubPublisher{}
	enqueueEvent(t, repo, "order.created")

	worker := NewWorker(repo, publisher, WithPollInterval(5*time.Millisecond), WithRetryBaseDelay(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}

	publisher.mu.Lock()
	published := len(publisher.published)
	publisher.mu.Unlock()
	if published != 1 {
		t.Errorf("expected exactly one published message, got %d", published)
	}
}

func TestWorkerRunDisabledWithoutPublisher(t *testing.T) {
	worker := NewWorker(memory.NewOutboxRepository(), nil)

	done := make(chan struct{})
	go func() {
		worker.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker should return immediately")
	}
}

func TestWorkerRetryBackoffGrowsExponentially(t *testing.T) {
	worker := NewWorker(memory.NewOutboxRepository(), &stubPublisher{}, WithRetryBaseDelay(10*time.Millisecond))

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{3, 40 * time.Millisecond},
		{4, 80 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := worker.retryBackoff(tc.attempt); got != tc.want {
			t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}
