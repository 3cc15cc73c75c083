package queue_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/distroline/botcrm-backend/internal/queue"
)

func TestInMemoryQueueDelivers(t *testing.T) {
	q := queue.NewInMemoryQueue()

	var mu sync.Mutex
	got := []queue.DeliveryJob{}
	done := make(chan struct{})

	q.Subscribe(queue.DeliveryQueue, func(payload any) error {
		job, ok := payload.(queue.DeliveryJob)
		if !ok {
			t.Error("unexpected payload type")
			return nil
		}
		mu.Lock()
		got = append(got, job)
		mu.Unlock()
		close(done)
		return nil
	})

	job := queue.DeliveryJob{MailingID: 1, UserID: 42, Text: "hi"}
	if err := q.Publish(queue.DeliveryQueue, job); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].UserID != 42 {
		t.Errorf("got %+v", got)
	}
}

func TestInMemoryQueueRetriesOnFailure(t *testing.T) {
	q := queue.NewInMemoryQueue()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	q.Subscribe(queue.DeliveryQueue, func(payload any) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient failure")
		}
		close(done)
		return nil
	})

	if err := q.Publish(queue.DeliveryQueue, queue.DeliveryJob{MailingID: 1, UserID: 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not retried to success")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestPublishWithoutSubscribersFails(t *testing.T) {
	q := queue.NewInMemoryQueue()
	if err := q.Publish("nobody-listens", queue.DeliveryJob{}); err == nil {
		t.Error("publish to a topic with no subscribers should fail")
	}
}
