package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTransferQueue_RespectsConcurrencyCap(t *testing.T) {
	tq := NewTransferQueue(context.Background(), 2)
	defer tq.Close()

	var current, max atomic.Int64
	var mu sync.Mutex
	maxSeen := 0

	var futures []<-chan error
	for i := 0; i < 8; i++ {
		futures = append(futures, tq.Enqueue(func(ctx context.Context) error {
			n := current.Add(1)
			mu.Lock()
			if int(n) > maxSeen {
				maxSeen = int(n)
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			current.Add(-1)
			return nil
		}))
	}

	for _, f := range futures {
		<-f
	}
	_ = max

	if maxSeen > 2 {
		t.Fatalf("observed %d concurrent tasks, want <= 2", maxSeen)
	}
}

func TestTransferQueue_RetriesAndEventuallySucceeds(t *testing.T) {
	tq := NewTransferQueue(context.Background(), 1)
	defer tq.Close()

	var attempts atomic.Int64
	future := tq.Enqueue(func(ctx context.Context) error {
		n := attempts.Add(1)
		if n < 3 {
			return errors.New("transient")
		}
		return nil
	})

	select {
	case err := <-future:
		if err != nil {
			t.Fatalf("expected eventual success, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for retry to succeed")
	}

	if attempts.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestTransferQueue_ExhaustsRetriesAndFails(t *testing.T) {
	tq := NewTransferQueue(context.Background(), 1)
	defer tq.Close()

	wantErr := errors.New("permanent failure")
	var attempts atomic.Int64
	future := tq.Enqueue(func(ctx context.Context) error {
		attempts.Add(1)
		return wantErr
	})

	select {
	case err := <-future:
		if err == nil {
			t.Fatal("expected failure after exhausting retries")
		}
	case <-time.After(15 * time.Second):
		t.Fatal("timed out waiting for retry exhaustion")
	}

	if got := attempts.Load(); got != int64(MaxRetries+1) {
		t.Fatalf("expected %d attempts (1 + %d retries), got %d", MaxRetries+1, MaxRetries, got)
	}
}
