package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// MaxConcurrentTransfers is the default bounded-concurrency fan-out.
	MaxConcurrentTransfers = 5
	// MaxRetries bounds how many times a failing task is retried.
	MaxRetries = 3
	// RetryBackoffMS is the base backoff; attempt k waits RetryBackoffMS*2^(k-1) ms.
	RetryBackoffMS = 1000
)

// TaskFunc is a unit of work submitted to the TransferQueue (an upload or a
// download). It should respect ctx cancellation.
type TaskFunc func(ctx context.Context) error

// TransferQueue is a bounded-concurrency FIFO executor with exponential
// backoff retry, built on the PriorityQueue in queue.go: FIFO order is modeled as
// monotonically increasing priority, and a retried task is reinserted with
// the priority it already had so it resumes at the head of the line instead
// of the tail.
type TransferQueue struct {
	concurrency int
	maxRetries  int
	backoffMS   int64

	pq      *PriorityQueue[*transferItem]
	notify  chan struct{}
	active  atomic.Int64
	pending atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	seq atomic.Int64
}

type transferItem struct {
	fn       TaskFunc
	attempt  int
	priority int
	done     chan error
}

// NewTransferQueue starts `concurrency` worker goroutines (default
// MaxConcurrentTransfers when <= 0) draining the queue until ctx is
// cancelled.
func NewTransferQueue(ctx context.Context, concurrency int) *TransferQueue {
	if concurrency <= 0 {
		concurrency = MaxConcurrentTransfers
	}
	qctx, cancel := context.WithCancel(ctx)
	tq := &TransferQueue{
		concurrency: concurrency,
		maxRetries:  MaxRetries,
		backoffMS:   RetryBackoffMS,
		pq:          NewPriorityQueue[*transferItem](),
		notify:      make(chan struct{}, concurrency*2+8),
		ctx:         qctx,
		cancel:      cancel,
	}

	for i := 0; i < concurrency; i++ {
		tq.wg.Add(1)
		go tq.worker()
	}

	return tq
}

// Enqueue submits a task and returns a future-like channel for its eventual
// outcome: nil on success, or the last error after retries are exhausted.
func (tq *TransferQueue) Enqueue(fn TaskFunc) <-chan error {
	item := &transferItem{
		fn:       fn,
		priority: int(tq.seq.Add(1)),
		done:     make(chan error, 1),
	}
	tq.push(item)
	return item.done
}

// ActiveCount reports how many tasks are currently executing.
func (tq *TransferQueue) ActiveCount() int {
	return int(tq.active.Load())
}

// PendingCount reports how many tasks are queued but not yet running.
func (tq *TransferQueue) PendingCount() int {
	return int(tq.pending.Load())
}

// Close cancels the queue's context and waits for the worker pool to exit.
// Enqueue still accepts tasks afterwards, but nothing runs them.
func (tq *TransferQueue) Close() {
	tq.cancel()
	tq.wg.Wait()
}

func (tq *TransferQueue) push(item *transferItem) {
	tq.pending.Add(1)
	tq.pq.Enqueue(item, item.priority)
	select {
	case tq.notify <- struct{}{}:
	default:
	}
}

func (tq *TransferQueue) worker() {
	defer tq.wg.Done()
	for {
		item, ok := tq.pq.Dequeue()
		if !ok {
			select {
			case <-tq.ctx.Done():
				return
			case <-tq.notify:
				continue
			case <-time.After(50 * time.Millisecond):
				continue
			}
		}

		tq.pending.Add(-1)
		tq.active.Add(1)
		err := tq.runOnce(item)
		tq.active.Add(-1)

		if err == nil {
			item.done <- nil
			continue
		}

		if item.attempt >= tq.maxRetries {
			item.done <- wrapError(err)
			continue
		}

		tq.scheduleRetry(item, err)
	}
}

func (tq *TransferQueue) runOnce(item *transferItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapError(fmt.Errorf("panic: %v", r))
		}
	}()
	return item.fn(tq.ctx)
}

func (tq *TransferQueue) scheduleRetry(item *transferItem, lastErr error) {
	item.attempt++
	delay := time.Duration(tq.backoffMS) * time.Millisecond * time.Duration(1<<(item.attempt-1))

	tq.pending.Add(1)
	t := time.AfterFunc(delay, func() {
		select {
		case <-tq.ctx.Done():
			item.done <- wrapError(lastErr)
			tq.pending.Add(-1)
		default:
			// re-insert at head: same priority it originally held.
			tq.pq.Enqueue(item, item.priority)
			select {
			case tq.notify <- struct{}{}:
			default:
			}
		}
	})
	_ = t
}

// wrapError returns err unchanged; panics are already turned into errors by
// the recover in runOnce.
func wrapError(err error) error {
	return err
}
