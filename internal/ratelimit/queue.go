package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// MessageQueue is a bounded FIFO drained at a fixed rate.
// When full, the oldest item is dropped to make room.
type MessageQueue[T any] struct {
	mu          sync.Mutex
	queue       []T
	maxSize     int
	limiter     *rate.Limiter
	sendFunc    func(ctx context.Context, item T) error
	notify      chan struct{}
	stopCh      chan struct{}
	stoppedCh   chan struct{}
	stopOnce    sync.Once
	droppedMsgs int
	failedMsgs  int
	maxAttempts int
}

// NewMessageQueue creates a new message queue
func NewMessageQueue[T any](maxSize int, limiter *rate.Limiter, sendFunc func(ctx context.Context, item T) error) *MessageQueue[T] {
	return &MessageQueue[T]{
		queue:       make([]T, 0, maxSize),
		maxSize:     maxSize,
		limiter:     limiter,
		sendFunc:    sendFunc,
		notify:      make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		stoppedCh:   make(chan struct{}),
		maxAttempts: 3,
	}
}

// Enqueue adds an item to the queue.
// If the queue is full, drops the oldest item.
func (mq *MessageQueue[T]) Enqueue(item T) {
	mq.mu.Lock()
	if len(mq.queue) >= mq.maxSize {
		mq.queue = mq.queue[1:]
		mq.droppedMsgs++
	}
	mq.queue = append(mq.queue, item)
	mq.mu.Unlock()

	select {
	case mq.notify <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the next item from the queue
func (mq *MessageQueue[T]) Dequeue() (T, bool) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	var zero T
	if len(mq.queue) == 0 {
		return zero, false
	}

	item := mq.queue[0]
	mq.queue[0] = zero
	mq.queue = mq.queue[1:]
	return item, true
}

// Size returns the current queue size
func (mq *MessageQueue[T]) Size() int {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return len(mq.queue)
}

// DroppedCount returns the number of items dropped on overflow
func (mq *MessageQueue[T]) DroppedCount() int {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return mq.droppedMsgs
}

// FailedCount returns the number of items abandoned after repeated send failures
func (mq *MessageQueue[T]) FailedCount() int {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return mq.failedMsgs
}

// Start begins processing the queue in a goroutine
func (mq *MessageQueue[T]) Start(ctx context.Context) {
	go mq.processQueue(ctx)
}

// Stop stops the queue processor and waits for it to exit
func (mq *MessageQueue[T]) Stop() {
	mq.stopOnce.Do(func() { close(mq.stopCh) })
	<-mq.stoppedCh
}

func (mq *MessageQueue[T]) processQueue(ctx context.Context) {
	defer close(mq.stoppedCh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-mq.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		item, ok := mq.Dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-mq.notify:
				continue
			}
		}

		if err := mq.limiter.Wait(ctx); err != nil {
			return
		}
		mq.send(ctx, item)
	}
}

// send delivers item, retrying under the limiter before giving up
func (mq *MessageQueue[T]) send(ctx context.Context, item T) {
	for attempt := 1; ; attempt++ {
		err := mq.sendFunc(ctx, item)
		if err == nil {
			return
		}
		if attempt >= mq.maxAttempts {
			mq.mu.Lock()
			mq.failedMsgs++
			mq.mu.Unlock()
			return
		}
		if err := mq.limiter.Wait(ctx); err != nil {
			return
		}
	}
}
