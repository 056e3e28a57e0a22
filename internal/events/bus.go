// Package events carries domain notifications between the HTTP layer and
// background reactions such as plan evolution.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"learnsprout/internal/logger"
)

const (
	TypeActivityStatusChanged = "activity-status-changed"
	TypeObservationRecorded   = "observation-recorded"
)

var ErrBusClosed = errors.New("event bus closed")

// Event is the payload published on the bus
type Event struct {
	Type       string    `json:"type"`
	ChildID    int64     `json:"childId"`
	UserID     int64     `json:"userId,omitempty"`
	PlanID     int64     `json:"planId,omitempty"`
	ActivityID string    `json:"activityId,omitempty"`
	Day        string    `json:"day,omitempty"`
	Status     string    `json:"status,omitempty"`
	RecordID   string    `json:"recordId,omitempty"`
	At         time.Time `json:"at"`
}

// Bus publishes events and forwards them to a callback
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	StartForwarder(ctx context.Context, onEvent func(Event)) error
	Close() error
}

// MemoryBus delivers events in-process on a single worker goroutine
type MemoryBus struct {
	log   *logger.Logger
	queue chan Event

	// mu guards closed and queue sends; the worker only takes hmu
	mu     sync.RWMutex
	closed bool

	hmu      sync.Mutex
	handlers []func(Event)

	done chan struct{}
}

// NewMemoryBus starts the delivery worker; Close stops it
func NewMemoryBus(log *logger.Logger, buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = 64
	}
	b := &MemoryBus{
		log:   log.With("service", "MemoryBus"),
		queue: make(chan Event, buffer),
		done:  make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *MemoryBus) run() {
	defer close(b.done)
	for ev := range b.queue {
		b.hmu.Lock()
		handlers := append([]func(Event){}, b.handlers...)
		b.hmu.Unlock()
		for _, h := range handlers {
			b.deliver(h, ev)
		}
	}
}

func (b *MemoryBus) deliver(h func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", "type", ev.Type, "panic", r)
		}
	}()
	h(ev)
}

func (b *MemoryBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case b.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartForwarder registers onEvent; it stays registered until the bus closes
func (b *MemoryBus) StartForwarder(_ context.Context, onEvent func(Event)) error {
	if onEvent == nil {
		return errors.New("onEvent callback required")
	}
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrBusClosed
	}
	b.hmu.Lock()
	b.handlers = append(b.handlers, onEvent)
	b.hmu.Unlock()
	return nil
}

// Close drains queued events and stops the worker
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()
	<-b.done
	return nil
}
