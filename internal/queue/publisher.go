package queue

import (
	"context"
	"sync"
)

const (
	KeyBorrowCreated  = "borrow.created"
	KeyBorrowReturned = "borrow.returned"
)

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, event any, reqID string) error
	Close() error
}

type NoopPub struct{}

func NewNoop() Publisher { return NoopPub{} }

func (NoopPub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	return nil
}
func (NoopPub) Close() error { return nil }

// Message is one captured publish, kept by Recorder.
type Message struct {
	Exchange, Key, ReqID string
	Event                any
}

// Recorder keeps published events in memory; handy in tests and local runs.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *Recorder) Publish(_ context.Context, exchange, key string, event any, reqID string) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, Message{Exchange: exchange, Key: key, ReqID: reqID, Event: event})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}
