package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrClosed is returned by a closed backend.
	ErrClosed = errors.New("mq backend closed")
	// ErrBufferFull is returned when an in-process channel has no free slot.
	ErrBufferFull = errors.New("mq buffer full")
)

// MemoryBackend delivers messages in-process through bounded channels.
// Subscribers on the same channel compete for messages. Failed messages are
// not redelivered.
type MemoryBackend struct {
	mu       sync.Mutex
	buffer   int
	channels map[string]chan Message
	done     chan struct{}
	closed   bool
}

func NewMemoryBackend(buffer int) *MemoryBackend {
	if buffer <= 0 {
		buffer = 1
	}
	return &MemoryBackend{
		buffer:   buffer,
		channels: make(map[string]chan Message),
		done:     make(chan struct{}),
	}
}

// Publish enqueues without blocking and fails with ErrBufferFull when the
// channel is at capacity.
func (b *MemoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}
	ch, err := b.channel(channel)
	if err != nil {
		return "", err
	}

	msg := Message{ID: uuid.NewString(), Data: data, Attributes: attrs}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case ch <- msg:
		return msg.ID, nil
	default:
		return "", ErrBufferFull
	}
}

// Subscribe blocks until ctx is done or the backend is closed.
func (b *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("memory channel is required")
	}
	ch, err := b.channel(channel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return ErrClosed
		case msg := <-ch:
			_ = handler(ctx, msg)
		}
	}
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	return nil
}

func (b *MemoryBackend) channel(name string) (chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	ch, ok := b.channels[name]
	if !ok {
		ch = make(chan Message, b.buffer)
		b.channels[name] = ch
	}
	return ch, nil
}
