// Package mq carries deferred tasks between request handlers and background
// consumers over a pluggable broker.
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devfolio/apiserver/config"
	"go.uber.org/zap"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Task is the JSON body of a deferred task.
type Task struct {
	Kind        string    `json:"kind"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
	logger  *zap.Logger
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend, logger *zap.Logger) *MQ {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQ{backend: backend, logger: logger.Named("mq")}
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.MQConfig, logger *zap.Logger) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		backend = NewMemoryBackend(cfg.Buffer)
	case "rabbitmq":
		backend, err = NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		backend, err = NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return New(backend, logger), nil
}

// Publish sends a message to the named channel.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// PublishTask encodes task as JSON and publishes it with a "kind" attribute.
func (m *MQ) PublishTask(ctx context.Context, channel string, task Task) (string, error) {
	if task.RequestedAt.IsZero() {
		task.RequestedAt = time.Now().UTC()
	}
	data, err := json.Marshal(task)
	if err != nil {
		return "", err
	}
	return m.backend.Publish(ctx, channel, data, map[string]string{"kind": task.Kind})
}

// Subscribe consumes messages from the named channel until ctx is done.
// Handler failures are logged before being reported to the backend.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	logger := m.logger.With(zap.String("channel", channel))
	logger.Info("consumer started")
	err := m.backend.Subscribe(ctx, channel, func(ctx context.Context, msg Message) error {
		start := time.Now()
		if err := handler(ctx, msg); err != nil {
			logger.Error("task failed", zap.String("id", msg.ID), zap.Error(err))
			return err
		}
		logger.Debug("task done", zap.String("id", msg.ID), zap.Duration("took", time.Since(start)))
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}

// DecodeTask parses a message body produced by PublishTask.
func DecodeTask(msg Message) (Task, error) {
	var task Task
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		return Task{}, fmt.Errorf("decode task %s: %w", msg.ID, err)
	}
	return task, nil
}
