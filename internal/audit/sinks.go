package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/provider-gateway/internal/lib/rabbitmq"
)

// SlogSink пишет события в структурированный лог.
type SlogSink struct {
	log *slog.Logger
}

func NewSlogSink(log *slog.Logger) *SlogSink {
	return &SlogSink{log: log}
}

func (s *SlogSink) Name() string { return "slog" }

func (s *SlogSink) Write(ctx context.Context, e Event) error {
	level := slog.LevelInfo
	switch e.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError, SeverityCritical:
		level = slog.LevelError
	}

	attrs := make([]any, 0, len(e.Details))
	for k, v := range e.Details {
		attrs = append(attrs, slog.String(k, v))
	}
	s.log.LogAttrs(ctx, level, "audit event",
		slog.String("audit_id", e.ID),
		slog.String("kind", string(e.Kind)),
		slog.Time("timestamp", e.Timestamp),
		slog.Group("details", attrs...),
	)
	return nil
}

// MemorySink хранит события в памяти процесса.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Name() string { return "memory" }

func (s *MemorySink) Write(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e.Clone())
	return nil
}

// Events возвращает копию накопленных событий в порядке записи.
func (s *MemorySink) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	for i, e := range s.events {
		out[i] = e.Clone()
	}
	return out
}

// Kinds возвращает типы накопленных событий.
func (s *MemorySink) Kinds() []Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Kind, len(s.events))
	for i, e := range s.events {
		out[i] = e.Kind
	}
	return out
}

// Store сохраняет событие во внешнее хранилище (PostgreSQL, Supabase).
type Store interface {
	SaveAuditEvent(ctx context.Context, e Event) error
}

// StoreSink пишет события в Store.
type StoreSink struct {
	name  string
	store Store
}

func NewStoreSink(name string, store Store) *StoreSink {
	return &StoreSink{name: name, store: store}
}

func (s *StoreSink) Name() string { return s.name }

func (s *StoreSink) Write(ctx context.Context, e Event) error {
	if err := s.store.SaveAuditEvent(ctx, e); err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return nil
}

// AMQPSink публикует события в exchange RabbitMQ с ключом маршрутизации
// "audit.<kind>".
type AMQPSink struct {
	ch       rabbitmq.Publisher
	exchange string
}

func NewAMQPSink(ch rabbitmq.Publisher, exchange string) *AMQPSink {
	return &AMQPSink{ch: ch, exchange: exchange}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Write(_ context.Context, e Event) error {
	return rabbitmq.PublishMessage(s.ch, s.exchange, "audit."+string(e.Kind), e)
}
