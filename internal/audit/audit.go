// Package audit ведёт журнал значимых событий биллинга.
// События только добавляются: после создания запись не изменяется.
package audit

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
)

// Severity — важность события.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Kind — тип события.
type Kind string

const (
	KindSubscriptionCreated            Kind = "subscription_created"
	KindSubscriptionCreationFailed     Kind = "subscription_creation_failed"
	KindSubscriptionUpdated            Kind = "subscription_updated"
	KindSubscriptionUpdateFailed       Kind = "subscription_update_failed"
	KindSubscriptionCanceled           Kind = "subscription_canceled"
	KindSubscriptionCancelScheduled    Kind = "subscription_cancel_scheduled"
	KindSubscriptionCancellationFailed Kind = "subscription_cancellation_failed"
	KindProviderEventReceived          Kind = "provider_event_received"
	KindWebhookSignatureInvalid        Kind = "webhook_signature_invalid"
	KindAssistantMessageFlagged        Kind = "assistant_message_flagged"
)

// Event — запись журнала аудита.
type Event struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	Details   map[string]string `json:"details"`
	Severity  Severity          `json:"severity"`
	Timestamp time.Time         `json:"timestamp"`
}

// Clone возвращает копию события с собственной картой деталей.
func (e Event) Clone() Event {
	e.Details = maps.Clone(e.Details)
	if e.Details == nil {
		e.Details = map[string]string{}
	}
	return e
}

// Sink принимает события журнала.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Event) error
}

// Logger создаёт события и рассылает их во все приёмники.
type Logger struct {
	sinks []Sink
	log   *slog.Logger
	now   func() time.Time
}

// NewLogger создаёт журнал аудита. Если log равен nil, ошибки приёмников не логируются.
func NewLogger(log *slog.Logger, sinks ...Sink) *Logger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Logger{
		sinks: sinks,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Log записывает событие. Ошибка приёмника только логируется и не прерывает
// запись в остальные приёмники.
func (l *Logger) Log(ctx context.Context, kind Kind, severity Severity, details map[string]string) Event {
	const op = "audit.Log"

	e := Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Details:   maps.Clone(details),
		Severity:  severity,
		Timestamp: l.now(),
	}
	if e.Details == nil {
		e.Details = map[string]string{}
	}

	for _, s := range l.sinks {
		if err := s.Write(ctx, e.Clone()); err != nil {
			l.log.Error("failed to write audit event",
				sl.Op(op),
				slog.String("sink", s.Name()),
				slog.String("kind", string(kind)),
				sl.Err(err),
			)
		}
	}
	return e.Clone()
}
