// Package webhook принимает вебхуки Stripe и передаёт события подписок
// сервисам клиентов.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/provider-gateway/internal/audit"
	"github.com/magabrotheeeer/provider-gateway/internal/http/response"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/provider-gateway/internal/models"
)

// maxBodyBytes — предел размера тела вебхука.
const maxBodyBytes = 64 << 10

// Verifier проверяет подпись и разбирает событие.
type Verifier interface {
	Parse(payload []byte, signature string) (*models.ProviderEvent, error)
}

// Dispatcher применяет событие к подписке владельца.
type Dispatcher interface {
	DispatchEvent(ctx context.Context, ev models.ProviderEvent) (bool, error)
}

// Auditor фиксирует события безопасности.
type Auditor interface {
	Log(ctx context.Context, kind audit.Kind, severity audit.Severity, details map[string]string) audit.Event
}

// StripeHandler принимает вебхуки Stripe.
//
// Тело ограничено maxBodyBytes, подпись проверяется до разбора события,
// отклонённые подписи попадают в аудит.
type StripeHandler struct {
	log        *slog.Logger // Логгер для записи информации и ошибок
	verifier   Verifier     // Проверка подписи Stripe-Signature
	dispatcher Dispatcher   // Передача события сервису клиента
	audit      Auditor      // Аудит отклонённых вебхуков
}

// NewStripe создаёт StripeHandler.
func NewStripe(log *slog.Logger, verifier Verifier, dispatcher Dispatcher, auditor Auditor) *StripeHandler {
	return &StripeHandler{log: log, verifier: verifier, dispatcher: dispatcher, audit: auditor}
}

// ServeHTTP godoc
// @Summary Вебхук Stripe
// @Description Проверяет подпись и применяет события customer.subscription.* к подписке клиента.
// @Tags Webhooks
// @Accept  json
// @Produce  json
// @Param Stripe-Signature header string true "Подпись Stripe"
// @Success 200 {object} response.Response "Событие принято; data.applied сообщает, изменило ли оно подписку"
// @Failure 400 {object} response.Response "Неверная подпись или тело"
// @Failure 413 {object} response.Response "Слишком большое тело"
// @Failure 500 {object} response.Response "Ошибка обработки события"
// @Router /webhooks/stripe [post]
func (h *StripeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.stripe"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		status := http.StatusBadRequest
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		log.Warn("failed to read webhook body", sl.Err(err))
		render.Status(r, status)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	ev, err := h.verifier.Parse(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		log.Warn("webhook rejected", sl.Err(err))
		h.audit.Log(r.Context(), audit.KindWebhookSignatureInvalid, audit.SeverityWarning, map[string]string{
			"provider":    "stripe",
			"remote_addr": r.RemoteAddr,
			"reason":      err.Error(),
		})
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}
	log = log.With(slog.String("event_id", ev.ID), slog.String("event_type", ev.Type))

	applied, err := h.dispatcher.DispatchEvent(r.Context(), *ev)
	if err != nil {
		log.Error("failed to dispatch webhook event", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not process event"))
		return
	}

	log.Info("webhook processed", slog.Bool("applied", applied))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"received": true,
		"applied":  applied,
	}))
}
