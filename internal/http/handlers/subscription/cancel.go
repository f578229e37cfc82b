package subscription

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/provider-gateway/internal/http/response"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
)

// CancelHandler отменяет подписку. Параметр ?immediately=true отменяет сразу,
// без него отмена назначается на конец периода.
type CancelHandler struct {
	log *slog.Logger // Логгер для записи информации и ошибок
}

// NewCancel создаёт CancelHandler с переданным логгером.
func NewCancel(log *slog.Logger) *CancelHandler {
	return &CancelHandler{log: log}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Отменяет текущую подписку клиента сразу или в конце оплаченного периода.
// @Tags Subscription
// @Produce  json
// @Param immediately query bool false "Отменить немедленно"
// @Success 200 {object} response.Response{data=models.Subscription} "Подписка после отмены"
// @Failure 400 {object} response.Response "Некорректный параметр immediately"
// @Failure 401 {object} response.Response "Клиент не авторизован"
// @Failure 404 {object} response.Response "Нет активной подписки"
// @Failure 502 {object} response.Response "Ошибка провайдера"
// @Security BearerAuth
// @Router /subscription [delete]
func (h *CancelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	immediately := false
	if raw := r.URL.Query().Get("immediately"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			log.Warn("invalid immediately parameter", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("immediately must be a boolean"))
			return
		}
		immediately = v
	}

	acc, ok := accountFrom(w, r, log)
	if !ok {
		return
	}

	sub, err := acc.CancelSubscription(r.Context(), immediately)
	if err != nil {
		renderServiceError(w, r, log, "could not cancel subscription", err)
		return
	}

	log.Info("subscription cancel requested", slog.String("subscription_id", sub.ID), slog.Bool("immediately", immediately))
	render.JSON(w, r, response.OKWithData(sub))
}
