package subscription

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/provider-gateway/internal/http/response"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
)

// ReadHandler возвращает текущую подписку клиента.
type ReadHandler struct {
	log *slog.Logger // Логгер для записи информации и ошибок
}

// NewRead создаёт ReadHandler с переданным логгером.
func NewRead(log *slog.Logger) *ReadHandler {
	return &ReadHandler{log: log}
}

// ServeHTTP godoc
// @Summary Текущая подписка
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response{data=models.Subscription} "Текущая подписка"
// @Failure 401 {object} response.Response "Клиент не авторизован"
// @Failure 404 {object} response.Response "Нет активной подписки"
// @Security BearerAuth
// @Router /subscription [get]
func (h *ReadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.read"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	acc, ok := accountFrom(w, r, log)
	if !ok {
		return
	}

	sub := acc.Current()
	if sub == nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("no active subscription"))
		return
	}
	render.JSON(w, r, response.OKWithData(sub))
}
