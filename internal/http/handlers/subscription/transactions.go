package subscription

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/provider-gateway/internal/http/response"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/provider-gateway/internal/models"
)

// TransactionsHandler возвращает историю изменений подписки клиента.
type TransactionsHandler struct {
	log *slog.Logger // Логгер для записи информации и ошибок
}

// NewTransactions создаёт TransactionsHandler с переданным логгером.
func NewTransactions(log *slog.Logger) *TransactionsHandler {
	return &TransactionsHandler{log: log}
}

// ServeHTTP godoc
// @Summary История подписки
// @Description Возвращает записи об оформлении, смене тарифа, отмене и событиях провайдера.
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response{data=[]models.SubscriptionTransaction} "История"
// @Failure 401 {object} response.Response "Клиент не авторизован"
// @Failure 500 {object} response.Response "Ошибка хранилища"
// @Security BearerAuth
// @Router /subscription/transactions [get]
func (h *TransactionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.transactions"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	acc, ok := accountFrom(w, r, log)
	if !ok {
		return
	}

	txs, err := acc.Transactions(r.Context())
	if err != nil {
		renderServiceError(w, r, log, "could not list transactions", err)
		return
	}
	if txs == nil {
		txs = []models.SubscriptionTransaction{}
	}
	render.JSON(w, r, response.OKWithData(txs))
}
