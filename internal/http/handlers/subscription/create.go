package subscription

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/provider-gateway/internal/http/response"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
)

// CreateRequest — тело запроса на оформление подписки.
type CreateRequest struct {
	PlanID          string `json:"plan_id" validate:"required" example:"basic_monthly"`
	PaymentMethodID string `json:"payment_method_id" validate:"required" example:"pm_card_visa"`
}

// CreateHandler оформляет подписку текущего клиента.
//
// Клиент берётся из токена, тариф и платёжный метод из тела запроса.
type CreateHandler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	validate *validator.Validate // Валидатор тела запроса
}

// NewCreate создаёт CreateHandler с переданным логгером.
func NewCreate(log *slog.Logger) *CreateHandler {
	return &CreateHandler{log: log, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Оформить подписку
// @Description Привязывает платёжный метод и создаёт подписку у провайдера для текущего клиента.
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Param request body CreateRequest true "Тариф и платёжный метод"
// @Success 201 {object} response.Response{data=models.Subscription} "Подписка создана"
// @Failure 400 {object} response.Response "Некорректный JSON"
// @Failure 401 {object} response.Response "Клиент не авторизован"
// @Failure 402 {object} response.Response "Платёжный метод отклонён"
// @Failure 404 {object} response.Response "Тариф не найден"
// @Failure 409 {object} response.Response "Подписка уже есть или оформляется"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Failure 502 {object} response.Response "Ошибка провайдера"
// @Security BearerAuth
// @Router /subscription [post]
func (h *CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Warn("validation failed", sl.Err(err))
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	acc, ok := accountFrom(w, r, log)
	if !ok {
		return
	}

	sub, err := acc.CreateSubscription(r.Context(), req.PlanID, acc.CustomerID(), req.PaymentMethodID)
	if err != nil {
		renderServiceError(w, r, log, "could not create subscription", err)
		return
	}

	log.Info("subscription created", slog.String("subscription_id", sub.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(sub))
}
