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

// UpdateRequest — тело запроса на смену тарифа.
type UpdateRequest struct {
	PlanID string `json:"plan_id" validate:"required" example:"premium_monthly"`
}

// UpdateHandler переводит подписку клиента на другой тариф.
type UpdateHandler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	validate *validator.Validate // Валидатор тела запроса
}

// NewUpdate создаёт UpdateHandler с переданным логгером.
func NewUpdate(log *slog.Logger) *UpdateHandler {
	return &UpdateHandler{log: log, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Сменить тариф
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Param request body UpdateRequest true "Новый тариф"
// @Success 200 {object} response.Response{data=models.Subscription} "Обновлённая подписка"
// @Failure 400 {object} response.Response "Некорректный JSON"
// @Failure 401 {object} response.Response "Клиент не авторизован"
// @Failure 404 {object} response.Response "Тариф не найден или нет активной подписки"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Failure 502 {object} response.Response "Ошибка провайдера"
// @Security BearerAuth
// @Router /subscription [put]
func (h *UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.update"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	acc, ok := accountFrom(w, r, log)
	if !ok {
		return
	}

	sub, err := acc.UpdateSubscription(r.Context(), req.PlanID)
	if err != nil {
		renderServiceError(w, r, log, "could not update subscription", err)
		return
	}

	log.Info("subscription updated", slog.String("subscription_id", sub.ID), slog.String("plan_id", sub.PlanID))
	render.JSON(w, r, response.OKWithData(sub))
}
