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
	"github.com/magabrotheeeer/provider-gateway/internal/models"
)

// QuoteRequest — тело запроса на расчёт динамической цены.
type QuoteRequest struct {
	PlanID     string                `json:"plan_id" validate:"required" example:"premium_monthly"`
	UsageCount int                   `json:"usage_count"`
	Extras     []models.PricingExtra `json:"extras" validate:"dive"`
}

// QuoteHandler считает цену тарифа с учётом использования и опций.
type QuoteHandler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	validate *validator.Validate // Валидатор тела запроса
}

// NewQuote создаёт QuoteHandler с переданным логгером.
func NewQuote(log *slog.Logger) *QuoteHandler {
	return &QuoteHandler{log: log, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Рассчитать цену
// @Description Считает цену тарифа с учётом использования сверх включённого объёма, опций и скидки за объём.
// @Tags Pricing
// @Accept  json
// @Produce  json
// @Param request body QuoteRequest true "Тариф, использование и опции"
// @Success 200 {object} response.Response "Расчёт цены: база, перерасход, опции, скидка и итог"
// @Failure 400 {object} response.Response "Некорректный JSON"
// @Failure 404 {object} response.Response "Тариф не найден"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Security BearerAuth
// @Router /pricing/quote [post]
func (h *QuoteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.quote"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req QuoteRequest
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

	quote, err := acc.Quote(req.PlanID, req.UsageCount, req.Extras)
	if err != nil {
		renderServiceError(w, r, log, "could not quote price", err)
		return
	}
	render.JSON(w, r, response.OKWithData(quote))
}
