package subscription

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/provider-gateway/internal/http/response"
	"github.com/magabrotheeeer/provider-gateway/internal/models"
)

// PlanLister отдаёт каталог тарифов.
type PlanLister interface {
	Plans() []models.SubscriptionPlan
}

// PlansHandler возвращает каталог тарифов.
type PlansHandler struct {
	catalog PlanLister // Каталог тарифов
}

// NewPlans создаёт PlansHandler поверх каталога.
func NewPlans(catalog PlanLister) *PlansHandler {
	return &PlansHandler{catalog: catalog}
}

// ServeHTTP godoc
// @Summary Каталог тарифов
// @Tags Plans
// @Produce  json
// @Success 200 {object} response.Response{data=[]models.SubscriptionPlan} "Тарифы"
// @Failure 401 {object} response.Response "Клиент не авторизован"
// @Security BearerAuth
// @Router /plans [get]
func (h *PlansHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(h.catalog.Plans()))
}
