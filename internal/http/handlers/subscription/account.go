// Package subscription реализует HTTP-обработчики подписки клиента:
// оформление, чтение, смену тарифа, отмену, историю и расчёт цены.
//
// Сервис подписки клиента кладёт в контекст middlewarectx.AccountMiddleware.
package subscription

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/provider-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/provider-gateway/internal/http/response"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/provider-gateway/internal/models"
	subservice "github.com/magabrotheeeer/provider-gateway/internal/services/subscription"
)

// Account описывает сервис подписки одного клиента.
type Account interface {
	CustomerID() string
	CreateSubscription(ctx context.Context, planID, customerID, paymentMethodID string) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, newPlanID string) (*models.Subscription, error)
	CancelSubscription(ctx context.Context, immediately bool) (*models.Subscription, error)
	Current() *models.Subscription
	Transactions(ctx context.Context) ([]models.SubscriptionTransaction, error)
	Quote(planID string, usageCount int, extras []models.PricingExtra) (subservice.PriceQuote, error)
}

var _ Account = (*subservice.Service)(nil)

func accountFrom(w http.ResponseWriter, r *http.Request, log *slog.Logger) (Account, bool) {
	acc, ok := middlewarectx.Account(r.Context()).(Account)
	if !ok || acc == nil {
		log.Error("subscription service not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return nil, false
	}
	return acc, true
}

// renderServiceError отвечает статусом по причине ошибки сервиса.
func renderServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	status, text := http.StatusInternalServerError, msg
	switch {
	case errors.Is(err, subservice.ErrPlanNotFound):
		status, text = http.StatusNotFound, "plan not found"
	case errors.Is(err, subservice.ErrNoActiveSubscription):
		status, text = http.StatusNotFound, "no active subscription"
	case errors.Is(err, subservice.ErrAlreadySubscribed):
		status, text = http.StatusConflict, "customer already has a subscription"
	case errors.Is(err, subservice.ErrCreationInProgress):
		status, text = http.StatusConflict, "subscription creation already in progress"
	case errors.Is(err, subservice.ErrCustomerMismatch):
		status, text = http.StatusForbidden, "customer mismatch"
	default:
		if s, t, ok := response.UpstreamStatus(err); ok {
			status, text = s, t
			if errors.Is(err, subservice.ErrPaymentMethodFailed) && status == http.StatusBadRequest {
				status, text = http.StatusPaymentRequired, "payment method was rejected"
			}
		}
	}

	if status >= http.StatusInternalServerError {
		log.Error(msg, sl.NetErr(err))
	} else {
		log.Warn(msg, sl.Err(err))
	}
	render.Status(r, status)
	render.JSON(w, r, response.Error(text))
}
