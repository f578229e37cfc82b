// Package stripe — клиент Stripe Billing поверх network.Manager.
// Запросы кодируются как form-urlencoded, ответы разбираются в модели биллинга.
package stripe

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/provider-gateway/internal/endpoint"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/provider-gateway/internal/models"
	"github.com/magabrotheeeer/provider-gateway/internal/network"
)

const headerIdempotencyKey = "Idempotency-Key"

// Doer выполняет один HTTP-обмен. Реализуется *network.Manager.
type Doer interface {
	Do(ctx context.Context, e endpoint.Endpoint, body []byte) ([]byte, error)
}

// Client выполняет вызовы Stripe API.
type Client struct {
	cfg    endpoint.StripeConfig
	net    Doer
	log    *slog.Logger
	newKey func() string
}

// New создаёт клиент Stripe.
func New(cfg endpoint.StripeConfig, net Doer, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{
		cfg:    cfg,
		net:    net,
		log:    log,
		newKey: uuid.NewString,
	}
}

// CreateCustomer создаёт клиента Stripe и возвращает его идентификатор.
func (c *Client) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	const op = "stripe.CreateCustomer"

	form := url.Values{}
	form.Set("email", email)
	if name != "" {
		form.Set("name", name)
	}

	out, err := call[customerResponse](ctx, c, op, endpoint.StripeCreateCustomer(), form, true)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// AttachPaymentMethod привязывает платёжный метод к клиенту и делает его
// методом по умолчанию для счетов.
func (c *Client) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) (*models.PaymentMethod, error) {
	const op = "stripe.AttachPaymentMethod"

	form := url.Values{}
	form.Set("customer", customerID)

	pm, err := call[paymentMethodResponse](ctx, c, op, endpoint.StripeAttachPaymentMethod(paymentMethodID), form, false)
	if err != nil {
		return nil, err
	}

	defaults := url.Values{}
	defaults.Set("invoice_settings[default_payment_method]", pm.ID)
	if _, err := c.send(ctx, op, endpoint.StripeUpdateCustomer(customerID), defaults, false); err != nil {
		return nil, err
	}

	return pm.toModel(), nil
}

// CreateSubscription оформляет подписку клиента на тариф.
func (c *Client) CreateSubscription(ctx context.Context, customerID string, plan models.SubscriptionPlan, paymentMethodID string) (*models.Subscription, error) {
	const op = "stripe.CreateSubscription"

	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("items[0][price]", plan.StripePriceID)
	form.Set("metadata[plan_id]", plan.ID)
	if paymentMethodID != "" {
		form.Set("default_payment_method", paymentMethodID)
	}

	out, err := call[subscriptionResponse](ctx, c, op, endpoint.StripeCreateSubscription(), form, true)
	if err != nil {
		return nil, err
	}
	return out.toModel(plan.ID), nil
}

// UpdateSubscriptionPlan переводит подписку на другой тариф с перерасчётом.
func (c *Client) UpdateSubscriptionPlan(ctx context.Context, sub models.Subscription, plan models.SubscriptionPlan) (*models.Subscription, error) {
	const op = "stripe.UpdateSubscriptionPlan"

	form := url.Values{}
	if sub.ItemID != "" {
		form.Set("items[0][id]", sub.ItemID)
	}
	form.Set("items[0][price]", plan.StripePriceID)
	form.Set("proration_behavior", "create_prorations")
	form.Set("metadata[plan_id]", plan.ID)

	out, err := call[subscriptionResponse](ctx, c, op, endpoint.StripeUpdateSubscription(sub.ID), form, false)
	if err != nil {
		return nil, err
	}
	return out.toModel(plan.ID), nil
}

// CancelSubscription отменяет подписку сразу или ставит отмену на конец периода.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) (*models.Subscription, error) {
	const op = "stripe.CancelSubscription"

	r := endpoint.StripeCancelSubscription(subscriptionID)
	var form url.Values
	if !immediately {
		r = endpoint.StripeUpdateSubscription(subscriptionID)
		form = url.Values{}
		form.Set("cancel_at_period_end", "true")
	}

	out, err := call[subscriptionResponse](ctx, c, op, r, form, false)
	if err != nil {
		return nil, err
	}
	return out.toModel(""), nil
}

// RetrieveSubscription загружает подписку по идентификатору.
func (c *Client) RetrieveSubscription(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	const op = "stripe.RetrieveSubscription"

	out, err := call[subscriptionResponse](ctx, c, op, endpoint.StripeRetrieveSubscription(subscriptionID), nil, false)
	if err != nil {
		return nil, err
	}
	return out.toModel(""), nil
}

// send строит эндпоинт и выполняет запрос. Ошибки возвращаются как
// *neterr.Error без обёртки, чтобы вызывающий мог проверить их предикатами.
func (c *Client) send(ctx context.Context, op string, r endpoint.Resource, form url.Values, idempotent bool) ([]byte, error) {
	log := c.log.With(sl.Op(op))

	e, err := endpoint.Stripe(c.cfg, r)
	if err != nil {
		log.Error("failed to build endpoint", sl.NetErr(err))
		return nil, err
	}
	if idempotent {
		e = e.WithHeader(headerIdempotencyKey, c.newKey())
	}

	var body []byte
	if len(form) > 0 {
		body = []byte(form.Encode())
	}

	resp, err := c.net.Do(ctx, e, body)
	if err != nil {
		log.Warn("stripe request failed", slog.String("endpoint", e.String()), sl.NetErr(err))
		return nil, err
	}
	return resp, nil
}

func call[T any](ctx context.Context, c *Client, op string, r endpoint.Resource, form url.Values, idempotent bool) (*T, error) {
	resp, err := c.send(ctx, op, r, form, idempotent)
	if err != nil {
		return nil, err
	}
	return network.DecodeJSON[T](resp)
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// minorToDecimal переводит сумму в минимальных единицах валюты (центах) в decimal.
func minorToDecimal(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
