// Package models содержит записи биллинга, зеркалирующие состояние Stripe:
// подписку, тарифный план, платёжный метод и транзакцию.
// Записи неизменяемы: обновление — это замена записи целиком.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus — статус подписки у провайдера.
type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
)

// IsLive сообщает, даёт ли статус доступ к платным функциям.
func (s SubscriptionStatus) IsLive() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing || s == SubscriptionStatusPastDue
}

// BillingInterval — периодичность списаний.
type BillingInterval string

const (
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
)

// SubscriptionPlan — тариф из каталога.
type SubscriptionPlan struct {
	ID       string          `json:"id" yaml:"id"`
	Name     string          `json:"name" yaml:"name"`
	Price    decimal.Decimal `json:"price" yaml:"price" swaggertype:"string"`
	Currency string          `json:"currency" yaml:"currency"`
	Interval BillingInterval `json:"interval" yaml:"interval"`
	// IncludedUsage — число единиц (сессий), входящих в базовую цену.
	IncludedUsage int `json:"included_usage" yaml:"included_usage"`
	// OveragePrice — цена каждой единицы сверх IncludedUsage.
	OveragePrice  decimal.Decimal `json:"overage_price" yaml:"overage_price" swaggertype:"string"`
	StripePriceID string          `json:"stripe_price_id" yaml:"stripe_price_id"`
	Features      []string        `json:"features,omitempty" yaml:"features"`
}

// PricingExtra — дополнительная опция к тарифу (например, сессия с терапевтом).
type PricingExtra struct {
	ID    string          `json:"id" validate:"required"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price" swaggertype:"string"`
}

// PaymentMethod — привязанный к клиенту платёжный метод.
type PaymentMethod struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Type       string    `json:"type"`
	Brand      string    `json:"brand,omitempty"`
	Last4      string    `json:"last4,omitempty"`
	ExpMonth   int       `json:"exp_month,omitempty"`
	ExpYear    int       `json:"exp_year,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Subscription — текущее состояние подписки клиента.
type Subscription struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	PlanID     string `json:"plan_id"`
	// ItemID — идентификатор позиции подписки у провайдера, нужен для смены тарифа.
	ItemID             string             `json:"item_id"`
	Status             SubscriptionStatus `json:"status"`
	Amount             decimal.Decimal    `json:"amount" swaggertype:"string"`
	Currency           string             `json:"currency"`
	PaymentMethodID    string             `json:"payment_method_id,omitempty"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
}

// TransactionKind — тип изменения подписки.
type TransactionKind string

const (
	TransactionCreated         TransactionKind = "created"
	TransactionUpdated         TransactionKind = "updated"
	TransactionCanceled        TransactionKind = "canceled"
	TransactionCancelScheduled TransactionKind = "cancel_scheduled"
	TransactionProviderEvent   TransactionKind = "provider_event"
)

// SubscriptionTransaction — запись истории изменений подписки.
type SubscriptionTransaction struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	CustomerID     string          `json:"customer_id"`
	PlanID         string          `json:"plan_id"`
	Kind           TransactionKind `json:"kind"`
	Amount         decimal.Decimal `json:"amount" swaggertype:"string"`
	Currency       string          `json:"currency"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ProviderEvent — событие провайдера (вебхук), касающееся подписки.
type ProviderEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	// Subscription заполнен для событий customer.subscription.*.
	Subscription *Subscription `json:"subscription,omitempty"`
}
