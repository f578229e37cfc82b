package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscription_JSONRoundTrip(t *testing.T) {
	canceledAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	orig := Subscription{
		ID:                 "sub_1",
		CustomerID:         "cus_1",
		PlanID:             "premium_monthly",
		ItemID:             "si_1",
		Status:             SubscriptionStatusActive,
		Amount:             decimal.RequireFromString("59.90"),
		Currency:           "usd",
		PaymentMethodID:    "pm_1",
		CurrentPeriodStart: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		CurrentPeriodEnd:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		CancelAtPeriodEnd:  true,
		CanceledAt:         &canceledAt,
		CreatedAt:          time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var got Subscription
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.CustomerID, got.CustomerID)
	assert.Equal(t, orig.PlanID, got.PlanID)
	assert.Equal(t, orig.ItemID, got.ItemID)
	assert.Equal(t, orig.Status, got.Status)
	assert.True(t, orig.Amount.Equal(got.Amount))
	assert.Equal(t, orig.Currency, got.Currency)
	assert.Equal(t, orig.PaymentMethodID, got.PaymentMethodID)
	assert.True(t, orig.CurrentPeriodStart.Equal(got.CurrentPeriodStart))
	assert.True(t, orig.CurrentPeriodEnd.Equal(got.CurrentPeriodEnd))
	assert.Equal(t, orig.CancelAtPeriodEnd, got.CancelAtPeriodEnd)
	require.NotNil(t, got.CanceledAt)
	assert.True(t, orig.CanceledAt.Equal(*got.CanceledAt))
	assert.True(t, orig.CreatedAt.Equal(got.CreatedAt))
}

func TestSubscriptionTransaction_JSONRoundTrip(t *testing.T) {
	orig := SubscriptionTransaction{
		ID:             "7b0c1f4e-7f6a-4d1e-9c1b-0d2c3e4f5a6b",
		SubscriptionID: "sub_1",
		CustomerID:     "cus_1",
		PlanID:         "basic_monthly",
		Kind:           TransactionUpdated,
		Amount:         decimal.RequireFromString("9.99"),
		Currency:       "usd",
		CreatedAt:      time.Date(2026, 1, 15, 12, 30, 0, 0, time.UTC),
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var got SubscriptionTransaction
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.SubscriptionID, got.SubscriptionID)
	assert.Equal(t, orig.CustomerID, got.CustomerID)
	assert.Equal(t, orig.PlanID, got.PlanID)
	assert.Equal(t, orig.Kind, got.Kind)
	assert.True(t, orig.Amount.Equal(got.Amount))
	assert.Equal(t, orig.Currency, got.Currency)
	assert.True(t, orig.CreatedAt.Equal(got.CreatedAt))
}

func TestSubscriptionStatus_IsLive(t *testing.T) {
	assert.True(t, SubscriptionStatusActive.IsLive())
	assert.True(t, SubscriptionStatusTrialing.IsLive())
	assert.True(t, SubscriptionStatusPastDue.IsLive())
	assert.False(t, SubscriptionStatusCanceled.IsLive())
	assert.False(t, SubscriptionStatusIncomplete.IsLive())
}
