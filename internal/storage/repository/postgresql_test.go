package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/provider-gateway/internal/audit"
	"github.com/magabrotheeeer/provider-gateway/internal/models"
)

func TestStorage_CheckDatabaseReady(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	require.NoError(t, storage.CheckDatabaseReady(context.Background()))
}

func TestStorage_Transactions(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	txs := []models.SubscriptionTransaction{
		{
			ID: uuid.NewString(), SubscriptionID: "sub_1", CustomerID: "cus_1", PlanID: "basic_monthly",
			Kind: models.TransactionCreated, Amount: decimal.RequireFromString("9.99"), Currency: "usd", CreatedAt: base,
		},
		{
			ID: uuid.NewString(), SubscriptionID: "sub_1", CustomerID: "cus_1", PlanID: "premium_monthly",
			Kind: models.TransactionUpdated, Amount: decimal.RequireFromString("59.90"), Currency: "usd", CreatedAt: base.Add(time.Hour),
		},
		{
			ID: uuid.NewString(), SubscriptionID: "sub_2", CustomerID: "cus_2", PlanID: "basic_monthly",
			Kind: models.TransactionCreated, Amount: decimal.RequireFromString("9.99"), Currency: "usd", CreatedAt: base,
		},
	}
	for _, tx := range txs {
		require.NoError(t, storage.SaveTransaction(ctx, tx))
	}

	tests := []struct {
		name       string
		customerID string
		wantKinds  []models.TransactionKind
	}{
		{name: "history in order", customerID: "cus_1", wantKinds: []models.TransactionKind{models.TransactionCreated, models.TransactionUpdated}},
		{name: "other customer", customerID: "cus_2", wantKinds: []models.TransactionKind{models.TransactionCreated}},
		{name: "unknown customer", customerID: "cus_none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.ListTransactions(ctx, tt.customerID)
			require.NoError(t, err)
			require.Len(t, got, len(tt.wantKinds))
			for i, k := range tt.wantKinds {
				assert.Equal(t, k, got[i].Kind)
				assert.Equal(t, tt.customerID, got[i].CustomerID)
			}
		})
	}

	got, err := storage.ListTransactions(ctx, "cus_1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("59.90").Equal(got[1].Amount))
	assert.True(t, base.Add(time.Hour).Equal(got[1].CreatedAt))
}

func TestStorage_SaveTransaction_DuplicateID(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	tx := models.SubscriptionTransaction{ID: uuid.NewString(), SubscriptionID: "sub_1", CustomerID: "cus_1",
		PlanID: "basic_monthly", Kind: models.TransactionCreated, CreatedAt: time.Now()}
	require.NoError(t, storage.SaveTransaction(context.Background(), tx))

	err := storage.SaveTransaction(context.Background(), tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.SaveTransaction")
}

func TestStorage_AuditEvents(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	l := audit.NewLogger(nil, audit.NewStoreSink("postgres", storage))
	l.Log(ctx, audit.KindSubscriptionCreated, audit.SeverityInfo, map[string]string{"plan_id": "basic_monthly"})
	l.Log(ctx, audit.KindSubscriptionCreationFailed, audit.SeverityWarning, map[string]string{"error": "declined"})

	all, err := storage.ListAuditEvents(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := storage.ListAuditEvents(ctx, audit.KindSubscriptionCreationFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, audit.SeverityWarning, failed[0].Severity)
	assert.Equal(t, "declined", failed[0].Details["error"])
}
