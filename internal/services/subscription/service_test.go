package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/provider-gateway/internal/audit"
	"github.com/magabrotheeeer/provider-gateway/internal/models"
	"github.com/magabrotheeeer/provider-gateway/internal/neterr"
)

type ProviderMock struct{ mock.Mock }

func (m *ProviderMock) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) (*models.PaymentMethod, error) {
	args := m.Called(ctx, paymentMethodID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentMethod), args.Error(1)
}

func (m *ProviderMock) CreateSubscription(ctx context.Context, customerID string, plan models.SubscriptionPlan, paymentMethodID string) (*models.Subscription, error) {
	args := m.Called(ctx, customerID, plan, paymentMethodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *ProviderMock) UpdateSubscriptionPlan(ctx context.Context, sub models.Subscription, plan models.SubscriptionPlan) (*models.Subscription, error) {
	args := m.Called(ctx, sub, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *ProviderMock) CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) (*models.Subscription, error) {
	args := m.Called(ctx, subscriptionID, immediately)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

type TxRepoMock struct{ mock.Mock }

func (m *TxRepoMock) SaveTransaction(ctx context.Context, tx models.SubscriptionTransaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *TxRepoMock) ListTransactions(ctx context.Context, customerID string) ([]models.SubscriptionTransaction, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SubscriptionTransaction), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

type MetricsMock struct{ mock.Mock }

func (m *MetricsMock) ObserveSubscription(operation string, err error) {
	m.Called(operation, err)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const customer = "cus_1"

var (
	basicPlan = models.SubscriptionPlan{
		ID: "basic_monthly", Name: "Basic", Price: dec("9.99"), Currency: "usd",
		Interval: models.BillingIntervalMonth, IncludedUsage: 10, OveragePrice: dec("1.99"),
		StripePriceID: "price_basic",
	}
	premiumPlan = models.SubscriptionPlan{
		ID: "premium_monthly", Name: "Premium", Price: dec("59.90"), Currency: "usd",
		Interval: models.BillingIntervalMonth, IncludedUsage: 50, OveragePrice: dec("2.99"),
		StripePriceID: "price_premium",
	}
)

type fixture struct {
	svc      *Service
	provider *ProviderMock
	sink     *audit.MemorySink
}

func newFixture(t *testing.T, opts ...func(*Deps)) fixture {
	t.Helper()
	catalog, err := NewCatalog([]models.SubscriptionPlan{basicPlan, premiumPlan})
	require.NoError(t, err)

	provider := new(ProviderMock)
	sink := audit.NewMemorySink()
	deps := Deps{
		Catalog:  catalog,
		Provider: provider,
		Audit:    audit.NewLogger(newNoopLogger(), sink),
		Log:      newNoopLogger(),
	}
	for _, o := range opts {
		o(&deps)
	}
	return fixture{svc: NewService(customer, deps), provider: provider, sink: sink}
}

func activeSubscription(plan models.SubscriptionPlan) *models.Subscription {
	return &models.Subscription{
		ID:               "sub_1",
		CustomerID:       customer,
		PlanID:           plan.ID,
		ItemID:           "si_1",
		Status:           models.SubscriptionStatusActive,
		Amount:           plan.Price,
		Currency:         plan.Currency,
		CurrentPeriodEnd: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

// withActive оформляет подписку через сервис, чтобы получить состояние active.
func withActive(t *testing.T, f fixture, plan models.SubscriptionPlan) {
	t.Helper()
	f.provider.On("AttachPaymentMethod", mock.Anything, "pm_1", customer).
		Return(&models.PaymentMethod{ID: "pm_1"}, nil).Once()
	f.provider.On("CreateSubscription", mock.Anything, customer, plan, "pm_1").
		Return(activeSubscription(plan), nil).Once()
	_, err := f.svc.CreateSubscription(context.Background(), plan.ID, customer, "pm_1")
	require.NoError(t, err)
}

func TestService_CreateSubscription(t *testing.T) {
	tests := []struct {
		name       string
		planID     string
		customerID string
		setupMocks func(p *ProviderMock)
		wantErrs   []error
		wantKind   audit.Kind
	}{
		{
			name:       "success",
			planID:     premiumPlan.ID,
			customerID: customer,
			setupMocks: func(p *ProviderMock) {
				p.On("AttachPaymentMethod", mock.Anything, "pm_1", customer).
					Return(&models.PaymentMethod{ID: "pm_1"}, nil).Once()
				p.On("CreateSubscription", mock.Anything, customer, premiumPlan, "pm_1").
					Return(activeSubscription(premiumPlan), nil).Once()
			},
			wantKind: audit.KindSubscriptionCreated,
		},
		{
			name:       "unknown plan fails before any provider call",
			planID:     "platinum",
			customerID: customer,
			setupMocks: func(*ProviderMock) {},
			wantErrs:   []error{ErrPlanNotFound, ErrSubscriptionCreationFailed},
			wantKind:   audit.KindSubscriptionCreationFailed,
		},
		{
			name:       "payment method declined",
			planID:     basicPlan.ID,
			customerID: customer,
			setupMocks: func(p *ProviderMock) {
				p.On("AttachPaymentMethod", mock.Anything, "pm_1", customer).
					Return(nil, neterr.HTTPError(402)).Once()
			},
			wantErrs: []error{ErrPaymentMethodFailed, ErrSubscriptionCreationFailed, neterr.HTTPError(402)},
			wantKind: audit.KindSubscriptionCreationFailed,
		},
		{
			name:       "provider create fails",
			planID:     basicPlan.ID,
			customerID: customer,
			setupMocks: func(p *ProviderMock) {
				p.On("AttachPaymentMethod", mock.Anything, "pm_1", customer).
					Return(&models.PaymentMethod{ID: "pm_1"}, nil).Once()
				p.On("CreateSubscription", mock.Anything, customer, basicPlan, "pm_1").
					Return(nil, neterr.Timeout()).Once()
			},
			wantErrs: []error{ErrSubscriptionCreationFailed, neterr.Timeout()},
			wantKind: audit.KindSubscriptionCreationFailed,
		},
		{
			name:       "foreign customer",
			planID:     basicPlan.ID,
			customerID: "cus_other",
			setupMocks: func(*ProviderMock) {},
			wantErrs:   []error{ErrSubscriptionCreationFailed},
			wantKind:   audit.KindSubscriptionCreationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMocks(f.provider)

			sub, err := f.svc.CreateSubscription(context.Background(), tt.planID, tt.customerID, "pm_1")
			if len(tt.wantErrs) > 0 {
				require.Error(t, err)
				for _, want := range tt.wantErrs {
					assert.ErrorIs(t, err, want)
				}
				assert.Nil(t, sub)
				assert.Nil(t, f.svc.Current(), "no partial state")
			} else {
				require.NoError(t, err)
				require.NotNil(t, sub)
				assert.Equal(t, premiumPlan.ID, sub.PlanID)
				assert.Equal(t, "pm_1", sub.PaymentMethodID)
				require.NotNil(t, f.svc.Current())
				assert.Equal(t, "sub_1", f.svc.Current().ID)
			}

			assert.Equal(t, []audit.Kind{tt.wantKind}, f.sink.Kinds())
			f.provider.AssertExpectations(t)
		})
	}
}

func TestService_CreateSubscription_UnknownPlanMakesNoCalls(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateSubscription(context.Background(), "missing", customer, "pm_1")
	require.ErrorIs(t, err, ErrPlanNotFound)

	f.provider.AssertNotCalled(t, "AttachPaymentMethod", mock.Anything, mock.Anything, mock.Anything)
	f.provider.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_CreateSubscription_AlreadySubscribed(t *testing.T) {
	f := newFixture(t)
	withActive(t, f, basicPlan)

	_, err := f.svc.CreateSubscription(context.Background(), premiumPlan.ID, customer, "pm_1")
	require.ErrorIs(t, err, ErrSubscriptionCreationFailed)
	assert.Equal(t, basicPlan.ID, f.svc.Current().PlanID)
}

func TestService_CreateSubscription_AuthFailureIsCritical(t *testing.T) {
	f := newFixture(t)
	f.provider.On("AttachPaymentMethod", mock.Anything, "pm_1", customer).
		Return(nil, neterr.Unauthorized()).Once()

	_, err := f.svc.CreateSubscription(context.Background(), basicPlan.ID, customer, "pm_1")
	require.Error(t, err)

	events := f.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.SeverityCritical, events[0].Severity)
	assert.Contains(t, events[0].Details["error"], "payment method failed")
}

func TestService_CreateSubscription_ConcurrentCallsCreateOnce(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})
	proceed := make(chan struct{})
	f.provider.On("AttachPaymentMethod", mock.Anything, "pm_1", customer).
		Run(func(mock.Arguments) {
			close(started)
			<-proceed
		}).
		Return(&models.PaymentMethod{ID: "pm_1"}, nil).Once()
	f.provider.On("CreateSubscription", mock.Anything, customer, basicPlan, "pm_1").
		Return(activeSubscription(basicPlan), nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.CreateSubscription(context.Background(), basicPlan.ID, customer, "pm_1")
		done <- err
	}()
	<-started

	_, err := f.svc.CreateSubscription(context.Background(), basicPlan.ID, customer, "pm_1")
	assert.ErrorIs(t, err, ErrSubscriptionCreationFailed)
	assert.ErrorIs(t, err, ErrCreationInProgress)

	close(proceed)
	require.NoError(t, <-done)

	_, err = f.svc.CreateSubscription(context.Background(), basicPlan.ID, customer, "pm_1")
	assert.ErrorIs(t, err, ErrAlreadySubscribed)
	f.provider.AssertExpectations(t)
}

func TestService_CreateSubscription_ReleasesSlotAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.provider.On("AttachPaymentMethod", mock.Anything, "pm_1", customer).
		Return(nil, neterr.Timeout()).Once()

	_, err := f.svc.CreateSubscription(context.Background(), basicPlan.ID, customer, "pm_1")
	require.ErrorIs(t, err, neterr.Timeout())

	withActive(t, f, basicPlan)
	assert.Equal(t, "sub_1", f.svc.Current().ID)
}

func TestService_FailureSeverity(t *testing.T) {
	tests := []struct {
		name         string
		planID       string
		setupMocks   func(p *ProviderMock)
		wantSeverity audit.Severity
	}{
		{
			name:         "rejected by service rules",
			planID:       "platinum",
			setupMocks:   func(*ProviderMock) {},
			wantSeverity: audit.SeverityWarning,
		},
		{
			name:   "provider failure",
			planID: basicPlan.ID,
			setupMocks: func(p *ProviderMock) {
				p.On("AttachPaymentMethod", mock.Anything, "pm_1", customer).
					Return(nil, neterr.HTTPError(503)).Once()
			},
			wantSeverity: audit.SeverityError,
		},
		{
			name:   "provider rejects credentials",
			planID: basicPlan.ID,
			setupMocks: func(p *ProviderMock) {
				p.On("AttachPaymentMethod", mock.Anything, "pm_1", customer).
					Return(nil, neterr.Unauthorized()).Once()
			},
			wantSeverity: audit.SeverityCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMocks(f.provider)

			_, err := f.svc.CreateSubscription(context.Background(), tt.planID, customer, "pm_1")
			require.Error(t, err)

			events := f.sink.Events()
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantSeverity, events[0].Severity)
		})
	}
}

func TestService_UpdateSubscription(t *testing.T) {
	t.Run("no current subscription", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.UpdateSubscription(context.Background(), premiumPlan.ID)
		assert.ErrorIs(t, err, ErrSubscriptionUpdateFailed)
		assert.ErrorIs(t, err, ErrNoActiveSubscription)
		assert.Equal(t, []audit.Kind{audit.KindSubscriptionUpdateFailed}, f.sink.Kinds())
	})

	t.Run("unknown plan", func(t *testing.T) {
		f := newFixture(t)
		withActive(t, f, basicPlan)

		_, err := f.svc.UpdateSubscription(context.Background(), "platinum")
		assert.ErrorIs(t, err, ErrSubscriptionUpdateFailed)
		assert.ErrorIs(t, err, ErrPlanNotFound)
		assert.Equal(t, basicPlan.ID, f.svc.Current().PlanID)
		f.provider.AssertNotCalled(t, "UpdateSubscriptionPlan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("replaces record whole", func(t *testing.T) {
		f := newFixture(t)
		withActive(t, f, basicPlan)

		updated := activeSubscription(premiumPlan)
		updated.Status = models.SubscriptionStatusPastDue
		f.provider.On("UpdateSubscriptionPlan", mock.Anything, mock.MatchedBy(func(s models.Subscription) bool {
			return s.ID == "sub_1" && s.PlanID == basicPlan.ID
		}), premiumPlan).Return(updated, nil).Once()

		sub, err := f.svc.UpdateSubscription(context.Background(), premiumPlan.ID)
		require.NoError(t, err)
		assert.Equal(t, premiumPlan.ID, sub.PlanID)

		cur := f.svc.Current()
		assert.Equal(t, premiumPlan.ID, cur.PlanID)
		assert.Equal(t, models.SubscriptionStatusPastDue, cur.Status)
		assert.True(t, premiumPlan.Price.Equal(cur.Amount))
		assert.Equal(t, []audit.Kind{audit.KindSubscriptionCreated, audit.KindSubscriptionUpdated}, f.sink.Kinds())
	})

	t.Run("provider failure keeps previous record", func(t *testing.T) {
		f := newFixture(t)
		withActive(t, f, basicPlan)
		f.provider.On("UpdateSubscriptionPlan", mock.Anything, mock.Anything, premiumPlan).
			Return(nil, neterr.RateLimited()).Once()

		_, err := f.svc.UpdateSubscription(context.Background(), premiumPlan.ID)
		assert.ErrorIs(t, err, ErrSubscriptionUpdateFailed)
		assert.True(t, neterr.IsRetryable(err))
		assert.Equal(t, basicPlan.ID, f.svc.Current().PlanID)
	})
}

func TestService_CancelSubscription(t *testing.T) {
	t.Run("immediately clears current", func(t *testing.T) {
		f := newFixture(t)
		withActive(t, f, premiumPlan)
		canceledAt := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
		f.provider.On("CancelSubscription", mock.Anything, "sub_1", true).
			Return(&models.Subscription{ID: "sub_1", Status: models.SubscriptionStatusCanceled, CanceledAt: &canceledAt}, nil).Once()

		sub, err := f.svc.CancelSubscription(context.Background(), true)
		require.NoError(t, err)

		assert.Nil(t, f.svc.Current())
		assert.Equal(t, models.SubscriptionStatusCanceled, sub.Status)
		require.NotNil(t, sub.CanceledAt)
		assert.True(t, canceledAt.Equal(*sub.CanceledAt))
		assert.Contains(t, f.sink.Kinds(), audit.KindSubscriptionCanceled)
	})

	t.Run("at period end keeps subscription flagged", func(t *testing.T) {
		f := newFixture(t)
		withActive(t, f, premiumPlan)
		f.provider.On("CancelSubscription", mock.Anything, "sub_1", false).
			Return(&models.Subscription{ID: "sub_1", Status: models.SubscriptionStatusActive, CancelAtPeriodEnd: true}, nil).Once()

		_, err := f.svc.CancelSubscription(context.Background(), false)
		require.NoError(t, err)

		cur := f.svc.Current()
		require.NotNil(t, cur)
		assert.True(t, cur.CancelAtPeriodEnd)
		assert.Equal(t, premiumPlan.ID, cur.PlanID)
		assert.Contains(t, f.sink.Kinds(), audit.KindSubscriptionCancelScheduled)
	})

	t.Run("nothing to cancel", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CancelSubscription(context.Background(), true)
		assert.ErrorIs(t, err, ErrSubscriptionCancellationFailed)
		assert.ErrorIs(t, err, ErrNoActiveSubscription)
		assert.Equal(t, []audit.Kind{audit.KindSubscriptionCancellationFailed}, f.sink.Kinds())
	})

	t.Run("provider failure keeps subscription", func(t *testing.T) {
		f := newFixture(t)
		withActive(t, f, premiumPlan)
		f.provider.On("CancelSubscription", mock.Anything, "sub_1", true).
			Return(nil, neterr.NoInternetConnection()).Once()

		_, err := f.svc.CancelSubscription(context.Background(), true)
		assert.ErrorIs(t, err, ErrSubscriptionCancellationFailed)
		assert.True(t, neterr.IsConnectivityError(err))
		assert.NotNil(t, f.svc.Current())
	})
}

func TestService_Transactions_InMemory(t *testing.T) {
	f := newFixture(t)
	withActive(t, f, basicPlan)
	f.provider.On("CancelSubscription", mock.Anything, "sub_1", true).
		Return(&models.Subscription{ID: "sub_1"}, nil).Once()
	_, err := f.svc.CancelSubscription(context.Background(), true)
	require.NoError(t, err)

	txs, err := f.svc.Transactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TransactionCreated, txs[0].Kind)
	assert.True(t, basicPlan.Price.Equal(txs[0].Amount))
	assert.Equal(t, models.TransactionCanceled, txs[1].Kind)
	assert.Equal(t, "sub_1", txs[1].SubscriptionID)
}

func TestService_PersistsAndCaches(t *testing.T) {
	repo := new(TxRepoMock)
	cache := new(CacheMock)
	metrics := new(MetricsMock)
	f := newFixture(t, func(d *Deps) {
		d.Transactions = repo
		d.Cache = cache
		d.Metrics = metrics
	})

	repo.On("SaveTransaction", mock.Anything, mock.MatchedBy(func(tx models.SubscriptionTransaction) bool {
		return tx.Kind == models.TransactionCreated && tx.CustomerID == customer
	})).Return(errors.New("db down")).Once()
	cache.On("Set", "subscription:current:cus_1", mock.Anything, snapshotTTL).Return(nil).Once()
	metrics.On("ObserveSubscription", "create", nil).Once()

	withActive(t, f, basicPlan)
	require.NotNil(t, f.svc.Current(), "storage failure does not undo the subscription")

	repo.On("SaveTransaction", mock.Anything, mock.Anything).Return(nil).Once()
	cache.On("Invalidate", "subscription:current:cus_1").Return(nil).Once()
	metrics.On("ObserveSubscription", "cancel", nil).Once()
	f.provider.On("CancelSubscription", mock.Anything, "sub_1", true).Return(&models.Subscription{ID: "sub_1"}, nil).Once()

	_, err := f.svc.CancelSubscription(context.Background(), true)
	require.NoError(t, err)

	repo.On("ListTransactions", mock.Anything, customer).
		Return([]models.SubscriptionTransaction{{ID: "tx-1"}}, nil).Once()
	txs, err := f.svc.Transactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestService_Restore(t *testing.T) {
	cache := new(CacheMock)
	f := newFixture(t, func(d *Deps) { d.Cache = cache })

	cache.On("Get", "subscription:current:cus_1", mock.AnythingOfType("*models.Subscription")).
		Run(func(args mock.Arguments) {
			out := args.Get(1).(*models.Subscription)
			*out = *activeSubscription(premiumPlan)
		}).Return(true, nil).Once()

	require.NoError(t, f.svc.Restore(context.Background()))
	require.NotNil(t, f.svc.Current())
	assert.Equal(t, premiumPlan.ID, f.svc.Current().PlanID)
}

func TestService_Restore_CacheError(t *testing.T) {
	cache := new(CacheMock)
	f := newFixture(t, func(d *Deps) { d.Cache = cache })
	cache.On("Get", mock.Anything, mock.Anything).Return(false, errors.New("redis down")).Once()

	err := f.svc.Restore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription.Restore")
	assert.Nil(t, f.svc.Current())
}

func TestService_HandleProviderEvent(t *testing.T) {
	periodEnd := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		event     models.ProviderEvent
		wantNil   bool
		checkSub  func(t *testing.T, sub *models.Subscription)
		wantApply string
	}{
		{
			name: "deleted clears current",
			event: models.ProviderEvent{ID: "evt_1", Type: "customer.subscription.deleted",
				Subscription: &models.Subscription{ID: "sub_1", Status: models.SubscriptionStatusCanceled}},
			wantNil:   true,
			wantApply: "true",
		},
		{
			name: "updated refreshes status and flag",
			event: models.ProviderEvent{ID: "evt_2", Type: "customer.subscription.updated",
				Subscription: &models.Subscription{ID: "sub_1", Status: models.SubscriptionStatusPastDue, CancelAtPeriodEnd: true, CurrentPeriodEnd: periodEnd}},
			checkSub: func(t *testing.T, sub *models.Subscription) {
				assert.Equal(t, models.SubscriptionStatusPastDue, sub.Status)
				assert.True(t, sub.CancelAtPeriodEnd)
				assert.True(t, periodEnd.Equal(sub.CurrentPeriodEnd))
				assert.Equal(t, basicPlan.ID, sub.PlanID)
			},
			wantApply: "true",
		},
		{
			name: "other subscription ignored",
			event: models.ProviderEvent{ID: "evt_3", Type: "customer.subscription.deleted",
				Subscription: &models.Subscription{ID: "sub_other"}},
			checkSub: func(t *testing.T, sub *models.Subscription) {
				assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
			},
			wantApply: "false",
		},
		{
			name:  "unrelated event type ignored",
			event: models.ProviderEvent{ID: "evt_4", Type: "invoice.paid"},
			checkSub: func(t *testing.T, sub *models.Subscription) {
				assert.Equal(t, "sub_1", sub.ID)
			},
			wantApply: "false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			withActive(t, f, basicPlan)

			applied, err := f.svc.HandleProviderEvent(context.Background(), tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.wantApply == "true", applied)

			if tt.wantNil {
				assert.Nil(t, f.svc.Current())
			} else {
				require.NotNil(t, f.svc.Current())
				tt.checkSub(t, f.svc.Current())
			}

			events := f.sink.Events()
			last := events[len(events)-1]
			assert.Equal(t, audit.KindProviderEventReceived, last.Kind)
			assert.Equal(t, tt.wantApply, last.Details["applied"])
		})
	}
}

func TestService_CurrentIsACopy(t *testing.T) {
	f := newFixture(t)
	withActive(t, f, basicPlan)

	cur := f.svc.Current()
	cur.PlanID = "tampered"
	assert.Equal(t, basicPlan.ID, f.svc.Current().PlanID)
}

func TestService_ConcurrentReadsAndEvents(t *testing.T) {
	f := newFixture(t)
	withActive(t, f, basicPlan)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = f.svc.HandleProviderEvent(context.Background(), models.ProviderEvent{
					Type:         "customer.subscription.updated",
					Subscription: &models.Subscription{ID: "sub_1", Status: models.SubscriptionStatusActive},
				})
				return
			}
			_ = f.svc.Current()
		}()
	}
	wg.Wait()

	assert.NotNil(t, f.svc.Current())
}

func TestService_Quote(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.Quote(premiumPlan.ID, 60, nil)
	require.NoError(t, err)
	assert.True(t, dec("85.31").Equal(q.Total))

	_, err = f.svc.Quote("missing", 1, nil)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}
