// Package subscription управляет жизненным циклом подписки клиента:
// none → active → (updated) → canceled. Состояние принадлежит экземпляру
// Service; одновременные вызовы не упорядочиваются, побеждает последняя запись.
// Исключение — оформление: второй CreateSubscription не начнётся, пока идёт первый.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/provider-gateway/internal/audit"
	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/provider-gateway/internal/models"
	"github.com/magabrotheeeer/provider-gateway/internal/neterr"
)

const snapshotTTL = 24 * time.Hour

// BillingProvider — операции платёжного провайдера. Реализуется stripe.Client.
type BillingProvider interface {
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) (*models.PaymentMethod, error)
	CreateSubscription(ctx context.Context, customerID string, plan models.SubscriptionPlan, paymentMethodID string) (*models.Subscription, error)
	UpdateSubscriptionPlan(ctx context.Context, sub models.Subscription, plan models.SubscriptionPlan) (*models.Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) (*models.Subscription, error)
}

// TransactionRepository хранит историю изменений подписки.
type TransactionRepository interface {
	SaveTransaction(ctx context.Context, tx models.SubscriptionTransaction) error
	ListTransactions(ctx context.Context, customerID string) ([]models.SubscriptionTransaction, error)
}

// Cache описывает методы для кэширования снимка подписки.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Mirror копирует состояние подписки во внешнее хранилище (Supabase).
type Mirror interface {
	MirrorSubscription(ctx context.Context, sub models.Subscription) error
}

// Metrics считает операции сервиса.
type Metrics interface {
	ObserveSubscription(operation string, err error)
}

// Deps — зависимости сервиса. Catalog и Provider обязательны,
// остальные можно не задавать.
type Deps struct {
	Catalog      *Catalog
	Provider     BillingProvider
	Audit        *audit.Logger
	Log          *slog.Logger
	Cache        Cache
	Transactions TransactionRepository
	Mirror       Mirror
	Metrics      Metrics
}

// Service — подписка одного клиента.
type Service struct {
	customerID string
	catalog    *Catalog
	provider   BillingProvider
	audit      *audit.Logger
	log        *slog.Logger
	cache      Cache
	txRepo     TransactionRepository
	mirror     Mirror
	metrics    Metrics
	now        func() time.Time

	mu      sync.RWMutex
	current *models.Subscription
	history []models.SubscriptionTransaction
	// creating занят, пока CreateSubscription ждёт ответа провайдера.
	creating bool
}

// NewService создаёт сервис подписки клиента customerID.
func NewService(customerID string, deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	auditLog := deps.Audit
	if auditLog == nil {
		auditLog = audit.NewLogger(log)
	}
	return &Service{
		customerID: customerID,
		catalog:    deps.Catalog,
		provider:   deps.Provider,
		audit:      auditLog,
		log:        log.With(slog.String("customer_id", customerID)),
		cache:      deps.Cache,
		txRepo:     deps.Transactions,
		mirror:     deps.Mirror,
		metrics:    deps.Metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CustomerID возвращает клиента, которому принадлежит сервис.
func (s *Service) CustomerID() string {
	return s.customerID
}

// CreateSubscription оформляет подписку: проверяет тариф, привязывает платёжный
// метод и создаёт подписку у провайдера. Неизвестный тариф отклоняется до
// любых сетевых вызовов. При ошибке текущая подписка не меняется.
// Пока оформление не завершилось, повторный вызов получает ErrCreationInProgress.
func (s *Service) CreateSubscription(ctx context.Context, planID, customerID, paymentMethodID string) (sub *models.Subscription, err error) {
	const op = "subscription.CreateSubscription"
	log := s.log.With(sl.Op(op), slog.String("plan_id", planID))
	details := map[string]string{"customer_id": customerID, "plan_id": planID}
	defer func() { s.observe("create", err) }()

	plan, ok := s.catalog.Plan(planID)
	if !ok {
		return nil, s.fail(ctx, log, audit.KindSubscriptionCreationFailed, details,
			fmt.Errorf("%w: %w: %q", ErrSubscriptionCreationFailed, ErrPlanNotFound, planID))
	}
	if customerID != s.customerID {
		return nil, s.fail(ctx, log, audit.KindSubscriptionCreationFailed, details,
			fmt.Errorf("%w: %w", ErrSubscriptionCreationFailed, ErrCustomerMismatch))
	}
	if curID, err := s.reserve(); err != nil {
		if curID != "" {
			details["subscription_id"] = curID
		}
		return nil, s.fail(ctx, log, audit.KindSubscriptionCreationFailed, details,
			fmt.Errorf("%w: %w", ErrSubscriptionCreationFailed, err))
	}
	defer s.release()

	pm, err := s.provider.AttachPaymentMethod(ctx, paymentMethodID, customerID)
	if err != nil {
		details["payment_method_id"] = paymentMethodID
		return nil, s.fail(ctx, log, audit.KindSubscriptionCreationFailed, details,
			fmt.Errorf("%w: %w: %w", ErrSubscriptionCreationFailed, ErrPaymentMethodFailed, err))
	}

	created, err := s.provider.CreateSubscription(ctx, customerID, plan, pm.ID)
	if err != nil {
		return nil, s.fail(ctx, log, audit.KindSubscriptionCreationFailed, details,
			fmt.Errorf("%w: %w", ErrSubscriptionCreationFailed, err))
	}

	next := *created
	next.PlanID = plan.ID
	if next.CustomerID == "" {
		next.CustomerID = customerID
	}
	if next.PaymentMethodID == "" {
		next.PaymentMethodID = pm.ID
	}
	if next.Amount.IsZero() {
		next.Amount = plan.Price
		next.Currency = plan.Currency
	}

	s.replace(ctx, &next, s.transaction(next, models.TransactionCreated, next.Amount))
	details["subscription_id"] = next.ID
	s.audit.Log(ctx, audit.KindSubscriptionCreated, audit.SeverityInfo, details)
	log.Info("subscription created", slog.String("subscription_id", next.ID))

	return cloneSubscription(&next), nil
}

// UpdateSubscription переводит текущую подписку на другой тариф и заменяет
// сохранённую запись целиком.
func (s *Service) UpdateSubscription(ctx context.Context, newPlanID string) (sub *models.Subscription, err error) {
	const op = "subscription.UpdateSubscription"
	log := s.log.With(sl.Op(op), slog.String("plan_id", newPlanID))
	details := map[string]string{"customer_id": s.customerID, "plan_id": newPlanID}
	defer func() { s.observe("update", err) }()

	cur := s.Current()
	if cur == nil {
		return nil, s.fail(ctx, log, audit.KindSubscriptionUpdateFailed, details,
			fmt.Errorf("%w: %w", ErrSubscriptionUpdateFailed, ErrNoActiveSubscription))
	}
	details["subscription_id"] = cur.ID
	details["previous_plan_id"] = cur.PlanID

	plan, ok := s.catalog.Plan(newPlanID)
	if !ok {
		return nil, s.fail(ctx, log, audit.KindSubscriptionUpdateFailed, details,
			fmt.Errorf("%w: %w: %q", ErrSubscriptionUpdateFailed, ErrPlanNotFound, newPlanID))
	}

	updated, err := s.provider.UpdateSubscriptionPlan(ctx, *cur, plan)
	if err != nil {
		return nil, s.fail(ctx, log, audit.KindSubscriptionUpdateFailed, details,
			fmt.Errorf("%w: %w", ErrSubscriptionUpdateFailed, err))
	}

	next := *updated
	next.PlanID = plan.ID
	if next.CustomerID == "" {
		next.CustomerID = cur.CustomerID
	}
	if next.PaymentMethodID == "" {
		next.PaymentMethodID = cur.PaymentMethodID
	}
	if next.Amount.IsZero() {
		next.Amount = plan.Price
		next.Currency = plan.Currency
	}

	s.replace(ctx, &next, s.transaction(next, models.TransactionUpdated, next.Amount))
	s.audit.Log(ctx, audit.KindSubscriptionUpdated, audit.SeverityInfo, details)
	log.Info("subscription updated", slog.String("subscription_id", next.ID))

	return cloneSubscription(&next), nil
}

// CancelSubscription отменяет подписку. immediately очищает текущую подписку,
// иначе она остаётся с CancelAtPeriodEnd = true до конца оплаченного периода.
func (s *Service) CancelSubscription(ctx context.Context, immediately bool) (sub *models.Subscription, err error) {
	const op = "subscription.CancelSubscription"
	log := s.log.With(sl.Op(op), slog.Bool("immediately", immediately))
	details := map[string]string{"customer_id": s.customerID, "immediately": fmt.Sprint(immediately)}
	defer func() { s.observe("cancel", err) }()

	cur := s.Current()
	if cur == nil {
		return nil, s.fail(ctx, log, audit.KindSubscriptionCancellationFailed, details,
			fmt.Errorf("%w: %w", ErrSubscriptionCancellationFailed, ErrNoActiveSubscription))
	}
	details["subscription_id"] = cur.ID
	details["plan_id"] = cur.PlanID

	canceled, err := s.provider.CancelSubscription(ctx, cur.ID, immediately)
	if err != nil {
		return nil, s.fail(ctx, log, audit.KindSubscriptionCancellationFailed, details,
			fmt.Errorf("%w: %w", ErrSubscriptionCancellationFailed, err))
	}

	if immediately {
		final := *cur
		final.Status = models.SubscriptionStatusCanceled
		final.CanceledAt = canceled.CanceledAt
		if final.CanceledAt == nil {
			t := s.now()
			final.CanceledAt = &t
		}
		s.replace(ctx, nil, s.transaction(final, models.TransactionCanceled, decimal.Zero))
		s.audit.Log(ctx, audit.KindSubscriptionCanceled, audit.SeverityInfo, details)
		log.Info("subscription canceled", slog.String("subscription_id", cur.ID))
		return cloneSubscription(&final), nil
	}

	next := *cur
	next.CancelAtPeriodEnd = true
	if canceled.Status != "" {
		next.Status = canceled.Status
	}
	if !canceled.CurrentPeriodEnd.IsZero() {
		next.CurrentPeriodEnd = canceled.CurrentPeriodEnd
	}
	s.replace(ctx, &next, s.transaction(next, models.TransactionCancelScheduled, decimal.Zero))
	details["period_end"] = next.CurrentPeriodEnd.Format(time.RFC3339)
	s.audit.Log(ctx, audit.KindSubscriptionCancelScheduled, audit.SeverityInfo, details)
	log.Info("subscription cancellation scheduled", slog.String("subscription_id", cur.ID))

	return cloneSubscription(&next), nil
}

// Quote считает динамическую цену для тарифа из каталога.
func (s *Service) Quote(planID string, usageCount int, extras []models.PricingExtra) (PriceQuote, error) {
	plan, ok := s.catalog.Plan(planID)
	if !ok {
		return PriceQuote{}, fmt.Errorf("%w: %q", ErrPlanNotFound, planID)
	}
	return QuoteDynamicPrice(plan, usageCount, extras), nil
}

// Current возвращает копию текущей подписки или nil.
func (s *Service) Current() *models.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSubscription(s.current)
}

// Transactions возвращает историю изменений подписки. Если задан репозиторий,
// история читается из него.
func (s *Service) Transactions(ctx context.Context) ([]models.SubscriptionTransaction, error) {
	const op = "subscription.Transactions"
	if s.txRepo != nil {
		txs, err := s.txRepo.ListTransactions(ctx, s.customerID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return txs, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history), nil
}

// HandleProviderEvent применяет событие провайдера к текущей подписке и
// сообщает, изменило ли оно её. События о чужих подписках и необрабатываемые
// типы только фиксируются в аудите.
func (s *Service) HandleProviderEvent(ctx context.Context, ev models.ProviderEvent) (bool, error) {
	const op = "subscription.HandleProviderEvent"
	log := s.log.With(sl.Op(op), slog.String("event_id", ev.ID), slog.String("event_type", ev.Type))
	details := map[string]string{"customer_id": s.customerID, "event_id": ev.ID, "event_type": ev.Type}
	defer s.audit.Log(ctx, audit.KindProviderEventReceived, audit.SeverityInfo, details)

	cur := s.Current()
	if ev.Subscription == nil || cur == nil || cur.ID != ev.Subscription.ID {
		details["applied"] = "false"
		log.Debug("provider event ignored")
		return false, nil
	}
	details["subscription_id"] = cur.ID

	switch ev.Type {
	case "customer.subscription.deleted":
		final := *cur
		final.Status = models.SubscriptionStatusCanceled
		final.CanceledAt = ev.Subscription.CanceledAt
		s.replace(ctx, nil, s.transaction(final, models.TransactionCanceled, decimal.Zero))
	case "customer.subscription.updated":
		next := *cur
		incoming := ev.Subscription
		if incoming.Status != "" {
			next.Status = incoming.Status
		}
		next.CancelAtPeriodEnd = incoming.CancelAtPeriodEnd
		next.CanceledAt = incoming.CanceledAt
		if !incoming.CurrentPeriodStart.IsZero() {
			next.CurrentPeriodStart = incoming.CurrentPeriodStart
		}
		if !incoming.CurrentPeriodEnd.IsZero() {
			next.CurrentPeriodEnd = incoming.CurrentPeriodEnd
		}
		if incoming.PlanID != "" {
			next.PlanID = incoming.PlanID
		}
		s.replace(ctx, &next, s.transaction(next, models.TransactionProviderEvent, decimal.Zero))
	default:
		details["applied"] = "false"
		return false, nil
	}

	details["applied"] = "true"
	log.Info("provider event applied")
	return true, nil
}

// Restore загружает снимок текущей подписки из кэша.
func (s *Service) Restore(ctx context.Context) error {
	const op = "subscription.Restore"
	if s.cache == nil {
		return nil
	}

	var snap models.Subscription
	found, err := s.cache.Get(s.cacheKey(), &snap)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil
	}

	s.mu.Lock()
	s.current = &snap
	s.mu.Unlock()
	s.log.Debug("subscription restored from cache", sl.Op(op), slog.String("subscription_id", snap.ID))
	return nil
}

// replace заменяет текущую подписку (nil — очистка), записывает транзакцию и
// синхронизирует кэш и зеркало. Ошибки синхронизации только логируются.
func (s *Service) replace(ctx context.Context, next *models.Subscription, tx models.SubscriptionTransaction) {
	s.mu.Lock()
	s.current = cloneSubscription(next)
	s.history = append(s.history, tx)
	s.mu.Unlock()

	if s.txRepo != nil {
		if err := s.txRepo.SaveTransaction(ctx, tx); err != nil {
			s.log.Warn("failed to save transaction", slog.String("transaction_id", tx.ID), sl.Err(err))
		}
	}

	if s.cache != nil {
		key := s.cacheKey()
		var err error
		if next == nil {
			err = s.cache.Invalidate(key)
		} else {
			err = s.cache.Set(key, next, snapshotTTL)
		}
		if err != nil {
			s.log.Warn("failed to sync subscription cache", slog.String("key", key), sl.Err(err))
		}
	}

	if s.mirror != nil {
		snapshot := next
		if snapshot == nil {
			snapshot = &models.Subscription{
				ID:         tx.SubscriptionID,
				CustomerID: tx.CustomerID,
				PlanID:     tx.PlanID,
				Status:     models.SubscriptionStatusCanceled,
			}
		}
		if err := s.mirror.MirrorSubscription(ctx, *snapshot); err != nil {
			s.log.Warn("failed to mirror subscription", sl.NetErr(err))
		}
	}
}

// reserve занимает слот оформления. Если подписка уже есть, возвращает её ID.
func (s *Service) reserve() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return s.current.ID, ErrAlreadySubscribed
	}
	if s.creating {
		return "", ErrCreationInProgress
	}
	s.creating = true
	return "", nil
}

func (s *Service) release() {
	s.mu.Lock()
	s.creating = false
	s.mu.Unlock()
}

func (s *Service) transaction(sub models.Subscription, kind models.TransactionKind, amount decimal.Decimal) models.SubscriptionTransaction {
	return models.SubscriptionTransaction{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		CustomerID:     s.customerID,
		PlanID:         sub.PlanID,
		Kind:           kind,
		Amount:         amount,
		Currency:       sub.Currency,
		CreatedAt:      s.now(),
	}
}

// fail логирует ошибку и пишет событие аудита. Отказ по правилам сервиса
// пишется как warning, сбой провайдера как error, ошибка авторизации у
// провайдера как critical.
func (s *Service) fail(ctx context.Context, log *slog.Logger, kind audit.Kind, details map[string]string, err error) error {
	severity := audit.SeverityError
	switch {
	case neterr.IsAuthenticationError(err):
		severity = audit.SeverityCritical
	case isRejection(err):
		severity = audit.SeverityWarning
	}
	details["error"] = err.Error()
	log.Error("subscription operation failed", sl.NetErr(err))
	s.audit.Log(ctx, kind, severity, details)
	return err
}

func isRejection(err error) bool {
	for _, target := range []error{
		ErrPlanNotFound, ErrNoActiveSubscription, ErrAlreadySubscribed,
		ErrCustomerMismatch, ErrCreationInProgress,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Service) observe(operation string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveSubscription(operation, err)
	}
}

func (s *Service) cacheKey() string {
	return "subscription:current:" + s.customerID
}

func cloneSubscription(sub *models.Subscription) *models.Subscription {
	if sub == nil {
		return nil
	}
	c := *sub
	if sub.CanceledAt != nil {
		t := *sub.CanceledAt
		c.CanceledAt = &t
	}
	return &c
}
