package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/provider-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/provider-gateway/internal/models"
)

// Registry выдаёт по одному Service на клиента и создаёт их по требованию.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	services map[string]*Service
}

func NewRegistry(deps Deps) *Registry {
	if deps.Log == nil {
		deps.Log = slog.New(slog.DiscardHandler)
	}
	return &Registry{deps: deps, services: make(map[string]*Service)}
}

// For возвращает сервис клиента. Новый сервис восстанавливает подписку из
// кэша вне блокировки реестра; ошибка кэша не мешает работе, сервис стартует
// без подписки.
func (r *Registry) For(ctx context.Context, customerID string) (*Service, error) {
	const op = "subscription.Registry.For"
	if customerID == "" {
		return nil, errors.New(op + ": empty customer id")
	}

	if svc, ok := r.lookup(customerID); ok {
		return svc, nil
	}
	return r.adopt(customerID, r.restored(ctx, customerID)), nil
}

func (r *Registry) lookup(customerID string) (*Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[customerID]
	return svc, ok
}

// adopt сохраняет svc, если для клиента ещё нет сервиса, и возвращает
// сохранённый.
func (r *Registry) adopt(customerID string, svc *Service) *Service {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.services[customerID]; ok {
		return existing
	}
	r.services[customerID] = svc
	return svc
}

func (r *Registry) restored(ctx context.Context, customerID string) *Service {
	svc := NewService(customerID, r.deps)
	if err := svc.Restore(ctx); err != nil {
		r.deps.Log.Warn("failed to restore subscription", sl.Op("subscription.Registry.For"),
			slog.String("customer_id", customerID), sl.Err(err))
	}
	return svc
}

// Catalog возвращает общий каталог тарифов.
func (r *Registry) Catalog() *Catalog {
	return r.deps.Catalog
}

// Len возвращает число созданных сервисов.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.services)
}

// DispatchEvent передаёт событие провайдера сервису владельца подписки и
// сообщает, изменило ли оно подписку. Событие без подписки или клиента
// игнорируется. Для незнакомого клиента сервис сохраняется в реестре, только
// если событие применилось к его подписке из кэша.
func (r *Registry) DispatchEvent(ctx context.Context, ev models.ProviderEvent) (bool, error) {
	const op = "subscription.Registry.DispatchEvent"
	if ev.Subscription == nil || ev.Subscription.CustomerID == "" {
		return false, nil
	}
	customerID := ev.Subscription.CustomerID

	svc, known := r.lookup(customerID)
	if !known {
		svc = r.restored(ctx, customerID)
	}
	applied, err := svc.HandleProviderEvent(ctx, ev)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !known && applied {
		r.adopt(customerID, svc)
	}
	return applied, nil
}
