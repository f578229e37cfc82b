package subscription

import (
	"fmt"
	"slices"

	"github.com/magabrotheeeer/provider-gateway/internal/models"
)

// Catalog — неизменяемый каталог тарифов.
type Catalog struct {
	plans map[string]models.SubscriptionPlan
	order []string
}

// NewCatalog проверяет, что идентификаторы тарифов непусты и уникальны.
func NewCatalog(plans []models.SubscriptionPlan) (*Catalog, error) {
	const op = "subscription.NewCatalog"

	c := &Catalog{plans: make(map[string]models.SubscriptionPlan, len(plans))}
	for _, p := range plans {
		if p.ID == "" {
			return nil, fmt.Errorf("%s: plan with empty id", op)
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate plan %q", op, p.ID)
		}
		if p.Price.IsNegative() || p.OveragePrice.IsNegative() {
			return nil, fmt.Errorf("%s: plan %q has a negative price", op, p.ID)
		}
		c.plans[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// Plan возвращает тариф по идентификатору.
func (c *Catalog) Plan(id string) (models.SubscriptionPlan, bool) {
	p, ok := c.plans[id]
	return p, ok
}

// Plans возвращает тарифы в порядке конфигурации.
func (c *Catalog) Plans() []models.SubscriptionPlan {
	out := make([]models.SubscriptionPlan, 0, len(c.order))
	for _, id := range c.order {
		p := c.plans[id]
		p.Features = slices.Clone(p.Features)
		out = append(out, p)
	}
	return out
}
