package subscription

import (
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/provider-gateway/internal/models"
)

// Пороги объёмной скидки: строго больше порога.
const (
	largeVolumeThreshold  = 100
	mediumVolumeThreshold = 50
)

var (
	largeVolumeMultiplier  = decimal.RequireFromString("0.90")
	mediumVolumeMultiplier = decimal.RequireFromString("0.95")
)

// PriceQuote — разбивка динамической цены.
type PriceQuote struct {
	PlanID         string          `json:"plan_id"`
	UsageCount     int             `json:"usage_count"`
	Base           decimal.Decimal `json:"base"`
	OverageUnits   int             `json:"overage_units"`
	Overage        decimal.Decimal `json:"overage"`
	Extras         decimal.Decimal `json:"extras"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	VolumeDiscount decimal.Decimal `json:"volume_discount"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
}

// QuoteDynamicPrice считает цену: база + перерасход сверх включённого объёма +
// сумма опций, затем множитель объёмной скидки на весь итог.
// Отрицательное использование считается нулевым. Итог округляется до центов.
func QuoteDynamicPrice(plan models.SubscriptionPlan, usageCount int, extras []models.PricingExtra) PriceQuote {
	usage := max(usageCount, 0)
	overUnits := max(usage-plan.IncludedUsage, 0)

	overage := plan.OveragePrice.Mul(decimal.NewFromInt(int64(overUnits)))
	extrasSum := decimal.Zero
	for _, e := range extras {
		extrasSum = extrasSum.Add(e.Price)
	}
	subtotal := plan.Price.Add(overage).Add(extrasSum)

	multiplier := decimal.NewFromInt(1)
	switch {
	case usage > largeVolumeThreshold:
		multiplier = largeVolumeMultiplier
	case usage > mediumVolumeThreshold:
		multiplier = mediumVolumeMultiplier
	}
	total := subtotal.Mul(multiplier).Round(2)

	return PriceQuote{
		PlanID:         plan.ID,
		UsageCount:     usage,
		Base:           plan.Price,
		OverageUnits:   overUnits,
		Overage:        overage,
		Extras:         extrasSum,
		Subtotal:       subtotal,
		VolumeDiscount: subtotal.Sub(total),
		Total:          total,
		Currency:       plan.Currency,
	}
}

// CalculateDynamicPrice возвращает итог QuoteDynamicPrice.
func CalculateDynamicPrice(plan models.SubscriptionPlan, usageCount int, extras []models.PricingExtra) decimal.Decimal {
	return QuoteDynamicPrice(plan, usageCount, extras).Total
}
