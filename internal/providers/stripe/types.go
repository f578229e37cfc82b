package stripe

import "github.com/magabrotheeeer/provider-gateway/internal/models"

type customerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type paymentMethodResponse struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Customer string `json:"customer"`
	Created  int64  `json:"created"`
	Card     *struct {
		Brand    string `json:"brand"`
		Last4    string `json:"last4"`
		ExpMonth int    `json:"exp_month"`
		ExpYear  int    `json:"exp_year"`
	} `json:"card"`
}

func (r *paymentMethodResponse) toModel() *models.PaymentMethod {
	pm := &models.PaymentMethod{
		ID:         r.ID,
		CustomerID: r.Customer,
		Type:       r.Type,
		CreatedAt:  unixTime(r.Created),
	}
	if r.Card != nil {
		pm.Brand = r.Card.Brand
		pm.Last4 = r.Card.Last4
		pm.ExpMonth = r.Card.ExpMonth
		pm.ExpYear = r.Card.ExpYear
	}
	return pm
}

type priceResponse struct {
	ID         string `json:"id"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
}

type subscriptionItemResponse struct {
	ID                 string        `json:"id"`
	Price              priceResponse `json:"price"`
	Quantity           int64         `json:"quantity"`
	CurrentPeriodStart int64         `json:"current_period_start"`
	CurrentPeriodEnd   int64         `json:"current_period_end"`
}

// subscriptionResponse — объект subscription. В новых версиях API границы
// периода лежат в позициях подписки, в старых — на верхнем уровне.
type subscriptionResponse struct {
	ID                   string            `json:"id"`
	Customer             string            `json:"customer"`
	Status               string            `json:"status"`
	Currency             string            `json:"currency"`
	DefaultPaymentMethod string            `json:"default_payment_method"`
	CancelAtPeriodEnd    bool              `json:"cancel_at_period_end"`
	CanceledAt           int64             `json:"canceled_at"`
	Created              int64             `json:"created"`
	CurrentPeriodStart   int64             `json:"current_period_start"`
	CurrentPeriodEnd     int64             `json:"current_period_end"`
	Metadata             map[string]string `json:"metadata"`
	Items                struct {
		Data []subscriptionItemResponse `json:"data"`
	} `json:"items"`
}

// toModel переводит ответ в модель. planID используется, если в metadata
// нет plan_id.
func (r *subscriptionResponse) toModel(planID string) *models.Subscription {
	sub := &models.Subscription{
		ID:                 r.ID,
		CustomerID:         r.Customer,
		PlanID:             planID,
		Status:             models.SubscriptionStatus(r.Status),
		Currency:           r.Currency,
		PaymentMethodID:    r.DefaultPaymentMethod,
		CurrentPeriodStart: unixTime(r.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(r.CurrentPeriodEnd),
		CancelAtPeriodEnd:  r.CancelAtPeriodEnd,
		CreatedAt:          unixTime(r.Created),
	}
	if id := r.Metadata["plan_id"]; id != "" {
		sub.PlanID = id
	}
	if r.CanceledAt != 0 {
		t := unixTime(r.CanceledAt)
		sub.CanceledAt = &t
	}

	if len(r.Items.Data) > 0 {
		item := r.Items.Data[0]
		sub.ItemID = item.ID
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		sub.Amount = minorToDecimal(item.Price.UnitAmount * qty)
		if sub.Currency == "" {
			sub.Currency = item.Price.Currency
		}
		if sub.CurrentPeriodStart.IsZero() {
			sub.CurrentPeriodStart = unixTime(item.CurrentPeriodStart)
		}
		if sub.CurrentPeriodEnd.IsZero() {
			sub.CurrentPeriodEnd = unixTime(item.CurrentPeriodEnd)
		}
	}
	return sub
}
