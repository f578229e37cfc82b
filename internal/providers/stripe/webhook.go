package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/magabrotheeeer/provider-gateway/internal/models"
)

// ErrInvalidWebhook — подпись вебхука не прошла проверку или тело не является событием.
var ErrInvalidWebhook = errors.New("stripe: invalid webhook")

// WebhookVerifier проверяет подпись Stripe-Signature и разбирает событие.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewWebhookVerifier создаёт проверку с допуском по времени webhook.DefaultTolerance.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Parse проверяет подпись и возвращает событие. Для событий
// customer.subscription.* заполняется Subscription.
func (v *WebhookVerifier) Parse(payload []byte, signature string) (*models.ProviderEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
	}

	pe := &models.ProviderEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(pe.Type, "customer.subscription.") && event.Data != nil {
		var sub subscriptionResponse
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidWebhook, err)
		}
		pe.Subscription = sub.toModel("")
	}
	return pe, nil
}
