package subscription

import "errors"

// Ошибки сервиса подписок. Причина со стороны провайдера сохраняется в цепочке
// и доступна через errors.Is / errors.As.
var (
	ErrPlanNotFound                   = errors.New("plan not found")
	ErrPaymentMethodFailed            = errors.New("payment method failed")
	ErrSubscriptionCreationFailed     = errors.New("subscription creation failed")
	ErrSubscriptionUpdateFailed       = errors.New("subscription update failed")
	ErrSubscriptionCancellationFailed = errors.New("subscription cancellation failed")
	ErrNoActiveSubscription           = errors.New("no active subscription")
	ErrAlreadySubscribed              = errors.New("customer already has a subscription")
	ErrCustomerMismatch               = errors.New("customer does not own this service")
	ErrCreationInProgress             = errors.New("subscription creation already in progress")
)
