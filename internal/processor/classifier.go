package processor

import (
	"time"

	"github.com/nsoren/payhook/internal/domain"
)

// Classify maps a canonical resource record onto exactly one taxonomy kind.
// The cases run in fixed precedence order and the first match wins: payment
// status fields and subscription status fields can coexist in one record
// across provider shapes, so a cancelled subscription must be caught as a
// failed renewal before the generic subscription-cancelled rule, and a first
// payment success must not be shadowed by the renewal rule.
func Classify(r *domain.Resource) domain.EventKind {
	switch {
	case r.Status == domain.StatusPaid && r.Sequence == domain.SequenceFirst:
		return domain.EventInitialPaymentSucceeded

	case r.Status == domain.StatusPaid && r.SubscriptionID != "" && r.Sequence != domain.SequenceFirst:
		return domain.EventRenewalSucceeded

	case (r.Status == domain.StatusFailed || r.Status == domain.StatusCancelled) && r.SubscriptionID != "":
		return domain.EventRenewalFailed

	// Covers both first and unknown sequence; the two differ only in how the
	// failure is rendered, not in routing.
	case r.Status == domain.StatusFailed && r.Sequence != domain.SequenceRecurring:
		return domain.EventInitialPaymentFailed

	case r.Status == domain.StatusOpen:
		return domain.EventPaymentPending

	case r.Status == domain.StatusExpired:
		return domain.EventPaymentExpired

	case r.Kind == domain.ResourceKindSubscription && r.Status == domain.StatusCancelled:
		return domain.EventSubscriptionCancelled

	default:
		return domain.EventUnclassified
	}
}

// NewEvent classifies a resource and wraps it in an event ready for dispatch.
func NewEvent(source string, r *domain.Resource, at time.Time) *domain.Event {
	return &domain.Event{
		Kind:       Classify(r),
		Source:     source,
		Resource:   r,
		OccurredAt: at,
	}
}
