package domain

import "time"

type EventKind string

const (
	EventInitialPaymentSucceeded    EventKind = "initial_payment_succeeded"
	EventRenewalSucceeded           EventKind = "renewal_succeeded"
	EventRenewalFailed              EventKind = "renewal_failed"
	EventInitialPaymentFailed       EventKind = "initial_payment_failed"
	EventPaymentPending             EventKind = "payment_pending"
	EventPaymentExpired             EventKind = "payment_expired"
	EventSubscriptionCancelled      EventKind = "subscription_cancelled"
	EventSubscriptionStarted        EventKind = "subscription_started"
	EventSubscriptionCreationFailed EventKind = "subscription_creation_failed"
	EventUnclassified               EventKind = "unclassified"
)

// Event is a classified notification: one taxonomy kind plus the canonical
// resource it was derived from. Constructed once by the classifier, consumed
// once by the dispatcher.
type Event struct {
	Kind       EventKind
	Source     string
	Resource   *Resource
	OccurredAt time.Time
}
