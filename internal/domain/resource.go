package domain

import "github.com/shopspring/decimal"

type ResourceKind string

const (
	ResourceKindPayment      ResourceKind = "payment"
	ResourceKindSubscription ResourceKind = "subscription"
)

type Status string

const (
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusOpen      Status = "open"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusUnknown   Status = "unknown"
)

type SequenceType string

const (
	SequenceFirst     SequenceType = "first"
	SequenceRecurring SequenceType = "recurring"
	SequenceUnknown   SequenceType = "unknown"
)

// Metadata carries the customer-facing fields a processor attaches to a
// payment or subscription. Missing fields keep their zero value; rendering
// decides on placeholders.
type Metadata struct {
	Email           string
	Name            string
	PlanType        string
	RecurringAmount decimal.Decimal
}

// Resource is the authoritative snapshot fetched from the payment processor.
// It is built once per notification and never mutated afterwards; notification
// body fields beyond the resource id are never copied into it.
type Resource struct {
	Kind           ResourceKind
	ID             string
	Status         Status
	Sequence       SequenceType
	Amount         decimal.Decimal
	Currency       string
	CustomerID     string
	SubscriptionID string
	FailureReason  string
	Metadata       Metadata
}

// IsRecurring reports whether a successful first payment implies recurring
// billing, i.e. whether the subscription orchestration step should run.
func (r *Resource) IsRecurring() bool {
	return r.Metadata.RecurringAmount.IsPositive()
}
