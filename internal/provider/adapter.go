// Package provider contains the per-processor adapters. An adapter owns
// everything provider-specific: parsing the notification envelope, deriving
// the canonical dedup identities for the logical action, re-fetching the
// authoritative resource, and mapping the provider's status vocabulary onto
// the shared taxonomy. The pipeline itself is provider-agnostic.
package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nsoren/payhook/internal/domain"
)

// Notification is the minimal trusted content of an inbound webhook: which
// resource it refers to. Every other field in the body is ignored in favor of
// the canonical fetch.
type Notification struct {
	Kind           domain.ResourceKind
	ID             string
	SubscriptionID string
}

type Adapter interface {
	Name() string

	// Parse extracts the resource reference from the provider envelope.
	// domain.ErrMalformedNotification when no resource id can be derived.
	Parse(body []byte) (*Notification, error)

	// Identities returns the canonical dedup keys for the logical action
	// behind the notification. All returned keys are registered together so
	// that payload-shape variants of the same action collapse to one.
	Identities(n *Notification) []string

	// Fetch retrieves the authoritative resource record from the processor.
	// domain.ErrResourceNotFound when the processor does not recognize the id.
	Fetch(ctx context.Context, n *Notification) (*domain.Resource, error)
}

type SubscriptionRequest struct {
	CustomerID  string
	Amount      decimal.Decimal
	Currency    string
	Interval    string
	Description string
	StartDate   time.Time
	Email       string
	Name        string
	PlanType    string
}

type Subscription struct {
	ID     string
	Status string
}

// SubscriptionCreator is implemented by adapters whose processor supports
// creating the recurring subscription after a first payment. The orchestrator
// is skipped for adapters that do not implement it.
type SubscriptionCreator interface {
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error)
}

// SubscriptionCanceler backs the admin cancellation action.
type SubscriptionCanceler interface {
	CancelSubscription(ctx context.Context, customerID, subscriptionID string) error
}
