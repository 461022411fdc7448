package processor

import (
	"context"
	"time"

	"github.com/nsoren/payhook/internal/dedup"
	"github.com/nsoren/payhook/internal/domain"
	"github.com/nsoren/payhook/internal/logging"
	"github.com/nsoren/payhook/internal/provider"
)

// The first recurring charge always starts after a grace period rather than
// on the first paid date; one month is the shipped business decision.
const subscriptionStartOffsetMonths = 1

// Orchestrator runs the one multi-step workflow in the system: after a
// first-time successful payment that implies recurring billing, wait a fixed
// delay, ask the processor to create the subscription, then classify that
// outcome and dispatch its own effects. It never returns an error upward;
// by the time it runs, the originating webhook has been acknowledged.
type Orchestrator struct {
	cache      *dedup.Cache
	dispatcher *Dispatcher
	delay      time.Duration
	now        func() time.Time
}

func NewOrchestrator(cache *dedup.Cache, dispatcher *Dispatcher, delay time.Duration) *Orchestrator {
	return &Orchestrator{
		cache:      cache,
		dispatcher: dispatcher,
		delay:      delay,
		now:        time.Now,
	}
}

func (o *Orchestrator) Run(ctx context.Context, creator provider.SubscriptionCreator, ev *domain.Event) {
	log := logging.FromContext(ctx)
	r := ev.Resource

	if !r.IsRecurring() {
		log.Info("one-time purchase, no subscription to create", "payment_id", r.ID)
		return
	}
	if creator == nil {
		log.Info("provider manages its own subscriptions, skipping creation", "source", ev.Source)
		return
	}

	if err := sleepCtx(ctx, o.delay); err != nil {
		log.Warn("subscription creation abandoned during delay",
			"payment_id", r.ID,
			"customer_id", r.CustomerID,
			"error", err,
		)
		return
	}

	plan := r.Metadata.PlanType
	if plan == "" {
		plan = "Subscription"
	}

	req := provider.SubscriptionRequest{
		CustomerID:  r.CustomerID,
		Amount:      r.Metadata.RecurringAmount,
		Currency:    r.Currency,
		Interval:    "1 month",
		Description: plan + " Subscription",
		StartDate:   o.now().AddDate(0, subscriptionStartOffsetMonths, 0),
		Email:       r.Metadata.Email,
		Name:        r.Metadata.Name,
		PlanType:    plan,
	}

	sub, err := creator.CreateSubscription(ctx, req)
	if err != nil || sub == nil || sub.ID == "" || (sub.Status != "" && sub.Status != "active") {
		log.Error("subscription creation failed",
			"customer_id", r.CustomerID,
			"payment_id", r.ID,
			"error", err,
		)
		o.dispatcher.Dispatch(ctx, &domain.Event{
			Kind:       domain.EventSubscriptionCreationFailed,
			Source:     ev.Source,
			Resource:   r,
			OccurredAt: o.now().UTC(),
		})
		return
	}

	// Second dedup layer: a redelivery of the parent payment during the
	// delay window re-enters this path with its own creation result.
	if !o.cache.Accept("sub-" + sub.ID) {
		log.Warn("duplicate subscription start ignored", "subscription_id", sub.ID)
		return
	}

	started := *r
	started.SubscriptionID = sub.ID

	log.Info("subscription started",
		"subscription_id", sub.ID,
		"customer_id", r.CustomerID,
	)
	o.dispatcher.Dispatch(ctx, &domain.Event{
		Kind:       domain.EventSubscriptionStarted,
		Source:     ev.Source,
		Resource:   &started,
		OccurredAt: o.now().UTC(),
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
