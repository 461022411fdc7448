// Package processor is the provider-agnostic webhook pipeline: dedup,
// canonical fetch, classification, effect dispatch and the delayed
// subscription orchestration. Handlers hand it raw notification bodies plus
// the provider adapter; everything after the acknowledgment decision runs as
// tracked background work.
package processor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nsoren/payhook/internal/dedup"
	"github.com/nsoren/payhook/internal/domain"
	"github.com/nsoren/payhook/internal/logging"
	"github.com/nsoren/payhook/internal/provider"
)

type Outcome string

const (
	OutcomeAccepted  Outcome = "received"
	OutcomeDuplicate Outcome = "duplicate_ignored"
	OutcomeIgnored   Outcome = "ignored"
)

type Processor struct {
	cache        *dedup.Cache
	dispatcher   *Dispatcher
	orchestrator *Orchestrator
	tasks        errgroup.Group
	now          func() time.Time
}

func New(cache *dedup.Cache, dispatcher *Dispatcher, orchestrator *Orchestrator) *Processor {
	return &Processor{
		cache:        cache,
		dispatcher:   dispatcher,
		orchestrator: orchestrator,
		now:          time.Now,
	}
}

// Process runs one notification through the pipeline up to the
// acknowledgment decision: parse, dedup, canonical fetch, classify. Side
// effects and orchestration continue in a tracked background task so the
// provider gets its response well inside the redelivery timeout. A crash
// after acknowledgment drops the in-flight effects; that is a documented
// limitation of process-local, non-persistent processing.
func (p *Processor) Process(ctx context.Context, ad provider.Adapter, body []byte) (Outcome, error) {
	log := logging.FromContext(ctx).With("provider", ad.Name())

	n, err := ad.Parse(body)
	if err != nil {
		return "", fmt.Errorf("Process: %w", err)
	}
	log = log.With("resource_kind", n.Kind, "resource_id", n.ID)

	// Identity is registered before any effect executes, closing the window
	// where two near-simultaneous deliveries both pass the check.
	identities := ad.Identities(n)
	if !p.cache.Accept(identities...) {
		log.Info("duplicate notification ignored")
		return OutcomeDuplicate, nil
	}

	resource, err := ad.Fetch(ctx, n)
	if err != nil {
		// Release the identity so a corrected resend is not treated as a
		// duplicate of this failed attempt.
		p.cache.Forget(identities...)
		return "", fmt.Errorf("Process: %w", err)
	}

	ev := NewEvent(ad.Name(), resource, p.now().UTC())
	if ev.Kind == domain.EventUnclassified {
		log.Info("unclassified notification, no effects",
			"status", resource.Status,
			"sequence", resource.Sequence,
		)
		return OutcomeIgnored, nil
	}

	log.Info("notification classified", "event_kind", ev.Kind)

	creator, _ := ad.(provider.SubscriptionCreator)

	// Detach from the request context so effects survive the response, but
	// keep the request-scoped logger for correlation.
	bgCtx := context.WithoutCancel(logging.WithLogger(ctx, log))
	p.tasks.Go(func() error {
		p.dispatcher.Dispatch(bgCtx, ev)
		if ev.Kind == domain.EventInitialPaymentSucceeded {
			p.orchestrator.Run(bgCtx, creator, ev)
		}
		return nil
	})

	return OutcomeAccepted, nil
}

// Wait joins all background dispatch and orchestration tasks. Called during
// shutdown, and by tests that need effects to have completed.
func (p *Processor) Wait() {
	_ = p.tasks.Wait()
}
