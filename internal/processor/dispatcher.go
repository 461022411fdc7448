package processor

import (
	"context"
	"fmt"

	"github.com/nsoren/payhook/internal/domain"
	"github.com/nsoren/payhook/internal/logging"
)

type Alerter interface {
	Send(ctx context.Context, text string) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type DispatchResult struct {
	AlertSent bool
	EmailSent bool
	Errors    []error
}

// Dispatcher executes the side effects for a classified event. Each sink is
// attempted independently: one failing must not prevent the other, and no
// failure propagates to the webhook handler. The dispatcher never retries;
// when the customer email fails it raises a best-effort secondary alert so an
// operator knows, nothing more.
type Dispatcher struct {
	alerts Alerter
	mail   Mailer
}

func NewDispatcher(alerts Alerter, mail Mailer) *Dispatcher {
	return &Dispatcher{alerts: alerts, mail: mail}
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev *domain.Event) DispatchResult {
	log := logging.FromContext(ctx)

	msg := render(ev)
	if msg.Alert == "" {
		log.Info("no effects for event", "event_kind", ev.Kind)
		return DispatchResult{}
	}

	var res DispatchResult

	if err := d.alerts.Send(ctx, msg.Alert); err != nil {
		log.Error("alert send failed", "event_kind", ev.Kind, "error", err)
		res.Errors = append(res.Errors, fmt.Errorf("alert: %w", err))
	} else {
		res.AlertSent = true
	}

	if msg.EmailTo == "" {
		log.Info("no customer email on record, skipping email", "event_kind", ev.Kind)
		return res
	}

	if err := d.mail.Send(ctx, msg.EmailTo, msg.EmailSubject, msg.EmailBody); err != nil {
		log.Error("email send failed", "event_kind", ev.Kind, "to", msg.EmailTo, "error", err)
		res.Errors = append(res.Errors, fmt.Errorf("email: %w", err))

		notice := fmt.Sprintf("*EMAIL DELIVERY FAILED*\n*Event:* %s\n*To:* %s", ev.Kind, msg.EmailTo)
		if alertErr := d.alerts.Send(ctx, notice); alertErr != nil {
			log.Error("secondary alert failed", "error", alertErr)
		}
	} else {
		res.EmailSent = true
	}

	return res
}
