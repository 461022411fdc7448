package processor

import (
	"fmt"
	"strings"
	"time"

	"github.com/nsoren/payhook/internal/domain"
)

// Notifications quote times in CET, where the business operates.
var cetZone = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		return time.UTC
	}
	return loc
}()

type message struct {
	Alert        string
	EmailTo      string
	EmailSubject string
	EmailBody    string
}

func render(ev *domain.Event) message {
	r := ev.Resource

	ts := ev.OccurredAt.In(cetZone).Format("02 Jan 2006 15:04:05") + " (CET)"
	source := titleCase(ev.Source)
	plan := r.Metadata.PlanType
	if plan == "" {
		plan = "Subscription"
	}
	name := r.Metadata.Name
	if name == "" {
		name = "Unknown"
	}
	email := r.Metadata.Email
	shownEmail := email
	if shownEmail == "" {
		shownEmail = "N/A"
	}
	amount := r.Currency + " " + r.Amount.StringFixed(2)
	recurring := r.Currency + " " + r.Metadata.RecurringAmount.StringFixed(2)
	reason := r.FailureReason
	if reason == "" {
		reason = "Unknown"
	}

	var title, subject, closing string
	lines := []string{"Time", ts, "Source", source, "Email", shownEmail}

	switch ev.Kind {
	case domain.EventInitialPaymentSucceeded:
		title = "INITIAL PAYMENT SUCCESSFUL"
		subject = "Payment Confirmation - " + plan
		lines = append(lines,
			"Name", name,
			"Plan", plan,
			"Initial", amount,
			"Recurring", recurring,
			"Payment ID", r.ID,
			"Customer ID", r.CustomerID,
		)
		if r.IsRecurring() {
			closing = "Your payment has been received successfully. Your subscription will be created shortly."
		} else {
			closing = "Your payment has been received successfully. This was a one-time payment."
		}

	case domain.EventRenewalSucceeded:
		title = "RENEWAL CHARGED"
		subject = "Subscription Renewal - " + plan
		lines = append(lines,
			"Plan", plan,
			"Amount", amount,
			"Customer ID", r.CustomerID,
			"Subscription ID", r.SubscriptionID,
		)
		closing = "Your recurring payment has been processed successfully. Thank you for staying with us!"

	case domain.EventRenewalFailed:
		title = "RENEWAL FAILED"
		subject = "Subscription Renewal Failed - " + plan
		lines = append(lines,
			"Plan", plan,
			"Amount", amount,
			"Customer ID", r.CustomerID,
			"Subscription ID", r.SubscriptionID,
			"Reason", reason,
		)
		closing = "We could not process your renewal payment. Please update your payment method or contact support to avoid interruption."

	case domain.EventInitialPaymentFailed:
		title = "PAYMENT FAILED (UNSPECIFIED)"
		if r.Sequence == domain.SequenceFirst {
			title = "INITIAL PAYMENT FAILED"
		}
		subject = "Payment Failed - " + plan
		lines = append(lines,
			"Plan", plan,
			"Amount", amount,
			"Customer ID", r.CustomerID,
		)
		if r.FailureReason != "" {
			lines = append(lines, "Reason", reason)
		}
		closing = "Your payment attempt was unsuccessful. Please try again or use a different payment method."

	case domain.EventPaymentPending:
		title = "PAYMENT PENDING / OPEN"
		subject = "Payment Pending - " + plan
		lines = append(lines,
			"Plan", plan,
			"Amount", amount,
			"Status", "Awaiting user completion",
		)
		closing = "Your payment is still in progress. Please complete the checkout process to activate your subscription."

	case domain.EventPaymentExpired:
		title = "PAYMENT EXPIRED"
		subject = "Payment Expired - " + plan
		lines = append(lines,
			"Plan", plan,
			"Amount", amount,
		)
		closing = "Your checkout session has expired. If you still wish to join, please restart your purchase."

	case domain.EventSubscriptionCancelled:
		title = "SUBSCRIPTION CANCELLED"
		subject = "Subscription Cancelled - " + plan
		lines = append(lines,
			"Plan", plan,
			"Customer ID", r.CustomerID,
		)
		closing = "Your subscription has been cancelled successfully. You can re-subscribe anytime through our website."

	case domain.EventSubscriptionStarted:
		title = "SUBSCRIPTION STARTED"
		subject = "Subscription Started - " + plan
		lines = append(lines,
			"Name", name,
			"Plan", plan,
			"Recurring", recurring,
			"Subscription ID", r.SubscriptionID,
			"Customer ID", r.CustomerID,
		)
		closing = "Your subscription has been created successfully."

	case domain.EventSubscriptionCreationFailed:
		title = "SUBSCRIPTION CREATION FAILED"
		subject = "Subscription Creation Failed - " + plan
		lines = append(lines,
			"Name", name,
			"Customer ID", r.CustomerID,
		)
		closing = "We could not start your subscription automatically. Please contact support if this persists."

	default:
		return message{}
	}

	return message{
		Alert:        alertText(title, lines),
		EmailTo:      email,
		EmailSubject: subject,
		EmailBody:    emailText(title, lines, closing),
	}
}

func alertText(title string, lines []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", title)
	for i := 0; i+1 < len(lines); i += 2 {
		fmt.Fprintf(&sb, "*%s:* %s\n", lines[i], lines[i+1])
	}
	return strings.TrimRight(sb.String(), "\n")
}

func emailText(title string, lines []string, closing string) string {
	var sb strings.Builder
	sb.WriteString(title + "\n")
	for i := 0; i+1 < len(lines); i += 2 {
		fmt.Fprintf(&sb, "%s: %s\n", lines[i], lines[i+1])
	}
	sb.WriteString("\n" + closing + "\n")
	return sb.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
