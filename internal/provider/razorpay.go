package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nsoren/payhook/internal/domain"
)

const RazorpayAPIBaseURL = "https://api.razorpay.com/v1"

var minorUnitDivisor = decimal.NewFromInt(100)

// Razorpay covers the button-driven flows: captured/failed payments plus
// subscription charge and cancel events. Razorpay manages the recurring plan
// itself, so the adapter deliberately does not implement SubscriptionCreator.
type Razorpay struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

func NewRazorpay(keyID, keySecret, baseURL string) *Razorpay {
	return &Razorpay{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Razorpay) Name() string { return "razorpay" }

type razorpayEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"payment"`
		Subscription struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"subscription"`
	} `json:"payload"`
}

func (r *Razorpay) Parse(body []byte) (*Notification, error) {
	var env razorpayEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("razorpay: parse: %w", domain.ErrMalformedNotification)
	}

	switch {
	case strings.HasPrefix(env.Event, "payment.") && env.Payload.Payment.Entity.ID != "":
		return &Notification{Kind: domain.ResourceKindPayment, ID: env.Payload.Payment.Entity.ID}, nil
	case strings.HasPrefix(env.Event, "subscription.") && env.Payload.Subscription.Entity.ID != "":
		id := env.Payload.Subscription.Entity.ID
		return &Notification{Kind: domain.ResourceKindSubscription, ID: id, SubscriptionID: id}, nil
	default:
		return nil, fmt.Errorf("razorpay: parse event %q: %w", env.Event, domain.ErrMalformedNotification)
	}
}

func (r *Razorpay) Identities(n *Notification) []string {
	return []string{fmt.Sprintf("%s-%s", n.Kind, n.ID)}
}

func (r *Razorpay) Fetch(ctx context.Context, n *Notification) (*domain.Resource, error) {
	if n.Kind == domain.ResourceKindSubscription {
		return r.fetchSubscription(ctx, n.ID)
	}
	return r.fetchPayment(ctx, n.ID)
}

type razorpayNotes struct {
	Product          string `json:"product"`
	PlanName         string `json:"plan_name"`
	SubscriptionName string `json:"subscription_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
}

func (n *razorpayNotes) plan() string {
	switch {
	case n == nil:
		return ""
	case n.Product != "":
		return n.Product
	case n.PlanName != "":
		return n.PlanName
	default:
		return n.SubscriptionName
	}
}

type razorpayPayment struct {
	ID               string         `json:"id"`
	Status           string         `json:"status"`
	Amount           int64          `json:"amount"`
	Currency         string         `json:"currency"`
	Email            string         `json:"email"`
	Contact          string         `json:"contact"`
	CustomerID       string         `json:"customer_id"`
	ErrorDescription string         `json:"error_description"`
	Notes            *razorpayNotes `json:"notes"`
}

func (r *Razorpay) fetchPayment(ctx context.Context, id string) (*domain.Resource, error) {
	var p razorpayPayment
	if err := r.get(ctx, "/payments/"+id, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("razorpay: payment %s: %w", id, domain.ErrResourceNotFound)
	}

	currency := p.Currency
	if currency == "" {
		currency = "INR"
	}

	status := razorpayPaymentStatus(p.Status)

	// Razorpay payments carry no sequence marker. A captured standalone
	// payment is the initial purchase; everything else stays unknown so a
	// failure renders as unspecified.
	sequence := domain.SequenceUnknown
	if status == domain.StatusPaid {
		sequence = domain.SequenceFirst
	}

	res := &domain.Resource{
		Kind:          domain.ResourceKindPayment,
		ID:            p.ID,
		Status:        status,
		Sequence:      sequence,
		Amount:        decimal.NewFromInt(p.Amount).Div(minorUnitDivisor),
		Currency:      currency,
		CustomerID:    p.CustomerID,
		FailureReason: p.ErrorDescription,
		Metadata: domain.Metadata{
			Email:    razorpayEmail(p.Email, p.Notes),
			PlanType: razorpayPlan(p.Notes),
		},
	}
	return res, nil
}

type razorpaySubscription struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	PlanID     string         `json:"plan_id"`
	CustomerID string         `json:"customer_id"`
	Notes      *razorpayNotes `json:"notes"`
}

func (r *Razorpay) fetchSubscription(ctx context.Context, id string) (*domain.Resource, error) {
	var s razorpaySubscription
	if err := r.get(ctx, "/subscriptions/"+id, &s); err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, fmt.Errorf("razorpay: subscription %s: %w", id, domain.ErrResourceNotFound)
	}

	plan := razorpayPlan(s.Notes)
	if plan == "" {
		plan = s.PlanID
	}

	res := &domain.Resource{
		Kind:       domain.ResourceKindSubscription,
		ID:         s.ID,
		CustomerID: s.CustomerID,
		Sequence:   domain.SequenceUnknown,
		Metadata: domain.Metadata{
			Email:    razorpayEmail("", s.Notes),
			PlanType: plan,
		},
	}

	// Map the subscription lifecycle onto the shared taxonomy: an active,
	// just-charged plan is a renewal success, a halted plan a renewal
	// failure. Only genuine cancellations leave SubscriptionID empty so they
	// classify as a subscription cancellation rather than a failed renewal.
	switch s.Status {
	case "active", "charged", "resumed":
		res.Status = domain.StatusPaid
		res.Sequence = domain.SequenceRecurring
		res.SubscriptionID = s.ID
	case "halted", "pending":
		res.Status = domain.StatusFailed
		res.SubscriptionID = s.ID
	case "cancelled", "completed", "expired":
		res.Status = domain.StatusCancelled
	default:
		res.Status = domain.StatusUnknown
	}
	return res, nil
}

func (r *Razorpay) get(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("razorpay: build request: %w", err)
	}
	httpReq.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("razorpay: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("razorpay: get %s: %w", path, domain.ErrResourceNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &domain.UpstreamError{Op: "razorpay: get " + path, StatusCode: resp.StatusCode, Body: detail}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("razorpay: decode %s: %w", path, err)
	}
	return nil
}

func razorpayPaymentStatus(s string) domain.Status {
	switch s {
	case "captured":
		return domain.StatusPaid
	case "failed":
		return domain.StatusFailed
	case "created", "authorized":
		return domain.StatusOpen
	default:
		return domain.StatusUnknown
	}
}

func razorpayPlan(n *razorpayNotes) string {
	return n.plan()
}

func razorpayEmail(direct string, n *razorpayNotes) string {
	if direct != "" {
		return direct
	}
	if n != nil {
		return n.Email
	}
	return ""
}
