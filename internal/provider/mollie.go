package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nsoren/payhook/internal/domain"
	"github.com/nsoren/payhook/internal/logging"
)

const (
	MollieAPIBaseURL = "https://api.mollie.com/v2"

	defaultPlanType = "DID Main Subscription"
)

type Mollie struct {
	apiKey     string
	baseURL    string
	webhookURL string
	httpClient *http.Client
}

func NewMollie(apiKey, baseURL, webhookURL string) *Mollie {
	return &Mollie{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *Mollie) Name() string { return "mollie" }

type mollieEnvelope struct {
	ID             string `json:"id"`
	PaymentID      string `json:"paymentId"`
	Resource       string `json:"resource"`
	SubscriptionID string `json:"subscriptionId"`
}

func (m *Mollie) Parse(body []byte) (*Notification, error) {
	var env mollieEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("mollie: parse: %w", domain.ErrMalformedNotification)
	}

	id := env.ID
	if id == "" {
		id = env.PaymentID
	}
	if id == "" {
		return nil, fmt.Errorf("mollie: parse: no resource id: %w", domain.ErrMalformedNotification)
	}

	kind := domain.ResourceKindPayment
	if strings.EqualFold(env.Resource, "subscription") {
		kind = domain.ResourceKindSubscription
	}

	return &Notification{
		Kind:           kind,
		ID:             id,
		SubscriptionID: env.SubscriptionID,
	}, nil
}

// Identities normalizes the payment/subscription payload overlap: Mollie can
// deliver the same billing cycle once as a payment notification and once as a
// subscription notification, so both aliases are registered together.
func (m *Mollie) Identities(n *Notification) []string {
	alt := n.ID
	if n.Kind == domain.ResourceKindSubscription && n.SubscriptionID != "" {
		alt = n.SubscriptionID
	}

	keys := []string{fmt.Sprintf("%s-%s", n.Kind, n.ID)}
	if altKey := "payment-" + alt; altKey != keys[0] {
		keys = append(keys, altKey)
	}
	return keys
}

func (m *Mollie) Fetch(ctx context.Context, n *Notification) (*domain.Resource, error) {
	if n.Kind == domain.ResourceKindSubscription {
		id := n.SubscriptionID
		if id == "" {
			id = n.ID
		}
		return m.fetchSubscription(ctx, id)
	}
	return m.fetchPayment(ctx, n.ID)
}

type mollieAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type molliePayment struct {
	Resource       string        `json:"resource"`
	ID             string        `json:"id"`
	Status         string        `json:"status"`
	SequenceType   string        `json:"sequenceType"`
	Amount         *mollieAmount `json:"amount"`
	CustomerID     string        `json:"customerId"`
	SubscriptionID string        `json:"subscriptionId"`
	CustomerEmail  string        `json:"customerEmail"`
	FailureReason  string        `json:"failureReason"`
	StatusReason   string        `json:"statusReason"`
	Details        *struct {
		FailureReason string `json:"failureReason"`
	} `json:"details"`
	Metadata *mollieMetadata `json:"metadata"`
}

type mollieMetadata struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	PlanType        string `json:"planType"`
	RecurringAmount string `json:"recurringAmount"`
}

func (m *Mollie) fetchPayment(ctx context.Context, id string) (*domain.Resource, error) {
	var p molliePayment
	if err := m.get(ctx, "/payments/"+id, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("mollie: payment %s: %w", id, domain.ErrResourceNotFound)
	}

	r := &domain.Resource{
		Kind:           domain.ResourceKindPayment,
		ID:             p.ID,
		Status:         mollieStatus(p.Status),
		Sequence:       mollieSequence(p.SequenceType),
		CustomerID:     p.CustomerID,
		SubscriptionID: p.SubscriptionID,
		FailureReason:  mollieFailureReason(&p),
		Metadata:       mollieResourceMetadata(p.Metadata, p.CustomerEmail),
	}
	r.Amount, r.Currency = mollieMoney(p.Amount)
	return r, nil
}

type mollieSubscription struct {
	Resource    string          `json:"resource"`
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Amount      *mollieAmount   `json:"amount"`
	CustomerID  string          `json:"customerId"`
	Description string          `json:"description"`
	Metadata    *mollieMetadata `json:"metadata"`
}

func (m *Mollie) fetchSubscription(ctx context.Context, id string) (*domain.Resource, error) {
	var s mollieSubscription
	if err := m.get(ctx, "/subscriptions/"+id, &s); err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, fmt.Errorf("mollie: subscription %s: %w", id, domain.ErrResourceNotFound)
	}

	// SubscriptionID stays empty here: that field links a payment to its
	// subscription; a subscription resource is routed on Kind instead.
	r := &domain.Resource{
		Kind:       domain.ResourceKindSubscription,
		ID:         s.ID,
		Status:     mollieStatus(s.Status),
		Sequence:   domain.SequenceUnknown,
		CustomerID: s.CustomerID,
		Metadata:   mollieResourceMetadata(s.Metadata, ""),
	}
	r.Amount, r.Currency = mollieMoney(s.Amount)
	return r, nil
}

type mollieSubscriptionRequest struct {
	Amount      mollieAmount   `json:"amount"`
	Interval    string         `json:"interval"`
	Description string         `json:"description"`
	StartDate   string         `json:"startDate"`
	WebhookURL  string         `json:"webhookUrl"`
	Metadata    mollieMetadata `json:"metadata"`
}

func (m *Mollie) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Subscription, error) {
	payload := mollieSubscriptionRequest{
		Amount: mollieAmount{
			Value:    req.Amount.StringFixed(2),
			Currency: req.Currency,
		},
		Interval:    req.Interval,
		Description: req.Description,
		StartDate:   req.StartDate.Format("2006-01-02"),
		WebhookURL:  m.webhookURL,
		Metadata: mollieMetadata{
			Email:    req.Email,
			Name:     req.Name,
			PlanType: req.PlanType,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("CreateSubscription: marshal: %w", err)
	}

	url := fmt.Sprintf("%s/customers/%s/subscriptions", m.baseURL, req.CustomerID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("CreateSubscription: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("CreateSubscription: send: %w", err)
	}
	defer resp.Body.Close()

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&created); err != nil {
		return nil, fmt.Errorf("CreateSubscription: decode: %w", err)
	}

	logging.FromContext(ctx).Info("subscription create response",
		"provider", "mollie",
		"customer_id", req.CustomerID,
		"subscription_id", created.ID,
		"subscription_status", created.Status,
	)

	return &Subscription{ID: created.ID, Status: created.Status}, nil
}

func (m *Mollie) CancelSubscription(ctx context.Context, customerID, subscriptionID string) error {
	url := fmt.Sprintf("%s/customers/%s/subscriptions/%s", m.baseURL, customerID, subscriptionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("CancelSubscription: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("CancelSubscription: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &domain.UpstreamError{Op: "CancelSubscription", StatusCode: resp.StatusCode, Body: detail}
}

func (m *Mollie) get(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("mollie: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mollie: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return fmt.Errorf("mollie: get %s: %w", path, domain.ErrResourceNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &domain.UpstreamError{Op: "mollie: get " + path, StatusCode: resp.StatusCode, Body: detail}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("mollie: decode %s: %w", path, err)
	}
	return nil
}

func mollieStatus(s string) domain.Status {
	switch s {
	case "paid":
		return domain.StatusPaid
	case "failed":
		return domain.StatusFailed
	case "open", "pending":
		return domain.StatusOpen
	case "expired":
		return domain.StatusExpired
	case "canceled":
		return domain.StatusCancelled
	default:
		return domain.StatusUnknown
	}
}

func mollieSequence(s string) domain.SequenceType {
	switch s {
	case "first":
		return domain.SequenceFirst
	case "recurring":
		return domain.SequenceRecurring
	default:
		return domain.SequenceUnknown
	}
}

func mollieFailureReason(p *molliePayment) string {
	if p.Details != nil && p.Details.FailureReason != "" {
		return p.Details.FailureReason
	}
	if p.FailureReason != "" {
		return p.FailureReason
	}
	return p.StatusReason
}

func mollieMoney(a *mollieAmount) (decimal.Decimal, string) {
	if a == nil {
		return decimal.Zero, "EUR"
	}
	value, err := decimal.NewFromString(a.Value)
	if err != nil {
		value = decimal.Zero
	}
	currency := a.Currency
	if currency == "" {
		currency = "EUR"
	}
	return value, currency
}

func mollieResourceMetadata(md *mollieMetadata, fallbackEmail string) domain.Metadata {
	out := domain.Metadata{
		Email:    fallbackEmail,
		PlanType: defaultPlanType,
	}
	if md == nil {
		return out
	}
	if md.Email != "" {
		out.Email = md.Email
	}
	out.Name = md.Name
	if md.PlanType != "" {
		out.PlanType = md.PlanType
	}
	if md.RecurringAmount != "" {
		if v, err := decimal.NewFromString(md.RecurringAmount); err == nil {
			out.RecurringAmount = v
		}
	}
	return out
}
