package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsoren/payhook/internal/domain"
)

func TestRazorpayParse(t *testing.T) {
	rp := NewRazorpay("rzp_test", "secret", RazorpayAPIBaseURL)

	tests := []struct {
		name    string
		body    string
		want    *Notification
		wantErr bool
	}{
		{
			name: "payment captured event",
			body: `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`,
			want: &Notification{Kind: domain.ResourceKindPayment, ID: "pay_1"},
		},
		{
			name: "payment failed event",
			body: `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2"}}}}`,
			want: &Notification{Kind: domain.ResourceKindPayment, ID: "pay_2"},
		},
		{
			name: "subscription charged event",
			body: `{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":"sub_1"}}}}`,
			want: &Notification{Kind: domain.ResourceKindSubscription, ID: "sub_1", SubscriptionID: "sub_1"},
		},
		{
			name:    "payment event without entity id",
			body:    `{"event":"payment.captured","payload":{}}`,
			wantErr: true,
		},
		{
			name:    "unrelated event",
			body:    `{"event":"refund.processed","payload":{}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `event=payment.captured`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := rp.Parse([]byte(tc.body))
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrMalformedNotification)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRazorpayFetchPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/payments/pay_1", r.URL.Path)

		w.Write([]byte(`{
			"id": "pay_1",
			"status": "captured",
			"amount": 149900,
			"currency": "INR",
			"email": "customer@example.com",
			"customer_id": "cust_1",
			"notes": {"product": "Pro Plan"}
		}`))
	}))
	defer srv.Close()

	rp := NewRazorpay("rzp_test", "secret", srv.URL)

	res, err := rp.Fetch(context.Background(), &Notification{Kind: domain.ResourceKindPayment, ID: "pay_1"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPaid, res.Status)
	assert.Equal(t, domain.SequenceFirst, res.Sequence, "captured standalone payment is the initial purchase")
	assert.True(t, res.Amount.Equal(decimal.RequireFromString("1499")), "minor units converted to major")
	assert.Equal(t, "INR", res.Currency)
	assert.Equal(t, "customer@example.com", res.Metadata.Email)
	assert.Equal(t, "Pro Plan", res.Metadata.PlanType)
}

func TestRazorpayFetchPayment_Failed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"id": "pay_2",
			"status": "failed",
			"amount": 50000,
			"error_description": "Card issuer declined the transaction",
			"notes": {"email": "fallback@example.com"}
		}`))
	}))
	defer srv.Close()

	rp := NewRazorpay("k", "s", srv.URL)
	res, err := rp.Fetch(context.Background(), &Notification{Kind: domain.ResourceKindPayment, ID: "pay_2"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, domain.SequenceUnknown, res.Sequence)
	assert.Equal(t, "INR", res.Currency, "missing currency defaults")
	assert.Equal(t, "Card issuer declined the transaction", res.FailureReason)
	assert.Equal(t, "fallback@example.com", res.Metadata.Email, "notes email used when top-level email is empty")
}

func TestRazorpayFetchSubscription(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		wantStatus domain.Status
		wantSubID  string
		wantSeq    domain.SequenceType
	}{
		{name: "active", status: "active", wantStatus: domain.StatusPaid, wantSubID: "sub_1", wantSeq: domain.SequenceRecurring},
		{name: "charged", status: "charged", wantStatus: domain.StatusPaid, wantSubID: "sub_1", wantSeq: domain.SequenceRecurring},
		{name: "halted", status: "halted", wantStatus: domain.StatusFailed, wantSubID: "sub_1", wantSeq: domain.SequenceUnknown},
		{name: "cancelled", status: "cancelled", wantStatus: domain.StatusCancelled, wantSeq: domain.SequenceUnknown},
		{name: "completed", status: "completed", wantStatus: domain.StatusCancelled, wantSeq: domain.SequenceUnknown},
		{name: "unrecognized", status: "paused", wantStatus: domain.StatusUnknown, wantSeq: domain.SequenceUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/subscriptions/sub_1", r.URL.Path)
				w.Write([]byte(`{
					"id": "sub_1",
					"status": "` + tc.status + `",
					"plan_id": "plan_1",
					"customer_id": "cust_1",
					"notes": {"plan_name": "Pro Plan", "email": "customer@example.com"}
				}`))
			}))
			defer srv.Close()

			rp := NewRazorpay("k", "s", srv.URL)
			res, err := rp.Fetch(context.Background(), &Notification{
				Kind: domain.ResourceKindSubscription, ID: "sub_1", SubscriptionID: "sub_1",
			})
			require.NoError(t, err)

			assert.Equal(t, tc.wantStatus, res.Status)
			assert.Equal(t, tc.wantSubID, res.SubscriptionID)
			assert.Equal(t, tc.wantSeq, res.Sequence)
			assert.Equal(t, "Pro Plan", res.Metadata.PlanType)
			assert.Equal(t, "customer@example.com", res.Metadata.Email)
		})
	}
}

func TestRazorpayFetch_Upstream(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		rp := NewRazorpay("k", "s", srv.URL)
		_, err := rp.Fetch(context.Background(), &Notification{Kind: domain.ResourceKindPayment, ID: "pay_x"})
		require.ErrorIs(t, err, domain.ErrResourceNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":{"description":"upstream unavailable"}}`))
		}))
		defer srv.Close()

		rp := NewRazorpay("k", "s", srv.URL)
		_, err := rp.Fetch(context.Background(), &Notification{Kind: domain.ResourceKindPayment, ID: "pay_x"})

		var upstream *domain.UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, http.StatusBadGateway, upstream.StatusCode)
	})
}
