package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nsoren/payhook/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		resource domain.Resource
		want     domain.EventKind
	}{
		{
			name:     "paid first payment",
			resource: domain.Resource{Kind: domain.ResourceKindPayment, Status: domain.StatusPaid, Sequence: domain.SequenceFirst},
			want:     domain.EventInitialPaymentSucceeded,
		},
		{
			name: "paid first payment with linked subscription is still initial",
			resource: domain.Resource{
				Kind: domain.ResourceKindPayment, Status: domain.StatusPaid,
				Sequence: domain.SequenceFirst, SubscriptionID: "sub_1",
			},
			want: domain.EventInitialPaymentSucceeded,
		},
		{
			name: "paid recurring payment with subscription",
			resource: domain.Resource{
				Kind: domain.ResourceKindPayment, Status: domain.StatusPaid,
				Sequence: domain.SequenceRecurring, SubscriptionID: "sub_1",
			},
			want: domain.EventRenewalSucceeded,
		},
		{
			name: "paid unknown sequence with subscription",
			resource: domain.Resource{
				Kind: domain.ResourceKindPayment, Status: domain.StatusPaid,
				Sequence: domain.SequenceUnknown, SubscriptionID: "sub_1",
			},
			want: domain.EventRenewalSucceeded,
		},
		{
			name: "paid recurring without subscription link",
			resource: domain.Resource{
				Kind: domain.ResourceKindPayment, Status: domain.StatusPaid,
				Sequence: domain.SequenceRecurring,
			},
			want: domain.EventUnclassified,
		},
		{
			name: "failed recurring with subscription",
			resource: domain.Resource{
				Kind: domain.ResourceKindPayment, Status: domain.StatusFailed,
				Sequence: domain.SequenceRecurring, SubscriptionID: "s1",
			},
			want: domain.EventRenewalFailed,
		},
		{
			name: "cancelled payment status with subscription",
			resource: domain.Resource{
				Kind: domain.ResourceKindPayment, Status: domain.StatusCancelled,
				Sequence: domain.SequenceUnknown, SubscriptionID: "s1",
			},
			want: domain.EventRenewalFailed,
		},
		{
			name: "failed first payment",
			resource: domain.Resource{
				Kind: domain.ResourceKindPayment, Status: domain.StatusFailed,
				Sequence: domain.SequenceFirst,
			},
			want: domain.EventInitialPaymentFailed,
		},
		{
			name: "failed payment with unknown sequence",
			resource: domain.Resource{
				Kind: domain.ResourceKindPayment, Status: domain.StatusFailed,
				Sequence: domain.SequenceUnknown,
			},
			want: domain.EventInitialPaymentFailed,
		},
		{
			name: "failed recurring without subscription link",
			resource: domain.Resource{
				Kind: domain.ResourceKindPayment, Status: domain.StatusFailed,
				Sequence: domain.SequenceRecurring,
			},
			want: domain.EventUnclassified,
		},
		{
			name:     "open payment",
			resource: domain.Resource{Kind: domain.ResourceKindPayment, Status: domain.StatusOpen, Sequence: domain.SequenceFirst},
			want:     domain.EventPaymentPending,
		},
		{
			name:     "expired payment",
			resource: domain.Resource{Kind: domain.ResourceKindPayment, Status: domain.StatusExpired, Sequence: domain.SequenceUnknown},
			want:     domain.EventPaymentExpired,
		},
		{
			name:     "cancelled subscription resource",
			resource: domain.Resource{Kind: domain.ResourceKindSubscription, Status: domain.StatusCancelled, Sequence: domain.SequenceUnknown},
			want:     domain.EventSubscriptionCancelled,
		},
		{
			name:     "cancelled payment without subscription link",
			resource: domain.Resource{Kind: domain.ResourceKindPayment, Status: domain.StatusCancelled, Sequence: domain.SequenceUnknown},
			want:     domain.EventUnclassified,
		},
		{
			name:     "unknown status",
			resource: domain.Resource{Kind: domain.ResourceKindPayment, Status: domain.StatusUnknown, Sequence: domain.SequenceUnknown},
			want:     domain.EventUnclassified,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(&tc.resource))
		})
	}
}
