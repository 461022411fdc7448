package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nsoren/payhook/internal/domain"
	"github.com/nsoren/payhook/internal/logging"
	"github.com/nsoren/payhook/internal/provider"
)

// AdminHandler carries the password-gated operator actions. There is a human
// waiting on the response, so processor errors are passed through verbatim
// instead of being swallowed like webhook-side failures.
type AdminHandler struct {
	canceler provider.SubscriptionCanceler
	password string
}

func NewAdminHandler(canceler provider.SubscriptionCanceler, password string) *AdminHandler {
	return &AdminHandler{canceler: canceler, password: password}
}

func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/subscriptions/cancel", h.CancelSubscription)
}

type cancelRequest struct {
	CustomerID     string `json:"customerId"`
	SubscriptionID string `json:"subscriptionId"`
	Password       string `json:"password"`
}

func (r cancelRequest) validate() []FieldError {
	var errs []FieldError
	if r.CustomerID == "" {
		errs = append(errs, FieldError{Field: "customerId", Message: "required"})
	}
	if r.SubscriptionID == "" {
		errs = append(errs, FieldError{Field: "subscriptionId", Message: "required"})
	}
	return errs
}

func (h *AdminHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	// Password first: a bad secret must not leak whether the ids exist, and
	// no processor call may happen before the gate.
	if h.password == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		log.Warn("admin cancellation rejected, bad password")
		RespondAppError(w, ErrInvalidPassword, nil)
		return
	}

	if fields := req.validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	err := h.canceler.CancelSubscription(r.Context(), req.CustomerID, req.SubscriptionID)
	if err != nil {
		var upstream *domain.UpstreamError
		if errors.As(err, &upstream) {
			log.Warn("processor rejected cancellation",
				"customer_id", req.CustomerID,
				"subscription_id", req.SubscriptionID,
				"upstream_status", upstream.StatusCode,
			)
			detail := any(string(upstream.Body))
			if json.Valid(upstream.Body) {
				detail = json.RawMessage(upstream.Body)
			}
			RespondAppError(w, ErrUpstreamRejected, detail)
			return
		}
		log.Error("cancellation call failed", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	log.Info("subscription cancelled",
		"customer_id", req.CustomerID,
		"subscription_id", req.SubscriptionID,
	)
	RespondSuccess(w, http.StatusOK, map[string]string{"message": "Subscription cancelled successfully"})
}
