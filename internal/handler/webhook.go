package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/nsoren/payhook/internal/domain"
	"github.com/nsoren/payhook/internal/logging"
	"github.com/nsoren/payhook/internal/processor"
	"github.com/nsoren/payhook/internal/provider"
)

type webhookProcessor interface {
	Process(ctx context.Context, ad provider.Adapter, body []byte) (processor.Outcome, error)
}

// WebhookHandler exposes one POST endpoint per registered provider adapter.
// Whatever happens downstream, an identified notification is acknowledged
// with 200: a non-2xx response triggers provider redelivery storms, and the
// pipeline already owns dedup and failure isolation.
type WebhookHandler struct {
	proc     webhookProcessor
	adapters []provider.Adapter
}

func NewWebhookHandler(proc webhookProcessor, adapters ...provider.Adapter) *WebhookHandler {
	return &WebhookHandler{proc: proc, adapters: adapters}
}

// Register mounts POST /webhooks/{provider} for each adapter. The method
// pattern makes the mux answer 405 for anything but POST.
func (h *WebhookHandler) Register(mux *http.ServeMux) {
	for _, ad := range h.adapters {
		mux.HandleFunc("POST /webhooks/"+ad.Name(), h.receive(ad))
	}
}

func (h *WebhookHandler) receive(ad provider.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			log.Error("failed to read webhook body", "provider", ad.Name(), "error", err)
			RespondAppError(w, ErrInvalidRequest, nil)
			return
		}

		outcome, err := h.proc.Process(r.Context(), ad, body)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrMalformedNotification):
				log.Warn("malformed notification", "provider", ad.Name(), "error", err)
				RespondAppError(w, ErrInvalidRequest, nil)
			case errors.Is(err, domain.ErrResourceNotFound):
				log.Warn("notification for unknown resource", "provider", ad.Name(), "error", err)
				RespondAppError(w, ErrUnknownResource, nil)
			default:
				log.Error("webhook processing failed", "provider", ad.Name(), "error", err)
				RespondAppError(w, ErrInternalError, nil)
			}
			return
		}

		RespondSuccess(w, http.StatusOK, map[string]string{"status": string(outcome)})
	}
}
