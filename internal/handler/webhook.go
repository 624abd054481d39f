package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/metrics"
	"github.com/rspatil/orderdesk/internal/model"
	"github.com/rspatil/orderdesk/internal/service"
)

// SignatureHeader carries the hex- or base64-encoded HMAC-SHA256 of the raw
// request body.
const SignatureHeader = "X-Webhook-Signature"

const maxWebhookBody = 1 << 20 // 1 MiB

type WebhookHandler struct {
	svc    service.OrderService
	logger *slog.Logger
}

func NewWebhookHandler(svc service.OrderService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, logger: logger}
}

// Ingest handles POST /webhooks/{channel}. Repeat delivery of an already-seen
// dedup key is also a 200: the sender retries on non-2xx, and the row already
// exists.
func (h *WebhookHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	channel := model.Channel(chi.URLParam(r, "channel"))
	// The URL segment is attacker-controlled; only known channels may become
	// metric labels or the cardinality is unbounded.
	channelLabel := "unknown"
	if channel.Valid() {
		channelLabel = string(channel)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.WebhookResults.WithLabelValues(channelLabel, "too_large").Inc()
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		metrics.WebhookResults.WithLabelValues(channelLabel, "read_error").Inc()
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	order, isNew, err := h.svc.IngestWebhook(r.Context(), channel, body, r.Header.Get(SignatureHeader))
	if err != nil {
		switch {
		case apperrors.IsValidation(err):
			metrics.WebhookResults.WithLabelValues(channelLabel, "validation_error").Inc()
			writeError(w, http.StatusBadRequest, err.Error())
		case apperrors.IsAuthentication(err):
			metrics.WebhookResults.WithLabelValues(channelLabel, "auth_error").Inc()
			writeError(w, http.StatusUnauthorized, "signature mismatch")
		case apperrors.IsConfiguration(err):
			metrics.WebhookResults.WithLabelValues(channelLabel, "config_error").Inc()
			writeError(w, http.StatusInternalServerError, "channel not configured")
		default:
			h.logger.Error("webhook ingestion failed",
				slog.String("channel", string(channel)),
				slog.Any("error", err))
			metrics.WebhookResults.WithLabelValues(channelLabel, "store_error").Inc()
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	result := "created"
	if !isNew {
		result = "duplicate"
	}
	metrics.WebhookResults.WithLabelValues(channelLabel, result).Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"order":  order,
		"is_new": isNew,
	})
}
