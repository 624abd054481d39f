package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rspatil/orderdesk/internal/model"
	"github.com/rspatil/orderdesk/internal/publisher"
)

// heartbeatInterval keeps intermediaries from reaping idle SSE connections.
const heartbeatInterval = 15 * time.Second

// EventsHandler serves the realtime dashboard stream over server-sent
// events: one long-lived connection per restaurant, emitting {order, is_new}
// in broadcast order. There is no replay; dashboards load current state
// separately on connect.
type EventsHandler struct {
	broadcaster *publisher.Broadcaster
	logger      *slog.Logger
}

func NewEventsHandler(broadcaster *publisher.Broadcaster, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{broadcaster: broadcaster, logger: logger}
}

// Stream handles GET /restaurants/{restaurantID}/orders/stream.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.broadcaster.Subscribe(restaurantID)
	defer h.broadcaster.Unsubscribe(sub)

	h.logger.Info("dashboard connected", slog.String("restaurant_id", restaurantID))

	ctx := r.Context()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	events := make(chan eventOrError)
	go func() {
		for {
			ev, err := sub.Next(ctx)
			select {
			case events <- eventOrError{ev: ev, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("dashboard disconnected", slog.String("restaurant_id", restaurantID))
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case item := <-events:
			if item.err != nil {
				if !errors.Is(item.err, publisher.ErrClosed) {
					h.logger.Warn("event stream ended",
						slog.String("restaurant_id", restaurantID),
						slog.Any("error", item.err))
				}
				return
			}
			data, err := json.Marshal(item.ev)
			if err != nil {
				h.logger.Error("event marshal failed", slog.Any("error", err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: order\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type eventOrError struct {
	ev  model.ChangeEvent
	err error
}
