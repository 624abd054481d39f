package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/model"
	"github.com/rspatil/orderdesk/internal/service"
)

func newOrderRouter(svc service.OrderService) http.Handler {
	h := NewOrderHandler(svc, slog.Default())
	r := chi.NewRouter()
	r.Post("/orders", h.Create)
	r.Get("/orders/{id}", h.Get)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
	return r
}

func TestOrderCreate(t *testing.T) {
	svc := &stubOrderService{
		ingestOrder: model.Order{ID: "ord-1", Channel: model.ChannelDineIn, Status: model.StatusNew},
	}
	body := []byte(`{"restaurant_id":"r1","total_amount":120,"items":[{"name":"Masala Dosa","quantity":1,"unit_price":120}]}`)
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got model.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ord-1", got.ID)
	assert.Equal(t, model.ChannelDineIn, got.Channel)
}

func TestOrderCreateBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte(`not json`)))
	rec := httptest.NewRecorder()
	newOrderRouter(&stubOrderService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderUpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "ok", err: nil, wantStatus: http.StatusOK},
		{name: "not found", err: apperrors.NewNotFound("order x"), wantStatus: http.StatusNotFound},
		{
			name:       "invalid transition",
			err:        fmt.Errorf("%w: completed -> new", apperrors.ErrInvalidTransition),
			wantStatus: http.StatusConflict,
		},
		{name: "bad status value", err: apperrors.NewValidation("unknown status"), wantStatus: http.StatusBadRequest},
		{name: "store failure", err: assert.AnError, wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubOrderService{
				updateOrder: model.Order{ID: "ord-1", Status: model.StatusReady},
				updateErr:   tt.err,
			}
			req := httptest.NewRequest(http.MethodPatch, "/orders/ord-1/status",
				bytes.NewReader([]byte(`{"status":"ready"}`)))
			rec := httptest.NewRecorder()
			newOrderRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestOrderGetNotFound(t *testing.T) {
	svc := &stubOrderService{ingestErr: apperrors.NewNotFound("order nope")}
	req := httptest.NewRequest(http.MethodGet, "/orders/nope", nil)
	rec := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
