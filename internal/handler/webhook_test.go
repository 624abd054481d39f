package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/metrics"
	"github.com/rspatil/orderdesk/internal/model"
	"github.com/rspatil/orderdesk/internal/service"
)

type stubOrderService struct {
	ingestOrder model.Order
	ingestIsNew bool
	ingestErr   error

	gotChannel model.Channel
	gotBody    []byte
	gotSig     string

	updateOrder model.Order
	updateErr   error
}

func (s *stubOrderService) IngestWebhook(_ context.Context, channel model.Channel, rawBody []byte, sig string) (model.Order, bool, error) {
	s.gotChannel = channel
	s.gotBody = rawBody
	s.gotSig = sig
	return s.ingestOrder, s.ingestIsNew, s.ingestErr
}

func (s *stubOrderService) CreateOrder(_ context.Context, req service.CreateOrderRequest) (model.Order, error) {
	return s.ingestOrder, s.ingestErr
}

func (s *stubOrderService) UpdateStatus(_ context.Context, orderID string, next model.Status) (model.Order, error) {
	return s.updateOrder, s.updateErr
}

func (s *stubOrderService) GetOrder(_ context.Context, orderID string) (model.Order, error) {
	return s.ingestOrder, s.ingestErr
}

func newWebhookRouter(svc service.OrderService) http.Handler {
	h := NewWebhookHandler(svc, slog.Default())
	r := chi.NewRouter()
	r.Post("/webhooks/{channel}", h.Ingest)
	return r
}

func postWebhook(t *testing.T, h http.Handler, channel, sig string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+channel, bytes.NewReader(body))
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookIngestCreated(t *testing.T) {
	extID := "SWG123"
	svc := &stubOrderService{
		ingestOrder: model.Order{
			ID:              "ord-1",
			RestaurantID:    "r1",
			Channel:         model.ChannelSwiggy,
			ExternalOrderID: &extID,
			Status:          model.StatusNew,
			TotalAmount:     450,
		},
		ingestIsNew: true,
	}
	rec := postWebhook(t, newWebhookRouter(svc), "swiggy", "abc123", []byte(`{"restaurant_id":"r1"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Order model.Order `json:"order"`
		IsNew bool        `json:"is_new"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsNew)
	assert.Equal(t, "ord-1", resp.Order.ID)

	assert.Equal(t, model.ChannelSwiggy, svc.gotChannel)
	assert.Equal(t, "abc123", svc.gotSig)
	assert.Equal(t, []byte(`{"restaurant_id":"r1"}`), svc.gotBody)
}

func TestWebhookIngestDuplicateIsStill200(t *testing.T) {
	svc := &stubOrderService{
		ingestOrder: model.Order{ID: "ord-1", Status: model.StatusInProgress},
		ingestIsNew: false,
	}
	rec := postWebhook(t, newWebhookRouter(svc), "swiggy", "abc123", []byte(`{}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		IsNew bool `json:"is_new"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.IsNew)
}

func TestWebhookIngestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        apperrors.NewValidation("missing restaurant id"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "missing restaurant id",
		},
		{
			name:       "signature mismatch",
			err:        apperrors.ErrSignatureMismatch,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "signature mismatch",
		},
		{
			name:       "channel not configured",
			err:        apperrors.ErrSecretNotFound,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "channel not configured",
		},
		{
			name:       "store failure stays opaque",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubOrderService{ingestErr: tt.err}
			rec := postWebhook(t, newWebhookRouter(svc), "zomato", "sig", []byte(`{}`))

			require.Equal(t, tt.wantStatus, rec.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp["error"], tt.wantMsg)
		})
	}
}

func TestWebhookIngestUnknownChannelLabel(t *testing.T) {
	svc := &stubOrderService{ingestErr: apperrors.NewValidation("unknown channel")}
	router := newWebhookRouter(svc)

	unknownBefore := testutil.ToFloat64(metrics.WebhookResults.WithLabelValues("unknown", "validation_error"))
	for _, channel := range []string{"garbage", "swiggy%20", "doordash"} {
		rec := postWebhook(t, router, channel, "sig", []byte(`{}`))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	unknownAfter := testutil.ToFloat64(metrics.WebhookResults.WithLabelValues("unknown", "validation_error"))
	assert.Equal(t, float64(3), unknownAfter-unknownBefore,
		"unrecognized channel segments collapse into one label value")
}

func TestWebhookIngestOversizeBody(t *testing.T) {
	svc := &stubOrderService{}
	rec := postWebhook(t, newWebhookRouter(svc), "swiggy", "sig", bytes.Repeat([]byte("a"), 1<<20+1))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, svc.gotBody, "oversize payloads never reach the pipeline")
}

func TestWebhookIngestMissingSignatureHeader(t *testing.T) {
	svc := &stubOrderService{ingestErr: apperrors.ErrSignatureMismatch}
	rec := postWebhook(t, newWebhookRouter(svc), "swiggy", "", []byte(`{}`))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.gotSig)
}
