package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/model"
)

func TestNormalizeSwiggy(t *testing.T) {
	payload := []byte(`{
		"restaurant_id": "rest-42",
		"order_id": "SWG123",
		"total_amount": 450,
		"items": [
			{"name": "Paneer Butter Masala", "quantity": 2, "price": 200},
			{"name": "Jeera Rice", "quantity": 1, "price": 50}
		]
	}`)

	order, err := Normalize(model.ChannelSwiggy, payload)
	require.NoError(t, err)

	assert.Equal(t, "rest-42", order.RestaurantID)
	assert.Equal(t, model.ChannelSwiggy, order.Channel)
	require.NotNil(t, order.ExternalOrderID)
	assert.Equal(t, "SWG123", *order.ExternalOrderID)
	assert.Equal(t, model.StatusNew, order.Status)
	assert.Equal(t, model.PaymentPending, order.PaymentStatus)
	assert.Equal(t, 450.0, order.TotalAmount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, model.OrderItem{Name: "Paneer Butter Masala", Quantity: 2, UnitPrice: 200}, order.Items[0])
	assert.Equal(t, model.OrderItem{Name: "Jeera Rice", Quantity: 1, UnitPrice: 50}, order.Items[1])
}

func TestNormalizeZomatoSpellings(t *testing.T) {
	payload := []byte(`{
		"res_id": 99,
		"order_id": "ZOM-7",
		"order_total": 320.5,
		"payment_status": "paid",
		"dishes": [{"name": "Masala Dosa", "quantity": 2, "unit_price": 160.25}]
	}`)

	order, err := Normalize(model.ChannelZomato, payload)
	require.NoError(t, err)

	assert.Equal(t, "99", order.RestaurantID, "numeric res_id should normalize to a string")
	assert.Equal(t, "ZOM-7", *order.ExternalOrderID)
	assert.Equal(t, 320.5, order.TotalAmount)
	assert.Equal(t, model.PaymentPaid, order.PaymentStatus)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 160.25, order.Items[0].UnitPrice)
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		channel model.Channel
		payload string
		wantErr error
	}{
		{
			name:    "missing restaurant id",
			channel: model.ChannelSwiggy,
			payload: `{"order_id": "SWG1", "total_amount": 10}`,
			wantErr: ErrMissingRestaurantID,
		},
		{
			name:    "missing external id on aggregator channel",
			channel: model.ChannelZomato,
			payload: `{"restaurant_id": "r1", "total_amount": 10}`,
			wantErr: ErrMissingExternalID,
		},
		{
			name:    "malformed json",
			channel: model.ChannelSwiggy,
			payload: `{`,
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "unknown channel",
			channel: model.Channel("ubereats"),
			payload: `{"restaurant_id": "r1", "order_id": "X"}`,
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "zero quantity item",
			channel: model.ChannelSwiggy,
			payload: `{"restaurant_id": "r1", "order_id": "S1", "items": [{"name": "Chai", "quantity": 0, "price": 15}]}`,
			wantErr: apperrors.ErrValidation,
		},
		{
			name:    "nameless item",
			channel: model.ChannelSwiggy,
			payload: `{"restaurant_id": "r1", "order_id": "S1", "items": [{"quantity": 1, "price": 15}]}`,
			wantErr: apperrors.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.channel, []byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Normalize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeDineInNeedsNoExternalID(t *testing.T) {
	order, err := Normalize(model.ChannelDineIn, []byte(`{"restaurant_id": "r1", "total_amount": 120}`))
	require.NoError(t, err)
	assert.Nil(t, order.ExternalOrderID)
}

func TestNormalizeMissingMoneyDefaultsToZero(t *testing.T) {
	order, err := Normalize(model.ChannelSwiggy, []byte(`{"restaurant_id": "r1", "order_id": "S2"}`))
	require.NoError(t, err)
	assert.Zero(t, order.TotalAmount)
	assert.Empty(t, order.Items)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	payload := []byte(`{"restaurant_id": "r1", "order_id": "S3", "total_amount": 99,
		"items": [{"name": "Thali", "quantity": 1, "price": 99}]}`)

	first, err := Normalize(model.ChannelSwiggy, payload)
	require.NoError(t, err)
	second, err := Normalize(model.ChannelSwiggy, payload)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
