package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"
	"testing"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/model"
)

type fakeSecrets map[string]string

func (f fakeSecrets) Secret(_ context.Context, restaurantID string, channel model.Channel) (string, error) {
	s, ok := f[restaurantID+"/"+string(channel)]
	if !ok {
		return "", apperrors.ErrSecretNotFound
	}
	return s, nil
}

func sign(secret string, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

func TestVerify(t *testing.T) {
	secrets := fakeSecrets{"r1/swiggy": "topsecret"}
	v := NewVerifier(secrets, slog.Default())
	payload := []byte(`{"order_id":"SWG123","total_amount":450}`)
	good := sign("topsecret", payload)

	tests := []struct {
		name         string
		restaurantID string
		channel      model.Channel
		payload      []byte
		signature    string
		wantErr      error
	}{
		{
			name:         "valid hex signature",
			restaurantID: "r1",
			channel:      model.ChannelSwiggy,
			payload:      payload,
			signature:    hex.EncodeToString(good),
		},
		{
			name:         "valid base64 signature",
			restaurantID: "r1",
			channel:      model.ChannelSwiggy,
			payload:      payload,
			signature:    base64.StdEncoding.EncodeToString(good),
		},
		{
			name:         "wrong secret",
			restaurantID: "r1",
			channel:      model.ChannelSwiggy,
			payload:      payload,
			signature:    hex.EncodeToString(sign("othersecret", payload)),
			wantErr:      apperrors.ErrSignatureMismatch,
		},
		{
			name:         "tampered payload",
			restaurantID: "r1",
			channel:      model.ChannelSwiggy,
			payload:      []byte(`{"order_id":"SWG123","total_amount":9450}`),
			signature:    hex.EncodeToString(good),
			wantErr:      apperrors.ErrSignatureMismatch,
		},
		{
			name:         "empty signature",
			restaurantID: "r1",
			channel:      model.ChannelSwiggy,
			payload:      payload,
			signature:    "",
			wantErr:      apperrors.ErrSignatureMismatch,
		},
		{
			name:         "garbage signature",
			restaurantID: "r1",
			channel:      model.ChannelSwiggy,
			payload:      payload,
			signature:    "!!not-an-encoding!!",
			wantErr:      apperrors.ErrSignatureMismatch,
		},
		{
			name:         "missing secret fails closed",
			restaurantID: "r2",
			channel:      model.ChannelSwiggy,
			payload:      payload,
			signature:    hex.EncodeToString(good),
			wantErr:      apperrors.ErrSecretNotFound,
		},
		{
			name:         "secret is channel scoped",
			restaurantID: "r1",
			channel:      model.ChannelZomato,
			payload:      payload,
			signature:    hex.EncodeToString(good),
			wantErr:      apperrors.ErrSecretNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(context.Background(), tt.restaurantID, tt.channel, tt.payload, tt.signature)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Verification must be repeatable: it holds no state and has no side effects.
func TestVerifyIsRepeatable(t *testing.T) {
	secrets := fakeSecrets{"r1/swiggy": "topsecret"}
	v := NewVerifier(secrets, slog.Default())
	payload := []byte(`x`)
	sig := hex.EncodeToString(sign("topsecret", payload))

	for i := 0; i < 3; i++ {
		if err := v.Verify(context.Background(), "r1", model.ChannelSwiggy, payload, sig); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}
