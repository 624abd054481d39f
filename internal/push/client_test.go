package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenPrefix(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{token: "abcdefghijklmnop", want: "abcdefgh…"},
		{token: "short", want: "short"},
		{token: "", want: ""},
		{token: "exactly8", want: "exactly8"},
	}
	for _, tt := range tests {
		if got := TokenPrefix(tt.token); got != tt.want {
			t.Errorf("TokenPrefix(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(ErrInvalidToken))
	assert.True(t, IsPermanent(fmt.Errorf("gateway: %w", ErrInvalidToken)))
	assert.False(t, IsPermanent(errors.New("connection refused")))
	assert.False(t, IsPermanent(nil))
}

func TestGatewayClientClassification(t *testing.T) {
	tests := []struct {
		name          string
		response      string
		status        int
		wantErr       bool
		wantPermanent bool
	}{
		{
			name:     "delivered",
			response: `{"results":[{"token":"tok","success":true}]}`,
			status:   http.StatusOK,
		},
		{
			name:          "unregistered token is permanent",
			response:      `{"results":[{"token":"tok","success":false,"error_code":"unregistered"}]}`,
			status:        http.StatusOK,
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name:          "expired token is permanent",
			response:      `{"results":[{"token":"tok","success":false,"error_code":"expired"}]}`,
			status:        http.StatusOK,
			wantErr:       true,
			wantPermanent: true,
		},
		{
			name:     "throttled is transient",
			response: `{"results":[{"token":"tok","success":false,"error_code":"throttled","error":"slow down"}]}`,
			status:   http.StatusOK,
			wantErr:  true,
		},
		{
			name:     "gateway outage is transient",
			response: `unavailable`,
			status:   http.StatusServiceUnavailable,
			wantErr:  true,
		},
		{
			name:     "empty result set is transient",
			response: `{"results":[]}`,
			status:   http.StatusOK,
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				require.Equal(t, "/v1/send", r.URL.Path)
				require.Equal(t, "Bearer key123", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			c := NewGatewayClient(srv.URL, "key123", srv.Client(), slog.Default())
			err := c.Push(context.Background(), Message{Token: "tok", Title: "New order"})

			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantPermanent, IsPermanent(err))
		})
	}
}

// Failure messages must never carry the full token.
func TestGatewayClientNeverEchoesFullToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"token":"tok","success":false,"error_code":"throttled","error":"busy"}]}`))
	}))
	defer srv.Close()

	token := "very-long-device-token-value-0123456789"
	c := NewGatewayClient(srv.URL, "", srv.Client(), slog.Default())
	err := c.Push(context.Background(), Message{Token: token})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)
}
