package push

import (
	"context"
	"errors"

	"github.com/rspatil/orderdesk/internal/model"
)

// ErrInvalidToken marks a permanent per-token failure: the token is
// unregistered or expired and will never succeed again. The dispatcher
// responds by revoking the subscription. Every other delivery error is
// transient and leaves the registry untouched.
var ErrInvalidToken = errors.New("device token invalid")

// Message is one per-device delivery: the envelope flattened together with
// the token and the platform hints the gateway needs.
type Message struct {
	Token     string            `json:"token"`
	Platform  model.Platform    `json:"platform"`
	ChannelID string            `json:"channel_id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data"`
}

// Client is the external push-delivery collaborator. Implementations must
// classify failures: wrap ErrInvalidToken for permanently dead tokens and
// return any other error for retry-worthy conditions. The pipeline depends
// only on that classification, not on the transport behind it.
type Client interface {
	Push(ctx context.Context, msg Message) error
}

// IsPermanent reports whether a delivery error means the token should be
// unregistered.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

// TokenPrefix returns a bounded prefix safe for logs and reports. Device
// tokens are capabilities and must never appear in full in any output.
func TokenPrefix(token string) string {
	const n = 8
	if len(token) <= n {
		return token
	}
	return token[:n] + "…"
}
