package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/model"
)

// SecretSource looks up the shared secret for a (restaurant, channel) pair.
// Implementations return apperrors.ErrSecretNotFound when none is configured.
type SecretSource interface {
	Secret(ctx context.Context, restaurantID string, channel model.Channel) (string, error)
}

// Verifier checks that an inbound webhook body was produced by the claimed
// sender. It is side-effect-free and safe to call redundantly.
type Verifier struct {
	secrets SecretSource
	logger  *slog.Logger
}

func NewVerifier(secrets SecretSource, logger *slog.Logger) *Verifier {
	return &Verifier{
		secrets: secrets,
		logger:  logger.With("component", "signature"),
	}
}

// Verify computes HMAC-SHA256 over the exact raw payload bytes and compares
// it against the supplied signature in constant time. The raw bytes are used
// as received, never a re-serialized form, so canonicalization differences
// between sender and receiver cannot break verification.
//
// A missing secret fails closed with apperrors.ErrSecretNotFound; a mismatch
// fails with apperrors.ErrSignatureMismatch. The secret is never logged.
func (v *Verifier) Verify(ctx context.Context, restaurantID string, channel model.Channel, payload []byte, supplied string) error {
	secret, err := v.secrets.Secret(ctx, restaurantID, channel)
	if err != nil {
		if apperrors.IsConfiguration(err) {
			v.logger.Error("no webhook secret configured",
				slog.String("restaurant_id", restaurantID),
				slog.String("channel", string(channel)))
			return err
		}
		return fmt.Errorf("secret lookup: %w", err)
	}

	given, err := decodeSignature(supplied)
	if err != nil {
		v.logger.Warn("undecodable webhook signature",
			slog.String("restaurant_id", restaurantID),
			slog.String("channel", string(channel)))
		return apperrors.ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), given) {
		v.logger.Warn("webhook signature mismatch",
			slog.String("restaurant_id", restaurantID),
			slog.String("channel", string(channel)))
		return apperrors.ErrSignatureMismatch
	}
	return nil
}

// decodeSignature accepts hex or base64, the two encodings aggregators use.
func decodeSignature(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty signature")
	}
	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return nil, fmt.Errorf("signature is neither hex nor base64")
}
