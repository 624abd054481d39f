package storage

import (
	"context"

	"github.com/rspatil/orderdesk/internal/model"
)

// OrderStorage is the persistence boundary of the ingestion pipeline. It is
// the source of truth; the pipeline keeps no caches in front of it.
type OrderStorage interface {
	Ping(ctx context.Context) error

	// InsertIfAbsent atomically inserts the order and its items. When the
	// order carries an external id it is keyed on (channel, external_order_id):
	// of two concurrent callers racing on the same key exactly one observes
	// isNew=true and the other gets the already-stored row. Orders without an
	// external id (dine-in) always insert as new.
	InsertIfAbsent(ctx context.Context, order model.Order) (model.Order, bool, error)

	// UpdateStatus applies a status transition, enforcing the state machine.
	// Terminal states are immutable.
	UpdateStatus(ctx context.Context, orderID string, next model.Status) (model.Order, error)

	FindByID(ctx context.Context, orderID string) (model.Order, error)
}

// SubscriptionStorage is the durable restaurant → device-token registry.
type SubscriptionStorage interface {
	// Register upserts on device_token; repeat calls with the same token
	// bump last_seen_at instead of duplicating.
	Register(ctx context.Context, sub model.PushSubscription) (model.PushSubscription, error)

	ListByRestaurant(ctx context.Context, restaurantID string) ([]model.PushSubscription, error)

	// Revoke removes one subscription by token value. Tokens identify one
	// device globally, so this can never touch another restaurant's rows.
	Revoke(ctx context.Context, deviceToken string) error
}

// SecretStorage reads per-(restaurant, channel) webhook secrets. Rotation
// happens out-of-band; the pipeline only reads.
type SecretStorage interface {
	Secret(ctx context.Context, restaurantID string, channel model.Channel) (string, error)
}
