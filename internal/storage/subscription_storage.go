package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/model"
)

type PostgresSubscriptionStorage struct {
	db *pgxpool.Pool
}

func NewPostgresSubscriptionStorage(pool *pgxpool.Pool) SubscriptionStorage {
	return &PostgresSubscriptionStorage{db: pool}
}

func (s *PostgresSubscriptionStorage) Register(ctx context.Context, sub model.PushSubscription) (model.PushSubscription, error) {
	const query = `
		INSERT INTO push_subscriptions (device_token, restaurant_id, platform, channel_id, registered_at, last_seen_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (device_token) DO UPDATE
		SET restaurant_id = EXCLUDED.restaurant_id,
		    platform      = EXCLUDED.platform,
		    channel_id    = EXCLUDED.channel_id,
		    last_seen_at  = now()
		RETURNING device_token, restaurant_id, platform, channel_id, registered_at, last_seen_at
	`

	var out model.PushSubscription
	err := s.db.QueryRow(ctx, query,
		sub.DeviceToken, sub.RestaurantID, sub.Platform, sub.ChannelID,
	).Scan(&out.DeviceToken, &out.RestaurantID, &out.Platform, &out.ChannelID, &out.RegisteredAt, &out.LastSeenAt)
	if err != nil {
		return model.PushSubscription{}, fmt.Errorf("upsert subscription: %w", err)
	}
	return out, nil
}

func (s *PostgresSubscriptionStorage) ListByRestaurant(ctx context.Context, restaurantID string) ([]model.PushSubscription, error) {
	const query = `
		SELECT device_token, restaurant_id, platform, channel_id, registered_at, last_seen_at
		FROM push_subscriptions
		WHERE restaurant_id = $1
	`

	rows, err := s.db.Query(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("select subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		var sub model.PushSubscription
		if err := rows.Scan(&sub.DeviceToken, &sub.RestaurantID, &sub.Platform, &sub.ChannelID, &sub.RegisteredAt, &sub.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subscription iteration: %w", err)
	}
	return subs, nil
}

func (s *PostgresSubscriptionStorage) Revoke(ctx context.Context, deviceToken string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM push_subscriptions WHERE device_token = $1`, deviceToken)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

type PostgresSecretStorage struct {
	db *pgxpool.Pool
}

func NewPostgresSecretStorage(pool *pgxpool.Pool) SecretStorage {
	return &PostgresSecretStorage{db: pool}
}

func (s *PostgresSecretStorage) Secret(ctx context.Context, restaurantID string, channel model.Channel) (string, error) {
	const query = `
		SELECT secret FROM restaurant_channel_secrets
		WHERE restaurant_id = $1 AND channel = $2
	`

	var secret string
	err := s.db.QueryRow(ctx, query, restaurantID, channel).Scan(&secret)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperrors.ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select secret: %w", err)
	}
	return secret, nil
}
