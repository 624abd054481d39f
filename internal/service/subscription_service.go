package service

import (
	"context"
	"log/slog"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/model"
	"github.com/rspatil/orderdesk/internal/push"
	"github.com/rspatil/orderdesk/internal/storage"
)

// RegisterSubscriptionRequest is the device-registration payload.
type RegisterSubscriptionRequest struct {
	RestaurantID string         `json:"restaurant_id"`
	DeviceToken  string         `json:"device_token"`
	Platform     model.Platform `json:"platform"`
	ChannelID    string         `json:"channel_id"`
}

type SubscriptionService interface {
	// Register is an idempotent upsert: re-registering a known token bumps
	// last_seen_at instead of duplicating.
	Register(ctx context.Context, req RegisterSubscriptionRequest) (model.PushSubscription, error)
}

type subscriptionService struct {
	registry storage.SubscriptionStorage
	logger   *slog.Logger
}

func NewSubscriptionService(registry storage.SubscriptionStorage, logger *slog.Logger) SubscriptionService {
	return &subscriptionService{
		registry: registry,
		logger:   logger.With("layer", "service", "component", "subscriptionService"),
	}
}

func (s *subscriptionService) Register(ctx context.Context, req RegisterSubscriptionRequest) (model.PushSubscription, error) {
	if req.DeviceToken == "" {
		return model.PushSubscription{}, apperrors.NewValidation("missing device_token")
	}
	if req.RestaurantID == "" {
		return model.PushSubscription{}, apperrors.NewValidation("missing restaurant_id")
	}
	if !req.Platform.Valid() {
		return model.PushSubscription{}, apperrors.NewValidation("unknown platform %q", req.Platform)
	}
	if req.ChannelID == "" {
		req.ChannelID = "orders"
	}

	sub, err := s.registry.Register(ctx, model.PushSubscription{
		RestaurantID: req.RestaurantID,
		DeviceToken:  req.DeviceToken,
		Platform:     req.Platform,
		ChannelID:    req.ChannelID,
	})
	if err != nil {
		s.logger.Error("subscription upsert failed",
			slog.String("restaurant_id", req.RestaurantID),
			slog.String("token", push.TokenPrefix(req.DeviceToken)),
			slog.Any("error", err))
		return model.PushSubscription{}, err
	}

	s.logger.Info("device registered",
		slog.String("restaurant_id", sub.RestaurantID),
		slog.String("token", push.TokenPrefix(sub.DeviceToken)),
		slog.String("platform", string(sub.Platform)))
	return sub, nil
}
