package model

import "time"

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return true
	}
	return false
}

// PushSubscription maps a restaurant to one registered device. DeviceToken is
// a capability, unique across all restaurants; re-registering the same token
// bumps LastSeenAt instead of duplicating the row.
type PushSubscription struct {
	RestaurantID string    `json:"restaurant_id"`
	DeviceToken  string    `json:"device_token"`
	Platform     Platform  `json:"platform"`
	ChannelID    string    `json:"channel_id"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

// NotificationEnvelope is built per dispatch and discarded after delivery.
// It is never persisted.
type NotificationEnvelope struct {
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Data         map[string]string `json:"data"`
	RestaurantID string            `json:"target_restaurant_id"`
}
