package model

import "time"

// Channel identifies where an order originated: the in-house dine-in flow or
// an external aggregator delivering webhooks.
type Channel string

const (
	ChannelDineIn Channel = "dine_in"
	ChannelSwiggy Channel = "swiggy"
	ChannelZomato Channel = "zomato"
)

// Valid reports whether c is a channel the pipeline knows how to handle.
func (c Channel) Valid() bool {
	switch c {
	case ChannelDineIn, ChannelSwiggy, ChannelZomato:
		return true
	}
	return false
}

// RequiresExternalID reports whether orders from this channel must carry an
// external order id. Aggregators retry webhook deliveries, so their orders are
// deduplicated on (channel, external_order_id); dine-in orders are created
// exactly once by our own flow and need no dedup key.
func (c Channel) RequiresExternalID() bool {
	return c != ChannelDineIn
}

type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusReady      Status = "ready"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var statusTransitions = map[Status][]Status{
	StatusNew:        {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusReady, StatusCancelled},
	StatusReady:      {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are allowed out of s.
func (s Status) Terminal() bool {
	return len(statusTransitions[s]) == 0 && s.Valid()
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// Order is the canonical order record every channel payload is normalized
// into. ID and CreatedAt are assigned by the store on insert.
type Order struct {
	ID              string        `json:"id"`
	RestaurantID    string        `json:"restaurant_id"`
	Channel         Channel       `json:"channel"`
	ExternalOrderID *string       `json:"external_order_id,omitempty"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	TotalAmount     float64       `json:"total_amount"`
	Items           []OrderItem   `json:"items,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// OrderItem belongs to exactly one order and is inserted atomically with it.
type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// ChangeEvent is what dashboards receive for every persisted order change.
type ChangeEvent struct {
	Order Order `json:"order"`
	IsNew bool  `json:"is_new"`
}
