package normalize

import (
	"encoding/json"
	"strconv"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/model"
)

// Hard preconditions of the pipeline. Everything downstream, including the
// secret lookup for signature verification, needs a restaurant id; aggregator
// channels need an external order id for dedup.
var (
	ErrMissingRestaurantID = apperrors.NewValidation("missing restaurant_id")
	ErrMissingExternalID   = apperrors.NewValidation("missing external_order_id")
)

// flexString tolerates payloads that send ids as JSON numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type rawItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	UnitPrice float64 `json:"unit_price"`
}

// rawPayload covers the field spellings of every supported channel. Aggregator
// payload schemas overlap enough that one shape with fallbacks is simpler than
// one decoder per channel.
type rawPayload struct {
	RestaurantID  flexString `json:"restaurant_id"`
	ResID         flexString `json:"res_id"` // zomato spelling
	OrderID       flexString `json:"order_id"`
	ID            flexString `json:"id"`
	TotalAmount   float64    `json:"total_amount"`
	OrderTotal    float64    `json:"order_total"` // zomato spelling
	PaymentStatus string     `json:"payment_status"`
	Items         []rawItem  `json:"items"`
	Dishes        []rawItem  `json:"dishes"` // zomato spelling
}

// Normalize maps a channel-specific webhook payload onto the canonical Order
// shape. It is pure and deterministic: the same raw bytes always produce the
// same order, excluding the store-assigned id and created_at.
//
// Unknown or missing monetary fields default to zero. A missing restaurant id
// is always a hard error; a missing external order id is a hard error for
// channels that dedup on it.
func Normalize(channel model.Channel, raw []byte) (model.Order, error) {
	if !channel.Valid() {
		return model.Order{}, apperrors.NewValidation("unknown channel %q", channel)
	}

	var p rawPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Order{}, apperrors.NewValidation("malformed payload: %v", err)
	}

	restaurantID := firstNonEmpty(string(p.RestaurantID), string(p.ResID))
	if restaurantID == "" {
		return model.Order{}, ErrMissingRestaurantID
	}

	order := model.Order{
		RestaurantID:  restaurantID,
		Channel:       channel,
		Status:        model.StatusNew,
		PaymentStatus: paymentStatus(p.PaymentStatus),
		TotalAmount:   firstPositive(p.TotalAmount, p.OrderTotal),
	}
	if order.TotalAmount < 0 {
		return model.Order{}, apperrors.NewValidation("total_amount must be non-negative, got %s",
			strconv.FormatFloat(order.TotalAmount, 'f', -1, 64))
	}

	externalID := firstNonEmpty(string(p.OrderID), string(p.ID))
	if externalID != "" {
		order.ExternalOrderID = &externalID
	} else if channel.RequiresExternalID() {
		return model.Order{}, ErrMissingExternalID
	}

	rawItems := p.Items
	if len(rawItems) == 0 {
		rawItems = p.Dishes
	}
	for _, it := range rawItems {
		if it.Name == "" {
			return model.Order{}, apperrors.NewValidation("order item without a name")
		}
		if it.Quantity <= 0 {
			return model.Order{}, apperrors.NewValidation("item %q: quantity must be positive", it.Name)
		}
		price := firstPositive(it.Price, it.UnitPrice)
		if price < 0 {
			return model.Order{}, apperrors.NewValidation("item %q: unit price must be non-negative", it.Name)
		}
		order.Items = append(order.Items, model.OrderItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: price,
		})
	}

	return order, nil
}

func paymentStatus(s string) model.PaymentStatus {
	ps := model.PaymentStatus(s)
	if ps.Valid() {
		return ps
	}
	return model.PaymentPending
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
