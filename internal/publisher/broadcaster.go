package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/rspatil/orderdesk/internal/metrics"
	"github.com/rspatil/orderdesk/internal/model"
)

// ErrClosed is returned by Subscriber.Next after Unsubscribe.
var ErrClosed = errors.New("subscriber closed")

// Broadcaster fans order change events out to connected dashboard
// subscribers. Delivery is best-effort to whoever is connected at broadcast
// time; late subscribers get no replay and load current state themselves.
//
// Two events broadcast for the same restaurant are observed by every
// subscriber in broadcast order. No ordering holds across restaurants.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]map[*Subscriber]struct{}

	eventRate rate.Limit
	burst     int
	queueCap  int
	logger    *slog.Logger
}

func NewBroadcaster(eventsPerSec float64, burst, queueCap int, logger *slog.Logger) *Broadcaster {
	// A queue that holds nothing and a limiter that admits nothing are both
	// unusable; the saturation path in push assumes at least one slot.
	if queueCap < 1 {
		queueCap = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Broadcaster{
		subs:      make(map[string]map[*Subscriber]struct{}),
		eventRate: rate.Limit(eventsPerSec),
		burst:     burst,
		queueCap:  queueCap,
		logger:    logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a live subscriber for one restaurant's events.
func (b *Broadcaster) Subscribe(restaurantID string) *Subscriber {
	sub := &Subscriber{
		restaurantID: restaurantID,
		queueCap:     b.queueCap,
		notify:       make(chan struct{}, 1),
		limiter:      rate.NewLimiter(b.eventRate, b.burst),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[restaurantID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		b.subs[restaurantID] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	if set, ok := b.subs[sub.restaurantID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.restaurantID)
		}
	}
	b.mu.Unlock()

	sub.close()
}

// Broadcast enqueues the event for every subscriber of the order's
// restaurant. It never blocks on a slow subscriber: pushes only touch
// in-memory queues, and saturated queues coalesce instead of growing.
func (b *Broadcaster) Broadcast(ev model.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.subs[ev.Order.RestaurantID]
	if len(set) == 0 {
		return
	}
	for sub := range set {
		sub.push(ev)
	}
	metrics.BroadcastEvents.Inc()
}

// Subscriber is one live dashboard connection. Events are consumed with Next,
// which applies the configured outbound rate cap.
type Subscriber struct {
	restaurantID string
	queueCap     int
	limiter      *rate.Limiter
	notify       chan struct{}

	mu     sync.Mutex
	queue  []model.ChangeEvent
	closed bool
}

func (s *Subscriber) RestaurantID() string { return s.restaurantID }

func (s *Subscriber) push(ev model.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if len(s.queue) >= s.queueCap {
		// Backpressure: keep only the latest event per order instead of
		// growing the queue without bound.
		for i := range s.queue {
			if s.queue[i].Order.ID == ev.Order.ID {
				s.queue[i] = ev
				s.signal()
				return
			}
		}
		copy(s.queue, s.queue[1:])
		s.queue[len(s.queue)-1] = ev
		s.signal()
		return
	}

	s.queue = append(s.queue, ev)
	s.signal()
}

func (s *Subscriber) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available, the context is cancelled, or the
// subscriber is closed. The rate limiter caps outbound throughput toward this
// subscriber; events arriving faster than the cap pile into the queue and are
// coalesced there.
func (s *Subscriber) Next(ctx context.Context) (model.ChangeEvent, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return model.ChangeEvent{}, err
	}

	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return ev, nil
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return model.ChangeEvent{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return model.ChangeEvent{}, ctx.Err()
		case <-s.notify:
		}
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}
