package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/dispatch"
	"github.com/rspatil/orderdesk/internal/events"
	"github.com/rspatil/orderdesk/internal/model"
	"github.com/rspatil/orderdesk/internal/normalize"
	"github.com/rspatil/orderdesk/internal/publisher"
	"github.com/rspatil/orderdesk/internal/signature"
	"github.com/rspatil/orderdesk/internal/storage"
)

// CreateOrderRequest is the internal order-creation path (dine-in QR flow).
// It enters the pipeline at the store, bypassing the verifier and normalizer,
// and feeds the same downstream consumers as webhooks.
type CreateOrderRequest struct {
	RestaurantID  string              `json:"restaurant_id"`
	TotalAmount   float64             `json:"total_amount"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	Items         []model.OrderItem   `json:"items"`
}

type OrderService interface {
	// IngestWebhook runs the full external-channel pipeline:
	// normalize -> verify -> insert-if-absent -> broadcast + fan-out.
	// A replayed delivery of an already-seen dedup key is not an error:
	// it returns the stored order with isNew=false and still notifies.
	IngestWebhook(ctx context.Context, channel model.Channel, rawBody []byte, suppliedSig string) (model.Order, bool, error)

	CreateOrder(ctx context.Context, req CreateOrderRequest) (model.Order, error)

	UpdateStatus(ctx context.Context, orderID string, next model.Status) (model.Order, error)

	GetOrder(ctx context.Context, orderID string) (model.Order, error)
}

type orderService struct {
	store       storage.OrderStorage
	verifier    *signature.Verifier
	broadcaster *publisher.Broadcaster
	dispatcher  *dispatch.Dispatcher
	producer    events.Producer
	logger      *slog.Logger
	tracer      trace.Tracer

	// Upper bound for the detached fan-out of one event.
	fanoutBudget time.Duration
}

func NewOrderService(
	store storage.OrderStorage,
	verifier *signature.Verifier,
	broadcaster *publisher.Broadcaster,
	dispatcher *dispatch.Dispatcher,
	producer events.Producer,
	logger *slog.Logger,
) OrderService {
	return &orderService{
		store:        store,
		verifier:     verifier,
		broadcaster:  broadcaster,
		dispatcher:   dispatcher,
		producer:     producer,
		logger:       logger.With("layer", "service", "component", "orderService"),
		tracer:       otel.Tracer("order-service"),
		fanoutBudget: time.Minute,
	}
}

func (s *orderService) IngestWebhook(ctx context.Context, channel model.Channel, rawBody []byte, suppliedSig string) (model.Order, bool, error) {
	ctx, span := s.tracer.Start(ctx, "IngestWebhook")
	defer span.End()
	span.SetAttributes(attribute.String("order.channel", string(channel)))

	// Normalization comes first: the restaurant id it extracts is the
	// precondition for the secret lookup, so verification cannot even be
	// attempted against the raw payload alone.
	order, err := normalize.Normalize(channel, rawBody)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.Order{}, false, err
	}

	if err := s.verifier.Verify(ctx, order.RestaurantID, channel, rawBody, suppliedSig); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.Order{}, false, err
	}

	stored, isNew, err := s.store.InsertIfAbsent(ctx, order)
	if err != nil {
		s.logger.Error("order insert failed",
			slog.String("restaurant_id", order.RestaurantID),
			slog.String("channel", string(channel)),
			slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.Order{}, false, fmt.Errorf("insert order: %w", err)
	}

	if !isNew {
		s.logger.Info("duplicate webhook delivery absorbed",
			slog.String("order_id", stored.ID),
			slog.String("channel", string(channel)))
	}

	// Both the winner and the replayed delivery notify with the row as it
	// exists: duplicate notifications are acceptable, duplicate rows are not.
	s.notify(ctx, stored, isNew)
	return stored, isNew, nil
}

func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (model.Order, error) {
	ctx, span := s.tracer.Start(ctx, "CreateOrder")
	defer span.End()

	if req.RestaurantID == "" {
		return model.Order{}, normalize.ErrMissingRestaurantID
	}
	if req.TotalAmount < 0 {
		return model.Order{}, apperrors.NewValidation("total_amount must be non-negative")
	}
	for _, it := range req.Items {
		if it.Name == "" || it.Quantity <= 0 || it.UnitPrice < 0 {
			return model.Order{}, apperrors.NewValidation("invalid order item %q", it.Name)
		}
	}

	paymentStatus := req.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = model.PaymentPending
	}
	if !paymentStatus.Valid() {
		return model.Order{}, apperrors.NewValidation("unknown payment_status %q", paymentStatus)
	}

	order := model.Order{
		RestaurantID:  req.RestaurantID,
		Channel:       model.ChannelDineIn,
		Status:        model.StatusNew,
		PaymentStatus: paymentStatus,
		TotalAmount:   req.TotalAmount,
		Items:         req.Items,
	}

	stored, _, err := s.store.InsertIfAbsent(ctx, order)
	if err != nil {
		s.logger.Error("dine-in order insert failed",
			slog.String("restaurant_id", req.RestaurantID),
			slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.Order{}, fmt.Errorf("insert order: %w", err)
	}

	s.notify(ctx, stored, true)
	return stored, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID string, next model.Status) (model.Order, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.next_status", string(next)),
	)

	order, err := s.store.UpdateStatus(ctx, orderID, next)
	if err != nil {
		if !apperrors.IsNotFound(err) && !apperrors.IsInvalidTransition(err) {
			s.logger.Error("status update failed",
				slog.String("order_id", orderID),
				slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.Order{}, err
	}

	s.notify(ctx, order, false)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (model.Order, error) {
	return s.store.FindByID(ctx, orderID)
}

// notify propagates a persisted change to every consumer: live dashboards,
// the Kafka export, and the push fan-out. It runs only after the store commit
// so nothing is announced that did not happen.
func (s *orderService) notify(ctx context.Context, order model.Order, isNew bool) {
	ev := model.ChangeEvent{Order: order, IsNew: isNew}

	s.broadcaster.Broadcast(ev)

	if err := s.producer.Publish(ctx, ev); err != nil {
		s.logger.Error("order event export failed",
			slog.String("order_id", order.ID),
			slog.Any("error", err))
	}

	// The fan-out outlives the request: the webhook response does not wait
	// for push delivery. Per-attempt timeouts live in the dispatcher; this
	// budget only stops a detached fan-out from lingering forever.
	fanoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fanoutBudget)
	go func() {
		defer cancel()
		if _, err := s.dispatcher.Fanout(fanoutCtx, order.RestaurantID, envelopeFor(order, isNew)); err != nil {
			s.logger.Error("fan-out failed",
				slog.String("order_id", order.ID),
				slog.Any("error", err))
		}
	}()
}

func envelopeFor(order model.Order, isNew bool) model.NotificationEnvelope {
	eventType := "order_updated"
	title := "Order update"
	body := fmt.Sprintf("Order is now %s", order.Status)
	if isNew {
		eventType = "order_created"
		title = "New order"
		body = fmt.Sprintf("New %s order for ₹%.2f", order.Channel, order.TotalAmount)
	}

	return model.NotificationEnvelope{
		Title:        title,
		Body:         body,
		RestaurantID: order.RestaurantID,
		Data: map[string]string{
			"type":     eventType,
			"order_id": order.ID,
			"url":      "/orders/" + order.ID,
		},
	}
}
