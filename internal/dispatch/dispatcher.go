package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rspatil/orderdesk/internal/metrics"
	"github.com/rspatil/orderdesk/internal/model"
	"github.com/rspatil/orderdesk/internal/push"
	"github.com/rspatil/orderdesk/internal/storage"
)

// Failure is one non-delivered token in a report. Only the bounded token
// prefix is ever recorded.
type Failure struct {
	TokenPrefix string `json:"token_prefix"`
	Reason      string `json:"reason"`
	Permanent   bool   `json:"permanent"`
}

// Report summarizes one fan-out, joined over every token.
type Report struct {
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failed    []Failure `json:"failed,omitempty"`
}

// Dispatcher fans a notification out to every device registered for a
// restaurant and reconciles the registry from the per-token outcomes.
type Dispatcher struct {
	registry    storage.SubscriptionStorage
	client      push.Client
	workerLimit int
	timeout     time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewDispatcher(
	registry storage.SubscriptionStorage,
	client push.Client,
	workerLimit int,
	timeout time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		client:      client,
		workerLimit: workerLimit,
		timeout:     timeout,
		logger:      logger.With("component", "dispatcher"),
		tracer:      otel.Tracer("dispatcher"),
	}
}

// Fanout sends the envelope to every registered token concurrently, bounded
// by the worker limit, and joins on all attempts before returning. One
// token's failure never aborts delivery to the rest; each attempt carries its
// own timeout so a dead endpoint cannot stall the fan-out.
//
// A restaurant with no registered devices is not a failure: the report comes
// back with Attempted == 0 and a nil error.
func (d *Dispatcher) Fanout(ctx context.Context, restaurantID string, env model.NotificationEnvelope) (Report, error) {
	ctx, span := d.tracer.Start(ctx, "Fanout")
	defer span.End()
	span.SetAttributes(attribute.String("restaurant_id", restaurantID))

	start := time.Now()

	subs, err := d.registry.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		d.logger.Error("failed to list subscriptions",
			slog.String("restaurant_id", restaurantID),
			slog.Any("error", err))
		return Report{}, err
	}
	if len(subs) == 0 {
		return Report{}, nil
	}

	var (
		mu     sync.Mutex
		report = Report{Attempted: len(subs)}
	)

	eg, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, d.workerLimit)

	for _, sub := range subs {
		sub := sub
		sem <- struct{}{}
		eg.Go(func() error {
			defer func() { <-sem }()

			outcome := d.attempt(ctx, sub, env)

			mu.Lock()
			defer mu.Unlock()
			if outcome == nil {
				report.Succeeded++
				metrics.FanoutOutcomes.WithLabelValues("delivered").Inc()
				return nil
			}

			permanent := push.IsPermanent(outcome)
			report.Failed = append(report.Failed, Failure{
				TokenPrefix: push.TokenPrefix(sub.DeviceToken),
				Reason:      outcome.Error(),
				Permanent:   permanent,
			})
			if permanent {
				metrics.FanoutOutcomes.WithLabelValues("permanent").Inc()
			} else {
				metrics.FanoutOutcomes.WithLabelValues("transient").Inc()
			}
			// Failures are recorded in the report, never bubbled up: the
			// group must attempt every token.
			return nil
		})
	}

	eg.Wait()

	result := "ok"
	if len(report.Failed) > 0 {
		result = "partial"
	}
	metrics.FanoutDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("fanout.attempted", report.Attempted),
		attribute.Int("fanout.succeeded", report.Succeeded),
	)

	d.logger.Info("fan-out complete",
		slog.String("restaurant_id", restaurantID),
		slog.Int("attempted", report.Attempted),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", len(report.Failed)))
	return report, nil
}

// attempt delivers to one token and reconciles the registry on permanent
// failure. A timed-out attempt is a transient failure, not a pending one.
func (d *Dispatcher) attempt(ctx context.Context, sub model.PushSubscription, env model.NotificationEnvelope) error {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.client.Push(attemptCtx, push.Message{
		Token:     sub.DeviceToken,
		Platform:  sub.Platform,
		ChannelID: sub.ChannelID,
		Title:     env.Title,
		Body:      env.Body,
		Data:      env.Data,
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		d.logger.Warn("push attempt timed out",
			slog.String("token", push.TokenPrefix(sub.DeviceToken)))
		return err
	}

	if push.IsPermanent(err) {
		d.logger.Info("revoking dead token",
			slog.String("token", push.TokenPrefix(sub.DeviceToken)),
			slog.String("restaurant_id", sub.RestaurantID))
		// Revocation uses the parent context: the attempt deadline may
		// already have passed and the cleanup still has to happen.
		if rerr := d.registry.Revoke(ctx, sub.DeviceToken); rerr != nil {
			d.logger.Error("failed to revoke token",
				slog.String("token", push.TokenPrefix(sub.DeviceToken)),
				slog.Any("error", rerr))
		}
		return err
	}

	d.logger.Warn("transient push failure",
		slog.String("token", push.TokenPrefix(sub.DeviceToken)),
		slog.Any("error", err))
	return err
}
