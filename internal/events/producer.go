package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/rspatil/orderdesk/internal/model"
)

// Producer exports order change events for downstream consumers (reporting,
// aggregator reconciliation). It is an export tap off the pipeline, not part
// of the dashboard path; the process runs fine without it.
type Producer interface {
	Start(ctx context.Context)
	Publish(ctx context.Context, ev model.ChangeEvent) error
	Close()
}

type kafkaProducer struct {
	asyncProducer sarama.AsyncProducer
	topic         string
	log           *slog.Logger
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// NewKafkaProducer wraps a sarama async producer. Events are keyed by
// restaurant id so per-restaurant ordering survives partitioning.
func NewKafkaProducer(asyncProducer sarama.AsyncProducer, topic string, log *slog.Logger) Producer {
	return &kafkaProducer{
		asyncProducer: asyncProducer,
		topic:         topic,
		log:           log.With("component", "kafka_producer"),
	}
}

// Start launches background handlers for the success and error channels.
func (p *kafkaProducer) Start(ctx context.Context) {
	p.wg.Add(2)
	go p.handleSuccess(ctx)
	go p.handleErrors(ctx)
}

func (p *kafkaProducer) handleSuccess(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case msg, ok := <-p.asyncProducer.Successes():
			if !ok {
				return
			}
			p.log.Debug("order event delivered",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset))
		case <-ctx.Done():
			return
		}
	}
}

func (p *kafkaProducer) handleErrors(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case err, ok := <-p.asyncProducer.Errors():
			if !ok {
				return
			}
			p.log.Error("order event delivery failed",
				slog.String("topic", err.Msg.Topic),
				slog.Any("error", err.Err))
		case <-ctx.Done():
			return
		}
	}
}

func (p *kafkaProducer) Publish(ctx context.Context, ev model.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(ev.Order.RestaurantID),
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
	}

	select {
	case p.asyncProducer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *kafkaProducer) Close() {
	p.closeOnce.Do(func() {
		p.asyncProducer.AsyncClose()
		p.wg.Wait()
		p.log.Info("kafka producer closed")
	})
}

// NewAsyncProducer builds the sarama producer with the delivery guarantees
// the export needs.
func NewAsyncProducer(brokers []string) (sarama.AsyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.ClientID = "orderdesk-producer"
	return sarama.NewAsyncProducer(brokers, cfg)
}

// Noop discards every event. Used when no Kafka brokers are configured.
type Noop struct{}

func (Noop) Start(context.Context) {}

func (Noop) Publish(context.Context, model.ChangeEvent) error { return nil }

func (Noop) Close() {}
