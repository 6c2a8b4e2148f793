// Package events publishes fraud assessments to Kafka so downstream
// consumers can audit or react to them. Publication is best effort and
// never affects the HTTP response.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"energy-ml/internal/metrics"
	"energy-ml/internal/model"
)

// EventTypeFraudAssessed is sent in the event_type header.
const EventTypeFraudAssessed = "fraud.assessed"

// FraudAssessed records one scored transaction.
type FraudAssessed struct {
	EventID     uuid.UUID    `json:"event_id"`
	PairID      uuid.UUID    `json:"pair_id"`
	Fraud       bool         `json:"fraud"`
	Probability float64      `json:"probability"`
	Threshold   float64      `json:"threshold"`
	AssessedAt  time.Time    `json:"assessed_at"`
	Record      model.Record `json:"record"`
}

// NewFraudAssessed stamps a result with a fresh event ID.
func NewFraudAssessed(pairID uuid.UUID, rec model.Record, res model.FraudResult) FraudAssessed {
	return FraudAssessed{
		EventID:     uuid.New(),
		PairID:      pairID,
		Fraud:       res.Fraud,
		Probability: res.Probability,
		Threshold:   res.Threshold,
		AssessedAt:  time.Now().UTC(),
		Record:      rec,
	}
}

// Publisher sends assessments somewhere.
type Publisher interface {
	Publish(ctx context.Context, evts ...FraudAssessed) error
	Close() error
}

// Noop discards events. It is used when publishing is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, ...FraudAssessed) error { return nil }
func (Noop) Close() error                                    { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher writes one message per assessment keyed by event ID.
type KafkaPublisher struct {
	w      messageWriter
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher creates an asynchronous writer: Publish returns once
// messages are queued and delivery results are only logged and counted.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireOne,
		Async:        true,
		Completion: func(msgs []kafkago.Message, err error) {
			for range msgs {
				metrics.IncEventPublish(err == nil)
			}
			if err != nil {
				logger.Warn("failed to deliver events",
					slog.String("topic", topic),
					slog.Int("count", len(msgs)),
					slog.Any("error", err))
			}
		},
	}
	return newKafkaPublisher(w, topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{w: w, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evts ...FraudAssessed) error {
	if len(evts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(evts))
	for _, evt := range evts {
		payload, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", evt.EventID, err)
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(evt.EventID.String()),
			Value: payload,
			Headers: []kafkago.Header{
				{Key: "event_type", Value: []byte(EventTypeFraudAssessed)},
			},
		})
	}

	p.logger.DebugContext(ctx, "publishing events",
		slog.String("topic", p.topic),
		slog.Int("count", len(msgs)))

	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish events to topic %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
