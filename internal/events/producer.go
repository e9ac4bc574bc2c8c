// Package events publishes comparison summaries to Kafka.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/yourorg/index-compare/internal/model"
)

// Publisher receives a summary of each computed comparison
type Publisher interface {
	PublishComparison(ctx context.Context, event model.ComparisonEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message represents a Kafka message to be sent
type Message struct {
	Key     string
	Value   interface{}
	Headers []kafka.Header
}

// Producer handles producing messages to Kafka topics
type Producer struct {
	mu               sync.Mutex
	writers          map[string]messageWriter
	newWriter        func(topic string) messageWriter
	comparisonsTopic string
	logger           *zap.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, clientID, comparisonsTopic string, logger *zap.Logger) *Producer {
	return &Producer{
		writers: make(map[string]messageWriter),
		newWriter: func(topic string) messageWriter {
			return &kafka.Writer{
				Addr:         kafka.TCP(brokers...),
				Topic:        topic,
				Balancer:     &kafka.LeastBytes{},
				BatchSize:    100,
				BatchTimeout: 10 * time.Millisecond,
				RequiredAcks: kafka.RequireOne,
				Transport: &kafka.Transport{
					ClientID: clientID,
				},
			}
		},
		comparisonsTopic: comparisonsTopic,
		logger:           logger,
	}
}

func (p *Producer) getWriter(topic string) messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, exists := p.writers[topic]; exists {
		return writer
	}
	writer := p.newWriter(topic)
	p.writers[topic] = writer
	return writer
}

// Publish sends a JSON encoded message to a Kafka topic
func (p *Producer) Publish(ctx context.Context, topic string, msg Message) error {
	writer := p.getWriter(topic)

	jsonValue, err := json.Marshal(msg.Value)
	if err != nil {
		p.logger.Error("Failed to marshal message",
			zap.String("topic", topic),
			zap.Error(err))
		return err
	}

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.Key),
		Value:   jsonValue,
		Headers: msg.Headers,
		Time:    time.Now(),
	})
	if err != nil {
		p.logger.Error("Failed to publish message",
			zap.String("topic", topic),
			zap.String("key", msg.Key),
			zap.Error(err))
		return err
	}

	p.logger.Debug("Message published",
		zap.String("topic", topic),
		zap.String("key", msg.Key))
	return nil
}

// PublishComparison publishes a comparison summary keyed by its date range
func (p *Producer) PublishComparison(ctx context.Context, event model.ComparisonEvent) error {
	return p.Publish(ctx, p.comparisonsTopic, Message{
		Key:   event.StartDate + "-" + event.EndDate,
		Value: event,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte("comparison.computed")},
		},
	})
}

// Close closes all Kafka writers
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			p.logger.Error("Failed to close Kafka writer",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}
	return nil
}

// NoopPublisher discards every event, used when Kafka is not configured
type NoopPublisher struct{}

func (NoopPublisher) PublishComparison(context.Context, model.ComparisonEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
