// Package events provides transcript event publishing.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voicenote-transcriber/internal/observability/metrics"
)

// Publisher publishes transcript events to separate Kafka topics: one for
// word-append deltas and one for status transitions. When Kafka is disabled
// it degrades to log-only mode.
type Publisher struct {
	writerWords  *kafka.Writer
	writerStatus *kafka.Writer
	principal    string
	topicWords   string
	topicStatus  string
	enabled      bool
	metrics      *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers     []string
	TopicWords  string
	TopicStatus string
	Principal   string
	Enabled     bool
}

// New creates a new Kafka event publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:   cfg.Principal,
			topicWords:  cfg.TopicWords,
			topicStatus: cfg.TopicStatus,
			enabled:     false,
			metrics:     m,
		}
	}

	// Longer dial timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerWords := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicWords,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerStatus := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicStatus,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicWords", cfg.TopicWords).
		Str("topicStatus", cfg.TopicStatus).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerWords:  writerWords,
		writerStatus: writerStatus,
		principal:    cfg.Principal,
		topicWords:   cfg.TopicWords,
		topicStatus:  cfg.TopicStatus,
		enabled:      true,
		metrics:      m,
	}
}

// PublishWords publishes a word-append event keyed by transcript ID.
func (p *Publisher) PublishWords(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerWords, p.topicWords, "words", key, event)
}

// PublishStatus publishes a status transition event keyed by transcript ID.
func (p *Publisher) PublishStatus(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerStatus, p.topicStatus, "status", key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(topic)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerWords != nil {
		if e := p.writerWords.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing words writer")
			err = e
		}
	}
	if p.writerStatus != nil {
		if e := p.writerStatus.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing status writer")
			err = e
		}
	}
	return err
}
