// Package events publishes completed analyses to Kafka for downstream
// consumers (dashboards, moderation queues).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/charmbracelet/log"

	"github.com/ppiankov/truthlens/internal/cache"
	"github.com/ppiankov/truthlens/internal/logging"
	"github.com/ppiankov/truthlens/internal/model"
)

// AnalysisEvent is the message value published for each completed analysis
type AnalysisEvent struct {
	Content     string               `json:"content"`
	ContentType model.ContentType    `json:"contentType"`
	Result      model.AnalysisResult `json:"result"`
	PublishedAt string               `json:"publishedAt"`
}

// KafkaPublisher sends AnalysisEvents to a topic. Publish failures are
// logged and never reach the submitter.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *log.Logger
	now      func() time.Time
}

// NewKafkaPublisher connects a synchronous producer to brokers
func NewKafkaPublisher(brokers []string, topic string, logger *log.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}

	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic, logger), nil
}

// NewProducerConfig returns the producer settings used for analysis events
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	return cfg
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *log.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logging.OrDiscard(logger),
		now:      time.Now,
	}
}

// Publish sends one event keyed by the submission's content hash, so
// repeated checks of the same content land on the same partition
func (p *KafkaPublisher) Publish(sub model.Submission, result model.AnalysisResult) error {
	value, err := json.Marshal(AnalysisEvent{
		Content:     sub.Content,
		ContentType: sub.ContentType,
		Result:      result,
		PublishedAt: p.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(cache.ContentHash(sub)),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	p.logger.Debug("published analysis event", "topic", p.topic, "partition", partition, "offset", offset)
	return nil
}

// ObserveResult publishes a completed analysis, logging failures
func (p *KafkaPublisher) ObserveResult(ctx context.Context, sub model.Submission, result model.AnalysisResult) {
	if err := p.Publish(sub, result); err != nil {
		p.logger.Warn("failed to publish analysis event", "topic", p.topic, "err", err)
	}
}

// Close flushes and closes the producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
