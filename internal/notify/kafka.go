// Package notify announces saved articles to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"github.com/IshaanNene/newsharvest/internal/config"
	"github.com/IshaanNene/newsharvest/internal/types"
)

// KafkaPublisher sends each saved article to a Kafka topic, keyed by href so
// updates to the same article land on the same partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	sent     atomic.Int64
	now      func() time.Time
	logger   *slog.Logger
}

// NewKafkaPublisher connects a synchronous producer to cfg.Brokers.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	sc := sarama.NewConfig()
	sc.ClientID = "newsharvest"
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	sc.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.Topic, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(p sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: p,
		topic:    topic,
		now:      time.Now,
		logger:   logger.With("component", "kafka_publisher", "topic", topic),
	}
}

// Publish sends a as JSON. The producer call blocks until the broker acks.
// The event is stamped with the publish time when a carries no update time;
// a itself is not modified.
func (k *KafkaPublisher) Publish(ctx context.Context, a *types.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := k.now()
	event := *a
	if event.UpdatedTime.IsZero() {
		event.UpdatedTime = now
	}

	body, err := json.Marshal(&event)
	if err != nil {
		return fmt.Errorf("encode article %s: %w", a.Href, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(a.Href),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("source"), Value: []byte(a.Source)},
		},
		Timestamp: now,
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka send %s: %w", a.Href, err)
	}

	k.sent.Add(1)
	k.logger.Debug("article published", "href", a.Href, "partition", partition, "offset", offset)
	return nil
}

// Sent returns how many articles were acknowledged by the broker.
func (k *KafkaPublisher) Sent() int64 { return k.sent.Load() }

// Close flushes and closes the producer.
func (k *KafkaPublisher) Close() error {
	k.logger.Info("kafka publisher closing", "sent", k.sent.Load())
	return k.producer.Close()
}
