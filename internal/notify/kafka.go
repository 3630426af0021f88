package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"aip/internal/verification/models"
)

// KafkaPublisher produces verification events to a single topic.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type KafkaOption func(*kafkaOptions)

type kafkaOptions struct {
	logger       *slog.Logger
	clientID     string
	produceRetry time.Duration
	extra        []kgo.Opt
}

func WithLogger(logger *slog.Logger) KafkaOption {
	return func(o *kafkaOptions) {
		o.logger = logger
	}
}

func WithClientID(clientID string) KafkaOption {
	return func(o *kafkaOptions) {
		if clientID != "" {
			o.clientID = clientID
		}
	}
}

// WithClientOpts passes additional franz-go options through to the client.
func WithClientOpts(opts ...kgo.Opt) KafkaOption {
	return func(o *kafkaOptions) {
		o.extra = append(o.extra, opts...)
	}
}

func NewKafkaPublisher(brokers []string, topic string, opts ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	o := kafkaOptions{
		logger:       slog.Default(),
		clientID:     "aip-verification",
		produceRetry: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	kopts := append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(o.clientID),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(o.produceRetry),
	}, o.extra...)
	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic, logger: o.logger}, nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	admin := kadm.NewClient(p.client)
	resps, err := admin.CreateTopics(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, resp := range resps {
		if resp.Err == nil {
			p.logger.InfoContext(ctx, "kafka topic created", "topic", resp.Topic, "partitions", partitions)
			continue
		}
		if errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			continue
		}
		return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
	}
	return nil
}

// Ping checks that at least one broker is reachable.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Publish writes the event and waits for the broker acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, event *models.Event) error {
	key, value, err := Encode(event)
	if err != nil {
		return err
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   key,
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce verification event: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the client.
func (p *KafkaPublisher) Close(ctx context.Context) {
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("failed to flush kafka producer", "error", err)
	}
	p.client.Close()
}
