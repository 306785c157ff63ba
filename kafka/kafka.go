package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/caarlos0/env"
)

// Config connects the audit pipeline to a Kafka cluster. SASL and TLS
// are enabled together when a username is set, matching managed
// offerings like MSK.
type Config struct {
	Brokers  string `json:"brokers" env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	Topic    string `json:"topic" env:"KAFKA_TOPIC" envDefault:"tenantstore.audit"`
	ClientID string `json:"client_id" env:"KAFKA_CLIENT_ID" envDefault:"tenantstore"`
	GroupID  string `json:"group_id" env:"KAFKA_GROUP_ID" envDefault:"tenantstore-audit"`
	Username string `json:"username" env:"KAFKA_USERNAME"`
	Password string `json:"password" env:"KAFKA_PASSWORD"`
}

// LoadConfig reads broker configuration from environment variables.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load kafka config: %w", err)
	}
	return cfg, nil
}

// BrokerAddresses splits the comma-separated broker list.
func (c Config) BrokerAddresses() []string {
	parts := strings.Split(c.Brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func producerConfig(cfg Config) *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V1_1_0_0
	config.ClientID = cfg.ClientID

	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Retry.Max = 10
	config.Producer.Retry.Backoff = 200 * time.Millisecond
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 500
	config.Producer.Flush.Bytes = 1048576 // 1MB

	applySASL(config, cfg)
	return config
}

func consumerConfig(cfg Config) *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V1_1_0_0
	config.ClientID = cfg.ClientID
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	applySASL(config, cfg)
	return config
}

func applySASL(config *sarama.Config, cfg Config) {
	if cfg.Username == "" {
		return
	}
	config.Net.TLS.Enable = true
	config.Net.SASL.Enable = true
	config.Net.SASL.User = cfg.Username
	config.Net.SASL.Password = cfg.Password
}

// NewSyncProducer builds the producer feeding the kafka audit sink.
func NewSyncProducer(cfg Config) (sarama.SyncProducer, error) {
	producer, err := sarama.NewSyncProducer(cfg.BrokerAddresses(), producerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}

// HandlerFunc processes one consumed message.
type HandlerFunc func(msg *sarama.ConsumerMessage) error

// Consumer reads audit entries back out of the topic, e.g. for a
// compliance export job.
type Consumer struct {
	group sarama.ConsumerGroup
	topic string
}

func NewConsumer(cfg Config) (*Consumer, error) {
	group, err := sarama.NewConsumerGroup(cfg.BrokerAddresses(), cfg.GroupID, consumerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer group: %w", err)
	}
	return &Consumer{group: group, topic: cfg.Topic}, nil
}

// Start consumes until the context is cancelled.
func (c *Consumer) Start(ctx context.Context, handler HandlerFunc) error {
	cgh := &consumerGroupHandler{handler: handler}
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, cgh); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler HandlerFunc
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.handler(msg); err != nil {
			continue
		}
		session.MarkMessage(msg, "")
	}
	return nil
}
