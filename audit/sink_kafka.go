package audit

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/bignyap/tenantstore/apperror"
)

// KafkaSink publishes audit entries to a kafka topic for downstream
// compliance pipelines.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

var _ Sink = (*KafkaSink)(nil)

// NewKafkaSink creates a sink over an existing producer. The producer
// lifecycle belongs to the caller; Close only releases the sink's hold.
func NewKafkaSink(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Write(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return apperror.Internal("failed to marshal audit entry", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(entry.TenantID),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		return apperror.Connection("failed to publish audit entry", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
