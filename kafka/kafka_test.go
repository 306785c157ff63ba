package kafka_test

import (
	"testing"

	"github.com/bignyap/tenantstore/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")

	cfg, err := kafka.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost:9092", cfg.Brokers)
	assert.Equal(t, "tenantstore.audit", cfg.Topic)
}

func TestBrokerAddresses(t *testing.T) {
	cfg := kafka.Config{Brokers: "b1:9092, b2:9092, ,b3:9092"}
	assert.Equal(t, []string{"b1:9092", "b2:9092", "b3:9092"}, cfg.BrokerAddresses())
}
