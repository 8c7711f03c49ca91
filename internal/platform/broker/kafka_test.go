package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilProducerDropsEvents(t *testing.T) {
	var p *KafkaProducer
	assert.NoError(t, p.Publish(context.Background(), "1", map[string]string{"type": "x"}))
	assert.NoError(t, p.Close())
}

func TestNewKafkaProducerUsesTopic(t *testing.T) {
	p := NewKafkaProducer(&Config{Brokers: []string{"localhost:9092"}, Topic: "recipes.events"})
	assert.Equal(t, "recipes.events", p.writer.Topic)
	assert.NoError(t, p.Close())
}
