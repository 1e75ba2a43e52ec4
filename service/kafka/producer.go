package kafka

import (
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"
	pkgerrors "github.com/pkg/errors"

	"chatgate/logger"
	"chatgate/tools/safe"
)

// EventProducer pushes a copy of every persisted chat message to a
// Kafka topic, fire-and-forget, for downstream consumers. Losing an
// event never blocks or fails the originating action.
type EventProducer struct {
	prod  sarama.AsyncProducer
	topic string
}

func buildConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 1
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	cfg.Net.DialTimeout = 10 * time.Second
	return cfg
}

func NewEventProducer(brokers []string, topic string) (*EventProducer, error) {
	if len(brokers) == 0 {
		return nil, pkgerrors.New("kafka brokers missing")
	}
	prod, err := sarama.NewAsyncProducer(brokers, buildConfig())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create kafka producer")
	}
	p := &EventProducer{prod: prod, topic: topic}
	safe.Go(p.drainErrors)
	return p, nil
}

func (p *EventProducer) drainErrors() {
	for err := range p.prod.Errors() {
		logger.Warnf("[kafka] event delivery failed: %v", err)
	}
}

// Emit marshals the message and hands it to the async producer. A
// full queue drops the event rather than blocking the router.
func (p *EventProducer) Emit(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		logger.Warnf("[kafka] marshal event: %v", err)
		return
	}
	pm := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(b),
	}
	select {
	case p.prod.Input() <- pm:
	default:
		logger.Warnf("[kafka] producer queue full, dropping event")
	}
}

func (p *EventProducer) Close() error {
	return p.prod.Close()
}
