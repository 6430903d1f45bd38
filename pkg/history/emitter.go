package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/wallet-go/pkg/txparse"
)

// EventKind classifies a transaction lifecycle event.
type EventKind string

const (
	// EventBroadcast fires when a transaction is accepted by the network
	EventBroadcast EventKind = "broadcast"
	// EventConfirmed fires when a pending transaction is mined
	EventConfirmed EventKind = "confirmed"
	// EventFailed fires when a mined receipt reports failure
	EventFailed EventKind = "failed"
	// EventSuperseded fires when a pending transaction is replaced
	EventSuperseded EventKind = "superseded"
)

// TransactionEvent is the payload published for every lifecycle change.
type TransactionEvent struct {
	Kind      EventKind      `json:"kind"`
	Account   string         `json:"account"`
	Network   string         `json:"network"`
	Hash      string         `json:"hash"`
	Nonce     uint64         `json:"nonce"`
	Status    txparse.Status `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
}

// Emitter publishes transaction lifecycle events to interested consumers.
type Emitter interface {
	Emit(ctx context.Context, event TransactionEvent) error
	Close() error
}

// KafkaEmitter implements Emitter on a Kafka topic, keyed by transaction
// hash so events for one transaction stay ordered within a partition.
type KafkaEmitter struct {
	writer *kafka.Writer
	logger *logrus.Logger
	mu     sync.Mutex
}

// NewKafkaEmitter creates an emitter writing to the given broker and topic.
func NewKafkaEmitter(logger *logrus.Logger, brokerAddress, topic string) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerAddress),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

// Emit implements Emitter.
func (k *KafkaEmitter) Emit(ctx context.Context, event TransactionEvent) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Hash),
		Value: value,
	}); err != nil {
		return err
	}

	k.logger.WithFields(logrus.Fields{
		"kind":    event.Kind,
		"tx_hash": event.Hash,
		"network": event.Network,
	}).Debug("Emitted transaction event")
	return nil
}

// Close implements Emitter.
func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		return k.writer.Close()
	}
	return nil
}

// NopEmitter discards events. Used in tests and when no broker is configured.
type NopEmitter struct{}

// Emit implements Emitter.
func (NopEmitter) Emit(context.Context, TransactionEvent) error { return nil }

// Close implements Emitter.
func (NopEmitter) Close() error { return nil }
