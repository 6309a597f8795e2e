// Package trigger consumes the external scheduler's event-completion topic
// and drives the settlement dispatcher. When to check for completed games is
// the scheduler's concern; this package only reacts.
package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/wagerbook/internal/settlement"
	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const defaultGroupID = "wagerbook-settlement"

// EventCompleted is the message shape published when a game finishes.
type EventCompleted struct {
	EventID  string `json:"event_id"`
	Outcome  string `json:"outcome"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}

// Consumer reads event completions from kafka and fans them into the
// dispatcher.
type Consumer struct {
	reader     *kafkago.Reader
	dispatcher *settlement.Dispatcher
	logger     *zap.Logger
}

// NewReader builds a kafka reader for the completion topic.
func NewReader(brokers string, topic string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        strings.Split(brokers, ","),
		Topic:          topic,
		GroupID:        defaultGroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}

// NewConsumer wires a Consumer.
func NewConsumer(reader *kafkago.Reader, dispatcher *settlement.Dispatcher, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: reader, dispatcher: dispatcher, logger: logger}
}

// Run consumes messages until the context is cancelled. A malformed message
// is logged and dropped; a dispatch failure is logged and the message is
// still committed, because re-delivering it cannot fix a persistent store
// problem and settlement is idempotent when the trigger fires again.
func (consumer *Consumer) Run(ctx context.Context) error {
	for {
		message, err := consumer.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			consumer.logger.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		eventID, outcome, err := decodeCompletion(message.Value)
		if err != nil {
			consumer.logger.Error("drop malformed completion message", zap.Error(err))
			continue
		}
		if err := consumer.dispatcher.OnEventCompleted(ctx, eventID, outcome); err != nil {
			consumer.logger.Error("event completion dispatch failed",
				zap.String("event_id", eventID.String()),
				zap.Error(err),
			)
		}
	}
}

// Close releases the underlying reader.
func (consumer *Consumer) Close() error {
	return consumer.reader.Close()
}

func decodeCompletion(raw []byte) (wager.EventID, wager.Outcome, error) {
	var completed EventCompleted
	if err := json.Unmarshal(raw, &completed); err != nil {
		return wager.EventID{}, "", fmt.Errorf("decode event completion: %w", err)
	}
	eventID, err := wager.NewEventID(completed.EventID)
	if err != nil {
		return wager.EventID{}, "", err
	}
	outcome, err := wager.ParseOutcome(completed.Outcome)
	if err != nil {
		return wager.EventID{}, "", err
	}
	return eventID, outcome, nil
}
