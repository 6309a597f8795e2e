package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/wagerbook/internal/metrics"
	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
	"go.uber.org/zap"
)

const defaultNotifyTimeout = 5 * time.Second

// Settler is the slice of the wager service the dispatcher drives.
type Settler interface {
	PendingForEvent(ctx context.Context, eventID wager.EventID) ([]wager.Wager, error)
	SettleWager(ctx context.Context, wagerID wager.WagerID, outcome wager.Outcome) (wager.SettlementResult, error)
}

// Notifier delivers a settlement result to the chat collaborator. Delivery is
// best effort: settlement is committed before Notify runs and a failure here
// is logged and swallowed, never rolled back into the ledger.
type Notifier interface {
	Notify(ctx context.Context, userID wager.UserID, result wager.SettlementResult) error
}

// Dispatcher consumes event completions and settles every pending wager on
// the event exactly once.
type Dispatcher struct {
	settler       Settler
	notifier      Notifier
	logger        *zap.Logger
	notifyTimeout time.Duration
	inflight      sync.WaitGroup
}

// New wires a Dispatcher.
func New(settler Settler, notifier Notifier, logger *zap.Logger) (*Dispatcher, error) {
	if settler == nil {
		return nil, fmt.Errorf("dispatcher: settler dependency is nil")
	}
	if notifier == nil {
		return nil, fmt.Errorf("dispatcher: notifier dependency is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		settler:       settler,
		notifier:      notifier,
		logger:        logger,
		notifyTimeout: defaultNotifyTimeout,
	}, nil
}

// OnEventCompleted settles all pending wagers on the event. A single bad row
// is logged and skipped so it cannot block the rest, and re-delivery of the
// same completion is absorbed by the idempotency of SettleWager. The returned
// error is non-nil only when the pending set could not be loaded at all.
func (dispatcher *Dispatcher) OnEventCompleted(ctx context.Context, eventID wager.EventID, outcome wager.Outcome) error {
	pending, err := dispatcher.settler.PendingForEvent(ctx, eventID)
	if err != nil {
		metrics.SettlementFailures.Inc()
		return fmt.Errorf("load pending wagers for event %s: %w", eventID.String(), err)
	}
	if len(pending) == 0 {
		dispatcher.logger.Debug("no pending wagers for completed event", zap.String("event_id", eventID.String()))
		return nil
	}

	for _, record := range pending {
		result, err := dispatcher.settler.SettleWager(ctx, record.WagerID, outcome)
		if err != nil {
			metrics.SettlementFailures.Inc()
			dispatcher.logger.Error("wager settlement failed",
				zap.String("event_id", eventID.String()),
				zap.String("wager_id", record.WagerID.String()),
				zap.String("user_id", record.UserID.String()),
				zap.Error(err),
			)
			continue
		}
		if result.AlreadySettled {
			continue
		}
		metrics.WagersSettled.WithLabelValues(result.State.String()).Inc()
		dispatcher.inflight.Add(1)
		go dispatcher.notify(result)
	}
	return nil
}

// Wait blocks until in-flight notifications drain. Called at shutdown.
func (dispatcher *Dispatcher) Wait() {
	dispatcher.inflight.Wait()
}

func (dispatcher *Dispatcher) notify(result wager.SettlementResult) {
	defer dispatcher.inflight.Done()
	ctx, cancel := context.WithTimeout(context.Background(), dispatcher.notifyTimeout)
	defer cancel()
	if err := dispatcher.notifier.Notify(ctx, result.UserID, result); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		dispatcher.logger.Warn("settlement notification failed",
			zap.String("wager_id", result.WagerID.String()),
			zap.String("user_id", result.UserID.String()),
			zap.Error(err),
		)
		return
	}
	metrics.Notifications.WithLabelValues("delivered").Inc()
}
