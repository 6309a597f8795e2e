// Package oplog bridges the wager service's operation callbacks to zap.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
	"go.uber.org/zap"
)

// ZapLogger implements wager.OperationLogger on a zap logger.
type ZapLogger struct {
	logger *zap.Logger
}

// New wires a ZapLogger.
func New(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

func (adapter *ZapLogger) LogOperation(_ context.Context, entry wager.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.String("user_id", entry.UserID.String()),
		zap.Int64("amount_cents", entry.Amount.Int64()),
	}
	if entry.EventID.String() != "" {
		fields = append(fields, zap.String("event_id", entry.EventID.String()))
	}
	if entry.WagerID.String() != "" {
		fields = append(fields, zap.String("wager_id", entry.WagerID.String()))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		adapter.logger.Warn("wager operation", fields...)
		return
	}
	adapter.logger.Info("wager operation", fields...)
}
