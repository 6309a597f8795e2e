package wager

import (
	"context"
	"testing"
)

type recorderLogger struct {
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.entries = append(logger.entries, entry)
}

func TestServiceLogsPlacement(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	odds := newStubOdds()
	odds.add("event-1", "home", 150)
	logger := &recorderLogger{}
	service, err := NewService(store, odds, func() int64 { return 42 }, WithOperationLogger(logger))
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	userID := mustUserID(test, "logged-user")
	store.seedAccount(test, userID, 500)

	placed, err := service.PlaceWager(context.Background(), mustPlaceRequest(test, "logged-user", "event-1", "home", 200))
	if err != nil {
		test.Fatalf("place wager: %v", err)
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	entry := logger.entries[0]
	if entry.Operation != operationPlace || entry.UserID != userID || entry.WagerID != placed.WagerID {
		test.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.Amount != 200 || entry.Status != operationStatusOK || entry.Error != nil {
		test.Fatalf("expected successful placement entry, got %+v", entry)
	}
}

func TestServiceLogsErrorStatus(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	odds := newStubOdds()
	odds.add("event-1", "home", 150)
	logger := &recorderLogger{}
	service, err := NewService(store, odds, func() int64 { return 1 }, WithOperationLogger(logger))
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}

	_, err = service.PlaceWager(context.Background(), mustPlaceRequest(test, "missing-user", "event-1", "home", 100))
	if err == nil {
		test.Fatalf("expected error for unknown account")
	}
	if len(logger.entries) != 1 {
		test.Fatalf("expected one log entry, got %d", len(logger.entries))
	}
	if logger.entries[0].Status != operationStatusError || logger.entries[0].Error == nil {
		test.Fatalf("expected error log entry, got %+v", logger.entries[0])
	}
}

func TestServiceLogsNoopOnRepeatSettle(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	odds := newStubOdds()
	odds.add("event-1", "home", 150)
	logger := &recorderLogger{}
	service, err := NewService(store, odds, func() int64 { return 7 }, WithOperationLogger(logger))
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	userID := mustUserID(test, "noop-user")
	store.seedAccount(test, userID, 500)

	placed, err := service.PlaceWager(context.Background(), mustPlaceRequest(test, "noop-user", "event-1", "home", 100))
	if err != nil {
		test.Fatalf("place wager: %v", err)
	}
	if _, err := service.SettleWager(context.Background(), placed.WagerID, OutcomeWon); err != nil {
		test.Fatalf("first settle: %v", err)
	}
	if _, err := service.SettleWager(context.Background(), placed.WagerID, OutcomeWon); err != nil {
		test.Fatalf("second settle: %v", err)
	}

	last := logger.entries[len(logger.entries)-1]
	if last.Operation != operationSettle || last.Status != operationStatusNoop {
		test.Fatalf("expected noop settle entry, got %+v", last)
	}
}
