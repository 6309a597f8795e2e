package wager

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service owns the wager lifecycle state machine and is the only writer of
// balances. Every balance-affecting operation runs inside a single store
// transaction with the account row locked first, so concurrent operations
// against the same user serialize instead of interleaving their reads and
// writes.
type Service struct {
	store  Store
	odds   OddsSource
	nowFn  func() int64
	idFn   func() string
	logger OperationLogger
}

// NewService wires a Service.
func NewService(store Store, odds OddsSource, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if odds == nil {
		return nil, fmt.Errorf("%w: odds source dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, odds: odds, nowFn: now, idFn: uuid.NewString}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateAccount registers a user with a starting balance. The starting
// balance is recorded as a grant ledger entry so the double-entry invariant
// holds from the first row.
func (service *Service) CreateAccount(ctx context.Context, userID UserID, startingBalance AmountCents) (Account, error) {
	account := Account{
		UserID:         userID,
		BalanceCents:   startingBalance,
		CreatedUnixUTC: service.nowFn(),
	}
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if err := transactionStore.CreateAccount(ctx, account); err != nil {
			return err
		}
		if startingBalance == 0 {
			return nil
		}
		return transactionStore.InsertLedgerEntry(ctx, LedgerEntry{
			UserID:         userID,
			DeltaCents:     startingBalance.Int64(),
			Reason:         ReasonGrant,
			CreatedUnixUTC: account.CreatedUnixUTC,
		})
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateAccount,
		UserID:    userID,
		Amount:    startingBalance,
		Error:     operationError,
	})
	if operationError != nil {
		return Account{}, operationError
	}
	return account, nil
}

// Balance returns the user's current balance.
func (service *Service) Balance(ctx context.Context, userID UserID) (AmountCents, error) {
	account, err := service.store.GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.BalanceCents, nil
}

// PlaceWager validates a placement request and atomically debits the stake
// while inserting the pending wager. The moneyline price is fetched from the
// odds source once, before the transaction, and frozen on the wager.
func (service *Service) PlaceWager(ctx context.Context, request PlaceWagerRequest) (Wager, error) {
	price, err := service.lookupPrice(ctx, request.EventID, request.Selection)
	if err != nil {
		service.logOperation(ctx, OperationLog{
			Operation: operationPlace,
			UserID:    request.UserID,
			EventID:   request.EventID,
			Amount:    request.Stake.ToAmountCents(),
			Error:     err,
		})
		return Wager{}, err
	}

	wagerID, err := NewWagerID(service.idFn())
	if err != nil {
		return Wager{}, err
	}
	placed := Wager{
		WagerID:          wagerID,
		UserID:           request.UserID,
		EventID:          request.EventID,
		Selection:        request.Selection,
		StakeCents:       request.Stake,
		PriceAtPlacement: price,
		State:            WagerStatePending,
		PlacedUnixUTC:    service.nowFn(),
	}

	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		account, err := transactionStore.AccountForUpdate(ctx, request.UserID)
		if err != nil {
			return err
		}
		if account.BalanceCents < request.Stake.ToAmountCents() {
			return ErrInsufficientFunds
		}
		pendingExists, err := transactionStore.HasPendingWager(ctx, request.UserID, request.EventID)
		if err != nil {
			return err
		}
		if pendingExists {
			return ErrDuplicateWager
		}
		if err := transactionStore.AddToBalance(ctx, request.UserID, -request.Stake.Int64()); err != nil {
			return err
		}
		if err := transactionStore.InsertWager(ctx, placed); err != nil {
			return err
		}
		return transactionStore.InsertLedgerEntry(ctx, LedgerEntry{
			UserID:         request.UserID,
			DeltaCents:     -request.Stake.Int64(),
			Reason:         ReasonStake,
			WagerID:        &wagerID,
			MetadataJSON:   request.Metadata,
			CreatedUnixUTC: placed.PlacedUnixUTC,
		})
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationPlace,
		UserID:    request.UserID,
		EventID:   request.EventID,
		WagerID:   wagerID,
		Amount:    request.Stake.ToAmountCents(),
		Error:     operationError,
	})
	if operationError != nil {
		return Wager{}, operationError
	}
	return placed, nil
}

// CancelWager refunds a pending wager and transitions it to cancelled. A
// wager that already reached a terminal state is returned unchanged: a late
// cancel after settlement is a benign no-op, not an authorization failure.
func (service *Service) CancelWager(ctx context.Context, userID UserID, wagerID WagerID) (Wager, error) {
	var (
		cancelled Wager
		noop      bool
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		record, err := transactionStore.WagerForUpdate(ctx, wagerID)
		if err != nil {
			return err
		}
		if record.UserID != userID {
			return ErrNotOwner
		}
		if record.State.Terminal() {
			cancelled = record
			noop = true
			return nil
		}
		if _, err := transactionStore.AccountForUpdate(ctx, userID); err != nil {
			return err
		}
		settledAt := service.nowFn()
		if err := transactionStore.TransitionWager(ctx, wagerID, WagerStatePending, WagerStateCancelled, 0, 0, settledAt); err != nil {
			return err
		}
		if err := transactionStore.AddToBalance(ctx, userID, record.StakeCents.Int64()); err != nil {
			return err
		}
		if err := transactionStore.InsertLedgerEntry(ctx, LedgerEntry{
			UserID:         userID,
			DeltaCents:     record.StakeCents.Int64(),
			Reason:         ReasonRefund,
			WagerID:        &wagerID,
			CreatedUnixUTC: settledAt,
		}); err != nil {
			return err
		}
		record.State = WagerStateCancelled
		record.SettledUnixUTC = settledAt
		cancelled = record
		return nil
	})
	logEntry := OperationLog{
		Operation: operationCancel,
		UserID:    userID,
		WagerID:   wagerID,
		Amount:    cancelled.StakeCents.ToAmountCents(),
		Error:     operationError,
	}
	if noop {
		logEntry.Status = operationStatusNoop
	}
	service.logOperation(ctx, logEntry)
	if operationError != nil {
		return Wager{}, operationError
	}
	return cancelled, nil
}

// SettleWager resolves a pending wager to a terminal outcome exactly once.
// Calling it again for the same wager returns the recorded result without
// mutating anything, which lets the dispatcher absorb re-delivered
// completion events and post-crash retries.
func (service *Service) SettleWager(ctx context.Context, wagerID WagerID, outcome Outcome) (SettlementResult, error) {
	var result SettlementResult
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		record, err := transactionStore.WagerForUpdate(ctx, wagerID)
		if err != nil {
			return err
		}
		if record.State.Terminal() {
			account, err := transactionStore.GetAccount(ctx, record.UserID)
			if err != nil {
				return err
			}
			result = settlementResult(record, account.BalanceCents, true)
			return nil
		}
		account, err := transactionStore.AccountForUpdate(ctx, record.UserID)
		if err != nil {
			return err
		}

		var (
			profit AmountCents
			payout AmountCents
			reason LedgerReason
		)
		switch outcome {
		case OutcomeWon:
			profit = ProfitCents(record.StakeCents, record.PriceAtPlacement)
			payout = record.StakeCents.ToAmountCents() + profit
			reason = ReasonPayout
		case OutcomePushed:
			payout = record.StakeCents.ToAmountCents()
			reason = ReasonRefund
		case OutcomeLost:
			// Stake was debited at placement; nothing to credit.
		default:
			return fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
		}

		settledAt := service.nowFn()
		if err := transactionStore.TransitionWager(ctx, wagerID, WagerStatePending, outcome.State(), profit, payout, settledAt); err != nil {
			return err
		}
		if payout > 0 {
			if err := transactionStore.AddToBalance(ctx, record.UserID, payout.Int64()); err != nil {
				return err
			}
			if err := transactionStore.InsertLedgerEntry(ctx, LedgerEntry{
				UserID:         record.UserID,
				DeltaCents:     payout.Int64(),
				Reason:         reason,
				WagerID:        &wagerID,
				CreatedUnixUTC: settledAt,
			}); err != nil {
				return err
			}
		}

		record.State = outcome.State()
		record.ProfitCents = profit
		record.PayoutCents = payout
		record.SettledUnixUTC = settledAt
		result = settlementResult(record, account.BalanceCents+payout, false)
		return nil
	})
	logEntry := OperationLog{
		Operation: operationSettle,
		UserID:    result.UserID,
		EventID:   result.EventID,
		WagerID:   wagerID,
		Amount:    result.PayoutCents,
		Error:     operationError,
	}
	if result.AlreadySettled {
		logEntry.Status = operationStatusNoop
	}
	service.logOperation(ctx, logEntry)
	if operationError != nil {
		return SettlementResult{}, operationError
	}
	return result, nil
}

func (service *Service) lookupPrice(ctx context.Context, eventID EventID, selection Selection) (Price, error) {
	quotes, err := service.odds.GetOdds(ctx, eventID)
	if err != nil {
		return 0, err
	}
	for _, quote := range quotes {
		if quote.Selection == selection {
			return quote.Price, nil
		}
	}
	return 0, fmt.Errorf("%w: %s on event %s", ErrUnknownSelection, selection.String(), eventID.String())
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func settlementResult(record Wager, balance AmountCents, alreadySettled bool) SettlementResult {
	return SettlementResult{
		WagerID:        record.WagerID,
		UserID:         record.UserID,
		EventID:        record.EventID,
		Selection:      record.Selection,
		State:          record.State,
		StakeCents:     record.StakeCents,
		ProfitCents:    record.ProfitCents,
		PayoutCents:    record.PayoutCents,
		BalanceCents:   balance,
		AlreadySettled: alreadySettled,
	}
}
