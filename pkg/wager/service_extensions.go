package wager

import "context"

// ActiveWagers lists the user's pending wagers, newest first.
func (service *Service) ActiveWagers(ctx context.Context, userID UserID) ([]Wager, error) {
	if _, err := service.store.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	return service.store.PendingWagersByUser(ctx, userID)
}

// PendingForEvent lists every pending wager riding on an event. The
// settlement dispatcher uses it for fan-out when the event completes.
func (service *Service) PendingForEvent(ctx context.Context, eventID EventID) ([]Wager, error) {
	return service.store.PendingWagersByEvent(ctx, eventID)
}

// GetWager returns a single wager by id.
func (service *Service) GetWager(ctx context.Context, wagerID WagerID) (Wager, error) {
	return service.store.GetWager(ctx, wagerID)
}

// ListLedgerEntries lists an account's balance-affecting deltas before a
// cutoff time, newest first.
func (service *Service) ListLedgerEntries(ctx context.Context, userID UserID, beforeUnixUTC int64, limit int) ([]LedgerEntry, error) {
	if _, err := service.store.GetAccount(ctx, userID); err != nil {
		return nil, err
	}
	return service.store.ListLedgerEntries(ctx, userID, beforeUnixUTC, limit)
}

// UserStats aggregates a user's settled wager history.
func (service *Service) UserStats(ctx context.Context, userID UserID) (Stats, error) {
	if _, err := service.store.GetAccount(ctx, userID); err != nil {
		return Stats{}, err
	}
	return service.store.UserStats(ctx, userID)
}

// Scoreboard ranks accounts by balance. Rankings are computed by store
// aggregation on demand; nothing is accumulated in process memory.
func (service *Service) Scoreboard(ctx context.Context, limit int) ([]ScoreboardEntry, error) {
	return service.store.Scoreboard(ctx, limit)
}
