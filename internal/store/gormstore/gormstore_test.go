package gormstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestPlaceCancelSettleFlow(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustService(test, store, staticQuotes(test))
	ctx := context.Background()
	userID := mustUserID(test, "flow-user")

	if _, err := service.CreateAccount(ctx, userID, 1000); err != nil {
		test.Fatalf("create account: %v", err)
	}

	placed, err := service.PlaceWager(ctx, placeRequest(test, "flow-user", "event-1", "home", 250))
	if err != nil {
		test.Fatalf("place wager: %v", err)
	}
	mustBalance(test, service, userID, 750)

	cancelled, err := service.CancelWager(ctx, userID, placed.WagerID)
	if err != nil {
		test.Fatalf("cancel wager: %v", err)
	}
	if cancelled.State != wager.WagerStateCancelled {
		test.Fatalf("expected cancelled wager, got %s", cancelled.State)
	}
	mustBalance(test, service, userID, 1000)

	// Cancelled wagers stay on disk as terminal rows.
	stored, err := service.GetWager(ctx, placed.WagerID)
	if err != nil {
		test.Fatalf("get wager: %v", err)
	}
	if stored.State != wager.WagerStateCancelled {
		test.Fatalf("expected stored cancelled state, got %s", stored.State)
	}

	replacement, err := service.PlaceWager(ctx, placeRequest(test, "flow-user", "event-1", "home", 100))
	if err != nil {
		test.Fatalf("place replacement wager: %v", err)
	}
	result, err := service.SettleWager(ctx, replacement.WagerID, wager.OutcomeWon)
	if err != nil {
		test.Fatalf("settle wager: %v", err)
	}
	if result.ProfitCents != 150 || result.PayoutCents != 250 {
		test.Fatalf("expected 150/250 at +150, got %d/%d", result.ProfitCents, result.PayoutCents)
	}
	mustBalance(test, service, userID, 1150)
}

func TestSettleIdempotentAgainstDatabase(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustService(test, store, staticQuotes(test))
	ctx := context.Background()
	userID := mustUserID(test, "idem-user")

	if _, err := service.CreateAccount(ctx, userID, 500); err != nil {
		test.Fatalf("create account: %v", err)
	}
	placed, err := service.PlaceWager(ctx, placeRequest(test, "idem-user", "event-1", "home", 100))
	if err != nil {
		test.Fatalf("place wager: %v", err)
	}
	first, err := service.SettleWager(ctx, placed.WagerID, wager.OutcomeWon)
	if err != nil {
		test.Fatalf("first settle: %v", err)
	}
	second, err := service.SettleWager(ctx, placed.WagerID, wager.OutcomeLost)
	if err != nil {
		test.Fatalf("second settle: %v", err)
	}
	if !second.AlreadySettled {
		test.Fatalf("expected replay of recorded result")
	}
	if second.State != wager.WagerStateWon || second.PayoutCents != first.PayoutCents {
		test.Fatalf("expected recorded won result, got %+v", second)
	}
	mustBalance(test, service, userID, 650)
}

func TestPendingWagerUniqueIndex(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ctx := context.Background()

	record := storedWager(test, "unique-user", "event-9", "w-1")
	if err := store.InsertWager(ctx, record); err != nil {
		test.Fatalf("first insert: %v", err)
	}
	duplicate := storedWager(test, "unique-user", "event-9", "w-2")
	err := store.InsertWager(ctx, duplicate)
	if !errors.Is(err, wager.ErrDuplicateWager) {
		test.Fatalf("expected ErrDuplicateWager from unique index, got %v", err)
	}

	// Settled rows release the slot for a fresh pending wager.
	if err := store.TransitionWager(ctx, record.WagerID, wager.WagerStatePending, wager.WagerStateWon, 10, 20, time.Now().Unix()); err != nil {
		test.Fatalf("transition: %v", err)
	}
	if err := store.InsertWager(ctx, duplicate); err != nil {
		test.Fatalf("insert after settlement: %v", err)
	}
}

func TestTransitionWagerRequiresPendingState(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ctx := context.Background()

	record := storedWager(test, "cas-user", "event-2", "cas-1")
	if err := store.InsertWager(ctx, record); err != nil {
		test.Fatalf("insert: %v", err)
	}
	if err := store.TransitionWager(ctx, record.WagerID, wager.WagerStatePending, wager.WagerStateLost, 0, 0, time.Now().Unix()); err != nil {
		test.Fatalf("first transition: %v", err)
	}
	err := store.TransitionWager(ctx, record.WagerID, wager.WagerStatePending, wager.WagerStateWon, 10, 20, time.Now().Unix())
	if !errors.Is(err, wager.ErrWagerNotPending) {
		test.Fatalf("expected ErrWagerNotPending, got %v", err)
	}
}

func TestLedgerEntriesSumToBalance(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustService(test, store, staticQuotes(test))
	ctx := context.Background()
	userID := mustUserID(test, "sum-user")

	if _, err := service.CreateAccount(ctx, userID, 2000); err != nil {
		test.Fatalf("create account: %v", err)
	}
	first, err := service.PlaceWager(ctx, placeRequest(test, "sum-user", "event-1", "home", 300))
	if err != nil {
		test.Fatalf("place first: %v", err)
	}
	if _, err := service.SettleWager(ctx, first.WagerID, wager.OutcomeWon); err != nil {
		test.Fatalf("settle first: %v", err)
	}
	second, err := service.PlaceWager(ctx, placeRequest(test, "sum-user", "event-2", "away", 500))
	if err != nil {
		test.Fatalf("place second: %v", err)
	}
	if _, err := service.CancelWager(ctx, userID, second.WagerID); err != nil {
		test.Fatalf("cancel second: %v", err)
	}
	third, err := service.PlaceWager(ctx, placeRequest(test, "sum-user", "event-2", "away", 400))
	if err != nil {
		test.Fatalf("place third: %v", err)
	}
	if _, err := service.SettleWager(ctx, third.WagerID, wager.OutcomeLost); err != nil {
		test.Fatalf("settle third: %v", err)
	}

	entries, err := store.ListLedgerEntries(ctx, userID, 0, 100)
	if err != nil {
		test.Fatalf("list entries: %v", err)
	}
	var sum int64
	for _, entry := range entries {
		sum += entry.DeltaCents
	}
	balance, err := service.Balance(ctx, userID)
	if err != nil {
		test.Fatalf("balance: %v", err)
	}
	if sum != balance.Int64() {
		test.Fatalf("ledger sum %d does not equal balance %d", sum, balance.Int64())
	}
}

func TestUserStatsAggregation(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustService(test, store, staticQuotes(test))
	ctx := context.Background()
	userID := mustUserID(test, "stats-user")

	if _, err := service.CreateAccount(ctx, userID, 5000); err != nil {
		test.Fatalf("create account: %v", err)
	}
	win, err := service.PlaceWager(ctx, placeRequest(test, "stats-user", "event-1", "home", 200))
	if err != nil {
		test.Fatalf("place win: %v", err)
	}
	if _, err := service.SettleWager(ctx, win.WagerID, wager.OutcomeWon); err != nil {
		test.Fatalf("settle win: %v", err)
	}
	loss, err := service.PlaceWager(ctx, placeRequest(test, "stats-user", "event-2", "away", 100))
	if err != nil {
		test.Fatalf("place loss: %v", err)
	}
	if _, err := service.SettleWager(ctx, loss.WagerID, wager.OutcomeLost); err != nil {
		test.Fatalf("settle loss: %v", err)
	}
	if _, err := service.PlaceWager(ctx, placeRequest(test, "stats-user", "event-3", "home", 50)); err != nil {
		test.Fatalf("place pending: %v", err)
	}

	stats, err := service.UserStats(ctx, userID)
	if err != nil {
		test.Fatalf("stats: %v", err)
	}
	if stats.TotalWagers != 3 || stats.TotalWon != 1 || stats.TotalLost != 1 || stats.ActiveWagers != 1 {
		test.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.TotalProfitCents != 300-100 {
		test.Fatalf("expected net profit 200, got %d", stats.TotalProfitCents)
	}
	if stats.BiggestWinCents != 300 || stats.BiggestLossCents != 100 {
		test.Fatalf("unexpected extremes: %+v", stats)
	}
	if stats.WinRate() != 50 {
		test.Fatalf("expected 50%% win rate, got %v", stats.WinRate())
	}
}

func TestScoreboardRanksByBalance(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	service := mustService(test, store, staticQuotes(test))
	ctx := context.Background()

	for _, seed := range []struct {
		user    string
		balance int64
	}{
		{user: "rich", balance: 5000},
		{user: "mid", balance: 3000},
		{user: "poor", balance: 100},
	} {
		if _, err := service.CreateAccount(ctx, mustUserID(test, seed.user), wager.AmountCents(seed.balance)); err != nil {
			test.Fatalf("create %s: %v", seed.user, err)
		}
	}
	if _, err := service.PlaceWager(ctx, placeRequest(test, "mid", "event-1", "home", 500)); err != nil {
		test.Fatalf("place: %v", err)
	}

	board, err := service.Scoreboard(ctx, 2)
	if err != nil {
		test.Fatalf("scoreboard: %v", err)
	}
	if len(board) != 2 {
		test.Fatalf("expected 2 rows, got %d", len(board))
	}
	if board[0].UserID.String() != "rich" || board[0].Rank != 1 {
		test.Fatalf("unexpected leader: %+v", board[0])
	}
	if board[1].UserID.String() != "mid" || board[1].BalanceCents != 2500 || board[1].ActiveWagerCount != 1 {
		test.Fatalf("unexpected runner-up: %+v", board[1])
	}
}

func TestCreateAccountDuplicateKey(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	ctx := context.Background()
	account := wager.Account{UserID: mustUserID(test, "dup"), BalanceCents: 10, CreatedUnixUTC: time.Now().Unix()}

	if err := store.CreateAccount(ctx, account); err != nil {
		test.Fatalf("first create: %v", err)
	}
	err := store.CreateAccount(ctx, account)
	if !errors.Is(err, wager.ErrAccountExists) {
		test.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestGetAccountNotFound(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)

	_, err := store.GetAccount(context.Background(), mustUserID(test, "missing"))
	if !errors.Is(err, wager.ErrAccountNotFound) {
		test.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func newTestStore(test *testing.T) *Store {
	test.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		test.Fatalf("migrate: %v", err)
	}
	return New(db)
}

type staticOdds struct {
	quotes map[string][]wager.Quote
}

func (odds *staticOdds) GetOdds(_ context.Context, eventID wager.EventID) ([]wager.Quote, error) {
	found, ok := odds.quotes[eventID.String()]
	if !ok {
		return nil, wager.ErrUnknownEvent
	}
	return found, nil
}

func staticQuotes(test *testing.T) wager.OddsSource {
	test.Helper()
	return &staticOdds{quotes: map[string][]wager.Quote{
		"event-1": {quote(test, "home", 150), quote(test, "away", -170)},
		"event-2": {quote(test, "home", -110), quote(test, "away", -110)},
		"event-3": {quote(test, "home", 200), quote(test, "away", -250)},
	}}
}

func quote(test *testing.T, selectionName string, price int64) wager.Quote {
	test.Helper()
	selection, err := wager.NewSelection(selectionName)
	if err != nil {
		test.Fatalf("selection: %v", err)
	}
	parsedPrice, err := wager.NewPrice(price)
	if err != nil {
		test.Fatalf("price: %v", err)
	}
	return wager.Quote{Selection: selection, Price: parsedPrice}
}

func mustService(test *testing.T, store *Store, odds wager.OddsSource) *wager.Service {
	test.Helper()
	service, err := wager.NewService(store, odds, func() int64 { return time.Now().Unix() })
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustUserID(test *testing.T, raw string) wager.UserID {
	test.Helper()
	userID, err := wager.NewUserID(raw)
	if err != nil {
		test.Fatalf("user id: %v", err)
	}
	return userID
}

func mustBalance(test *testing.T, service *wager.Service, userID wager.UserID, expected int64) {
	test.Helper()
	balance, err := service.Balance(context.Background(), userID)
	if err != nil {
		test.Fatalf("balance: %v", err)
	}
	if balance.Int64() != expected {
		test.Fatalf("expected balance %d, got %d", expected, balance.Int64())
	}
}

func placeRequest(test *testing.T, user string, event string, selectionName string, stake int64) wager.PlaceWagerRequest {
	test.Helper()
	eventID, err := wager.NewEventID(event)
	if err != nil {
		test.Fatalf("event id: %v", err)
	}
	selection, err := wager.NewSelection(selectionName)
	if err != nil {
		test.Fatalf("selection: %v", err)
	}
	stakeCents, err := wager.NewStakeCents(stake)
	if err != nil {
		test.Fatalf("stake: %v", err)
	}
	metadata, err := wager.NewMetadataJSON("")
	if err != nil {
		test.Fatalf("metadata: %v", err)
	}
	return wager.PlaceWagerRequest{
		UserID:    mustUserID(test, user),
		EventID:   eventID,
		Selection: selection,
		Stake:     stakeCents,
		Metadata:  metadata,
	}
}

func storedWager(test *testing.T, user string, event string, id string) wager.Wager {
	test.Helper()
	record := placeRequest(test, user, event, "home", 100)
	wagerID, err := wager.NewWagerID(id)
	if err != nil {
		test.Fatalf("wager id: %v", err)
	}
	price, err := wager.NewPrice(150)
	if err != nil {
		test.Fatalf("price: %v", err)
	}
	return wager.Wager{
		WagerID:          wagerID,
		UserID:           record.UserID,
		EventID:          record.EventID,
		Selection:        record.Selection,
		StakeCents:       record.Stake,
		PriceAtPlacement: price,
		State:            wager.WagerStatePending,
		PlacedUnixUTC:    time.Now().Unix(),
	}
}
