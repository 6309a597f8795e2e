package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintPendingWager = "uniq_wagers_pending_user_event"
	constraintAccountKey   = "accounts_pkey"
	defaultMetadataJSON    = "{}"
	pgUniqueViolationCode  = "23505"
	sqliteConstraintCode   = 19
	dialectSQLite          = "sqlite"

	errorOperationStore = "store"
	errorSubjectAccount = "account"
	errorSubjectBalance = "balance"
	errorSubjectEntry   = "entry"
	errorSubjectStats   = "stats"
	errorSubjectWager   = "wager"
	errorCodeAdd        = "add"
	errorCodeCreate     = "create"
	errorCodeDuplicate  = "duplicate"
	errorCodeGet        = "get"
	errorCodeInsert     = "insert"
	errorCodeInvalid    = "invalid"
	errorCodeList       = "list"
	errorCodeLookup     = "lookup"
	errorCodeTransition = "transition"

	// Partial unique index backing the one-pending-wager-per-event guard.
	// Understood by both postgres and sqlite.
	sqlPendingWagerIndex = `
		create unique index if not exists uniq_wagers_pending_user_event
		on wagers (user_id, event_id) where state = 'pending'
	`
)

// Store implements wager.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema, including the pending-wager partial unique
// index that AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Account{}, &Wager{}, &LedgerEntry{}); err != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeCreate, err)
	}
	if err := db.Exec(sqlPendingWagerIndex).Error; err != nil {
		return wrapStoreError(errorSubjectWager, errorCodeCreate, err)
	}
	return nil
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore wager.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) CreateAccount(ctx context.Context, account wager.Account) error {
	model := Account{
		UserID:       account.UserID.String(),
		BalanceCents: account.BalanceCents.Int64(),
		CreatedAt:    time.Unix(account.CreatedUnixUTC, 0).UTC(),
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err, constraintAccountKey) {
		return wrapStoreError(errorSubjectAccount, errorCodeDuplicate, wager.ErrAccountExists)
	}
	if err != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeCreate, err)
	}
	return nil
}

func (store *Store) GetAccount(ctx context.Context, userID wager.UserID) (wager.Account, error) {
	return store.getAccount(ctx, userID, false)
}

// AccountForUpdate locks the account row for the rest of the enclosing
// transaction. SQLite has no row locks; its single-writer transactions
// already serialize, so the clause is skipped there.
func (store *Store) AccountForUpdate(ctx context.Context, userID wager.UserID) (wager.Account, error) {
	return store.getAccount(ctx, userID, true)
}

func (store *Store) getAccount(ctx context.Context, userID wager.UserID, forUpdate bool) (wager.Account, error) {
	query := store.db.WithContext(ctx)
	if forUpdate && store.db.Dialector.Name() != dialectSQLite {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model Account
	err := query.Where("user_id = ?", userID.String()).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return wager.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, wager.ErrAccountNotFound)
		}
		return wager.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return mapAccount(model)
}

func (store *Store) AddToBalance(ctx context.Context, userID wager.UserID, deltaCents int64) error {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("user_id = ?", userID.String()).
		UpdateColumn("balance_cents", gorm.Expr("balance_cents + ?", deltaCents))
	if result.Error != nil {
		return wrapStoreError(errorSubjectBalance, errorCodeAdd, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectBalance, errorCodeAdd, wager.ErrAccountNotFound)
	}
	return nil
}

func (store *Store) InsertWager(ctx context.Context, record wager.Wager) error {
	model := Wager{
		WagerID:          record.WagerID.String(),
		UserID:           record.UserID.String(),
		EventID:          record.EventID.String(),
		Selection:        record.Selection.String(),
		StakeCents:       record.StakeCents.Int64(),
		PriceAtPlacement: record.PriceAtPlacement.Int64(),
		State:            record.State.String(),
		ProfitCents:      record.ProfitCents.Int64(),
		PayoutCents:      record.PayoutCents.Int64(),
		PlacedAt:         time.Unix(record.PlacedUnixUTC, 0).UTC(),
	}
	if model.PlacedAt.IsZero() {
		model.PlacedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err, constraintPendingWager) {
		return wrapStoreError(errorSubjectWager, errorCodeDuplicate, wager.ErrDuplicateWager)
	}
	if err != nil {
		return wrapStoreError(errorSubjectWager, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) GetWager(ctx context.Context, wagerID wager.WagerID) (wager.Wager, error) {
	return store.getWager(ctx, wagerID, false)
}

// WagerForUpdate locks the wager row so concurrent settlement and
// cancellation of the same wager serialize.
func (store *Store) WagerForUpdate(ctx context.Context, wagerID wager.WagerID) (wager.Wager, error) {
	return store.getWager(ctx, wagerID, true)
}

func (store *Store) getWager(ctx context.Context, wagerID wager.WagerID, forUpdate bool) (wager.Wager, error) {
	query := store.db.WithContext(ctx)
	if forUpdate && store.db.Dialector.Name() != dialectSQLite {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model Wager
	err := query.Where("wager_id = ?", wagerID.String()).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return wager.Wager{}, wrapStoreError(errorSubjectWager, errorCodeGet, wager.ErrWagerNotFound)
		}
		return wager.Wager{}, wrapStoreError(errorSubjectWager, errorCodeGet, err)
	}
	return mapWager(model)
}

func (store *Store) HasPendingWager(ctx context.Context, userID wager.UserID, eventID wager.EventID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Wager{}).
		Where("user_id = ? AND event_id = ? AND state = ?", userID.String(), eventID.String(), wager.WagerStatePending.String()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectWager, errorCodeLookup, err)
	}
	return count > 0, nil
}

func (store *Store) TransitionWager(ctx context.Context, wagerID wager.WagerID, from, to wager.WagerState, profitCents, payoutCents wager.AmountCents, settledUnixUTC int64) error {
	settledAt := time.Unix(settledUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&Wager{}).
		Where("wager_id = ? AND state = ?", wagerID.String(), from.String()).
		Updates(map[string]interface{}{
			"state":        to.String(),
			"profit_cents": profitCents.Int64(),
			"payout_cents": payoutCents.Int64(),
			"settled_at":   settledAt,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectWager, errorCodeTransition, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectWager, errorCodeTransition, wager.ErrWagerNotPending)
	}
	return nil
}

func (store *Store) PendingWagersByEvent(ctx context.Context, eventID wager.EventID) ([]wager.Wager, error) {
	return store.listWagers(ctx, "event_id = ? AND state = ?", eventID.String(), wager.WagerStatePending.String())
}

func (store *Store) PendingWagersByUser(ctx context.Context, userID wager.UserID) ([]wager.Wager, error) {
	return store.listWagers(ctx, "user_id = ? AND state = ?", userID.String(), wager.WagerStatePending.String())
}

func (store *Store) listWagers(ctx context.Context, condition string, args ...interface{}) ([]wager.Wager, error) {
	var rows []Wager
	err := store.db.WithContext(ctx).
		Where(condition, args...).
		Order("placed_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectWager, errorCodeList, err)
	}
	records := make([]wager.Wager, 0, len(rows))
	for _, row := range rows {
		record, err := mapWager(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectWager, errorCodeInvalid, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (store *Store) InsertLedgerEntry(ctx context.Context, entry wager.LedgerEntry) error {
	var wagerID *string
	if entry.WagerID != nil {
		value := entry.WagerID.String()
		wagerID = &value
	}
	model := LedgerEntry{
		EntryID:    entry.EntryID,
		UserID:     entry.UserID.String(),
		DeltaCents: entry.DeltaCents,
		Reason:     entry.Reason.String(),
		WagerID:    wagerID,
		Metadata:   datatypesJSON(entry.MetadataJSON.String()),
		CreatedAt:  time.Unix(entry.CreatedUnixUTC, 0).UTC(),
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) ListLedgerEntries(ctx context.Context, userID wager.UserID, beforeUnixUTC int64, limit int) ([]wager.LedgerEntry, error) {
	before := time.Unix(beforeUnixUTC, 0).UTC()
	if beforeUnixUTC == 0 {
		before = time.Now().UTC().Add(time.Second)
	}

	var rows []LedgerEntry
	err := store.db.WithContext(ctx).
		Where("user_id = ? AND created_at < ?", userID.String(), before).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}

	entries := make([]wager.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := mapLedgerEntry(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type statsRow struct {
	TotalWagers      int
	TotalWon         int
	TotalLost        int
	TotalPushed      int
	TotalCancelled   int
	ActiveWagers     int
	TotalStakedCents int64
	TotalProfitCents int64
	BiggestWinCents  int64
	BiggestLossCents int64
}

func (store *Store) UserStats(ctx context.Context, userID wager.UserID) (wager.Stats, error) {
	var row statsRow
	err := store.db.WithContext(ctx).Raw(`
		select
			count(*) as total_wagers,
			coalesce(sum(case when state = 'won' then 1 else 0 end), 0) as total_won,
			coalesce(sum(case when state = 'lost' then 1 else 0 end), 0) as total_lost,
			coalesce(sum(case when state = 'pushed' then 1 else 0 end), 0) as total_pushed,
			coalesce(sum(case when state = 'cancelled' then 1 else 0 end), 0) as total_cancelled,
			coalesce(sum(case when state = 'pending' then 1 else 0 end), 0) as active_wagers,
			coalesce(sum(case when state <> 'cancelled' then stake_cents else 0 end), 0) as total_staked_cents,
			coalesce(sum(case when state = 'won' then profit_cents when state = 'lost' then -stake_cents else 0 end), 0) as total_profit_cents,
			coalesce(max(case when state = 'won' then profit_cents else 0 end), 0) as biggest_win_cents,
			coalesce(max(case when state = 'lost' then stake_cents else 0 end), 0) as biggest_loss_cents
		from wagers
		where user_id = ?
	`, userID.String()).Scan(&row).Error
	if err != nil {
		return wager.Stats{}, wrapStoreError(errorSubjectStats, errorCodeLookup, err)
	}
	return wager.Stats{
		TotalWagers:      row.TotalWagers,
		TotalWon:         row.TotalWon,
		TotalLost:        row.TotalLost,
		TotalPushed:      row.TotalPushed,
		TotalCancelled:   row.TotalCancelled,
		ActiveWagers:     row.ActiveWagers,
		TotalStakedCents: row.TotalStakedCents,
		TotalProfitCents: row.TotalProfitCents,
		BiggestWinCents:  row.BiggestWinCents,
		BiggestLossCents: row.BiggestLossCents,
	}, nil
}

type scoreboardRow struct {
	UserID           string
	BalanceCents     int64
	ActiveWagerCount int
}

func (store *Store) Scoreboard(ctx context.Context, limit int) ([]wager.ScoreboardEntry, error) {
	var rows []scoreboardRow
	err := store.db.WithContext(ctx).Raw(`
		select
			a.user_id as user_id,
			a.balance_cents as balance_cents,
			coalesce(sum(case when w.state = 'pending' then 1 else 0 end), 0) as active_wager_count
		from accounts a
		left join wagers w on w.user_id = a.user_id
		group by a.user_id, a.balance_cents
		order by a.balance_cents desc, a.user_id asc
		limit ?
	`, limit).Scan(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectStats, errorCodeList, err)
	}
	entries := make([]wager.ScoreboardEntry, 0, len(rows))
	for index, row := range rows {
		userID, err := wager.NewUserID(row.UserID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectStats, errorCodeInvalid, err)
		}
		balance, err := wager.NewAmountCents(row.BalanceCents)
		if err != nil {
			return nil, wrapStoreError(errorSubjectStats, errorCodeInvalid, err)
		}
		entries = append(entries, wager.ScoreboardEntry{
			Rank:             index + 1,
			UserID:           userID,
			BalanceCents:     balance,
			ActiveWagerCount: row.ActiveWagerCount,
		})
	}
	return entries, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return wager.WrapError(errorOperationStore, subject, code, err)
}

func mapAccount(model Account) (wager.Account, error) {
	userID, err := wager.NewUserID(model.UserID)
	if err != nil {
		return wager.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	balance, err := wager.NewAmountCents(model.BalanceCents)
	if err != nil {
		return wager.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return wager.Account{
		UserID:         userID,
		BalanceCents:   balance,
		CreatedUnixUTC: model.CreatedAt.Unix(),
	}, nil
}

func mapWager(model Wager) (wager.Wager, error) {
	wagerID, err := wager.NewWagerID(model.WagerID)
	if err != nil {
		return wager.Wager{}, err
	}
	userID, err := wager.NewUserID(model.UserID)
	if err != nil {
		return wager.Wager{}, err
	}
	eventID, err := wager.NewEventID(model.EventID)
	if err != nil {
		return wager.Wager{}, err
	}
	selection, err := wager.NewSelection(model.Selection)
	if err != nil {
		return wager.Wager{}, err
	}
	stake, err := wager.NewStakeCents(model.StakeCents)
	if err != nil {
		return wager.Wager{}, err
	}
	price, err := wager.NewPrice(model.PriceAtPlacement)
	if err != nil {
		return wager.Wager{}, err
	}
	state, err := wager.ParseWagerState(model.State)
	if err != nil {
		return wager.Wager{}, err
	}
	profit, err := wager.NewAmountCents(model.ProfitCents)
	if err != nil {
		return wager.Wager{}, err
	}
	payout, err := wager.NewAmountCents(model.PayoutCents)
	if err != nil {
		return wager.Wager{}, err
	}
	return wager.Wager{
		WagerID:          wagerID,
		UserID:           userID,
		EventID:          eventID,
		Selection:        selection,
		StakeCents:       stake,
		PriceAtPlacement: price,
		State:            state,
		ProfitCents:      profit,
		PayoutCents:      payout,
		PlacedUnixUTC:    model.PlacedAt.Unix(),
		SettledUnixUTC:   timeOrZero(model.SettledAt),
	}, nil
}

func mapLedgerEntry(model LedgerEntry) (wager.LedgerEntry, error) {
	userID, err := wager.NewUserID(model.UserID)
	if err != nil {
		return wager.LedgerEntry{}, err
	}
	reason, err := wager.ParseLedgerReason(model.Reason)
	if err != nil {
		return wager.LedgerEntry{}, err
	}
	var wagerID *wager.WagerID
	if model.WagerID != nil {
		parsed, err := wager.NewWagerID(*model.WagerID)
		if err != nil {
			return wager.LedgerEntry{}, err
		}
		wagerID = &parsed
	}
	metadata, err := wager.NewMetadataJSON(string(model.Metadata))
	if err != nil {
		return wager.LedgerEntry{}, err
	}
	return wager.LedgerEntry{
		EntryID:        model.EntryID,
		UserID:         userID,
		DeltaCents:     model.DeltaCents,
		Reason:         reason,
		WagerID:        wagerID,
		MetadataJSON:   metadata,
		CreatedUnixUTC: model.CreatedAt.Unix(),
	}, nil
}

func timeOrZero(value *time.Time) int64 {
	if value == nil {
		return 0
	}
	return value.Unix()
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func isUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraint
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
