package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/wagerbook/pkg/wager"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	constraintPendingWager = "uniq_wagers_pending_user_event"
	constraintAccountKey   = "accounts_pkey"
	pgUniqueViolationCode  = "23505"

	errorOperationStore     = "store"
	errorSubjectAccount     = "account"
	errorSubjectBalance     = "balance"
	errorSubjectEntry       = "entry"
	errorSubjectStats       = "stats"
	errorSubjectTransaction = "transaction"
	errorSubjectWager       = "wager"
	errorCodeAdd            = "add"
	errorCodeBegin          = "begin"
	errorCodeCommit         = "commit"
	errorCodeCreate         = "create"
	errorCodeDuplicate      = "duplicate"
	errorCodeGet            = "get"
	errorCodeInsert         = "insert"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
	errorCodeLookup         = "lookup"
	errorCodeTransition     = "transition"

	sqlInsertAccount = `
		insert into accounts(user_id, balance_cents, created_at)
		values($1, $2, to_timestamp($3))
	`

	sqlSelectAccount = `
		select user_id, balance_cents, extract(epoch from created_at)::bigint
		from accounts where user_id = $1
	`

	sqlSelectAccountForUpdate = sqlSelectAccount + ` for update`

	sqlAddToBalance = `
		update accounts set balance_cents = balance_cents + $2 where user_id = $1
	`

	sqlInsertWager = `
		insert into wagers(
			wager_id, user_id, event_id, selection, stake_cents,
			price_at_placement, state, profit_cents, payout_cents, placed_at
		)
		values($1, $2, $3, $4, $5, $6, $7, $8, $9, to_timestamp($10))
	`

	sqlSelectWager = `
		select
			wager_id, user_id, event_id, selection, stake_cents,
			price_at_placement, state, profit_cents, payout_cents,
			extract(epoch from placed_at)::bigint,
			coalesce(extract(epoch from settled_at)::bigint, 0)
		from wagers where wager_id = $1
	`

	sqlSelectWagerForUpdate = sqlSelectWager + ` for update`

	sqlHasPendingWager = `
		select exists(
			select 1 from wagers
			where user_id = $1 and event_id = $2 and state = 'pending'
		)
	`

	sqlTransitionWager = `
		update wagers
		set state = $3, profit_cents = $4, payout_cents = $5, settled_at = to_timestamp($6)
		where wager_id = $1 and state = $2
	`

	sqlPendingByEvent = `
		select
			wager_id, user_id, event_id, selection, stake_cents,
			price_at_placement, state, profit_cents, payout_cents,
			extract(epoch from placed_at)::bigint,
			coalesce(extract(epoch from settled_at)::bigint, 0)
		from wagers
		where event_id = $1 and state = 'pending'
		order by placed_at desc
	`

	sqlPendingByUser = `
		select
			wager_id, user_id, event_id, selection, stake_cents,
			price_at_placement, state, profit_cents, payout_cents,
			extract(epoch from placed_at)::bigint,
			coalesce(extract(epoch from settled_at)::bigint, 0)
		from wagers
		where user_id = $1 and state = 'pending'
		order by placed_at desc
	`

	sqlInsertEntry = `
		insert into ledger_entries(entry_id, user_id, delta_cents, reason, wager_id, metadata, created_at)
		values(
			gen_random_uuid(), $1, $2, $3,
			nullif($4, ''),
			coalesce(nullif($5, ''), '{}')::jsonb,
			to_timestamp($6)
		)
	`

	sqlListEntriesBefore = `
		select
			entry_id::text, user_id, delta_cents, reason,
			coalesce(wager_id, ''),
			coalesce(metadata::text, '{}'),
			extract(epoch from created_at)::bigint
		from ledger_entries
		where user_id = $1 and created_at < to_timestamp($2)
		order by created_at desc
		limit $3
	`

	sqlUserStats = `
		select
			count(*),
			coalesce(sum(case when state = 'won' then 1 else 0 end), 0),
			coalesce(sum(case when state = 'lost' then 1 else 0 end), 0),
			coalesce(sum(case when state = 'pushed' then 1 else 0 end), 0),
			coalesce(sum(case when state = 'cancelled' then 1 else 0 end), 0),
			coalesce(sum(case when state = 'pending' then 1 else 0 end), 0),
			coalesce(sum(case when state <> 'cancelled' then stake_cents else 0 end), 0),
			coalesce(sum(case when state = 'won' then profit_cents when state = 'lost' then -stake_cents else 0 end), 0),
			coalesce(max(case when state = 'won' then profit_cents else 0 end), 0),
			coalesce(max(case when state = 'lost' then stake_cents else 0 end), 0)
		from wagers
		where user_id = $1
	`

	sqlScoreboard = `
		select
			a.user_id,
			a.balance_cents,
			coalesce(sum(case when w.state = 'pending' then 1 else 0 end), 0)::int
		from accounts a
		left join wagers w on w.user_id = a.user_id
		group by a.user_id, a.balance_cents
		order by a.balance_cents desc, a.user_id asc
		limit $1
	`
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements wager.Store using a pgx connection pool (autocommit).
type Store struct {
	pool *pgxpool.Pool
}

// TxStore implements wager.Store for an active transaction.
type TxStore struct {
	tx pgx.Tx
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore wager.Store) error) error {
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	transactionStore := &TxStore{tx: tx}
	if err := fn(ctx, transactionStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

func (store *Store) CreateAccount(ctx context.Context, account wager.Account) error {
	return createAccount(ctx, store.pool, account)
}

func (store *Store) GetAccount(ctx context.Context, userID wager.UserID) (wager.Account, error) {
	return getAccount(ctx, store.pool, sqlSelectAccount, userID)
}

func (store *Store) AccountForUpdate(ctx context.Context, userID wager.UserID) (wager.Account, error) {
	return getAccount(ctx, store.pool, sqlSelectAccountForUpdate, userID)
}

func (store *Store) AddToBalance(ctx context.Context, userID wager.UserID, deltaCents int64) error {
	return addToBalance(ctx, store.pool, userID, deltaCents)
}

func (store *Store) InsertWager(ctx context.Context, record wager.Wager) error {
	return insertWager(ctx, store.pool, record)
}

func (store *Store) GetWager(ctx context.Context, wagerID wager.WagerID) (wager.Wager, error) {
	return getWager(ctx, store.pool, sqlSelectWager, wagerID)
}

func (store *Store) WagerForUpdate(ctx context.Context, wagerID wager.WagerID) (wager.Wager, error) {
	return getWager(ctx, store.pool, sqlSelectWagerForUpdate, wagerID)
}

func (store *Store) HasPendingWager(ctx context.Context, userID wager.UserID, eventID wager.EventID) (bool, error) {
	return hasPendingWager(ctx, store.pool, userID, eventID)
}

func (store *Store) TransitionWager(ctx context.Context, wagerID wager.WagerID, from, to wager.WagerState, profitCents, payoutCents wager.AmountCents, settledUnixUTC int64) error {
	return transitionWager(ctx, store.pool, wagerID, from, to, profitCents, payoutCents, settledUnixUTC)
}

func (store *Store) PendingWagersByEvent(ctx context.Context, eventID wager.EventID) ([]wager.Wager, error) {
	return listWagers(ctx, store.pool, sqlPendingByEvent, eventID.String())
}

func (store *Store) PendingWagersByUser(ctx context.Context, userID wager.UserID) ([]wager.Wager, error) {
	return listWagers(ctx, store.pool, sqlPendingByUser, userID.String())
}

func (store *Store) InsertLedgerEntry(ctx context.Context, entry wager.LedgerEntry) error {
	return insertLedgerEntry(ctx, store.pool, entry)
}

func (store *Store) ListLedgerEntries(ctx context.Context, userID wager.UserID, beforeUnixUTC int64, limit int) ([]wager.LedgerEntry, error) {
	return listLedgerEntries(ctx, store.pool, userID, beforeUnixUTC, limit)
}

func (store *Store) UserStats(ctx context.Context, userID wager.UserID) (wager.Stats, error) {
	return userStats(ctx, store.pool, userID)
}

func (store *Store) Scoreboard(ctx context.Context, limit int) ([]wager.ScoreboardEntry, error) {
	return scoreboard(ctx, store.pool, limit)
}

func (store *TxStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore wager.Store) error) error {
	return fn(ctx, store)
}

func (store *TxStore) CreateAccount(ctx context.Context, account wager.Account) error {
	return createAccount(ctx, store.tx, account)
}

func (store *TxStore) GetAccount(ctx context.Context, userID wager.UserID) (wager.Account, error) {
	return getAccount(ctx, store.tx, sqlSelectAccount, userID)
}

func (store *TxStore) AccountForUpdate(ctx context.Context, userID wager.UserID) (wager.Account, error) {
	return getAccount(ctx, store.tx, sqlSelectAccountForUpdate, userID)
}

func (store *TxStore) AddToBalance(ctx context.Context, userID wager.UserID, deltaCents int64) error {
	return addToBalance(ctx, store.tx, userID, deltaCents)
}

func (store *TxStore) InsertWager(ctx context.Context, record wager.Wager) error {
	return insertWager(ctx, store.tx, record)
}

func (store *TxStore) GetWager(ctx context.Context, wagerID wager.WagerID) (wager.Wager, error) {
	return getWager(ctx, store.tx, sqlSelectWager, wagerID)
}

func (store *TxStore) WagerForUpdate(ctx context.Context, wagerID wager.WagerID) (wager.Wager, error) {
	return getWager(ctx, store.tx, sqlSelectWagerForUpdate, wagerID)
}

func (store *TxStore) HasPendingWager(ctx context.Context, userID wager.UserID, eventID wager.EventID) (bool, error) {
	return hasPendingWager(ctx, store.tx, userID, eventID)
}

func (store *TxStore) TransitionWager(ctx context.Context, wagerID wager.WagerID, from, to wager.WagerState, profitCents, payoutCents wager.AmountCents, settledUnixUTC int64) error {
	return transitionWager(ctx, store.tx, wagerID, from, to, profitCents, payoutCents, settledUnixUTC)
}

func (store *TxStore) PendingWagersByEvent(ctx context.Context, eventID wager.EventID) ([]wager.Wager, error) {
	return listWagers(ctx, store.tx, sqlPendingByEvent, eventID.String())
}

func (store *TxStore) PendingWagersByUser(ctx context.Context, userID wager.UserID) ([]wager.Wager, error) {
	return listWagers(ctx, store.tx, sqlPendingByUser, userID.String())
}

func (store *TxStore) InsertLedgerEntry(ctx context.Context, entry wager.LedgerEntry) error {
	return insertLedgerEntry(ctx, store.tx, entry)
}

func (store *TxStore) ListLedgerEntries(ctx context.Context, userID wager.UserID, beforeUnixUTC int64, limit int) ([]wager.LedgerEntry, error) {
	return listLedgerEntries(ctx, store.tx, userID, beforeUnixUTC, limit)
}

func (store *TxStore) UserStats(ctx context.Context, userID wager.UserID) (wager.Stats, error) {
	return userStats(ctx, store.tx, userID)
}

func (store *TxStore) Scoreboard(ctx context.Context, limit int) ([]wager.ScoreboardEntry, error) {
	return scoreboard(ctx, store.tx, limit)
}

func createAccount(ctx context.Context, q querier, account wager.Account) error {
	_, err := q.Exec(ctx, sqlInsertAccount,
		account.UserID.String(),
		account.BalanceCents.Int64(),
		account.CreatedUnixUTC,
	)
	if isUniqueViolation(err, constraintAccountKey) {
		return wrapStoreError(errorSubjectAccount, errorCodeDuplicate, wager.ErrAccountExists)
	}
	if err != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeCreate, err)
	}
	return nil
}

func getAccount(ctx context.Context, q querier, query string, userID wager.UserID) (wager.Account, error) {
	var (
		userValue      string
		balanceValue   int64
		createdUnixUTC int64
	)
	err := q.QueryRow(ctx, query, userID.String()).Scan(&userValue, &balanceValue, &createdUnixUTC)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wager.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, wager.ErrAccountNotFound)
		}
		return wager.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	parsedUserID, err := wager.NewUserID(userValue)
	if err != nil {
		return wager.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	balance, err := wager.NewAmountCents(balanceValue)
	if err != nil {
		return wager.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return wager.Account{
		UserID:         parsedUserID,
		BalanceCents:   balance,
		CreatedUnixUTC: createdUnixUTC,
	}, nil
}

func addToBalance(ctx context.Context, q querier, userID wager.UserID, deltaCents int64) error {
	tag, err := q.Exec(ctx, sqlAddToBalance, userID.String(), deltaCents)
	if err != nil {
		return wrapStoreError(errorSubjectBalance, errorCodeAdd, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectBalance, errorCodeAdd, wager.ErrAccountNotFound)
	}
	return nil
}

func insertWager(ctx context.Context, q querier, record wager.Wager) error {
	_, err := q.Exec(ctx, sqlInsertWager,
		record.WagerID.String(),
		record.UserID.String(),
		record.EventID.String(),
		record.Selection.String(),
		record.StakeCents.Int64(),
		record.PriceAtPlacement.Int64(),
		record.State.String(),
		record.ProfitCents.Int64(),
		record.PayoutCents.Int64(),
		record.PlacedUnixUTC,
	)
	if isUniqueViolation(err, constraintPendingWager) {
		return wrapStoreError(errorSubjectWager, errorCodeDuplicate, wager.ErrDuplicateWager)
	}
	if err != nil {
		return wrapStoreError(errorSubjectWager, errorCodeInsert, err)
	}
	return nil
}

func getWager(ctx context.Context, q querier, query string, wagerID wager.WagerID) (wager.Wager, error) {
	record, err := scanWager(q.QueryRow(ctx, query, wagerID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wager.Wager{}, wrapStoreError(errorSubjectWager, errorCodeGet, wager.ErrWagerNotFound)
		}
		return wager.Wager{}, wrapStoreError(errorSubjectWager, errorCodeGet, err)
	}
	return record, nil
}

func hasPendingWager(ctx context.Context, q querier, userID wager.UserID, eventID wager.EventID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, sqlHasPendingWager, userID.String(), eventID.String()).Scan(&exists)
	if err != nil {
		return false, wrapStoreError(errorSubjectWager, errorCodeLookup, err)
	}
	return exists, nil
}

func transitionWager(ctx context.Context, q querier, wagerID wager.WagerID, from, to wager.WagerState, profitCents, payoutCents wager.AmountCents, settledUnixUTC int64) error {
	tag, err := q.Exec(ctx, sqlTransitionWager,
		wagerID.String(),
		from.String(),
		to.String(),
		profitCents.Int64(),
		payoutCents.Int64(),
		settledUnixUTC,
	)
	if err != nil {
		return wrapStoreError(errorSubjectWager, errorCodeTransition, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectWager, errorCodeTransition, wager.ErrWagerNotPending)
	}
	return nil
}

func listWagers(ctx context.Context, q querier, query string, arg string) ([]wager.Wager, error) {
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, wrapStoreError(errorSubjectWager, errorCodeList, err)
	}
	defer rows.Close()
	records := make([]wager.Wager, 0, 16)
	for rows.Next() {
		record, err := scanWager(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectWager, errorCodeInvalid, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectWager, errorCodeList, err)
	}
	return records, nil
}

func insertLedgerEntry(ctx context.Context, q querier, entry wager.LedgerEntry) error {
	wagerID := ""
	if entry.WagerID != nil {
		wagerID = entry.WagerID.String()
	}
	_, err := q.Exec(ctx, sqlInsertEntry,
		entry.UserID.String(),
		entry.DeltaCents,
		entry.Reason.String(),
		wagerID,
		entry.MetadataJSON.String(),
		entry.CreatedUnixUTC,
	)
	if err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	return nil
}

func listLedgerEntries(ctx context.Context, q querier, userID wager.UserID, beforeUnixUTC int64, limit int) ([]wager.LedgerEntry, error) {
	if beforeUnixUTC <= 0 {
		beforeUnixUTC = time.Now().UTC().Add(time.Second).Unix()
	}
	rows, err := q.Query(ctx, sqlListEntriesBefore, userID.String(), beforeUnixUTC, limit)
	if err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	defer rows.Close()
	entries := make([]wager.LedgerEntry, 0, 32)
	for rows.Next() {
		var (
			entryIDValue  string
			userValue     string
			deltaValue    int64
			reasonValue   string
			wagerIDValue  string
			metadataValue string
			createdAt     int64
		)
		if err := rows.Scan(&entryIDValue, &userValue, &deltaValue, &reasonValue, &wagerIDValue, &metadataValue, &createdAt); err != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
		}
		parsedUserID, err := wager.NewUserID(userValue)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
		}
		reason, err := wager.ParseLedgerReason(reasonValue)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
		}
		var wagerID *wager.WagerID
		if wagerIDValue != "" {
			parsed, err := wager.NewWagerID(wagerIDValue)
			if err != nil {
				return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
			}
			wagerID = &parsed
		}
		metadata, err := wager.NewMetadataJSON(metadataValue)
		if err != nil {
			return nil, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
		}
		entries = append(entries, wager.LedgerEntry{
			EntryID:        entryIDValue,
			UserID:         parsedUserID,
			DeltaCents:     deltaValue,
			Reason:         reason,
			WagerID:        wagerID,
			MetadataJSON:   metadata,
			CreatedUnixUTC: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectEntry, errorCodeList, err)
	}
	return entries, nil
}

func userStats(ctx context.Context, q querier, userID wager.UserID) (wager.Stats, error) {
	var stats wager.Stats
	err := q.QueryRow(ctx, sqlUserStats, userID.String()).Scan(
		&stats.TotalWagers,
		&stats.TotalWon,
		&stats.TotalLost,
		&stats.TotalPushed,
		&stats.TotalCancelled,
		&stats.ActiveWagers,
		&stats.TotalStakedCents,
		&stats.TotalProfitCents,
		&stats.BiggestWinCents,
		&stats.BiggestLossCents,
	)
	if err != nil {
		return wager.Stats{}, wrapStoreError(errorSubjectStats, errorCodeLookup, err)
	}
	return stats, nil
}

func scoreboard(ctx context.Context, q querier, limit int) ([]wager.ScoreboardEntry, error) {
	rows, err := q.Query(ctx, sqlScoreboard, limit)
	if err != nil {
		return nil, wrapStoreError(errorSubjectStats, errorCodeList, err)
	}
	defer rows.Close()
	entries := make([]wager.ScoreboardEntry, 0, limit)
	for rows.Next() {
		var (
			userValue    string
			balanceValue int64
			activeCount  int
		)
		if err := rows.Scan(&userValue, &balanceValue, &activeCount); err != nil {
			return nil, wrapStoreError(errorSubjectStats, errorCodeInvalid, err)
		}
		userID, err := wager.NewUserID(userValue)
		if err != nil {
			return nil, wrapStoreError(errorSubjectStats, errorCodeInvalid, err)
		}
		balance, err := wager.NewAmountCents(balanceValue)
		if err != nil {
			return nil, wrapStoreError(errorSubjectStats, errorCodeInvalid, err)
		}
		entries = append(entries, wager.ScoreboardEntry{
			Rank:             len(entries) + 1,
			UserID:           userID,
			BalanceCents:     balance,
			ActiveWagerCount: activeCount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectStats, errorCodeList, err)
	}
	return entries, nil
}

func scanWager(row pgx.Row) (wager.Wager, error) {
	var (
		wagerIDValue   string
		userValue      string
		eventValue     string
		selectionValue string
		stakeValue     int64
		priceValue     int64
		stateValue     string
		profitValue    int64
		payoutValue    int64
		placedUnixUTC  int64
		settledUnixUTC int64
	)
	if err := row.Scan(
		&wagerIDValue,
		&userValue,
		&eventValue,
		&selectionValue,
		&stakeValue,
		&priceValue,
		&stateValue,
		&profitValue,
		&payoutValue,
		&placedUnixUTC,
		&settledUnixUTC,
	); err != nil {
		return wager.Wager{}, err
	}
	wagerID, err := wager.NewWagerID(wagerIDValue)
	if err != nil {
		return wager.Wager{}, err
	}
	userID, err := wager.NewUserID(userValue)
	if err != nil {
		return wager.Wager{}, err
	}
	eventID, err := wager.NewEventID(eventValue)
	if err != nil {
		return wager.Wager{}, err
	}
	selection, err := wager.NewSelection(selectionValue)
	if err != nil {
		return wager.Wager{}, err
	}
	stake, err := wager.NewStakeCents(stakeValue)
	if err != nil {
		return wager.Wager{}, err
	}
	price, err := wager.NewPrice(priceValue)
	if err != nil {
		return wager.Wager{}, err
	}
	state, err := wager.ParseWagerState(stateValue)
	if err != nil {
		return wager.Wager{}, err
	}
	profit, err := wager.NewAmountCents(profitValue)
	if err != nil {
		return wager.Wager{}, err
	}
	payout, err := wager.NewAmountCents(payoutValue)
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
		PlacedUnixUTC:    placedUnixUTC,
		SettledUnixUTC:   settledUnixUTC,
	}, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return wager.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraint
	}
	return false
}
