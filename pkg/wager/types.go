package wager

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AmountCents is a non-negative integer currency amount in cents.
type AmountCents int64

// StakeCents is a strictly positive amount committed at placement.
type StakeCents int64

// Price is an American moneyline price frozen at placement time.
type Price int64

// UserID identifies an account owner (opaque chat-platform identifier).
type UserID struct {
	value string
}

// EventID identifies the sporting event a wager rides on.
type EventID struct {
	value string
}

// WagerID identifies a single wager.
type WagerID struct {
	value string
}

// Selection is the side of the event the bettor chose.
type Selection struct {
	value string
}

// MetadataJSON stores arbitrary request metadata.
type MetadataJSON struct {
	value string
}

// WagerState defines the wager lifecycle.
type WagerState string

const (
	WagerStatePending   WagerState = "pending"
	WagerStateWon       WagerState = "won"
	WagerStateLost      WagerState = "lost"
	WagerStatePushed    WagerState = "pushed"
	WagerStateCancelled WagerState = "cancelled"
)

// String returns the stored state value.
func (state WagerState) String() string {
	return string(state)
}

// Terminal reports whether no further transition is permitted.
func (state WagerState) Terminal() bool {
	return state != WagerStatePending
}

// ParseWagerState validates a stored state value.
func ParseWagerState(raw string) (WagerState, error) {
	switch WagerState(raw) {
	case WagerStatePending, WagerStateWon, WagerStateLost, WagerStatePushed, WagerStateCancelled:
		return WagerState(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWagerState, raw)
}

// Outcome is the result reported for a completed event.
type Outcome string

const (
	OutcomeWon    Outcome = "won"
	OutcomeLost   Outcome = "lost"
	OutcomePushed Outcome = "pushed"
)

// String returns the outcome value.
func (outcome Outcome) String() string {
	return string(outcome)
}

// ParseOutcome validates a reported outcome.
func ParseOutcome(raw string) (Outcome, error) {
	switch Outcome(strings.ToLower(strings.TrimSpace(raw))) {
	case OutcomeWon:
		return OutcomeWon, nil
	case OutcomeLost:
		return OutcomeLost, nil
	case OutcomePushed:
		return OutcomePushed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, raw)
}

// State returns the terminal wager state this outcome settles into.
func (outcome Outcome) State() WagerState {
	switch outcome {
	case OutcomeWon:
		return WagerStateWon
	case OutcomeLost:
		return WagerStateLost
	default:
		return WagerStatePushed
	}
}

// LedgerReason classifies a balance-affecting delta.
type LedgerReason string

const (
	ReasonGrant  LedgerReason = "grant"
	ReasonStake  LedgerReason = "stake"
	ReasonPayout LedgerReason = "payout"
	ReasonRefund LedgerReason = "refund"
)

// String returns the reason value.
func (reason LedgerReason) String() string {
	return string(reason)
}

// ParseLedgerReason validates a stored reason value.
func ParseLedgerReason(raw string) (LedgerReason, error) {
	switch LedgerReason(raw) {
	case ReasonGrant, ReasonStake, ReasonPayout, ReasonRefund:
		return LedgerReason(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLedgerReason, raw)
}

// NewUserID validates and normalizes a user id.
func NewUserID(raw string) (UserID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UserID{}, fmt.Errorf("%w: empty value", ErrInvalidUserID)
	}
	return UserID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id UserID) String() string {
	return id.value
}

// NewEventID validates and normalizes an event id.
func NewEventID(raw string) (EventID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EventID{}, fmt.Errorf("%w: empty value", ErrInvalidEventID)
	}
	return EventID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id EventID) String() string {
	return id.value
}

// NewWagerID validates and normalizes a wager id.
func NewWagerID(raw string) (WagerID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return WagerID{}, fmt.Errorf("%w: empty value", ErrInvalidWagerID)
	}
	return WagerID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id WagerID) String() string {
	return id.value
}

// NewSelection validates and normalizes a selection.
func NewSelection(raw string) (Selection, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Selection{}, fmt.Errorf("%w: empty value", ErrInvalidSelection)
	}
	return Selection{value: trimmed}, nil
}

// String returns the normalized selection.
func (selection Selection) String() string {
	return selection.value
}

// NewMetadataJSON validates metadata (defaulting to "{}" for empty inputs).
func NewMetadataJSON(raw string) (MetadataJSON, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		normalized = "{}"
	}
	if !json.Valid([]byte(normalized)) {
		return MetadataJSON{}, fmt.Errorf("%w: must be valid json", ErrInvalidMetadataJSON)
	}
	return MetadataJSON{value: normalized}, nil
}

// String returns the normalized JSON blob.
func (metadata MetadataJSON) String() string {
	return metadata.value
}

// NewAmountCents validates a non-negative amount.
func NewAmountCents(raw int64) (AmountCents, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidAmountCents)
	}
	return AmountCents(raw), nil
}

// Int64 returns the raw amount.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// NewStakeCents validates a strictly positive stake.
func NewStakeCents(raw int64) (StakeCents, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidStakeCents)
	}
	return StakeCents(raw), nil
}

// Int64 returns the raw stake.
func (stake StakeCents) Int64() int64 {
	return int64(stake)
}

// ToAmountCents widens a stake into a plain amount.
func (stake StakeCents) ToAmountCents() AmountCents {
	return AmountCents(stake)
}

// NewPrice validates an American moneyline price. Moneylines are quoted at
// 100 or longer on either side; zero and the (-100, 100) band are not
// representable prices.
func NewPrice(raw int64) (Price, error) {
	if raw > -100 && raw < 100 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPrice, raw)
	}
	return Price(raw), nil
}

// Int64 returns the raw price.
func (price Price) Int64() int64 {
	return int64(price)
}

// Account is the durable balance record for one user.
type Account struct {
	UserID         UserID
	BalanceCents   AmountCents
	CreatedUnixUTC int64
}

// Wager is a single bet on one side of one event.
type Wager struct {
	WagerID          WagerID
	UserID           UserID
	EventID          EventID
	Selection        Selection
	StakeCents       StakeCents
	PriceAtPlacement Price
	State            WagerState
	ProfitCents      AmountCents
	PayoutCents      AmountCents
	PlacedUnixUTC    int64
	SettledUnixUTC   int64
}

// LedgerEntry is a single immutable balance-affecting delta.
type LedgerEntry struct {
	EntryID        string
	UserID         UserID
	DeltaCents     int64
	Reason         LedgerReason
	WagerID        *WagerID
	MetadataJSON   MetadataJSON
	CreatedUnixUTC int64
}

// Quote is one selection's moneyline price for an event.
type Quote struct {
	Selection Selection
	Price     Price
}

// PlaceWagerRequest carries a validated placement request across the call
// boundary.
type PlaceWagerRequest struct {
	UserID    UserID
	EventID   EventID
	Selection Selection
	Stake     StakeCents
	Metadata  MetadataJSON
}

// SettlementResult reports the resolved wager back to the caller and the
// notification gateway.
type SettlementResult struct {
	WagerID        WagerID
	UserID         UserID
	EventID        EventID
	Selection      Selection
	State          WagerState
	StakeCents     StakeCents
	ProfitCents    AmountCents
	PayoutCents    AmountCents
	BalanceCents   AmountCents
	AlreadySettled bool
}

// OddsSource supplies moneyline prices for an event. It is the read-only
// boundary to the external odds feed; the price is captured once at placement
// and frozen on the wager afterwards.
type OddsSource interface {
	GetOdds(ctx context.Context, eventID EventID) ([]Quote, error)
}

// Store is the persistence contract used by Service. Implementations must
// serialize same-account operations: AccountForUpdate takes a row lock that
// is held until the surrounding WithTx closure commits or rolls back.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	CreateAccount(ctx context.Context, account Account) error
	GetAccount(ctx context.Context, userID UserID) (Account, error)
	AccountForUpdate(ctx context.Context, userID UserID) (Account, error)
	AddToBalance(ctx context.Context, userID UserID, deltaCents int64) error
	InsertWager(ctx context.Context, record Wager) error
	GetWager(ctx context.Context, wagerID WagerID) (Wager, error)
	WagerForUpdate(ctx context.Context, wagerID WagerID) (Wager, error)
	HasPendingWager(ctx context.Context, userID UserID, eventID EventID) (bool, error)
	TransitionWager(ctx context.Context, wagerID WagerID, from, to WagerState, profitCents, payoutCents AmountCents, settledUnixUTC int64) error
	PendingWagersByEvent(ctx context.Context, eventID EventID) ([]Wager, error)
	PendingWagersByUser(ctx context.Context, userID UserID) ([]Wager, error)
	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) error
	ListLedgerEntries(ctx context.Context, userID UserID, beforeUnixUTC int64, limit int) ([]LedgerEntry, error)
	UserStats(ctx context.Context, userID UserID) (Stats, error)
	Scoreboard(ctx context.Context, limit int) ([]ScoreboardEntry, error)
}
