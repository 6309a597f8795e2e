package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Account represents the accounts table.
type Account struct {
	UserID       string    `gorm:"primaryKey"`
	BalanceCents int64     `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

// Wager mirrors the wagers table. Rows are never deleted; cancellation is a
// terminal state so the audit trail survives.
type Wager struct {
	WagerID          string    `gorm:"type:uuid;primaryKey"`
	UserID           string    `gorm:"not null;index:idx_wagers_user_state,priority:1"`
	EventID          string    `gorm:"not null;index:idx_wagers_event_state,priority:1"`
	Selection        string    `gorm:"not null"`
	StakeCents       int64     `gorm:"not null"`
	PriceAtPlacement int64     `gorm:"not null"`
	State            string    `gorm:"not null;index:idx_wagers_user_state,priority:2;index:idx_wagers_event_state,priority:2"`
	ProfitCents      int64     `gorm:"not null"`
	PayoutCents      int64     `gorm:"not null"`
	PlacedAt         time.Time `gorm:"not null"`
	SettledAt        *time.Time
}

func (Wager) TableName() string { return "wagers" }

func (record *Wager) BeforeCreate(tx *gorm.DB) error {
	if record.WagerID == "" {
		record.WagerID = uuid.NewString()
	}
	return nil
}

// LedgerEntry mirrors the ledger_entries table.
type LedgerEntry struct {
	EntryID    string         `gorm:"type:uuid;primaryKey"`
	UserID     string         `gorm:"not null;index:idx_ledger_user_created,priority:1"`
	DeltaCents int64          `gorm:"not null"`
	Reason     string         `gorm:"not null"`
	WagerID    *string        `gorm:"index"`
	Metadata   datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"not null;index:idx_ledger_user_created,priority:2"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }

func (entry *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	return nil
}
