// Package wallet is the points ledger. Wallet rows are never mutated
// directly by handlers; every balance change goes through Apply so the
// transaction log and the balances can not drift apart.
package wallet

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Wallet holds a participant's current point balances. Global points are
// earned program-wide (matches, signup bonus); local points are granted and
// redeemed at a participant's store.
type Wallet struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProfileID    uint      `gorm:"uniqueIndex;not null" json:"profile_id"`
	GlobalPoints int       `gorm:"not null;default:0" json:"global_points"`
	LocalPoints  int       `gorm:"not null;default:0" json:"local_points"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TransactionType enumerates the ledger entry kinds.
type TransactionType string

const (
	TypeMatchWin         TransactionType = "match_win"
	TypeMatchParticipate TransactionType = "match_participate"
	TypeLocalGrant       TransactionType = "local_grant"
	TypeLocalRedeem      TransactionType = "local_redeem"
	TypeAdjustment       TransactionType = "adjustment"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeMatchWin, TypeMatchParticipate, TypeLocalGrant, TypeLocalRedeem, TypeAdjustment:
		return true
	}
	return false
}

// Transaction is one append-only ledger entry. Balances are the wallet's
// balances after the deltas were applied.
type Transaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ProfileID     uint            `gorm:"index;not null" json:"profile_id"`
	StoreID       *uint           `gorm:"index" json:"store_id"`
	Type          TransactionType `gorm:"not null" json:"type"`
	GlobalDelta   int             `gorm:"not null;default:0" json:"global_delta"`
	LocalDelta    int             `gorm:"not null;default:0" json:"local_delta"`
	GlobalBalance int             `gorm:"not null" json:"global_balance"`
	LocalBalance  int             `gorm:"not null" json:"local_balance"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// ErrInsufficientPoints is returned when a redemption would drive a balance
// below zero. Nothing is written in that case.
var ErrInsufficientPoints = errors.New("insufficient points")

// Entry describes a balance change to record.
type Entry struct {
	ProfileID   uint
	StoreID     *uint
	Type        TransactionType
	GlobalDelta int
	LocalDelta  int
	Note        string
}

// ApplyTx records an entry inside an existing transaction. Used by match
// recording and shop redemption to compose the ledger write with their own
// updates atomically.
func ApplyTx(tx *gorm.DB, e Entry) (*Transaction, error) {
	if !e.Type.Valid() {
		return nil, fmt.Errorf("unknown transaction type: %q", e.Type)
	}

	w, err := getOrCreateTx(tx, e.ProfileID)
	if err != nil {
		return nil, err
	}

	newGlobal := w.GlobalPoints + e.GlobalDelta
	newLocal := w.LocalPoints + e.LocalDelta
	if newGlobal < 0 || newLocal < 0 {
		return nil, ErrInsufficientPoints
	}

	if err := tx.Model(w).Updates(map[string]interface{}{
		"global_points": newGlobal,
		"local_points":  newLocal,
	}).Error; err != nil {
		return nil, err
	}

	record := Transaction{
		ProfileID:     e.ProfileID,
		StoreID:       e.StoreID,
		Type:          e.Type,
		GlobalDelta:   e.GlobalDelta,
		LocalDelta:    e.LocalDelta,
		GlobalBalance: newGlobal,
		LocalBalance:  newLocal,
		Note:          e.Note,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Apply records a single entry in its own write transaction.
func Apply(db *gorm.DB, logger *slog.Logger, e Entry) (*Transaction, error) {
	var record *Transaction
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		var txErr error
		record, txErr = ApplyTx(tx, e)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GrantLocal awards store points to a participant.
func GrantLocal(db *gorm.DB, logger *slog.Logger, profileID uint, storeID *uint, amount int, note string) (*Transaction, error) {
	if amount <= 0 {
		return nil, errors.New("grant amount must be positive")
	}
	return Apply(db, logger, Entry{
		ProfileID:  profileID,
		StoreID:    storeID,
		Type:       TypeLocalGrant,
		LocalDelta: amount,
		Note:       note,
	})
}

// RedeemLocal spends store points. Returns ErrInsufficientPoints without
// writing anything when the balance does not cover the amount.
func RedeemLocal(db *gorm.DB, logger *slog.Logger, profileID uint, storeID *uint, amount int, note string) (*Transaction, error) {
	if amount <= 0 {
		return nil, errors.New("redeem amount must be positive")
	}
	return Apply(db, logger, Entry{
		ProfileID:  profileID,
		StoreID:    storeID,
		Type:       TypeLocalRedeem,
		LocalDelta: -amount,
		Note:       note,
	})
}

// Adjust records a manual correction by an admin.
func Adjust(db *gorm.DB, logger *slog.Logger, profileID uint, globalDelta, localDelta int, note string) (*Transaction, error) {
	return Apply(db, logger, Entry{
		ProfileID:   profileID,
		Type:        TypeAdjustment,
		GlobalDelta: globalDelta,
		LocalDelta:  localDelta,
		Note:        note,
	})
}

func getOrCreateTx(tx *gorm.DB, profileID uint) (*Wallet, error) {
	var w Wallet
	err := tx.Where("profile_id = ?", profileID).First(&w).Error
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	w = Wallet{ProfileID: profileID}
	if err := tx.Create(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// BalanceOf returns a participant's wallet, creating an empty one on first
// read so callers never see a missing row.
func BalanceOf(db *gorm.DB, logger *slog.Logger, profileID uint) (*Wallet, error) {
	var w Wallet
	err := db.Where("profile_id = ?", profileID).First(&w).Error
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		created, txErr := getOrCreateTx(tx, profileID)
		if txErr != nil {
			return txErr
		}
		w = *created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// HistoryOf returns a participant's most recent ledger entries.
func HistoryOf(db *gorm.DB, profileID uint, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []Transaction
	if err := db.Where("profile_id = ?", profileID).Order("id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListRecent returns the most recent entries across all wallets, for the
// admin transaction screen.
func ListRecent(db *gorm.DB, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []Transaction
	if err := db.Order("id DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
