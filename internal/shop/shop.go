// Package shop is the point-redemption catalog. Redemption debits the
// wallet ledger and decrements stock in one transaction.
package shop

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"floorcurl/internal/wallet"
)

// Product is one redeemable catalog item. A nil StoreID means the item is
// available at every store.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StoreID     *uint     `gorm:"index" json:"store_id"`
	Name        string    `gorm:"not null" json:"name"`
	PricePoints int       `gorm:"not null" json:"price_points"`
	Stock       int       `gorm:"not null;default:0" json:"stock"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ErrOutOfStock is returned when a redemption finds no remaining stock.
var ErrOutOfStock = errors.New("product out of stock")

// ErrProductInactive is returned when redeeming a delisted product.
var ErrProductInactive = errors.New("product is not active")

// ProductNotFoundError is returned when a product lookup fails.
type ProductNotFoundError struct {
	ID uint
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %d", e.ID)
}

// Create adds a product to the catalog.
func Create(db *gorm.DB, logger *slog.Logger, product *Product) error {
	if product.Name == "" {
		return errors.New("product name cannot be empty")
	}
	if product.PricePoints <= 0 {
		return errors.New("product price must be positive")
	}
	product.Active = true
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(product).Error
	})
}

// Update saves changes to a product.
func Update(db *gorm.DB, logger *slog.Logger, product *Product) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Save(product).Error
	})
}

// FindByID retrieves a product.
func FindByID(db *gorm.DB, id uint) (*Product, error) {
	var product Product
	if err := db.Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ProductNotFoundError{ID: id}
		}
		return nil, err
	}
	return &product, nil
}

// ListForStore returns the active catalog visible at a store: the
// program-wide items plus the store's own.
func ListForStore(db *gorm.DB, storeID uint) ([]Product, error) {
	var list []Product
	if err := db.Where("active = ? AND (store_id IS NULL OR store_id = ?)", true, storeID).
		Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListAll returns every product, for the admin catalog screen.
func ListAll(db *gorm.DB) ([]Product, error) {
	var list []Product
	if err := db.Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Redeem exchanges a participant's local points for a product. Stock and
// wallet are updated in the same transaction, so an insufficient balance
// leaves the stock untouched and vice versa.
func Redeem(db *gorm.DB, logger *slog.Logger, profileID, productID uint) (*wallet.Transaction, error) {
	var record *wallet.Transaction
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		var product Product
		if err := tx.Where("id = ?", productID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ProductNotFoundError{ID: productID}
			}
			return err
		}
		if !product.Active {
			return ErrProductInactive
		}
		if product.Stock <= 0 {
			return ErrOutOfStock
		}

		if err := tx.Model(&product).Update("stock", product.Stock-1).Error; err != nil {
			return err
		}

		var txErr error
		record, txErr = wallet.ApplyTx(tx, wallet.Entry{
			ProfileID:  profileID,
			StoreID:    product.StoreID,
			Type:       wallet.TypeLocalRedeem,
			LocalDelta: -product.PricePoints,
			Note:       fmt.Sprintf("redeemed %s", product.Name),
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}
