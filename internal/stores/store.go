package stores

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Store represents one franchise location.
type Store struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// StoreNotFoundError is returned when a store lookup fails.
type StoreNotFoundError struct {
	ID uint
}

func (e *StoreNotFoundError) Error() string {
	return fmt.Sprintf("store not found: %d", e.ID)
}

var activeCache *cache.Cache[string, bool]

// SetupActiveCache initializes the store-active cache. Binding and match
// recording check store activity on every request; the cache keeps that off
// the hot path.
func SetupActiveCache(db *gorm.DB, logger *slog.Logger) {
	fetchFunc := func(key string) (bool, error) {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return false, err
		}
		var store Store
		if err := db.Where("id = ?", uint(id)).First(&store).Error; err != nil {
			return false, err
		}
		return store.Active, nil
	}
	activeCache = cache.NewCache[string, bool](logger, 5*time.Minute, fetchFunc)
}

// IsStoreActive reports whether a store exists and is accepting activity.
func IsStoreActive(db *gorm.DB, id uint) (bool, error) {
	if activeCache != nil {
		active, err := activeCache.Get(strconv.FormatUint(uint64(id), 10))
		if err == nil {
			return active, nil
		}
		// Fall through to a direct read on cache errors
	}

	var store Store
	if err := db.Where("id = ?", id).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, &StoreNotFoundError{ID: id}
		}
		return false, err
	}
	return store.Active, nil
}

// FindByID retrieves a store by its ID.
func FindByID(db *gorm.DB, id uint) (*Store, error) {
	var store Store
	if err := db.Where("id = ?", id).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &StoreNotFoundError{ID: id}
		}
		return nil, err
	}
	return &store, nil
}

// ListAll retrieves every store.
func ListAll(db *gorm.DB) ([]Store, error) {
	var list []Store
	if err := db.Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Create registers a new store.
func Create(db *gorm.DB, logger *slog.Logger, store *Store) error {
	if store.Name == "" {
		return errors.New("store name cannot be empty")
	}
	store.CreatedAt = time.Now().UTC()
	store.Active = true
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(store).Error
	})
}

// Update saves changes to a store and invalidates the active cache.
func Update(db *gorm.DB, logger *slog.Logger, store *Store) error {
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Save(store).Error
	})
	if err != nil {
		return err
	}
	if activeCache != nil {
		activeCache.Clear()
	}
	return nil
}

// SetActive toggles a store in or out of service. Deactivation blocks new
// bindings and matches but keeps existing history.
func SetActive(db *gorm.DB, logger *slog.Logger, id uint, active bool) error {
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&Store{}).Where("id = ?", id).Update("active", active)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	if activeCache != nil {
		activeCache.Clear()
	}
	return nil
}
