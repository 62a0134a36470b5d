package settings

import (
	"fmt"
	"strconv"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// Point rule keys. Amounts are stored as settings so a program coordinator
// can tune them without a deploy.
const (
	KeyPointsMatchWin         = "points_match_win"
	KeyPointsMatchParticipate = "points_match_participate"
	KeyPointsSignupBonus      = "points_signup_bonus"
)

// Default point amounts applied on first startup.
const (
	DefaultPointsMatchWin         = 30
	DefaultPointsMatchParticipate = 10
	DefaultPointsSignupBonus      = 50
)

var intCache *cache.Cache[string, int]

// SetupDefaultSettings initializes default settings in the database
func SetupDefaultSettings(db *gorm.DB) error {
	defaults := []Setting{
		{Key: KeyPointsMatchWin, Value: strconv.Itoa(DefaultPointsMatchWin)},
		{Key: KeyPointsMatchParticipate, Value: strconv.Itoa(DefaultPointsMatchParticipate)},
		{Key: KeyPointsSignupBonus, Value: strconv.Itoa(DefaultPointsSignupBonus)},
	}
	err := sqlite.PerformWrite(slog.Default(), db, func(tx *gorm.DB) error {
		for _, setting := range defaults {
			// Use raw SQL for upsert
			err := tx.Exec(`
                INSERT INTO settings (key, value, created_at, updated_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(key) DO NOTHING
            `, setting.Key, setting.Value, time.Now().UTC(), time.Now().UTC()).Error
			if err != nil {
				slog.Default().Error("Failed to upsert setting", slog.String("key", setting.Key), slog.Any("error", err))
				return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})

	// Initialize the cache
	loadCache(db, slog.Default())

	return err
}

func loadCache(db *gorm.DB, logger *slog.Logger) {
	fetchFunc := func(key string) (int, error) {
		var value string
		err := db.Raw("SELECT value FROM settings WHERE key = ? LIMIT 1", key).Scan(&value).Error
		if err != nil {
			return 0, err
		}
		return strconv.Atoi(value)
	}
	intCache = cache.NewCache[string, int](logger, 5*time.Minute, fetchFunc)
}

// GetSetting retrieves a setting value from the database
func GetSetting(db *gorm.DB, key string) (string, error) {
	var setting Setting
	result := db.Where("key = ?", key).First(&setting)

	if result.Error != nil {
		return "", result.Error
	}

	return setting.Value, nil
}

// GetInt retrieves an integer setting, preferring the cache. fallback is
// returned when the key is missing or malformed.
func GetInt(db *gorm.DB, key string, fallback int) int {
	if intCache != nil {
		if v, err := intCache.Get(key); err == nil {
			return v
		}
	}

	value, err := GetSetting(db, key)
	if err != nil {
		return fallback
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return v
}

// PointsForMatchWin returns the configured award for winning a match.
func PointsForMatchWin(db *gorm.DB) int {
	return GetInt(db, KeyPointsMatchWin, DefaultPointsMatchWin)
}

// PointsForMatchParticipation returns the configured award for playing a match.
func PointsForMatchParticipation(db *gorm.DB) int {
	return GetInt(db, KeyPointsMatchParticipate, DefaultPointsMatchParticipate)
}

// PointsForSignup returns the configured welcome bonus for new accounts.
func PointsForSignup(db *gorm.DB) int {
	return GetInt(db, KeyPointsSignupBonus, DefaultPointsSignupBonus)
}

// UpdateSetting updates a point rule in the database using a transaction.
// Only known keys are accepted and every rule is a non-negative amount.
func UpdateSetting(db *gorm.DB, key string, value string) error {
	switch key {
	case KeyPointsMatchWin, KeyPointsMatchParticipate, KeyPointsSignupBonus:
	default:
		return fmt.Errorf("unknown setting key %q", key)
	}
	amount, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("setting %s must be an integer: %w", key, err)
	}
	if amount < 0 {
		return fmt.Errorf("setting %s cannot be negative", key)
	}

	err = sqlite.PerformWrite(slog.Default(), db, func(tx *gorm.DB) error {
		result := tx.Model(&Setting{}).Where("key = ?", key).Update("value", value)
		if result.Error != nil {
			return fmt.Errorf("failed to update setting: %w", result.Error)
		}

		// If no rows were affected, the setting might not exist - create it
		if result.RowsAffected == 0 {
			setting := Setting{
				Key:   key,
				Value: value,
			}
			if err := tx.Create(&setting).Error; err != nil {
				return fmt.Errorf("failed to create setting: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Clear the cache after a successful update
	if intCache != nil {
		intCache.Clear()
	}
	return nil
}

// SettingResponse represents a setting key-value pair for API responses
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GetAllSettingsForDisplay retrieves every setting for the admin screen.
func GetAllSettingsForDisplay(db *gorm.DB) ([]SettingResponse, error) {
	var allSettings []Setting
	if err := db.Order("key").Find(&allSettings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}

	result := make([]SettingResponse, 0, len(allSettings))
	for _, setting := range allSettings {
		result = append(result, SettingResponse{
			Key:   setting.Key,
			Value: setting.Value,
		})
	}
	return result, nil
}
