package profiles

import (
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge/crypto"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// Profile is the application-level participant record, distinct from the
// login credentials it carries. PublicID is the UUID printed on QR badges.
type Profile struct {
	ID                uint   `gorm:"primaryKey"`
	PublicID          string `gorm:"uniqueIndex;not null"`
	Email             string `gorm:"uniqueIndex"`
	EncryptedPassword string
	DisplayName       string
	Role              Role      `gorm:"not null;default:'family'"`
	StoreID           *uint     `gorm:"index"`
	LinkedElderID     *uint     `gorm:"index"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// ErrProfileExists is returned when attempting to create a profile that already exists.
var ErrProfileExists = errors.New("profile already exists")

// ErrProfileNotFound is returned when a profile lookup fails.
var ErrProfileNotFound = gorm.ErrRecordNotFound

// FindByEmail retrieves a profile by email.
func FindByEmail(db *gorm.DB, email string) (*Profile, error) {
	var profile Profile
	if err := db.Where("email = ?", email).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByID retrieves a profile by ID.
func FindByID(db *gorm.DB, id uint) (*Profile, error) {
	var profile Profile
	if err := db.Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByPublicID retrieves a profile by its badge UUID.
func FindByPublicID(db *gorm.DB, publicID string) (*Profile, error) {
	var profile Profile
	if err := db.Where("public_id = ?", publicID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Register creates a self-service account. New signups always start as
// family members; elder and pharmacist accounts are provisioned by an admin.
func Register(db *gorm.DB, logger *slog.Logger, email, password, displayName string) (*Profile, error) {
	return create(db, logger, email, password, displayName, RoleFamily, nil)
}

// CreateWithRole provisions an account with an explicit role and optional
// store assignment. Used by admin tooling and the seeder.
func CreateWithRole(db *gorm.DB, logger *slog.Logger, email, password, displayName string, role Role, storeID *uint) (*Profile, error) {
	if !role.Valid() {
		return nil, errors.New("invalid role")
	}
	return create(db, logger, email, password, displayName, role, storeID)
}

// CreateAdminUser creates a new admin account with the supplied credentials.
// It returns ErrProfileExists if the account already exists.
func CreateAdminUser(db *gorm.DB, logger *slog.Logger, email, password string) error {
	_, err := create(db, logger, email, password, "Administrator", RoleAdmin, nil)
	return err
}

func create(db *gorm.DB, logger *slog.Logger, email, password, displayName string, role Role, storeID *uint) (*Profile, error) {
	// Check existence first
	if _, err := FindByEmail(db, email); err == nil {
		return nil, ErrProfileExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	if password == "" {
		return nil, errors.New("password cannot be empty")
	}

	hashedPassword, err := crypto.GeneratePasswordHash(password)
	if err != nil {
		return nil, err
	}

	newProfile := Profile{
		PublicID:          uuid.NewString(),
		Email:             email,
		EncryptedPassword: string(hashedPassword),
		DisplayName:       displayName,
		Role:              role,
		StoreID:           storeID,
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&newProfile).Error
	})
	if err != nil {
		return nil, err
	}
	return &newProfile, nil
}

// ChangePassword updates a profile's password given its email.
func ChangePassword(db *gorm.DB, logger *slog.Logger, email, password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	profile, err := FindByEmail(db, email)
	if err != nil {
		return err
	}

	hashedPassword, err := crypto.GeneratePasswordHash(password)
	if err != nil {
		return err
	}

	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(profile).Update("encrypted_password", string(hashedPassword)).Error
	})
}

// SetRole overwrites a profile's role. Authorization is the caller's
// responsibility; only the binding gateway and admin handlers reach this.
func SetRole(db *gorm.DB, logger *slog.Logger, profileID uint, role Role) error {
	if !role.Valid() {
		return errors.New("invalid role")
	}
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&Profile{}).Where("id = ?", profileID).Update("role", role)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// UpdateStore overwrites a profile's store assignment.
func UpdateStore(db *gorm.DB, logger *slog.Logger, profileID uint, storeID *uint) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&Profile{}).Where("id = ?", profileID).Update("store_id", storeID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// UpdateLinkedElder overwrites a family profile's elder link. A nil elderID
// unbinds. Last write wins; no history is kept.
func UpdateLinkedElder(db *gorm.DB, logger *slog.Logger, profileID uint, elderID *uint) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&Profile{}).Where("id = ?", profileID).Update("linked_elder_id", elderID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListAll retrieves every profile, ordered by creation.
func ListAll(db *gorm.DB) ([]Profile, error) {
	var list []Profile
	if err := db.Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListEldersByStore retrieves the elders currently bound to a store.
func ListEldersByStore(db *gorm.DB, storeID uint) ([]Profile, error) {
	var list []Profile
	if err := db.Where("role = ? AND store_id = ?", RoleElder, storeID).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// SetupAdminUserIfNotExists creates a default admin in the database if it
// doesn't already exist.
func SetupAdminUserIfNotExists(db *gorm.DB, email string) {
	logger := slog.Default()
	hashedPassword, err := crypto.GeneratePasswordHash("password")
	if err != nil {
		logger.Error("Failed to generate password hash", slog.Any("error", err))
		return
	}
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Exec(`
            INSERT INTO profiles (public_id, email, encrypted_password, display_name, role, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(email) DO NOTHING
        `, uuid.NewString(), email, hashedPassword, "Administrator", RoleAdmin, time.Now().UTC(), time.Now().UTC()).Error
	})
	if err != nil {
		logger.Error("Failed to upsert admin user", slog.String("email", email), slog.Any("error", err))
		return
	}
	logger.Info("Ensured admin user exists", slog.String("email", email))
}
