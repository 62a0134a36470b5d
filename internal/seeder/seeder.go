// Package seeder loads a demo roster so a fresh install has stores, accounts,
// products and a few played matches to look at.
package seeder

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"floorcurl/internal/matches"
	"floorcurl/internal/profiles"
	"floorcurl/internal/shop"
	"floorcurl/internal/stores"
	"floorcurl/internal/wallet"
)

//go:embed roster.yaml
var rosterYAML []byte

type rosterStore struct {
	Name        string `yaml:"name"`
	Pharmacists []struct {
		Email       string `yaml:"email"`
		DisplayName string `yaml:"display_name"`
	} `yaml:"pharmacists"`
	Elders []struct {
		Email       string `yaml:"email"`
		DisplayName string `yaml:"display_name"`
		Family      string `yaml:"family,omitempty"`
	} `yaml:"elders"`
	Products []struct {
		Name        string `yaml:"name"`
		PricePoints int    `yaml:"price_points"`
		Stock       int    `yaml:"stock"`
	} `yaml:"products"`
}

type roster struct {
	Password string        `yaml:"password"`
	Stores   []rosterStore `yaml:"stores"`
}

// Seeder loads the demo roster into the database.
type Seeder struct {
	DBManager cartridge.DBManager
	Logger    *slog.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager: dbManager,
		Logger:    logger,
	}
}

// Seed creates the roster's stores, accounts and products, then plays a demo
// match per store so the ledgers have entries. Idempotent: existing rows are
// reused, matches are only played for stores without any.
func (s *Seeder) Seed(ctx context.Context) error {
	start := time.Now()

	var r roster
	if err := yaml.Unmarshal(rosterYAML, &r); err != nil {
		return fmt.Errorf("failed to parse roster: %w", err)
	}
	if r.Password == "" {
		r.Password = "floorcurl-demo"
	}

	db := s.DBManager.GetConnection()

	for _, rs := range r.Stores {
		if err := ctx.Err(); err != nil {
			return err
		}

		store, err := s.ensureStore(db, rs.Name)
		if err != nil {
			return err
		}

		var elders []*profiles.Profile
		for _, e := range rs.Elders {
			elder, err := s.ensureProfile(db, e.Email, e.DisplayName, r.Password, profiles.RoleElder, &store.ID)
			if err != nil {
				return err
			}
			elders = append(elders, elder)

			if e.Family != "" {
				family, err := s.ensureProfile(db, e.Family, "Family of "+e.DisplayName, r.Password, profiles.RoleFamily, nil)
				if err != nil {
					return err
				}
				if family.LinkedElderID == nil {
					if err := profiles.UpdateLinkedElder(db, s.Logger, family.ID, &elder.ID); err != nil {
						return fmt.Errorf("failed to link family %s: %w", e.Family, err)
					}
				}
			}
		}

		for _, p := range rs.Pharmacists {
			if _, err := s.ensureProfile(db, p.Email, p.DisplayName, r.Password, profiles.RolePharmacist, &store.ID); err != nil {
				return err
			}
		}

		for _, p := range rs.Products {
			if err := s.ensureProduct(db, store.ID, p.Name, p.PricePoints, p.Stock); err != nil {
				return err
			}
		}

		if err := s.playDemoMatch(db, store, elders); err != nil {
			return err
		}
	}

	s.Logger.Info("Seeding completed",
		slog.Int("stores", len(r.Stores)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Seeder) ensureStore(db *gorm.DB, name string) (*stores.Store, error) {
	var store stores.Store
	err := db.Where("name = ?", name).First(&store).Error
	if err == nil {
		return &store, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up store %s: %w", name, err)
	}

	store = stores.Store{Name: name, Active: true}
	if err := stores.Create(db, s.Logger, &store); err != nil {
		return nil, fmt.Errorf("failed to create store %s: %w", name, err)
	}
	s.Logger.Info("Seeded store", slog.String("name", name))
	return &store, nil
}

func (s *Seeder) ensureProfile(db *gorm.DB, email, displayName, password string, role profiles.Role, storeID *uint) (*profiles.Profile, error) {
	profile, err := profiles.FindByEmail(db, email)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, profiles.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to look up profile %s: %w", email, err)
	}

	profile, err = profiles.CreateWithRole(db, s.Logger, email, password, displayName, role, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile %s: %w", email, err)
	}
	s.Logger.Info("Seeded profile",
		slog.String("email", email),
		slog.String("role", role.String()))
	return profile, nil
}

func (s *Seeder) ensureProduct(db *gorm.DB, storeID uint, name string, pricePoints, stock int) error {
	var count int64
	if err := db.Model(&shop.Product{}).
		Where("store_id = ? AND name = ?", storeID, name).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up product %s: %w", name, err)
	}
	if count > 0 {
		return nil
	}

	product := &shop.Product{
		Name:        name,
		PricePoints: pricePoints,
		Stock:       stock,
		StoreID:     &storeID,
		Active:      true,
	}
	if err := shop.Create(db, s.Logger, product); err != nil {
		return fmt.Errorf("failed to create product %s: %w", name, err)
	}
	return nil
}

// playDemoMatch records one match with the store's elders split over both
// teams, leaving participation and win entries in every elder's ledger.
func (s *Seeder) playDemoMatch(db *gorm.DB, store *stores.Store, elders []*profiles.Profile) error {
	if len(elders) < 2 {
		return nil
	}

	var count int64
	if err := db.Model(&matches.Match{}).Where("store_id = ?", store.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count matches for store %s: %w", store.Name, err)
	}
	if count > 0 {
		return nil
	}

	match, err := matches.Create(db, s.Logger, store.ID, time.Now().Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to create demo match: %w", err)
	}

	for i, elder := range elders {
		team := matches.TeamRed
		if i%2 == 1 {
			team = matches.TeamBlue
		}
		if err := matches.AddParticipant(db, s.Logger, match.ID, elder, team); err != nil {
			return fmt.Errorf("failed to add participant %s: %w", elder.Email, err)
		}
	}

	result, err := matches.RecordResult(db, s.Logger, match.ID, 7, 5)
	if err != nil {
		return fmt.Errorf("failed to record demo match result: %w", err)
	}

	// Sanity check the ledger got entries.
	if _, err := wallet.BalanceOf(db, s.Logger, elders[0].ID); err != nil {
		return fmt.Errorf("failed to read demo wallet: %w", err)
	}

	s.Logger.Info("Seeded demo match",
		slog.String("store", store.Name),
		slog.String("winning_team", string(result.WinningTeam)))
	return nil
}
