// Package matches records floor-curling matches per store and settles their
// point awards on the wallet ledger.
package matches

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"floorcurl/internal/profiles"
	"floorcurl/internal/settings"
	"floorcurl/internal/stores"
	"floorcurl/internal/wallet"
)

// Team names the two sides of a match.
type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Valid reports whether t is a known team.
func (t Team) Valid() bool {
	return t == TeamRed || t == TeamBlue
}

// Match is one floor-curling game at a store. Scores are written when the
// result is recorded; Recorded guards against double settlement.
type Match struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StoreID   uint      `gorm:"index;not null" json:"store_id"`
	PlayedAt  time.Time `gorm:"not null" json:"played_at"`
	RedScore  int       `gorm:"not null;default:0" json:"red_score"`
	BlueScore int       `gorm:"not null;default:0" json:"blue_score"`
	Recorded  bool      `gorm:"not null;default:false;index" json:"recorded"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Participant places an elder on one team of a match.
type Participant struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	MatchID   uint `gorm:"index:idx_match_profile,unique;not null" json:"match_id"`
	ProfileID uint `gorm:"index:idx_match_profile,unique;not null" json:"profile_id"`
	Team      Team `gorm:"not null" json:"team"`
}

// ErrAlreadyRecorded is returned when a result is recorded twice.
var ErrAlreadyRecorded = errors.New("match result already recorded")

// ErrNoParticipants is returned when a result is recorded for an empty match.
var ErrNoParticipants = errors.New("match has no participants")

// MatchNotFoundError is returned when a match lookup fails.
type MatchNotFoundError struct {
	ID uint
}

func (e *MatchNotFoundError) Error() string {
	return fmt.Sprintf("match not found: %d", e.ID)
}

// Create opens a new match at a store. The store must exist and be active.
func Create(db *gorm.DB, logger *slog.Logger, storeID uint, playedAt time.Time) (*Match, error) {
	active, err := stores.IsStoreActive(db, storeID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, errors.New("store is not active")
	}

	if playedAt.IsZero() {
		playedAt = time.Now().UTC()
	}

	match := Match{StoreID: storeID, PlayedAt: playedAt}
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&match).Error
	})
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// FindByID retrieves a match.
func FindByID(db *gorm.DB, id uint) (*Match, error) {
	var match Match
	if err := db.Where("id = ?", id).First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &MatchNotFoundError{ID: id}
		}
		return nil, err
	}
	return &match, nil
}

// AddParticipant puts an elder of the match's store on a team. Participants
// cannot change once the result is recorded.
func AddParticipant(db *gorm.DB, logger *slog.Logger, matchID uint, elder *profiles.Profile, team Team) error {
	if !team.Valid() {
		return fmt.Errorf("unknown team: %q", team)
	}
	if elder == nil || elder.Role != profiles.RoleElder {
		return errors.New("participant must be an elder")
	}

	match, err := FindByID(db, matchID)
	if err != nil {
		return err
	}
	if match.Recorded {
		return ErrAlreadyRecorded
	}
	if elder.StoreID == nil || *elder.StoreID != match.StoreID {
		return errors.New("elder is not bound to the match's store")
	}

	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Participant{}).
			Where("match_id = ? AND profile_id = ?", matchID, elder.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.New("elder already participates in this match")
		}
		return tx.Create(&Participant{MatchID: matchID, ProfileID: elder.ID, Team: team}).Error
	})
}

// Result summarizes a recorded match.
type Result struct {
	Match        *Match `json:"match"`
	WinningTeam  Team   `json:"winning_team,omitempty"` // empty on a draw
	Participants int    `json:"participants"`
	Winners      int    `json:"winners"`
}

// RecordResult settles a match exactly once: it stores the scores, awards
// participation points to every elder and win points to the winning team,
// and marks the match recorded — all in a single transaction. A draw awards
// participation only.
func RecordResult(db *gorm.DB, logger *slog.Logger, matchID uint, redScore, blueScore int) (*Result, error) {
	if redScore < 0 || blueScore < 0 {
		return nil, errors.New("scores cannot be negative")
	}

	winPoints := settings.PointsForMatchWin(db)
	participatePoints := settings.PointsForMatchParticipation(db)

	var result *Result
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		var match Match
		if err := tx.Where("id = ?", matchID).First(&match).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &MatchNotFoundError{ID: matchID}
			}
			return err
		}
		if match.Recorded {
			return ErrAlreadyRecorded
		}

		var participants []Participant
		if err := tx.Where("match_id = ?", matchID).Find(&participants).Error; err != nil {
			return err
		}
		if len(participants) == 0 {
			return ErrNoParticipants
		}

		var winningTeam Team
		switch {
		case redScore > blueScore:
			winningTeam = TeamRed
		case blueScore > redScore:
			winningTeam = TeamBlue
		}

		winners := 0
		for _, p := range participants {
			if _, err := wallet.ApplyTx(tx, wallet.Entry{
				ProfileID:   p.ProfileID,
				StoreID:     &match.StoreID,
				Type:        wallet.TypeMatchParticipate,
				GlobalDelta: participatePoints,
				Note:        fmt.Sprintf("match %d participation", matchID),
			}); err != nil {
				return err
			}

			if winningTeam != "" && p.Team == winningTeam {
				winners++
				if _, err := wallet.ApplyTx(tx, wallet.Entry{
					ProfileID:   p.ProfileID,
					StoreID:     &match.StoreID,
					Type:        wallet.TypeMatchWin,
					GlobalDelta: winPoints,
					Note:        fmt.Sprintf("match %d win", matchID),
				}); err != nil {
					return err
				}
			}
		}

		if err := tx.Model(&match).Updates(map[string]interface{}{
			"red_score":  redScore,
			"blue_score": blueScore,
			"recorded":   true,
		}).Error; err != nil {
			return err
		}

		match.RedScore = redScore
		match.BlueScore = blueScore
		match.Recorded = true
		result = &Result{
			Match:        &match,
			WinningTeam:  winningTeam,
			Participants: len(participants),
			Winners:      winners,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListByStore returns a store's most recent matches.
func ListByStore(db *gorm.DB, storeID uint, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []Match
	if err := db.Where("store_id = ?", storeID).Order("played_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ParticipantsOf returns a match's roster.
func ParticipantsOf(db *gorm.DB, matchID uint) ([]Participant, error) {
	var list []Participant
	if err := db.Where("match_id = ?", matchID).Order("id").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// PruneStale deletes matches that were opened before the cutoff but never
// recorded, together with their rosters. Returns the number of matches
// removed.
func PruneStale(db *gorm.DB, logger *slog.Logger, cutoff time.Time) (int64, error) {
	var pruned int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		var stale []Match
		if err := tx.Where("recorded = ? AND created_at < ?", false, cutoff).Find(&stale).Error; err != nil {
			return err
		}
		for _, match := range stale {
			if err := tx.Where("match_id = ?", match.ID).Delete(&Participant{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&Match{}, match.ID).Error; err != nil {
				return err
			}
			pruned++
		}
		return nil
	})
	return pruned, err
}
