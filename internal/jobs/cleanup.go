package jobs

import (
	"log/slog"
	"time"

	"floorcurl/internal/config"
	"floorcurl/internal/database"
	"floorcurl/internal/matches"
)

// MaintenanceJob prunes matches that were opened but never scored and
// compacts the WAL afterwards.
type MaintenanceJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

// NewMaintenanceJob creates the daily maintenance job.
func NewMaintenanceJob(dbManager *database.DBManager, logger *slog.Logger, cfg *config.Config) *MaintenanceJob {
	return &MaintenanceJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run removes unrecorded matches older than the retention period. Recorded
// matches are never touched; their ledger entries are permanent.
func (j *MaintenanceJob) Run() error {
	retentionDays := j.cfg.StaleMatchRetentionDays
	db := j.dbManager.GetConnection()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting cleanup of stale unrecorded matches",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoff))

	pruned, err := matches.PruneStale(db, j.logger, cutoff)
	if err != nil {
		j.logger.Error("Failed to prune stale matches", slog.Any("error", err))
		return err
	}

	if pruned == 0 {
		j.logger.Debug("No stale matches to clean up")
		return nil
	}

	j.logger.Info("Cleaned up stale matches",
		slog.Int64("pruned_count", pruned),
		slog.Int("retention_days", retentionDays))

	if err := j.dbManager.CheckpointWAL("PASSIVE"); err != nil {
		j.logger.Warn("Failed to checkpoint WAL after cleanup", slog.Any("error", err))
	}

	return nil
}
