package settings_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorcurl/internal/settings"
	"floorcurl/internal/testsupport"
)

func TestPointRuleDefaults(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	assert.Equal(t, settings.DefaultPointsMatchWin, settings.PointsForMatchWin(db))
	assert.Equal(t, settings.DefaultPointsMatchParticipate, settings.PointsForMatchParticipation(db))
	assert.Equal(t, settings.DefaultPointsSignupBonus, settings.PointsForSignup(db))
}

func TestUpdateSetting(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("changes a point rule", func(t *testing.T) {
		require.NoError(t, settings.UpdateSetting(db, settings.KeyPointsMatchWin, "45"))
		assert.Equal(t, 45, settings.PointsForMatchWin(db))
	})

	t.Run("rejects non-numeric values", func(t *testing.T) {
		assert.Error(t, settings.UpdateSetting(db, settings.KeyPointsMatchWin, "lots"))
	})

	t.Run("rejects negative values", func(t *testing.T) {
		assert.Error(t, settings.UpdateSetting(db, settings.KeyPointsMatchWin, "-5"))
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		assert.Error(t, settings.UpdateSetting(db, "points_mystery", "10"))
	})
}

func TestGetAllSettingsForDisplay(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	list, err := settings.GetAllSettingsForDisplay(db)
	require.NoError(t, err)

	keys := make([]string, 0, len(list))
	for _, s := range list {
		keys = append(keys, s.Key)
	}
	assert.Contains(t, keys, settings.KeyPointsMatchWin)
	assert.Contains(t, keys, settings.KeyPointsMatchParticipate)
	assert.Contains(t, keys, settings.KeyPointsSignupBonus)
}
