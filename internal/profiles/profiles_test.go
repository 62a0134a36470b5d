package profiles_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"floorcurl/internal/profiles"
	"floorcurl/internal/testsupport"
)

func TestParseRole(t *testing.T) {
	for _, role := range profiles.AllRoles() {
		parsed, err := profiles.ParseRole(string(role))
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}

	for _, raw := range []string{"", "superuser", "Admin", "ADMIN", "elderly"} {
		_, err := profiles.ParseRole(raw)
		assert.Errorf(t, err, "role %q should be rejected", raw)
	}
}

func TestFindByEmail(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("finds existing profile", func(t *testing.T) {
		created := testsupport.CreateTestProfile(t, db, "find@example.com", profiles.RoleFamily, nil)

		found, err := profiles.FindByEmail(db, "find@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("returns error for non-existent profile", func(t *testing.T) {
		found, err := profiles.FindByEmail(db, "nobody@example.com")
		assert.Nil(t, found)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestFindByPublicID(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	created := testsupport.CreateTestProfile(t, db, "badge@example.com", profiles.RoleElder, nil)

	found, err := profiles.FindByPublicID(db, created.PublicID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = profiles.FindByPublicID(db, uuid.NewString())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRegister(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("creates a family profile with a badge id", func(t *testing.T) {
		profile, err := profiles.Register(db, logger, "new.family@example.com", "password123", "New Family")
		require.NoError(t, err)

		assert.Equal(t, profiles.RoleFamily, profile.Role)
		assert.NotEmpty(t, profile.PublicID)
		_, err = uuid.Parse(profile.PublicID)
		assert.NoError(t, err, "badge id should be a valid UUID")
		assert.NotEqual(t, "password123", profile.EncryptedPassword)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		_, err := profiles.Register(db, logger, "dup@example.com", "password123", "First")
		require.NoError(t, err)

		_, err = profiles.Register(db, logger, "dup@example.com", "password456", "Second")
		assert.ErrorIs(t, err, profiles.ErrProfileExists)
	})
}

func TestCreateWithRole(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	store := testsupport.CreateTestStore(t, db, "Role Pharmacy")

	profile, err := profiles.CreateWithRole(db, logger, "role.pharm@example.com", "password123", "Pharm", profiles.RolePharmacist, &store.ID)
	require.NoError(t, err)
	assert.Equal(t, profiles.RolePharmacist, profile.Role)
	require.NotNil(t, profile.StoreID)
	assert.Equal(t, store.ID, *profile.StoreID)

	_, err = profiles.CreateWithRole(db, logger, "bad.role@example.com", "password123", "Bad", profiles.Role("superuser"), nil)
	assert.Error(t, err)
}

func TestSetRole(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	profile := testsupport.CreateTestProfile(t, db, "promote@example.com", profiles.RoleFamily, nil)

	t.Run("changes the role", func(t *testing.T) {
		require.NoError(t, profiles.SetRole(db, logger, profile.ID, profiles.RolePharmacist))

		reloaded, err := profiles.FindByID(db, profile.ID)
		require.NoError(t, err)
		assert.Equal(t, profiles.RolePharmacist, reloaded.Role)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		assert.Error(t, profiles.SetRole(db, logger, profile.ID, profiles.Role("root")))
	})

	t.Run("unknown profile reports not found", func(t *testing.T) {
		assert.ErrorIs(t, profiles.SetRole(db, logger, 99999, profiles.RoleAdmin), gorm.ErrRecordNotFound)
	})
}

func TestListEldersByStore(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	storeA := testsupport.CreateTestStore(t, db, "List Pharmacy A")
	storeB := testsupport.CreateTestStore(t, db, "List Pharmacy B")

	testsupport.CreateTestElder(t, db, "a1.elder@example.com", storeA.ID)
	testsupport.CreateTestElder(t, db, "a2.elder@example.com", storeA.ID)
	testsupport.CreateTestElder(t, db, "b1.elder@example.com", storeB.ID)
	testsupport.CreateTestProfile(t, db, "a.pharm@example.com", profiles.RolePharmacist, &storeA.ID)

	elders, err := profiles.ListEldersByStore(db, storeA.ID)
	require.NoError(t, err)
	require.Len(t, elders, 2)
	for _, e := range elders {
		assert.Equal(t, profiles.RoleElder, e.Role)
		require.NotNil(t, e.StoreID)
		assert.Equal(t, storeA.ID, *e.StoreID)
	}
}

func TestSetupAdminUserIfNotExists(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	profiles.SetupAdminUserIfNotExists(db, "boot.admin@example.com")

	admin, err := profiles.FindByEmail(db, "boot.admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, profiles.RoleAdmin, admin.Role)

	// Idempotent: running again does not duplicate or reset the account.
	profiles.SetupAdminUserIfNotExists(db, "boot.admin@example.com")
	var count int64
	require.NoError(t, db.Model(&profiles.Profile{}).Where("email = ?", "boot.admin@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
