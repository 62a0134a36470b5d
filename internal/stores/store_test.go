package stores_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorcurl/internal/stores"
	"floorcurl/internal/testsupport"
)

func TestIsStoreActive(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	store := testsupport.CreateTestStore(t, db, "Cache Pharmacy")

	t.Run("reports active store", func(t *testing.T) {
		active, err := stores.IsStoreActive(db, store.ID)
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("deactivation is visible immediately", func(t *testing.T) {
		require.NoError(t, stores.SetActive(db, logger, store.ID, false))

		active, err := stores.IsStoreActive(db, store.ID)
		require.NoError(t, err)
		assert.False(t, active)

		require.NoError(t, stores.SetActive(db, logger, store.ID, true))
		active, err = stores.IsStoreActive(db, store.ID)
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("unknown store reports not found", func(t *testing.T) {
		_, err := stores.IsStoreActive(db, 99999)
		var notFound *stores.StoreNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestCreateStore(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("creates and lists", func(t *testing.T) {
		store := &stores.Store{Name: "New Pharmacy", Active: true}
		require.NoError(t, stores.Create(db, logger, store))
		assert.NotZero(t, store.ID)

		list, err := stores.ListAll(db)
		require.NoError(t, err)
		assert.NotEmpty(t, list)
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		require.NoError(t, stores.Create(db, logger, &stores.Store{Name: "Twin Pharmacy", Active: true}))
		err := stores.Create(db, logger, &stores.Store{Name: "Twin Pharmacy", Active: true})
		assert.Error(t, err)
	})
}
