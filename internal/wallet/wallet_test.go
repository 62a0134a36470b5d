package wallet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorcurl/internal/profiles"
	"floorcurl/internal/testsupport"
	"floorcurl/internal/wallet"
)

func TestBalanceOf(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("creates empty wallet on first read", func(t *testing.T) {
		elder := testsupport.CreateTestProfile(t, db, "balance.elder@example.com", profiles.RoleElder, nil)

		balance, err := wallet.BalanceOf(db, logger, elder.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, balance.GlobalPoints)
		assert.Equal(t, 0, balance.LocalPoints)

		// Reading again returns the same wallet row.
		again, err := wallet.BalanceOf(db, logger, elder.ID)
		require.NoError(t, err)
		assert.Equal(t, balance.ID, again.ID)
	})
}

func TestGrantLocal(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	store := testsupport.CreateTestStore(t, db, "Grant Pharmacy")
	elder := testsupport.CreateTestElder(t, db, "grant.elder@example.com", store.ID)

	t.Run("credits local points and records the entry", func(t *testing.T) {
		txn, err := wallet.GrantLocal(db, logger, elder.ID, &store.ID, 25, "warmup exercises")
		require.NoError(t, err)

		assert.Equal(t, wallet.TypeLocalGrant, txn.Type)
		assert.Equal(t, 25, txn.LocalDelta)
		assert.Equal(t, 0, txn.GlobalDelta)
		assert.Equal(t, 25, txn.LocalBalance)
		require.NotNil(t, txn.StoreID)
		assert.Equal(t, store.ID, *txn.StoreID)

		balance, err := wallet.BalanceOf(db, logger, elder.ID)
		require.NoError(t, err)
		assert.Equal(t, 25, balance.LocalPoints)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := wallet.GrantLocal(db, logger, elder.ID, &store.ID, 0, "nothing")
		assert.Error(t, err)

		_, err = wallet.GrantLocal(db, logger, elder.ID, &store.ID, -5, "negative")
		assert.Error(t, err)
	})
}

func TestRedeemLocal(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	store := testsupport.CreateTestStore(t, db, "Redeem Pharmacy")
	elder := testsupport.CreateTestElder(t, db, "redeem.elder@example.com", store.ID)

	_, err := wallet.GrantLocal(db, logger, elder.ID, &store.ID, 50, "initial grant")
	require.NoError(t, err)

	t.Run("debits local points", func(t *testing.T) {
		txn, err := wallet.RedeemLocal(db, logger, elder.ID, &store.ID, 30, "tea set")
		require.NoError(t, err)

		assert.Equal(t, wallet.TypeLocalRedeem, txn.Type)
		assert.Equal(t, -30, txn.LocalDelta)
		assert.Equal(t, 20, txn.LocalBalance)
	})

	t.Run("refuses to overdraw and writes nothing", func(t *testing.T) {
		before, err := wallet.HistoryOf(db, elder.ID, 100)
		require.NoError(t, err)

		_, err = wallet.RedeemLocal(db, logger, elder.ID, &store.ID, 999, "too expensive")
		assert.ErrorIs(t, err, wallet.ErrInsufficientPoints)

		balance, err := wallet.BalanceOf(db, logger, elder.ID)
		require.NoError(t, err)
		assert.Equal(t, 20, balance.LocalPoints)

		after, err := wallet.HistoryOf(db, elder.ID, 100)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})
}

func TestAdjust(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	elder := testsupport.CreateTestProfile(t, db, "adjust.elder@example.com", profiles.RoleElder, nil)

	t.Run("moves both balances", func(t *testing.T) {
		txn, err := wallet.Adjust(db, logger, elder.ID, 40, 15, "migration correction")
		require.NoError(t, err)

		assert.Equal(t, wallet.TypeAdjustment, txn.Type)
		assert.Equal(t, 40, txn.GlobalBalance)
		assert.Equal(t, 15, txn.LocalBalance)
	})

	t.Run("negative adjustment cannot go below zero", func(t *testing.T) {
		_, err := wallet.Adjust(db, logger, elder.ID, -999, 0, "bad correction")
		assert.ErrorIs(t, err, wallet.ErrInsufficientPoints)
	})
}

func TestHistoryOf(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	elder := testsupport.CreateTestProfile(t, db, "history.elder@example.com", profiles.RoleElder, nil)

	for i := 0; i < 3; i++ {
		_, err := wallet.Adjust(db, logger, elder.ID, 10, 0, "entry")
		require.NoError(t, err)
	}

	t.Run("returns newest first with running balances", func(t *testing.T) {
		history, err := wallet.HistoryOf(db, elder.ID, 10)
		require.NoError(t, err)
		require.Len(t, history, 3)

		assert.Equal(t, 30, history[0].GlobalBalance)
		assert.Equal(t, 10, history[len(history)-1].GlobalBalance)
	})

	t.Run("respects the limit", func(t *testing.T) {
		history, err := wallet.HistoryOf(db, elder.ID, 2)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})
}
