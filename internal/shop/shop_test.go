package shop_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorcurl/internal/shop"
	"floorcurl/internal/testsupport"
	"floorcurl/internal/wallet"
)

func TestListForStore(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	store := testsupport.CreateTestStore(t, db, "Shop Pharmacy")
	other := testsupport.CreateTestStore(t, db, "Other Shop Pharmacy")

	testsupport.CreateTestProduct(t, db, "Store tea", 40, 10, &store.ID)
	testsupport.CreateTestProduct(t, db, "Other store tea", 40, 10, &other.ID)
	testsupport.CreateTestProduct(t, db, "Program towel", 60, 5, nil)
	inactive := testsupport.CreateTestProduct(t, db, "Retired item", 10, 10, &store.ID)
	inactive.Active = false
	require.NoError(t, db.Save(inactive).Error)

	list, err := shop.ListForStore(db, store.ID)
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	for _, p := range list {
		names = append(names, p.Name)
	}
	// Own store's products plus program-wide ones; never another store's or
	// inactive items.
	assert.ElementsMatch(t, []string{"Store tea", "Program towel"}, names)
}

func TestCreateProduct(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("rejects empty name", func(t *testing.T) {
		err := shop.Create(db, logger, &shop.Product{Name: "", PricePoints: 10, Active: true})
		assert.Error(t, err)
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		err := shop.Create(db, logger, &shop.Product{Name: "Freebie", PricePoints: 0, Active: true})
		assert.Error(t, err)
	})
}

func TestRedeem(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	store := testsupport.CreateTestStore(t, db, "Redeem Shop Pharmacy")
	elder := testsupport.CreateTestElder(t, db, "shopper.elder@example.com", store.ID)
	product := testsupport.CreateTestProduct(t, db, "Heat pack", 30, 2, &store.ID)

	_, err := wallet.GrantLocal(db, logger, elder.ID, &store.ID, 100, "starting balance")
	require.NoError(t, err)

	t.Run("debits points and decrements stock atomically", func(t *testing.T) {
		txn, err := shop.Redeem(db, logger, elder.ID, product.ID)
		require.NoError(t, err)

		assert.Equal(t, wallet.TypeLocalRedeem, txn.Type)
		assert.Equal(t, -30, txn.LocalDelta)
		assert.Equal(t, 70, txn.LocalBalance)

		reloaded, err := shop.FindByID(db, product.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, reloaded.Stock)
	})

	t.Run("insufficient points leaves stock untouched", func(t *testing.T) {
		poor := testsupport.CreateTestElder(t, db, "broke.elder@example.com", store.ID)

		_, err := shop.Redeem(db, logger, poor.ID, product.ID)
		assert.ErrorIs(t, err, wallet.ErrInsufficientPoints)

		reloaded, err := shop.FindByID(db, product.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, reloaded.Stock)
	})

	t.Run("out of stock refuses and debits nothing", func(t *testing.T) {
		_, err := shop.Redeem(db, logger, elder.ID, product.ID)
		require.NoError(t, err)

		_, err = shop.Redeem(db, logger, elder.ID, product.ID)
		assert.ErrorIs(t, err, shop.ErrOutOfStock)

		balance, err := wallet.BalanceOf(db, logger, elder.ID)
		require.NoError(t, err)
		assert.Equal(t, 40, balance.LocalPoints)
	})

	t.Run("inactive product cannot be redeemed", func(t *testing.T) {
		retired := testsupport.CreateTestProduct(t, db, "Retired pack", 10, 10, &store.ID)
		retired.Active = false
		require.NoError(t, db.Save(retired).Error)

		_, err := shop.Redeem(db, logger, elder.ID, retired.ID)
		assert.ErrorIs(t, err, shop.ErrProductInactive)
	})

	t.Run("unknown product reports not found", func(t *testing.T) {
		_, err := shop.Redeem(db, logger, elder.ID, 99999)
		var notFound *shop.ProductNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}
