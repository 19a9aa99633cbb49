package repository

import (
	"context"
	"testing"

	"noblechain/models"
	"noblechain/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	users := NewUserRepository(testDB.DB)
	repo := NewWalletRepository(testDB.DB)
	ctx := context.Background()

	testDB.Truncate(t)
	require.NoError(t, users.Create(ctx, testutil.CreateTestUser("u1", "alice")))

	wallet := testutil.CreateTestWallet("u1", 1000)
	wallet.Holdings["BTC"] = &models.Holding{
		Balance:     decimal.RequireFromString("0.01"),
		AverageCost: decimal.NewFromInt(40000),
	}
	require.NoError(t, repo.Create(ctx, wallet))

	t.Run("round trips decimals and holdings", func(t *testing.T) {
		got, err := repo.GetByUserID(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, decimal.NewFromInt(1000).Equal(got.CashBalance))
		require.Contains(t, got.Holdings, "BTC")
		assert.True(t, decimal.RequireFromString("0.01").Equal(got.Holdings["BTC"].Balance))
		assert.True(t, decimal.NewFromInt(40000).Equal(got.Holdings["BTC"].AverageCost))
	})

	t.Run("save updates balance and adds holdings", func(t *testing.T) {
		got, err := repo.GetByUserID(ctx, "u1")
		require.NoError(t, err)
		got.CashBalance = decimal.RequireFromString("960.5")
		got.Holdings["ETH"] = &models.Holding{}
		require.NoError(t, repo.Save(ctx, got))

		reloaded, err := repo.GetByUserID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "960.5", reloaded.CashBalance.String())
		assert.Len(t, reloaded.Holdings, 2)
		assert.True(t, reloaded.Holdings["ETH"].Balance.IsZero())
	})

	t.Run("missing wallet", func(t *testing.T) {
		got, err := repo.GetByUserID(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
