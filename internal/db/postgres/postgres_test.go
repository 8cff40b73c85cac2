package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/discshop-bot/internal/features/economy"
)

func TestLoadMigrationsOrdered(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.version, m.name)
		assert.NotEmpty(t, m.sql)
	}
	assert.Contains(t, migrations[0].sql, "ledger_accounts")
}

// Требует живой PostgreSQL: TEST_DATABASE_DSN=postgres://...
func TestSnapshotStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN не задан")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := newPool(ctx, dsn, 2, 0)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(ctx, pool))
	require.NoError(t, RunMigrations(ctx, pool), "migrations are idempotent")

	store := NewSnapshotStore(pool)
	defer store.Close()

	_, err = pool.Exec(ctx, "DELETE FROM ledger_snapshot_meta")
	require.NoError(t, err)
	_, found, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	snap := economy.Snapshot{
		Accounts: map[string]*economy.Account{
			"u1": {UserID: "u1", Balance: 700, Level: 1, LastDaily: &ts, Transactions: []economy.Transaction{}, Achievements: []string{}},
			"u2": {UserID: "u2", Balance: 300, Level: 1, Transactions: []economy.Transaction{}, Achievements: []string{}},
		},
		Inventories: map[string]*economy.Inventory{
			"u1": {Items: map[string]int64{"Batu Akik": 1}, GachaItems: []economy.GachaItem{}, Badges: []string{}},
		},
	}
	require.NoError(t, store.Save(ctx, snap))

	got, found, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(700), got.Accounts["u1"].Balance)
	assert.True(t, ts.Equal(*got.Accounts["u1"].LastDaily))
	assert.Equal(t, int64(1), got.Inventories["u1"].Items["Batu Akik"])

	// перезапись целиком: u2 исчезает
	delete(snap.Accounts, "u2")
	require.NoError(t, store.Save(ctx, snap))
	got, _, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Accounts, 1)
}
