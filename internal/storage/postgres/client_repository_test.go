package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/cimillas/client-ledger/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(email, phone string) domain.Client {
	return domain.Client{
		ID:           uuid.NewString(),
		Name:         "Ada",
		LastName:     "Lovelace",
		Email:        email,
		Address:      "12 Analytical Row",
		Phone:        phone,
		Active:       true,
		Profit:       decimal.Zero,
		Version:      1,
		StateVersion: 1,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestClientRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewClientRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("create and find", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		c := newClient("ada@example.com", "")
		require.NoError(t, repo.CreateClient(ctx, c))

		got, err := repo.FindClient(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.Email, got.Email)
		assert.Empty(t, got.Phone)
		assert.True(t, got.Profit.IsZero())
		assert.True(t, c.CreatedAt.Equal(got.CreatedAt))

		_, err = repo.FindClient(ctx, uuid.NewString())
		require.ErrorIs(t, err, domain.ErrClientNotFound)
	})

	t.Run("contact uniqueness", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		first := newClient("one@example.com", "+15550001")
		require.NoError(t, repo.CreateClient(ctx, first))
		// Two clients without a phone do not collide.
		require.NoError(t, repo.CreateClient(ctx, newClient("two@example.com", "")))
		require.NoError(t, repo.CreateClient(ctx, newClient("three@example.com", "")))

		require.ErrorIs(t, repo.CreateClient(ctx, newClient("ONE@example.com", "")), domain.ErrEmailTaken)
		require.ErrorIs(t, repo.CreateClient(ctx, newClient("four@example.com", "+15550001")), domain.ErrPhoneTaken)

		taken, err := repo.ExistsByEmail(ctx, "One@Example.com", "")
		require.NoError(t, err)
		assert.True(t, taken)
		taken, err = repo.ExistsByEmail(ctx, "one@example.com", first.ID)
		require.NoError(t, err)
		assert.False(t, taken)
		taken, err = repo.ExistsByPhone(ctx, "+15550001", "")
		require.NoError(t, err)
		assert.True(t, taken)
	})

	t.Run("update is guarded by state version only", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		c := newClient("state@example.com", "")
		require.NoError(t, repo.CreateClient(ctx, c))

		now := time.Now().UTC()
		c.Active = false
		c.InactiveAt = &now
		require.NoError(t, repo.UpdateClient(ctx, c, 1))
		require.ErrorIs(t, repo.UpdateClient(ctx, c, 1), domain.ErrVersionConflict)

		got, err := repo.FindClient(ctx, c.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
		require.NotNil(t, got.InactiveAt)
		assert.Equal(t, int64(2), got.StateVersion)
		assert.Equal(t, int64(1), got.Version)

		missing := newClient("missing@example.com", "")
		require.ErrorIs(t, repo.UpdateClient(ctx, missing, 1), domain.ErrClientNotFound)
	})

	t.Run("search, profit range and reset", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		rich := testutil.InsertClient(t, ctx, pool, "750.50")
		testutil.InsertClient(t, ctx, pool, "-20")
		inactive := newClient("100%_match@example.com", "")
		inactive.Active = false
		require.NoError(t, repo.CreateClient(ctx, inactive))

		found, err := repo.SearchActiveClients(ctx, "example.com", domain.Page{Size: 10})
		require.NoError(t, err)
		assert.Len(t, found, 2)

		found, err = repo.SearchActiveClients(ctx, "%_", domain.Page{Size: 10})
		require.NoError(t, err)
		assert.Empty(t, found, "metacharacters match literally and inactive clients are hidden")

		inRange, err := repo.ListClientsByProfit(ctx, decimal.NewFromInt(0), decimal.NewFromInt(1000), domain.Page{Size: 10})
		require.NoError(t, err)
		require.Len(t, inRange, 2)
		assert.Equal(t, rich, inRange[0].ID)

		n, err := repo.ResetAllProfit(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		profit, version := testutil.ClientBalance(t, ctx, pool, rich)
		assert.True(t, profit.IsZero())
		assert.Equal(t, int64(2), version)
	})
}
