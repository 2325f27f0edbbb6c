package persistence

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locoganga/storefront/internal/domain/order"
)

func addCartLine(t *testing.T, repo *GormCartRepository, sessionID, sku string, qty int64) {
	t.Helper()
	line, err := order.NewCartLine(sessionID, sku, "SPU-"+sku, qty, decimal.RequireFromString("4.50"), "Item "+sku)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), line))
}

func TestGormCartRepository_SaveUpsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()

	addCartLine(t, repo, "sess-1", "A1", 1)

	// same session and SKU replaces the quantity instead of adding a row
	line, err := order.NewCartLine("sess-1", "A1", "SPU-A1", 3, decimal.RequireFromString("5.00"), "Item A1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, line))

	lines, err := repo.FindBySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(3), lines[0].Quantity)
	assert.True(t, lines[0].PriceAtAdd.Equal(decimal.RequireFromString("5.00")))
}

func TestGormCartRepository_SessionsAreIsolated(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()

	addCartLine(t, repo, "sess-1", "A1", 1)
	addCartLine(t, repo, "sess-2", "A1", 2)

	lines, err := repo.FindBySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1), lines[0].Quantity)
}

func TestGormCartRepository_DeleteLine(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()

	addCartLine(t, repo, "sess-1", "A1", 1)
	addCartLine(t, repo, "sess-1", "B2", 2)

	require.NoError(t, repo.DeleteLine(ctx, "sess-1", "A1"))

	lines, err := repo.FindBySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "B2", lines[0].SKU)
}

func TestGormCartRepository_ClearSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCartRepository(db)
	ctx := context.Background()

	addCartLine(t, repo, "sess-1", "A1", 1)
	addCartLine(t, repo, "sess-1", "B2", 2)
	addCartLine(t, repo, "sess-2", "C3", 1)

	require.NoError(t, repo.ClearSession(ctx, "sess-1"))

	lines, err := repo.FindBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	other, err := repo.FindBySession(ctx, "sess-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
