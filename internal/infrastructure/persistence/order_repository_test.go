package persistence

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/locoganga/storefront/internal/domain/catalog"
	"github.com/locoganga/storefront/internal/domain/order"
	"github.com/locoganga/storefront/internal/domain/shared"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&order.Order{},
		&order.Line{},
		&order.CartLine{},
		&catalog.ProductSnapshot{},
	))
	return db
}

func newTestOrder(t *testing.T, orderNumber, sessionID string) *order.Order {
	t.Helper()
	o, err := order.New(orderNumber, sessionID, order.ShippingInfo{
		Name:     "Jane Doe",
		Address1: "1 High Street",
		City:     "London",
		Country:  "GB",
		ZipCode:  "SW1A 1AA",
	}, []order.Line{
		{
			BaseEntity:   shared.NewBaseEntity(),
			SKU:          "A1",
			Quantity:     2,
			PriceAtOrder: decimal.RequireFromString("10.00"),
			Title:        "Widget A",
		},
	})
	require.NoError(t, err)
	return o
}

func TestGormOrderRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-1A2B3C4D", "sess-1")
	require.NoError(t, repo.Create(ctx, o))

	found, err := repo.FindByOrderNumber(ctx, "ORD-1A2B3C4D")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, found.Status)
	require.Len(t, found.Lines, 1)
	assert.Equal(t, "A1", found.Lines[0].SKU)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("20.00")))
}

func TestGormOrderRepository_FindByOrderNumber_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)

	_, err := repo.FindByOrderNumber(context.Background(), "ORD-MISSING1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_FindByPaymentRef(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-1A2B3C4D", "sess-1")
	require.NoError(t, o.AttachPaymentSession("cs_test_123"))
	require.NoError(t, repo.Create(ctx, o))

	found, err := repo.FindByPaymentRef(ctx, "cs_test_123")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1A2B3C4D", found.OrderNumber)
}

func TestGormOrderRepository_ExistsOrderNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	exists, err := repo.ExistsOrderNumber(ctx, "ORD-1A2B3C4D")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Create(ctx, newTestOrder(t, "ORD-1A2B3C4D", "sess-1")))

	exists, err = repo.ExistsOrderNumber(ctx, "ORD-1A2B3C4D")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGormOrderRepository_ExistsActiveForSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	active, err := repo.ExistsActiveForSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, active)

	o := newTestOrder(t, "ORD-1A2B3C4D", "sess-1")
	require.NoError(t, repo.Create(ctx, o))

	active, err = repo.ExistsActiveForSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, active, "pending order counts as active")

	// cancelling frees the session for a new checkout
	_, err = repo.Transition(ctx, "ORD-1A2B3C4D", func(o *order.Order) error {
		return o.Cancel("test")
	})
	require.NoError(t, err)

	active, err = repo.ExistsActiveForSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestGormOrderRepository_Transition(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "ORD-1A2B3C4D", "sess-1")
	require.NoError(t, repo.Create(ctx, o))

	t.Run("applies and persists a lifecycle change", func(t *testing.T) {
		updated, err := repo.Transition(ctx, "ORD-1A2B3C4D", func(o *order.Order) error {
			return o.AttachPaymentSession("cs_test_123")
		})
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaymentCreated, updated.Status)
		assert.Greater(t, updated.Version, 1)

		reloaded, err := repo.FindByOrderNumber(ctx, "ORD-1A2B3C4D")
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaymentCreated, reloaded.Status)
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		_, err := repo.Transition(ctx, "ORD-1A2B3C4D", func(o *order.Order) error {
			return o.AttachPaymentSession("cs_test_456") // already payment_created
		})
		require.Error(t, err)

		reloaded, err := repo.FindByOrderNumber(ctx, "ORD-1A2B3C4D")
		require.NoError(t, err)
		require.NotNil(t, reloaded.ExternalPaymentRef)
		assert.Equal(t, "cs_test_123", *reloaded.ExternalPaymentRef)
	})

	t.Run("second confirmation loses", func(t *testing.T) {
		_, err := repo.Transition(ctx, "ORD-1A2B3C4D", func(o *order.Order) error {
			return o.ConfirmPayment()
		})
		require.NoError(t, err)

		_, err = repo.Transition(ctx, "ORD-1A2B3C4D", func(o *order.Order) error {
			return o.ConfirmPayment()
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "STATE_CONFLICT", domainErr.Code)
	})

	t.Run("missing order", func(t *testing.T) {
		_, err := repo.Transition(ctx, "ORD-MISSING1", func(o *order.Order) error {
			return nil
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormOrderRepository_FindBySession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestOrder(t, "ORD-11111111", "sess-1")))
	_, err := repo.Transition(ctx, "ORD-11111111", func(o *order.Order) error {
		return o.Cancel("abandoned")
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, newTestOrder(t, "ORD-22222222", "sess-1")))
	require.NoError(t, repo.Create(ctx, newTestOrder(t, "ORD-33333333", "sess-2")))

	orders, err := repo.FindBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestGormOrderRepository_Create_SecondActiveForSessionBlocked(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestOrder(t, "ORD-11111111", "sess-1")))

	// the guard and the insert share one transaction, so a second active
	// order for the session never reaches the table
	err := repo.Create(ctx, newTestOrder(t, "ORD-22222222", "sess-1"))
	assert.ErrorIs(t, err, shared.ErrCheckoutInProgress)

	orders, err := repo.FindBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// a terminal order frees the session
	_, err = repo.Transition(ctx, "ORD-11111111", func(o *order.Order) error {
		return o.Cancel("abandoned")
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, newTestOrder(t, "ORD-22222222", "sess-1")))
}
