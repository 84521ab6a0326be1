package repository

import (
	"context"
	"testing"
	"time"

	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func order(id string, created time.Time) models.OrderRecord {
	return models.OrderRecord{
		ID:         id,
		CreatedUTC: created,
		FullName:   "Erika Mustermann",
		GrossTotal: decimal.NewFromInt(165),
		Items:      []models.CartItem{{ProductID: "p1", BasePrice: decimal.NewFromInt(165)}},
	}
}

func TestOrdersAreListedNewestFirst(t *testing.T) {
	repo := NewOrderRepository(storage.New(afero.NewMemMapFs()), zap.NewNop())
	ctx := context.Background()
	owner := models.OwnerKey("user-1")

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AppendOrder(ctx, owner, order("a", base)))
	require.NoError(t, repo.AppendOrder(ctx, owner, order("c", base.Add(2*time.Hour))))
	require.NoError(t, repo.AppendOrder(ctx, owner, order("b", base.Add(time.Hour))))

	orders, err := repo.ListOrders(ctx, owner)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "c", orders[0].ID)
	assert.Equal(t, "b", orders[1].ID)
	assert.Equal(t, "a", orders[2].ID)

	other, err := repo.ListOrders(ctx, models.OwnerKey("user-2"))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestOrderFileIsNamedByOwnerKey(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := NewOrderRepository(storage.New(fs), zap.NewNop())
	owner := models.OwnerKey("erika@example.com")

	require.NoError(t, repo.AppendOrder(context.Background(), owner, order("a", time.Now())))

	exists, err := afero.Exists(fs, "orders/"+owner+".json")
	require.NoError(t, err)
	assert.True(t, exists)

	entries, err := afero.ReadDir(fs, "orders")
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "erika")
	}
}

func TestCorruptOrderHistoryReadsAsEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	owner := models.OwnerKey("user-1")
	require.NoError(t, afero.WriteFile(fs, "orders/"+owner+".json", []byte("[{"), 0o644))

	core, logs := observer.New(zap.WarnLevel)
	repo := NewOrderRepository(storage.New(fs), zap.New(core))

	orders, err := repo.ListOrders(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 1, logs.Len())

	err = repo.AppendOrder(context.Background(), owner, order("a", time.Now()))
	assert.ErrorIs(t, err, models.ErrPersistenceUnavailable)

	raw, err := afero.ReadFile(fs, "orders/"+owner+".json")
	require.NoError(t, err)
	assert.Equal(t, "[{", string(raw))
}

func TestAppendedOrderIsDetachedFromCaller(t *testing.T) {
	repo := NewOrderRepository(storage.New(afero.NewMemMapFs()), zap.NewNop())
	ctx := context.Background()
	owner := models.OwnerKey("user-1")

	rec := order("a", time.Now())
	require.NoError(t, repo.AppendOrder(ctx, owner, rec))
	rec.Items[0].BasePrice = decimal.NewFromInt(1)

	orders, err := repo.ListOrders(ctx, owner)
	require.NoError(t, err)
	assert.True(t, orders[0].Items[0].BasePrice.Equal(decimal.NewFromInt(165)))
}

func TestOrderRowRoundTrip(t *testing.T) {
	rec := order("a", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	row, err := toOrderRow("owner", rec)
	require.NoError(t, err)
	assert.Equal(t, "a", row.ID)
	assert.Equal(t, "owner", row.OwnerKey)
	assert.True(t, row.GrossTotal.Equal(decimal.NewFromInt(165)))

	back, err := fromOrderRow(row)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, back.ID)
	assert.True(t, rec.CreatedUTC.Equal(back.CreatedUTC))
	assert.Equal(t, rec.FullName, back.FullName)

	_, err = fromOrderRow(orderRow{Record: "nope"})
	assert.Error(t, err)
}
