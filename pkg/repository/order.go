package repository

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/storage"
	"go.uber.org/zap"
)

// OrderRepository keeps the order history of an identity in orders/<ownerKey>.json.
// Records are only ever appended.
type OrderRepository struct {
	files  *storage.Files
	logger *zap.Logger
}

func NewOrderRepository(files *storage.Files, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{files: files, logger: logger}
}

func orderPath(ownerKey string) string {
	return path.Join("orders", ownerKey+".json")
}

// ListOrders returns the orders of ownerKey, newest first. An unreadable history is logged and
// reported as empty.
func (r *OrderRepository) ListOrders(ctx context.Context, ownerKey string) ([]models.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var orders []models.OrderRecord
	err := r.files.Locked(orderPath(ownerKey), func() error {
		_, err := r.files.Read(orderPath(ownerKey), &orders)
		return err
	})
	if err != nil {
		r.logger.Warn("Failed to read order history, returning empty list",
			zap.String("owner", ownerKey), zap.Error(err))
		return []models.OrderRecord{}, nil
	}
	if orders == nil {
		orders = []models.OrderRecord{}
	}
	sortNewestFirst(orders)
	return orders, nil
}

// AppendOrder adds record to the history of ownerKey.
func (r *OrderRepository) AppendOrder(ctx context.Context, ownerKey string, record models.OrderRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := orderPath(ownerKey)
	err := r.files.Locked(p, func() error {
		var orders []models.OrderRecord
		if _, err := r.files.Read(p, &orders); err != nil {
			return err
		}
		orders = append(orders, record)
		return r.files.Write(p, orders)
	})
	if err != nil {
		r.logger.Error("Failed to append order",
			zap.String("owner", ownerKey), zap.String("order_id", record.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", models.ErrPersistenceUnavailable, err)
	}
	return nil
}

func sortNewestFirst(orders []models.OrderRecord) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedUTC.After(orders[j].CreatedUTC)
	})
}
