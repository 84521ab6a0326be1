package repository

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/storage"
	"go.uber.org/zap"
)

// CartRepository stores identity carts as carts/<ownerKey>.json.
type CartRepository struct {
	files  *storage.Files
	logger *zap.Logger
}

func NewCartRepository(files *storage.Files, logger *zap.Logger) *CartRepository {
	return &CartRepository{files: files, logger: logger}
}

func cartPath(ownerKey string) string {
	return path.Join("carts", ownerKey+".json")
}

// Get returns the cart of ownerKey and whether a cart file exists for it. A corrupt file
// reads as an empty cart.
func (r *CartRepository) Get(ctx context.Context, ownerKey string) ([]models.CartItem, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var items []models.CartItem
	var found bool
	err := r.files.Locked(cartPath(ownerKey), func() error {
		var err error
		found, err = r.files.Read(cartPath(ownerKey), &items)
		return err
	})
	if errors.Is(err, storage.ErrCorrupt) {
		// found stays true so a guest cart never replaces the unreadable file
		r.logger.Warn("Unreadable cart, returning empty cart", zap.String("owner", ownerKey), zap.Error(err))
		return []models.CartItem{}, true, nil
	}
	if err != nil {
		r.logger.Error("Failed to read cart", zap.String("owner", ownerKey), zap.Error(err))
		return nil, found, fmt.Errorf("%w: %v", models.ErrPersistenceUnavailable, err)
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, found, nil
}

// Save overwrites the cart of ownerKey.
func (r *CartRepository) Save(ctx context.Context, ownerKey string, items []models.CartItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	items = models.CloneItems(items)
	err := r.files.Locked(cartPath(ownerKey), func() error {
		return r.files.Write(cartPath(ownerKey), items)
	})
	if err != nil {
		r.logger.Error("Failed to write cart", zap.String("owner", ownerKey), zap.Error(err))
		return fmt.Errorf("%w: %v", models.ErrPersistenceUnavailable, err)
	}
	return nil
}
