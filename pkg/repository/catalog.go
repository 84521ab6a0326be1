package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/storage"
	"go.uber.org/zap"
)

const catalogFile = "catalog.json"

// CatalogRepository keeps the whole catalog in one JSON file. Every mutation is a locked
// read-modify-write of that file.
type CatalogRepository struct {
	files  *storage.Files
	logger *zap.Logger
}

func NewCatalogRepository(files *storage.Files, logger *zap.Logger) (*CatalogRepository, error) {
	r := &CatalogRepository{files: files, logger: logger}

	err := files.Locked(catalogFile, func() error {
		exists, err := files.Exists(catalogFile)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return files.Write(catalogFile, []models.Product{})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}
	return r, nil
}

// read must be called with the catalog lock held.
func (r *CatalogRepository) read() ([]models.Product, error) {
	var products []models.Product
	found, err := r.files.Read(catalogFile, &products)
	if err != nil {
		r.logger.Error("Failed to read catalog", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrCatalogUnavailable, err)
	}
	if !found {
		r.logger.Warn("Catalog file missing, recreating empty catalog")
		if err := r.files.Write(catalogFile, []models.Product{}); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrCatalogUnavailable, err)
		}
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (r *CatalogRepository) write(products []models.Product) error {
	if err := r.files.Write(catalogFile, products); err != nil {
		r.logger.Error("Failed to write catalog", zap.Error(err))
		return fmt.Errorf("%w: %v", models.ErrCatalogWriteFailed, err)
	}
	return nil
}

func (r *CatalogRepository) snapshot(ctx context.Context) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var products []models.Product
	err := r.files.Locked(catalogFile, func() error {
		var err error
		products, err = r.read()
		return err
	})
	return products, err
}

// mutate applies fn to the catalog and persists the result when fn reports a change.
func (r *CatalogRepository) mutate(ctx context.Context, fn func([]models.Product) ([]models.Product, bool)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.files.Locked(catalogFile, func() error {
		products, err := r.read()
		if err != nil {
			return err
		}
		updated, changed := fn(products)
		if !changed {
			return nil
		}
		return r.write(updated)
	})
}

func indexOfProduct(products []models.Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

// List returns all products ordered by German name (ordinal comparison).
func (r *CatalogRepository) List(ctx context.Context) ([]models.Product, error) {
	products, err := r.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].NameDe < products[j].NameDe
	})
	return products, nil
}

// GetByID returns the product or an error wrapping models.ErrNotFound.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (models.Product, error) {
	products, err := r.snapshot(ctx)
	if err != nil {
		return models.Product{}, err
	}
	if i := indexOfProduct(products, id); i >= 0 {
		return products[i], nil
	}
	return models.Product{}, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
}

// AddProduct appends p, assigning an id when it has none, and returns the stored product.
func (r *CatalogRepository) AddProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if strings.TrimSpace(p.ID) == "" {
		p.ID = models.NewID()
	}
	p = p.Clone()
	if p.Options == nil {
		p.Options = []models.Option{}
	}
	for i := range p.Options {
		if strings.TrimSpace(p.Options[i].ID) == "" {
			p.Options[i].ID = models.NewID()
		}
	}

	err := r.mutate(ctx, func(products []models.Product) ([]models.Product, bool) {
		return append(products, p), true
	})
	if err != nil {
		return models.Product{}, err
	}
	return p, nil
}

// UpdateProduct replaces the product with the same id. Unknown ids are ignored.
func (r *CatalogRepository) UpdateProduct(ctx context.Context, p models.Product) error {
	p = p.Clone()
	if p.Options == nil {
		p.Options = []models.Option{}
	}
	return r.mutate(ctx, func(products []models.Product) ([]models.Product, bool) {
		i := indexOfProduct(products, p.ID)
		if i < 0 {
			return products, false
		}
		products[i] = p
		return products, true
	})
}

// DeleteProduct removes the product together with its options. Unknown ids are ignored.
func (r *CatalogRepository) DeleteProduct(ctx context.Context, id string) error {
	return r.mutate(ctx, func(products []models.Product) ([]models.Product, bool) {
		i := indexOfProduct(products, id)
		if i < 0 {
			return products, false
		}
		return append(products[:i], products[i+1:]...), true
	})
}

// AddOption appends opt to the product and propagates its required flag to the group.
// It is a no-op when the product does not exist.
func (r *CatalogRepository) AddOption(ctx context.Context, productID string, opt models.Option) (models.Option, error) {
	if strings.TrimSpace(opt.ID) == "" {
		opt.ID = models.NewID()
	}
	err := r.mutate(ctx, func(products []models.Product) ([]models.Product, bool) {
		i := indexOfProduct(products, productID)
		if i < 0 {
			return products, false
		}
		products[i].Options = append(products[i].Options, opt)
		setGroupRequired(&products[i], opt.GroupName, opt.IsRequiredGroup)
		return products, true
	})
	if err != nil {
		return models.Option{}, err
	}
	return opt, nil
}

// UpdateOption replaces the option with the same id inside the product and propagates its
// required flag to the group. Unknown product or option ids are ignored.
func (r *CatalogRepository) UpdateOption(ctx context.Context, productID string, opt models.Option) error {
	return r.mutate(ctx, func(products []models.Product) ([]models.Product, bool) {
		i := indexOfProduct(products, productID)
		if i < 0 {
			return products, false
		}
		j := products[i].FindOption(opt.ID)
		if j < 0 {
			return products, false
		}
		products[i].Options[j] = opt
		setGroupRequired(&products[i], opt.GroupName, opt.IsRequiredGroup)
		return products, true
	})
}

// DeleteOption removes the option from the product. Unknown ids are ignored.
func (r *CatalogRepository) DeleteOption(ctx context.Context, productID, optionID string) error {
	return r.mutate(ctx, func(products []models.Product) ([]models.Product, bool) {
		i := indexOfProduct(products, productID)
		if i < 0 {
			return products, false
		}
		j := products[i].FindOption(optionID)
		if j < 0 {
			return products, false
		}
		opts := products[i].Options
		products[i].Options = append(opts[:j], opts[j+1:]...)
		return products, true
	})
}

// SetGroupRequired sets the required flag on every option of the group (case-insensitive).
func (r *CatalogRepository) SetGroupRequired(ctx context.Context, productID, groupName string, required bool) error {
	if strings.TrimSpace(groupName) == "" {
		return nil
	}
	return r.mutate(ctx, func(products []models.Product) ([]models.Product, bool) {
		i := indexOfProduct(products, productID)
		if i < 0 {
			return products, false
		}
		return products, setGroupRequired(&products[i], groupName, required)
	})
}

func setGroupRequired(p *models.Product, groupName string, required bool) bool {
	if strings.TrimSpace(groupName) == "" {
		return false
	}
	changed := false
	for k := range p.Options {
		if models.SameGroup(p.Options[k].GroupName, groupName) && p.Options[k].IsRequiredGroup != required {
			p.Options[k].IsRequiredGroup = required
			changed = true
		}
	}
	return changed
}

// Groups lists the distinct option group names of a product, sorted.
func (r *CatalogRepository) Groups(ctx context.Context, productID string) ([]string, error) {
	p, err := r.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}

	groups := []string{}
	for _, o := range p.Options {
		name := strings.TrimSpace(o.GroupName)
		if name == "" {
			continue
		}
		dup := false
		for _, g := range groups {
			if models.SameGroup(g, name) {
				dup = true
				break
			}
		}
		if !dup {
			groups = append(groups, name)
		}
	}
	sort.Strings(groups)
	return groups, nil
}

// RemoveProducts deletes every product whose id matches one of ids case-insensitively and
// returns how many were removed.
func (r *CatalogRepository) RemoveProducts(ctx context.Context, ids ...string) (int, error) {
	removed := 0
	err := r.mutate(ctx, func(products []models.Product) ([]models.Product, bool) {
		kept := products[:0]
		for _, p := range products {
			match := false
			for _, id := range ids {
				if strings.EqualFold(p.ID, id) {
					match = true
					break
				}
			}
			if match {
				removed++
				continue
			}
			kept = append(kept, p)
		}
		return kept, removed > 0
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Check reports whether the catalog can be read.
func (r *CatalogRepository) Check(ctx context.Context) error {
	_, err := r.snapshot(ctx)
	return err
}
