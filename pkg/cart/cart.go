// Package cart keeps the active cart of a shopper. Guests keep their cart in the session slot
// session.CartKey; signed in customers keep it in a file named by their owner key. The first
// lookup after sign-in moves a non-empty guest cart over to the customer's file.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/session"
	"go.uber.org/zap"
)

var errNoSession = errors.New("no session available for guest cart")

// Owner identifies whose cart is addressed.
type Owner struct {
	// UserID is the stable id from the identity provider, empty for guests.
	UserID  string
	Session session.Session
}

func (o Owner) Authenticated() bool {
	return o.UserID != ""
}

// Key is the owner key of an authenticated owner.
func (o Owner) Key() string {
	return models.OwnerKey(o.UserID)
}

// IdentityStore persists carts of authenticated owners.
type IdentityStore interface {
	Get(ctx context.Context, ownerKey string) ([]models.CartItem, bool, error)
	Save(ctx context.Context, ownerKey string, items []models.CartItem) error
}

type Service struct {
	store  IdentityStore
	logger *zap.Logger
}

func NewService(store IdentityStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// GetCart returns the cart of owner, never nil.
func (s *Service) GetCart(ctx context.Context, owner Owner) ([]models.CartItem, error) {
	if !owner.Authenticated() {
		return s.guestCart(ctx, owner.Session)
	}

	key := owner.Key()
	items, found, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if found {
		return items, nil
	}

	guest, err := s.guestCart(ctx, owner.Session)
	if err != nil || len(guest) == 0 {
		return []models.CartItem{}, nil
	}

	if err := s.store.Save(ctx, key, guest); err != nil {
		return nil, err
	}
	if err := owner.Session.Remove(ctx, session.CartKey); err != nil {
		s.logger.Warn("Failed to clear guest cart after migration", zap.String("owner", key), zap.Error(err))
	}
	s.logger.Info("Migrated guest cart", zap.String("owner", key), zap.Int("items", len(guest)))
	return guest, nil
}

// SaveCart overwrites the cart of owner.
func (s *Service) SaveCart(ctx context.Context, owner Owner, items []models.CartItem) error {
	if owner.Authenticated() {
		return s.store.Save(ctx, owner.Key(), items)
	}
	if owner.Session == nil {
		return fmt.Errorf("%w: %v", models.ErrPersistenceUnavailable, errNoSession)
	}

	data, err := json.Marshal(models.CloneItems(items))
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}
	if err := owner.Session.Set(ctx, session.CartKey, string(data)); err != nil {
		s.logger.Error("Failed to store guest cart", zap.Error(err))
		return fmt.Errorf("%w: %v", models.ErrPersistenceUnavailable, err)
	}
	return nil
}

// Add appends item to the cart.
func (s *Service) Add(ctx context.Context, owner Owner, item models.CartItem) error {
	items, err := s.GetCart(ctx, owner)
	if err != nil {
		return err
	}
	return s.SaveCart(ctx, owner, append(items, item.Clone()))
}

// RemoveAt drops the item at index. Indexes outside the cart are ignored.
func (s *Service) RemoveAt(ctx context.Context, owner Owner, index int) error {
	items, err := s.GetCart(ctx, owner)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(items) {
		return nil
	}
	return s.SaveCart(ctx, owner, append(items[:index], items[index+1:]...))
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, owner Owner) error {
	if owner.Authenticated() {
		return s.store.Save(ctx, owner.Key(), []models.CartItem{})
	}
	if owner.Session == nil {
		return nil
	}
	if err := owner.Session.Remove(ctx, session.CartKey); err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistenceUnavailable, err)
	}
	return nil
}

func (s *Service) guestCart(ctx context.Context, sess session.Session) ([]models.CartItem, error) {
	if sess == nil {
		return []models.CartItem{}, nil
	}
	raw, ok, err := sess.Get(ctx, session.CartKey)
	if err != nil {
		s.logger.Error("Failed to read guest cart", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrPersistenceUnavailable, err)
	}
	if !ok || raw == "" {
		return []models.CartItem{}, nil
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("Discarding unreadable guest cart", zap.Error(err))
		return []models.CartItem{}, nil
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}
