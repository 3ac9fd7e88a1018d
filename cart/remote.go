package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	models "storefront/model"
	"storefront/store"
)

// RemoteTables is the slice of the Postgres adapter a signed-in cart needs.
type RemoteTables interface {
	ListCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	AddToCart(ctx context.Context, userID uuid.UUID, productID int64, qty, stock int) (int, error)
	SetCartQuantity(ctx context.Context, userID uuid.UUID, productID int64, qty int) error
	RemoveFromCart(ctx context.Context, userID uuid.UUID, productID int64) error
	ClearCart(ctx context.Context, userID uuid.UUID) error

	ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
	AddToWishlist(ctx context.Context, userID uuid.UUID, productID int64) error
	RemoveFromWishlist(ctx context.Context, userID uuid.UUID, productID int64) error
	ClearWishlist(ctx context.Context, userID uuid.UUID) error
}

// RemoteCartStore is the CartStore of a signed-in user: rows in the cart and
// wishlist tables keyed by user id.
type RemoteCartStore struct {
	tables RemoteTables
	userID uuid.UUID
}

var _ CartStore = (*RemoteCartStore)(nil)

func NewRemoteCartStore(tables RemoteTables, userID uuid.UUID) *RemoteCartStore {
	return &RemoteCartStore{tables: tables, userID: userID}
}

func (r *RemoteCartStore) LoadCart(ctx context.Context) ([]models.CartItem, error) {
	return r.tables.ListCart(ctx, r.userID)
}

func (r *RemoteCartStore) AddCartItem(ctx context.Context, product models.Product, qty int) (int, error) {
	return r.tables.AddToCart(ctx, r.userID, product.ID, qty, product.Stock)
}

func (r *RemoteCartStore) SetCartQuantity(ctx context.Context, productID int64, qty int) error {
	return r.tables.SetCartQuantity(ctx, r.userID, productID, qty)
}

func (r *RemoteCartStore) RemoveCartItem(ctx context.Context, productID int64) error {
	return r.tables.RemoveFromCart(ctx, r.userID, productID)
}

func (r *RemoteCartStore) ClearCart(ctx context.Context) error {
	return r.tables.ClearCart(ctx, r.userID)
}

func (r *RemoteCartStore) LoadWishlist(ctx context.Context) ([]models.WishlistItem, error) {
	return r.tables.ListWishlist(ctx, r.userID)
}

func (r *RemoteCartStore) AddWishlistItem(ctx context.Context, product models.Product) error {
	err := r.tables.AddToWishlist(ctx, r.userID, product.ID)
	if errors.Is(err, store.ErrDuplicate) {
		return nil
	}
	return err
}

func (r *RemoteCartStore) RemoveWishlistItem(ctx context.Context, productID int64) error {
	return r.tables.RemoveFromWishlist(ctx, r.userID, productID)
}

func (r *RemoteCartStore) ClearWishlist(ctx context.Context) error {
	return r.tables.ClearWishlist(ctx, r.userID)
}
