package cart

import (
	"context"
	"errors"

	models "storefront/model"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrOutOfStock      = errors.New("product is out of stock")
	// ErrRemoteUnavailable is returned when a signed-in session has no remote store to use.
	ErrRemoteUnavailable = errors.New("remote cart storage is not configured")
)

// CartStore is where one owner's cart and wishlist physically live. A Manager
// holds exactly one CartStore at a time and swaps it when the identity changes.
type CartStore interface {
	LoadCart(ctx context.Context) ([]models.CartItem, error)
	// AddCartItem raises the stored quantity of product by qty, capped at
	// product.Stock, and returns the quantity now stored.
	AddCartItem(ctx context.Context, product models.Product, qty int) (int, error)
	SetCartQuantity(ctx context.Context, productID int64, qty int) error
	RemoveCartItem(ctx context.Context, productID int64) error
	ClearCart(ctx context.Context) error

	LoadWishlist(ctx context.Context) ([]models.WishlistItem, error)
	// AddWishlistItem succeeds when the product is already present.
	AddWishlistItem(ctx context.Context, product models.Product) error
	RemoveWishlistItem(ctx context.Context, productID int64) error
	ClearWishlist(ctx context.Context) error
}

func capQuantity(qty, stock int) int {
	return min(qty, stock)
}
