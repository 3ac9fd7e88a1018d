package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	models "storefront/model"
	"storefront/store"
)

// Device storage keys. The values are JSON arrays of CartItem and WishlistItem
// as this package encodes them.
const (
	CartKey     = "eljo-cart"
	WishlistKey = "eljo-wishlist"
)

// LocalCartStore is the CartStore of a guest: JSON arrays in device storage.
// Writes are fire-and-forget; a failed write is logged and never reported to the caller.
type LocalCartStore struct {
	storage store.DeviceStorage
	logger  *slog.Logger

	mu             sync.Mutex
	cart           []models.CartItem
	wishlist       []models.WishlistItem
	cartLoaded     bool
	wishlistLoaded bool
}

var _ CartStore = (*LocalCartStore)(nil)

func NewLocalCartStore(storage store.DeviceStorage, logger *slog.Logger) *LocalCartStore {
	return &LocalCartStore{storage: storage, logger: logger}
}

func (l *LocalCartStore) LoadCart(ctx context.Context) ([]models.CartItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := []models.CartItem{}
	if err := l.read(CartKey, &items); err != nil {
		// a corrupt value starts the device over with an empty cart
		l.cart, l.cartLoaded = []models.CartItem{}, true
		return nil, err
	}
	l.cart, l.cartLoaded = items, true
	return slices.Clone(l.cart), nil
}

func (l *LocalCartStore) AddCartItem(ctx context.Context, product models.Product, qty int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureCart()

	i := slices.IndexFunc(l.cart, func(it models.CartItem) bool { return it.ID == product.ID })
	if i >= 0 {
		q := capQuantity(l.cart[i].Quantity+qty, product.Stock)
		l.cart[i] = models.CartItem{Product: product, Quantity: q}
		l.persistCart()
		return q, nil
	}
	q := capQuantity(qty, product.Stock)
	l.cart = append(l.cart, models.CartItem{Product: product, Quantity: q})
	l.persistCart()
	return q, nil
}

func (l *LocalCartStore) SetCartQuantity(ctx context.Context, productID int64, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureCart()

	for i := range l.cart {
		if l.cart[i].ID == productID {
			l.cart[i].Quantity = qty
		}
	}
	l.persistCart()
	return nil
}

func (l *LocalCartStore) RemoveCartItem(ctx context.Context, productID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureCart()

	l.cart = slices.DeleteFunc(l.cart, func(it models.CartItem) bool { return it.ID == productID })
	l.persistCart()
	return nil
}

func (l *LocalCartStore) ClearCart(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cart, l.cartLoaded = []models.CartItem{}, true
	l.persistCart()
	return nil
}

func (l *LocalCartStore) LoadWishlist(ctx context.Context) ([]models.WishlistItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := []models.WishlistItem{}
	if err := l.read(WishlistKey, &items); err != nil {
		l.wishlist, l.wishlistLoaded = []models.WishlistItem{}, true
		return nil, err
	}
	l.wishlist, l.wishlistLoaded = items, true
	return slices.Clone(l.wishlist), nil
}

func (l *LocalCartStore) AddWishlistItem(ctx context.Context, product models.Product) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureWishlist()

	if slices.ContainsFunc(l.wishlist, func(it models.WishlistItem) bool { return it.ID == product.ID }) {
		return nil
	}
	l.wishlist = append(l.wishlist, models.WishlistItem{Product: product})
	l.persistWishlist()
	return nil
}

func (l *LocalCartStore) RemoveWishlistItem(ctx context.Context, productID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensureWishlist()

	l.wishlist = slices.DeleteFunc(l.wishlist, func(it models.WishlistItem) bool { return it.ID == productID })
	l.persistWishlist()
	return nil
}

func (l *LocalCartStore) ClearWishlist(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.wishlist, l.wishlistLoaded = []models.WishlistItem{}, true
	l.persistWishlist()
	return nil
}

// helpers below expect l.mu to be held

func (l *LocalCartStore) read(key string, v any) error {
	data, ok, err := l.storage.GetItem(key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (l *LocalCartStore) ensureCart() {
	if l.cartLoaded {
		return
	}
	items := []models.CartItem{}
	if err := l.read(CartKey, &items); err != nil {
		l.logger.Error("loading cart from device storage", "error", err)
		items = []models.CartItem{}
	}
	l.cart, l.cartLoaded = items, true
}

func (l *LocalCartStore) ensureWishlist() {
	if l.wishlistLoaded {
		return
	}
	items := []models.WishlistItem{}
	if err := l.read(WishlistKey, &items); err != nil {
		l.logger.Error("loading wishlist from device storage", "error", err)
		items = []models.WishlistItem{}
	}
	l.wishlist, l.wishlistLoaded = items, true
}

func (l *LocalCartStore) persistCart() {
	l.write(CartKey, l.cart)
}

func (l *LocalCartStore) persistWishlist() {
	l.write(WishlistKey, l.wishlist)
}

func (l *LocalCartStore) write(key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = l.storage.SetItem(key, data)
	}
	if err != nil {
		l.logger.Error("writing device storage", "key", key, "error", err)
	}
}
