package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	models "storefront/model"
	"storefront/store"
)

// RemoteOpener returns the CartStore for a signed-in user.
type RemoteOpener func(userID uuid.UUID) CartStore

// Manager owns one session's cart and wishlist. Reads are served from an in-memory
// mirror; writes go to whichever CartStore the current identity selects.
//
// Signed in, a write reaches the remote store before the mirror changes, and a
// failed write leaves the mirror untouched. As a guest the mirror and the device
// copy move together and device write failures are only logged.
type Manager struct {
	mu sync.Mutex

	local  CartStore
	remote RemoteOpener
	logger *slog.Logger

	userID uuid.UUID
	active CartStore
	loaded bool

	cart     []models.CartItem
	wishlist []models.WishlistItem
}

// NewManager starts a guest session over local. remote may be nil when the
// service runs without a database; signing in is then refused.
func NewManager(local CartStore, remote RemoteOpener, logger *slog.Logger) *Manager {
	return &Manager{
		local:    local,
		remote:   remote,
		logger:   logger,
		active:   local,
		cart:     []models.CartItem{},
		wishlist: []models.WishlistItem{},
	}
}

// UserID is uuid.Nil for a guest.
func (m *Manager) UserID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// SetUser switches the session to userID (uuid.Nil for guest). When the identity
// changes, the mirror is thrown away and reloaded from the newly selected store:
// a guest cart is replaced by the account's cart on sign-in, never merged into it.
// A signed-in session is reloaded even when the identity is unchanged, since
// other devices of the same user write to the same rows.
func (m *Manager) SetUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded && userID == m.userID {
		if userID == uuid.Nil {
			return nil
		}
		return m.reload(ctx)
	}

	next := m.local
	if userID != uuid.Nil {
		if m.remote == nil {
			return ErrRemoteUnavailable
		}
		next = m.remote(userID)
	}

	m.userID = userID
	m.active = next
	m.cart = []models.CartItem{}
	m.wishlist = []models.WishlistItem{}
	m.loaded = true

	err := m.reload(ctx)
	// a failed remote load is retried on the next SetUser; unreadable device
	// storage is not going to get better, so a guest keeps the empty mirror
	if err != nil && userID != uuid.Nil {
		m.loaded = false
	}
	return err
}

// reload replaces the mirror with what the active store holds. A list that
// fails to load keeps its current mirror. Caller holds m.mu.
func (m *Manager) reload(ctx context.Context) error {
	log := m.logger.With("user_id", m.userID)
	var errs []error
	cart, err := m.active.LoadCart(ctx)
	if err != nil {
		log.Error("loading cart", "error", err)
		errs = append(errs, fmt.Errorf("load cart: %w", err))
	} else {
		if cart == nil {
			cart = []models.CartItem{}
		}
		m.cart = cart
	}
	wishlist, err := m.active.LoadWishlist(ctx)
	if err != nil {
		log.Error("loading wishlist", "error", err)
		errs = append(errs, fmt.Errorf("load wishlist: %w", err))
	} else {
		if wishlist == nil {
			wishlist = []models.WishlistItem{}
		}
		m.wishlist = wishlist
	}
	return errors.Join(errs...)
}

// Load loads the guest state on first use. Later calls do nothing.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	loaded, user := m.loaded, m.userID
	m.mu.Unlock()
	if loaded {
		return nil
	}
	return m.SetUser(ctx, user)
}

// AddToCart adds qty of product. The resulting quantity never exceeds product.Stock.
func (m *Manager) AddToCart(ctx context.Context, product models.Product, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if product.Stock <= 0 {
		return ErrOutOfStock
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.active.AddCartItem(ctx, product, qty)
	if err != nil {
		m.logger.Error("adding to cart", "user_id", m.userID, "product_id", product.ID, "error", err)
		return fmt.Errorf("add product %d to cart: %w", product.ID, err)
	}

	item := models.CartItem{Product: product, Quantity: stored}
	if i := m.cartIndex(product.ID); i >= 0 {
		m.cart[i] = item
	} else {
		m.cart = append(m.cart, item)
	}
	return nil
}

// RemoveFromCart drops the product's line. Removing an absent product is a no-op.
func (m *Manager) RemoveFromCart(ctx context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeFromCart(ctx, productID)
}

func (m *Manager) removeFromCart(ctx context.Context, productID int64) error {
	if err := m.active.RemoveCartItem(ctx, productID); err != nil {
		m.logger.Error("removing from cart", "user_id", m.userID, "product_id", productID, "error", err)
		return fmt.Errorf("remove product %d from cart: %w", productID, err)
	}
	if m.cartIndex(productID) < 0 {
		m.logger.Debug("remove from cart: product not in cart", "product_id", productID)
	}
	m.cart = slices.DeleteFunc(m.cart, func(it models.CartItem) bool { return it.ID == productID })
	return nil
}

// UpdateQuantity sets the line's quantity, capped at the snapshot's stock.
// A quantity of zero or less removes the line.
func (m *Manager) UpdateQuantity(ctx context.Context, productID int64, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if qty <= 0 {
		return m.removeFromCart(ctx, productID)
	}

	i := m.cartIndex(productID)
	if i < 0 {
		m.logger.Debug("update quantity: product not in cart", "product_id", productID)
		return nil
	}
	q := capQuantity(qty, m.cart[i].Stock)
	err := m.active.SetCartQuantity(ctx, productID, q)
	if errors.Is(err, store.ErrNotFound) {
		// the line was removed from another device
		m.logger.Debug("update quantity: line gone from store", "product_id", productID)
		m.cart = slices.Delete(m.cart, i, i+1)
		return nil
	}
	if err != nil {
		m.logger.Error("updating cart quantity", "user_id", m.userID, "product_id", productID, "error", err)
		return fmt.Errorf("update quantity of product %d: %w", productID, err)
	}
	m.cart[i].Quantity = q
	return nil
}

func (m *Manager) ClearCart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.active.ClearCart(ctx); err != nil {
		m.logger.Error("clearing cart", "user_id", m.userID, "error", err)
		return fmt.Errorf("clear cart: %w", err)
	}
	m.cart = []models.CartItem{}
	return nil
}

// CartItems returns a copy of the mirrored cart.
func (m *Manager) CartItems() []models.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.cart)
}

// CartSnapshot returns the lines, the total and the item count read together.
func (m *Manager) CartSnapshot() (items []models.CartItem, total decimal.Decimal, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.cart), m.cartTotal(), m.cartItemsCount()
}

// CartTotal is the sum of price × quantity over all lines.
func (m *Manager) CartTotal() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cartTotal()
}

func (m *Manager) cartTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range m.cart {
		total = total.Add(it.LineTotal())
	}
	return total
}

// CartItemsCount is the sum of quantities over all lines.
func (m *Manager) CartItemsCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cartItemsCount()
}

func (m *Manager) cartItemsCount() int {
	n := 0
	for _, it := range m.cart {
		n += it.Quantity
	}
	return n
}

// AddToWishlist is idempotent by product id.
func (m *Manager) AddToWishlist(ctx context.Context, product models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.active.AddWishlistItem(ctx, product); err != nil {
		m.logger.Error("adding to wishlist", "user_id", m.userID, "product_id", product.ID, "error", err)
		return fmt.Errorf("add product %d to wishlist: %w", product.ID, err)
	}
	if !m.inWishlist(product.ID) {
		m.wishlist = append(m.wishlist, models.WishlistItem{Product: product})
	}
	return nil
}

func (m *Manager) RemoveFromWishlist(ctx context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.active.RemoveWishlistItem(ctx, productID); err != nil {
		m.logger.Error("removing from wishlist", "user_id", m.userID, "product_id", productID, "error", err)
		return fmt.Errorf("remove product %d from wishlist: %w", productID, err)
	}
	m.wishlist = slices.DeleteFunc(m.wishlist, func(it models.WishlistItem) bool { return it.ID == productID })
	return nil
}

func (m *Manager) IsInWishlist(productID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inWishlist(productID)
}

func (m *Manager) ClearWishlist(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.active.ClearWishlist(ctx); err != nil {
		m.logger.Error("clearing wishlist", "user_id", m.userID, "error", err)
		return fmt.Errorf("clear wishlist: %w", err)
	}
	m.wishlist = []models.WishlistItem{}
	return nil
}

// WishlistItems returns a copy of the mirrored wishlist.
func (m *Manager) WishlistItems() []models.WishlistItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.wishlist)
}

func (m *Manager) cartIndex(productID int64) int {
	return slices.IndexFunc(m.cart, func(it models.CartItem) bool { return it.ID == productID })
}

func (m *Manager) inWishlist(productID int64) bool {
	return slices.ContainsFunc(m.wishlist, func(it models.WishlistItem) bool { return it.ID == productID })
}
