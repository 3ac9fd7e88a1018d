package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"storefront/auth"
	"storefront/cart"
	models "storefront/model"
	"storefront/store"
)

// DeviceHeader identifies the browser or app install a guest cart belongs to.
const DeviceHeader = "X-Device-ID"

type cartView struct {
	Items []models.CartItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
	Count int               `json:"count"`
}

type wishlistView struct {
	Items []models.WishlistItem `json:"items"`
}

type addCartItemReq struct {
	ProductID int64 `json:"productId"`
	Quantity  *int  `json:"quantity,omitempty"` // defaults to 1
}

type setQuantityReq struct {
	Quantity *int `json:"quantity"`
}

type wishlistItemReq struct {
	ProductID int64 `json:"productId"`
}

// session resolves the request's Manager from the device header and the
// authenticated user. It writes the error response itself and returns nil on failure.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *cart.Manager {
	deviceID, err := uuid.Parse(r.Header.Get(DeviceHeader))
	if err != nil || deviceID == uuid.Nil {
		writeErr(w, http.StatusBadRequest, DeviceHeader+" header must be a UUID")
		return nil
	}
	userID, signedIn := auth.UserFrom(r.Context())

	m, err := h.sessions.Session(r.Context(), deviceID, userID)
	switch {
	case m == nil:
		h.cartErr(w, err)
		return nil
	case err != nil && signedIn:
		h.cartErr(w, err)
		return nil
	case err != nil:
		// unreadable device storage: the guest starts over with an empty cart
		h.logger.Warn("guest state reset", "device_id", deviceID, "error", err)
	}
	return m
}

func (h *Handler) cartErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeErr(w, http.StatusBadRequest, "quantity must be > 0")
	case errors.Is(err, cart.ErrOutOfStock):
		writeErr(w, http.StatusConflict, "Product is out of stock")
	case errors.Is(err, cart.ErrRemoteUnavailable):
		writeErr(w, http.StatusServiceUnavailable, "Signed-in carts are not available")
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, http.StatusNotFound, "Product is not in the cart")
	default:
		writeErr(w, http.StatusBadGateway, "Could not reach cart storage")
	}
}

// lookup fetches the product a cart or wishlist request refers to.
func (h *Handler) lookup(w http.ResponseWriter, id int64) (models.Product, bool) {
	p, err := h.svc.GetProduct(id)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "Product not found")
		return p, false
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return p, false
	}
	return p, true
}

func writeCart(w http.ResponseWriter, m *cart.Manager) {
	items, total, count := m.CartSnapshot()
	writeJSON(w, http.StatusOK, cartView{Items: items, Total: total, Count: count})
}

func writeWishlist(w http.ResponseWriter, m *cart.Manager) {
	writeJSON(w, http.StatusOK, wishlistView{Items: m.WishlistItems()})
}

// GetCart handles GET /cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	m := h.session(w, r)
	if m == nil {
		return
	}
	writeCart(w, m)
}

// AddToCart handles POST /cart/items
// body: { "productId": 1, "quantity": 2 }
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addCartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	m := h.session(w, r)
	if m == nil {
		return
	}
	p, ok := h.lookup(w, req.ProductID)
	if !ok {
		return
	}
	if err := m.AddToCart(r.Context(), p, qty); err != nil {
		h.cartErr(w, err)
		return
	}
	writeCart(w, m)
}

// UpdateCartItem handles PATCH /cart/items/{productId}
// body: { "quantity": 3 }; zero or less removes the line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "productId")
	var req setQuantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity == nil {
		writeValidation(w, &models.ValidationError{Msg: "Missing required fields", Fields: []string{"quantity"}})
		return
	}
	m := h.session(w, r)
	if m == nil {
		return
	}
	if err := m.UpdateQuantity(r.Context(), id, *req.Quantity); err != nil {
		h.cartErr(w, err)
		return
	}
	writeCart(w, m)
}

// RemoveFromCart handles DELETE /cart/items/{productId}
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "productId")
	m := h.session(w, r)
	if m == nil {
		return
	}
	if err := m.RemoveFromCart(r.Context(), id); err != nil {
		h.cartErr(w, err)
		return
	}
	writeCart(w, m)
}

// ClearCart handles DELETE /cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	m := h.session(w, r)
	if m == nil {
		return
	}
	if err := m.ClearCart(r.Context()); err != nil {
		h.cartErr(w, err)
		return
	}
	writeCart(w, m)
}

// GetWishlist handles GET /wishlist
func (h *Handler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	m := h.session(w, r)
	if m == nil {
		return
	}
	writeWishlist(w, m)
}

// AddToWishlist handles POST /wishlist/items
// body: { "productId": 1 }
func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	var req wishlistItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	m := h.session(w, r)
	if m == nil {
		return
	}
	p, ok := h.lookup(w, req.ProductID)
	if !ok {
		return
	}
	if err := m.AddToWishlist(r.Context(), p); err != nil {
		h.cartErr(w, err)
		return
	}
	writeWishlist(w, m)
}

// InWishlist handles GET /wishlist/items/{productId}
func (h *Handler) InWishlist(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "productId")
	m := h.session(w, r)
	if m == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"inWishlist": m.IsInWishlist(id)})
}

// RemoveFromWishlist handles DELETE /wishlist/items/{productId}
func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "productId")
	m := h.session(w, r)
	if m == nil {
		return
	}
	if err := m.RemoveFromWishlist(r.Context(), id); err != nil {
		h.cartErr(w, err)
		return
	}
	writeWishlist(w, m)
}

// ClearWishlist handles DELETE /wishlist
func (h *Handler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	m := h.session(w, r)
	if m == nil {
		return
	}
	if err := m.ClearWishlist(r.Context()); err != nil {
		h.cartErr(w, err)
		return
	}
	writeWishlist(w, m)
}
