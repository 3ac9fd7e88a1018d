package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"storefront/cart"
	models "storefront/model"
	"storefront/service"
	"storefront/store"
)

// Handler is the HTTP layer over the catalog service and the cart sessions.
type Handler struct {
	svc      service.ServiceInterface
	sessions *cart.Sessions
	logger   *slog.Logger

	// Admin guards product writes, export and import. Nil leaves them open.
	Admin mux.MiddlewareFunc
}

// NewHandler returns a Handler instance
func NewHandler(s service.ServiceInterface, sessions *cart.Sessions, logger *slog.Logger) *Handler {
	return &Handler{svc: s, sessions: sessions, logger: logger}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(h.logRequests)
	r.HandleFunc("/health", h.Health).Methods("GET")

	// Products
	r.HandleFunc("/products", h.ListProducts).Methods("GET")
	r.Handle("/products", h.admin(h.CreateProduct)).Methods("POST")
	r.Handle("/products/export", h.admin(h.ExportProducts)).Methods("GET")
	r.Handle("/products/import", h.admin(h.ImportProducts)).Methods("POST")
	r.HandleFunc("/products/{id:[0-9]+}", h.GetProduct).Methods("GET")
	r.Handle("/products/{id:[0-9]+}", h.admin(h.UpdateProduct)).Methods("PUT")
	r.Handle("/products/{id:[0-9]+}", h.admin(h.DeleteProduct)).Methods("DELETE")
	r.HandleFunc("/categories", h.Categories).Methods("GET")

	// Orders
	r.HandleFunc("/orders", h.ListOrders).Methods("GET")
	r.HandleFunc("/orders", h.CreateOrder).Methods("POST")
	r.HandleFunc("/orders/{id:[0-9]+}", h.GetOrder).Methods("GET")

	// Cart
	r.HandleFunc("/cart", h.GetCart).Methods("GET")
	r.HandleFunc("/cart", h.ClearCart).Methods("DELETE")
	r.HandleFunc("/cart/items", h.AddToCart).Methods("POST")
	r.HandleFunc("/cart/items/{productId:[0-9]+}", h.UpdateCartItem).Methods("PATCH")
	r.HandleFunc("/cart/items/{productId:[0-9]+}", h.RemoveFromCart).Methods("DELETE")

	// Wishlist
	r.HandleFunc("/wishlist", h.GetWishlist).Methods("GET")
	r.HandleFunc("/wishlist", h.ClearWishlist).Methods("DELETE")
	r.HandleFunc("/wishlist/items", h.AddToWishlist).Methods("POST")
	r.HandleFunc("/wishlist/items/{productId:[0-9]+}", h.InWishlist).Methods("GET")
	r.HandleFunc("/wishlist/items/{productId:[0-9]+}", h.RemoveFromWishlist).Methods("DELETE")
}

func (h *Handler) admin(fn http.HandlerFunc) http.Handler {
	if h.Admin == nil {
		return fn
	}
	return h.Admin(fn)
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeValidation reports the offending fields next to the message.
func writeValidation(w http.ResponseWriter, err *models.ValidationError) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Msg, "fields": err.Fields})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- products ---

// ListProducts handles GET /products?q=&category=&minPrice=&maxPrice=&sort=&limit=
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := service.ProductFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
	}
	switch f.Sort {
	case "", service.SortNewest, service.SortPriceAsc, service.SortPriceDesc, service.SortName:
	default:
		writeErr(w, http.StatusBadRequest, "unknown sort "+strconv.Quote(f.Sort))
		return
	}
	for name, dst := range map[string]**decimal.Decimal{"minPrice": &f.MinPrice, "maxPrice": &f.MaxPrice} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, name+" must be a number")
			return
		}
		*dst = &d
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeErr(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}
	writeJSON(w, http.StatusOK, h.svc.ListProducts(f))
}

// GetProduct handles GET /products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	p, err := h.svc.GetProduct(id)
	if err != nil {
		h.productErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProduct handles POST /products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), in)
	if err != nil {
		h.productErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT /products/{id}. Only the fields present in the body change.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	var in models.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.productErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE /products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		h.productErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

// Categories handles GET /categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Categories())
}

func (h *Handler) productErr(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidation(w, verr)
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, http.StatusNotFound, "Product not found")
	default:
		h.logger.Error("product request failed", "error", err)
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}

// --- orders ---

// ListOrders handles GET /orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListOrders())
}

// GetOrder handles GET /orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r, "id")
	o, err := h.svc.GetOrder(id)
	if errors.Is(err, store.ErrNotFound) {
		writeErr(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// CreateOrder handles POST /orders
// body: { "items": [...], "total": 1998, "customerEmail": "...", "status": "pending" }
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in models.OrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	o, err := h.svc.CreateOrder(in)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			writeValidation(w, verr)
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, o)
}
