package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	models "storefront/model"
	"storefront/store"
)

// Sort orders accepted by ListProducts.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortName      = "name"
)

// ProductFilter narrows and orders a product listing. The zero value lists
// everything, newest first.
type ProductFilter struct {
	Query    string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
	Limit    int
}

type Service struct {
	products Catalog
	orders   OrderBook
	mirror   ProductMirror
	logger   *slog.Logger
}

// NewService wires the catalog and order book. mirror may be nil.
func NewService(products Catalog, orders OrderBook, mirror ProductMirror, logger *slog.Logger) *Service {
	return &Service{products: products, orders: orders, mirror: mirror, logger: logger}
}

func (s *Service) ListProducts(f ProductFilter) []models.Product {
	all := s.products.List()
	q := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]models.Product, 0, len(all))
	for _, p := range all {
		if q != "" && !matches(p, q) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		out = append(out, p)
	}

	switch f.Sort {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b models.Product) int { return a.Price.Cmp(b.Price) })
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b models.Product) int { return b.Price.Cmp(a.Price) })
	case SortName:
		slices.SortStableFunc(out, func(a, b models.Product) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		})
	default:
		slices.SortStableFunc(out, func(a, b models.Product) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func matches(p models.Product, q string) bool {
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Category), q) ||
		strings.Contains(strings.ToLower(p.Brand), q)
}

func (s *Service) GetProduct(id int64) (models.Product, error) {
	return s.products.Get(id)
}

func (s *Service) CreateProduct(ctx context.Context, in models.ProductInput) (models.Product, error) {
	if err := in.ValidateNew(); err != nil {
		return models.Product{}, err
	}
	p, err := s.products.Create(in.NewProduct())
	if err != nil {
		return models.Product{}, err
	}
	s.logger.Info("product created", "product_id", p.ID, "sku", p.SKU)
	s.mirrorUpsert(ctx, p)
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, in models.ProductInput) (models.Product, error) {
	p, err := s.products.Update(id, in)
	if err != nil {
		return models.Product{}, err
	}
	s.logger.Info("product updated", "product_id", p.ID)
	s.mirrorUpsert(ctx, p)
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if !s.products.Delete(id) {
		return store.ErrNotFound
	}
	s.logger.Info("product deleted", "product_id", id)
	if s.mirror != nil {
		if err := s.mirror.DeleteProduct(ctx, id); err != nil {
			s.logger.Warn("mirroring product delete", "product_id", id, "error", err)
		}
	}
	return nil
}

// Categories returns the distinct non-empty categories, sorted.
func (s *Service) Categories() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range s.products.List() {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	slices.Sort(out)
	return out
}

func (s *Service) mirrorUpsert(ctx context.Context, p models.Product) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.UpsertProduct(ctx, p); err != nil {
		s.logger.Warn("mirroring product", "product_id", p.ID, "error", err)
	}
}

// ListOrders returns orders newest first.
func (s *Service) ListOrders() []models.Order {
	out := s.orders.List()
	slices.SortStableFunc(out, func(a, b models.Order) int { return cmp.Compare(b.ID, a.ID) })
	return out
}

func (s *Service) GetOrder(id int64) (models.Order, error) {
	return s.orders.Get(id)
}

func (s *Service) CreateOrder(in models.OrderInput) (models.Order, error) {
	o, err := s.orders.Create(in)
	if err != nil {
		return models.Order{}, err
	}
	s.logger.Info("order created", "order_id", o.ID, "order_number", o.OrderNumber)
	return o, nil
}
