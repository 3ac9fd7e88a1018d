package store

import (
	"encoding/json"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	models "storefront/model"
)

// Sequence hands out increasing ids. It is safe for concurrent use.
type Sequence struct {
	next atomic.Int64
}

func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.next.Store(start)
	return s
}

// Next returns the current value and advances the sequence by one.
func (s *Sequence) Next() int64 {
	return s.next.Add(1) - 1
}

// Peek returns the id the next call to Next will hand out.
func (s *Sequence) Peek() int64 {
	return s.next.Load()
}

// ProductRepository is the process-lifetime product catalog. Nothing survives a restart.
type ProductRepository struct {
	mu       sync.RWMutex
	products []models.Product
	seq      *Sequence
	now      func() time.Time
}

// NewProductRepository returns an empty catalog whose ids start at 1.
func NewProductRepository() *ProductRepository {
	return NewProductRepositoryWith(NewSequence(1), time.Now)
}

func NewProductRepositoryWith(seq *Sequence, now func() time.Time) *ProductRepository {
	return &ProductRepository{seq: seq, now: now}
}

// List returns every product in insertion order.
func (r *ProductRepository) List() []models.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, cloneProduct(p))
	}
	return out
}

func (r *ProductRepository) Get(id int64) (models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Product{}, ErrNotFound
	}
	return cloneProduct(r.products[i]), nil
}

// Create assigns the next id, a default SKU when p has none, and both timestamps.
// The sequence only advances for products that pass validation.
func (r *ProductRepository) Create(p models.Product) (models.Product, error) {
	if err := checkProduct(p); err != nil {
		return models.Product{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	p.ID = r.seq.Next()
	if p.SKU == "" {
		p.SKU = DefaultSKU(p.ID)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	r.products = append(r.products, cloneProduct(p))
	return p, nil
}

// Update merges in onto the stored product. id and createdAt never change.
func (r *ProductRepository) Update(id int64, in models.ProductInput) (models.Product, error) {
	if err := in.Check(); err != nil {
		return models.Product{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Product{}, ErrNotFound
	}
	p := cloneProduct(r.products[i])
	in.Apply(&p)
	p.ID = r.products[i].ID
	p.CreatedAt = r.products[i].CreatedAt
	p.UpdatedAt = r.now()
	if err := checkProduct(p); err != nil {
		return models.Product{}, err
	}
	r.products[i] = p
	return cloneProduct(p), nil
}

// Delete reports whether a product was removed.
func (r *ProductRepository) Delete(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return false
	}
	r.products = slices.Delete(r.products, i, i+1)
	return true
}

// caller holds r.mu
func (r *ProductRepository) indexOf(id int64) int {
	return slices.IndexFunc(r.products, func(p models.Product) bool { return p.ID == id })
}

// OrderRepository keeps orders for the life of the process. Orders are immutable once created.
type OrderRepository struct {
	mu     sync.RWMutex
	orders []models.Order
	seq    *Sequence
	now    func() time.Time
}

// NewOrderRepository returns an empty order book whose ids start at 1000.
func NewOrderRepository() *OrderRepository {
	return NewOrderRepositoryWith(NewSequence(1000), time.Now)
}

func NewOrderRepositoryWith(seq *Sequence, now func() time.Time) *OrderRepository {
	return &OrderRepository{seq: seq, now: now}
}

func (r *OrderRepository) List() []models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Order, len(r.orders))
	copy(out, r.orders)
	return out
}

func (r *OrderRepository) Get(id int64) (models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return models.Order{}, ErrNotFound
}

func (r *OrderRepository) Create(in models.OrderInput) (models.Order, error) {
	if err := in.Validate(); err != nil {
		return models.Order{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o := models.Order{
		ID:            r.seq.Next(),
		Items:         slices.Clone(in.Items),
		Total:         in.Total,
		CustomerEmail: in.CustomerEmail,
		Status:        in.Status,
		Date:          r.now(),
	}
	if o.Items == nil {
		o.Items = []json.RawMessage{}
	}
	if o.Status == "" {
		o.Status = models.OrderPending
	}
	o.OrderNumber = models.OrderNumber(o.ID)
	r.orders = append(r.orders, o)
	return o, nil
}
