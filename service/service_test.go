package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	models "storefront/model"
	"storefront/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// ---- fakes ----

type fakeCatalog struct {
	ListFn   func() []models.Product
	GetFn    func(id int64) (models.Product, error)
	CreateFn func(p models.Product) (models.Product, error)
	UpdateFn func(id int64, in models.ProductInput) (models.Product, error)
	DeleteFn func(id int64) bool
}

func (f *fakeCatalog) List() []models.Product                          { return f.ListFn() }
func (f *fakeCatalog) Get(id int64) (models.Product, error)            { return f.GetFn(id) }
func (f *fakeCatalog) Create(p models.Product) (models.Product, error) { return f.CreateFn(p) }
func (f *fakeCatalog) Update(id int64, in models.ProductInput) (models.Product, error) {
	return f.UpdateFn(id, in)
}
func (f *fakeCatalog) Delete(id int64) bool { return f.DeleteFn(id) }

type fakeMirror struct {
	UpsertFn func(ctx context.Context, p models.Product) error
	DeleteFn func(ctx context.Context, id int64) error
}

func (f *fakeMirror) UpsertProduct(ctx context.Context, p models.Product) error {
	return f.UpsertFn(ctx, p)
}
func (f *fakeMirror) DeleteProduct(ctx context.Context, id int64) error { return f.DeleteFn(ctx, id) }

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }
func decp(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func validInput(title string) models.ProductInput {
	return models.ProductInput{
		Title:     strp(title),
		Category:  strp("iPhone"),
		Price:     decp(999),
		Stock:     intp(10),
		HeroImage: strp("https://img/hero.png"),
	}
}

// seeded builds a service over real repositories with a deterministic clock.
func seeded(t *testing.T) *Service {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	clock := func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	products := store.NewProductRepositoryWith(store.NewSequence(1), clock)
	svc := NewService(products, store.NewOrderRepository(), nil, quiet)

	for _, in := range []struct {
		title, brand, category string
		price                  int64
	}{
		{"iPhone 15 Pro", "Apple", "iPhone", 999},
		{"MagSafe Charger", "Apple", "Accessories", 39},
		{"iPhone 15", "Apple", "iPhone", 799},
		{"Leather Case", "Nomad", "accessories", 59},
	} {
		pi := validInput(in.title)
		pi.Brand = strp(in.brand)
		pi.Category = strp(in.category)
		pi.Price = decp(in.price)
		if _, err := svc.CreateProduct(context.Background(), pi); err != nil {
			t.Fatalf("seed %q: %v", in.title, err)
		}
	}
	return svc
}

func titles(ps []models.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Title)
	}
	return out
}

// ---- Tests ----

func TestCreateProductValidationAndForwarding(t *testing.T) {
	called := false
	svc := NewService(&fakeCatalog{
		CreateFn: func(p models.Product) (models.Product, error) {
			called = true
			p.ID = 7
			return p, nil
		},
	}, nil, nil, quiet)

	// missing fields -> validation error listing them
	_, err := svc.CreateProduct(context.Background(), models.ProductInput{Title: strp("x")})
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := []string{"category", "price", "stock", "heroImage"}
	if !reflect.DeepEqual(verr.Fields, want) {
		t.Fatalf("expected fields %v, got %v", want, verr.Fields)
	}
	if called {
		t.Fatalf("repository must not be called for invalid input")
	}

	// negative stock -> error
	in := validInput("n")
	in.Stock = intp(-1)
	if _, err := svc.CreateProduct(context.Background(), in); err == nil {
		t.Fatalf("expected error for negative stock")
	}

	// OK path -> defaults applied and forwarded
	p, err := svc.CreateProduct(context.Background(), validInput("iPhone 15"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 7 || p.Brand != models.DefaultBrand || p.Status != models.ProductActive {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestProductWritesAreMirrored(t *testing.T) {
	var upserted []int64
	var deleted []int64
	mirror := &fakeMirror{
		UpsertFn: func(_ context.Context, p models.Product) error {
			upserted = append(upserted, p.ID)
			return nil
		},
		DeleteFn: func(_ context.Context, id int64) error {
			deleted = append(deleted, id)
			return nil
		},
	}
	svc := NewService(store.NewProductRepository(), store.NewOrderRepository(), mirror, quiet)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, validInput("a"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateProduct(ctx, p.ID, models.ProductInput{Stock: intp(2)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if !reflect.DeepEqual(upserted, []int64{1, 1}) {
		t.Fatalf("expected two upserts of product 1, got %v", upserted)
	}
	if !reflect.DeepEqual(deleted, []int64{1}) {
		t.Fatalf("expected delete of product 1, got %v", deleted)
	}
}

func TestMirrorFailureDoesNotFailWrite(t *testing.T) {
	mirror := &fakeMirror{
		UpsertFn: func(context.Context, models.Product) error { return errors.New("db down") },
		DeleteFn: func(context.Context, int64) error { return errors.New("db down") },
	}
	svc := NewService(store.NewProductRepository(), store.NewOrderRepository(), mirror, quiet)

	p, err := svc.CreateProduct(context.Background(), validInput("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetProduct(p.ID); err != nil {
		t.Fatalf("product should exist locally: %v", err)
	}
	if err := svc.DeleteProduct(context.Background(), p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateAndDeleteNotFound(t *testing.T) {
	svc := NewService(store.NewProductRepository(), store.NewOrderRepository(), nil, quiet)

	if _, err := svc.UpdateProduct(context.Background(), 99, models.ProductInput{Title: strp("x")}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteProduct(context.Background(), 99); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListProductsDefaultsToNewestFirst(t *testing.T) {
	svc := seeded(t)

	got := titles(svc.ListProducts(ProductFilter{}))
	want := []string{"Leather Case", "iPhone 15", "MagSafe Charger", "iPhone 15 Pro"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestListProductsFilters(t *testing.T) {
	svc := seeded(t)

	cases := []struct {
		name string
		f    ProductFilter
		want []string
	}{
		{"query matches title", ProductFilter{Query: "IPHONE 15", Sort: SortName}, []string{"iPhone 15", "iPhone 15 Pro"}},
		{"query matches brand", ProductFilter{Query: "nomad"}, []string{"Leather Case"}},
		{"category ignores case", ProductFilter{Category: "Accessories", Sort: SortName}, []string{"Leather Case", "MagSafe Charger"}},
		{"price range", ProductFilter{MinPrice: decp(50), MaxPrice: decp(799), Sort: SortPriceAsc}, []string{"Leather Case", "iPhone 15"}},
		{"price desc with limit", ProductFilter{Sort: SortPriceDesc, Limit: 2}, []string{"iPhone 15 Pro", "iPhone 15"}},
		{"no match", ProductFilter{Query: "pixel"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := titles(svc.ListProducts(tc.f))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCategories(t *testing.T) {
	svc := seeded(t)

	got := svc.Categories()
	want := []string{"Accessories", "accessories", "iPhone"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestOrders(t *testing.T) {
	svc := NewService(store.NewProductRepository(), store.NewOrderRepository(), nil, quiet)

	if _, err := svc.CreateOrder(models.OrderInput{}); err == nil {
		t.Fatalf("expected error for order without customer email")
	}

	first, err := svc.CreateOrder(models.OrderInput{CustomerEmail: "a@example.com", Total: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.CreateOrder(models.OrderInput{CustomerEmail: "b@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != 1000 || first.OrderNumber != "iPhone-001000" {
		t.Fatalf("unexpected first order: %+v", first)
	}

	list := svc.ListOrders()
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest order first, got %+v", list)
	}

	got, err := svc.GetOrder(first.ID)
	if err != nil || got.CustomerEmail != "a@example.com" {
		t.Fatalf("unexpected order %+v (err %v)", got, err)
	}
	if _, err := svc.GetOrder(1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
