package store

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	models "storefront/model"
)

// stepClock advances one second per call so timestamps are distinguishable.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func phone(title string) models.Product {
	return models.Product{
		Title:     title,
		Brand:     "Apple",
		Category:  "phones",
		Price:     decimal.NewFromInt(999),
		Stock:     5,
		HeroImage: "https://img/" + title + ".png",
		Status:    models.ProductActive,
	}
}

func TestProductRepository_CreateAssignsSequentialIDsAndSKUs(t *testing.T) {
	repo := NewProductRepositoryWith(NewSequence(1), stepClock())

	a, err := repo.Create(phone("a"))
	require.NoError(t, err)
	b, err := repo.Create(phone("b"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, "IP-0001", a.SKU)
	assert.Equal(t, "IP-0002", b.SKU)
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)

	custom := phone("c")
	custom.SKU = "CUSTOM-1"
	c, err := repo.Create(custom)
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM-1", c.SKU)

	list := repo.List()
	require.Len(t, list, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{list[0].ID, list[1].ID, list[2].ID})
}

func TestProductRepository_InvalidCreateDoesNotConsumeID(t *testing.T) {
	repo := NewProductRepositoryWith(NewSequence(1), stepClock())

	bad := phone("bad")
	bad.Stock = -1
	_, err := repo.Create(bad)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	p, err := repo.Create(phone("ok"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
}

func TestProductRepository_ConcurrentCreatesGetUniqueIDs(t *testing.T) {
	repo := NewProductRepository()

	const n = 64
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := repo.Create(phone("p"))
			if err == nil {
				ids <- p.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Len(t, repo.List(), n)
}

func TestProductRepository_UpdatePreservesIdentity(t *testing.T) {
	repo := NewProductRepositoryWith(NewSequence(1), stepClock())
	p, err := repo.Create(phone("a"))
	require.NoError(t, err)

	price := decimal.NewFromInt(899)
	got, err := repo.Update(p.ID, models.ProductInput{Price: &price})
	require.NoError(t, err)

	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(p.UpdatedAt))
	assert.True(t, got.Price.Equal(price))
	assert.Equal(t, p.Title, got.Title, "fields not provided stay as they were")

	stored, err := repo.Get(p.ID)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(price))
}

func TestProductRepository_UpdateRejectsNegativeStockAndMissingID(t *testing.T) {
	repo := NewProductRepositoryWith(NewSequence(1), stepClock())
	p, err := repo.Create(phone("a"))
	require.NoError(t, err)

	neg := -3
	_, err = repo.Update(p.ID, models.ProductInput{Stock: &neg})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	stored, _ := repo.Get(p.ID)
	assert.Equal(t, 5, stored.Stock)

	_, err = repo.Update(42, models.ProductInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductRepository_DeleteIsFinal(t *testing.T) {
	repo := NewProductRepository()
	p, err := repo.Create(phone("a"))
	require.NoError(t, err)

	assert.True(t, repo.Delete(p.ID))
	_, err = repo.Get(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, repo.Delete(p.ID))
}

func TestProductRepository_ReturnedProductsAreCopies(t *testing.T) {
	repo := NewProductRepository()
	p := phone("a")
	p.Tags = []string{"new"}
	created, err := repo.Create(p)
	require.NoError(t, err)

	list := repo.List()
	list[0].Tags[0] = "mutated"
	list[0].Title = "mutated"

	got, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)
	assert.Equal(t, []string{"new"}, got.Tags)
}

func TestOrderRepository_Create(t *testing.T) {
	repo := NewOrderRepositoryWith(NewSequence(1000), stepClock())

	o, err := repo.Create(models.OrderInput{
		Items:         []json.RawMessage{json.RawMessage(`{"productId":1,"quantity":2}`)},
		Total:         decimal.NewFromInt(1998),
		CustomerEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), o.ID)
	assert.Equal(t, "iPhone-001000", o.OrderNumber)
	assert.Equal(t, models.OrderPending, o.Status)
	assert.False(t, o.Date.IsZero())

	o2, err := repo.Create(models.OrderInput{CustomerEmail: "b@example.com", Status: models.OrderShipped})
	require.NoError(t, err)
	assert.Equal(t, int64(1001), o2.ID)
	assert.Equal(t, models.OrderShipped, o2.Status)
	assert.NotNil(t, o2.Items)

	got, err := repo.Get(1000)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	assert.Len(t, repo.List(), 2)

	_, err = repo.Get(5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderRepository_CreateValidates(t *testing.T) {
	repo := NewOrderRepository()

	_, err := repo.Create(models.OrderInput{})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"customerEmail"}, verr.Fields)

	_, err = repo.Create(models.OrderInput{CustomerEmail: "a@b.c", Status: "lost"})
	require.ErrorAs(t, err, &verr)

	assert.Empty(t, repo.List())
	assert.Equal(t, int64(1000), repo.seq.Peek(), "rejected orders must not consume ids")
}
