package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	models "storefront/model"
)

var testUser = uuid.MustParse("5f0c9a52-3f1e-4f43-9d0a-6f2b8d1e7c11")

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PostgresStore{DB: db}, mock
}

func TestAddToCart_ReturnsStoredQuantity(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	// invalid qty -> should error early, no DB calls
	if _, err := s.AddToCart(ctx, testUser, 1, 0, 5); err == nil {
		t.Fatalf("expected error for qty <= 0")
	}

	mock.ExpectQuery(regexp.QuoteMeta(queryAddToCart)).
		WithArgs(testUser, int64(10), 5, 3).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(3))

	got, err := s.AddToCart(ctx, testUser, 10, 5, 3)
	if err != nil {
		t.Fatalf("AddToCart failed: %v", err)
	}
	if got != 3 {
		t.Fatalf("expected stored quantity 3, got %d", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetCartQuantity_NoRowsAndSuccess(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(querySetCartQuantity)).
		WithArgs(testUser, int64(5), 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.SetCartQuantity(ctx, testUser, 5, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta(querySetCartQuantity)).
		WithArgs(testUser, int64(5), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SetCartQuantity(ctx, testUser, 5, 2); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRemoveFromCart_MissingRowIsNotAnError(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(queryRemoveFromCart)).
		WithArgs(testUser, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.RemoveFromCart(context.Background(), testUser, 5); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClearCart_PropagatesError(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(queryClearCart)).
		WithArgs(testUser).
		WillReturnError(errors.New("connection reset"))

	if err := s.ClearCart(context.Background(), testUser); err == nil {
		t.Fatalf("expected error from ClearCart")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListCart_Success(t *testing.T) {
	s, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"id", "title", "brand", "category", "price", "stock", "hero_image", "description", "quantity"}).
		AddRow(int64(11), "iPhone 15", "Apple", "phones", "999.00", 4, "https://img/15.png", nil, 2).
		AddRow(int64(12), "Case", nil, "accessories", "49.50", 10, "https://img/case.png", "silicone", 1)
	mock.ExpectQuery(regexp.QuoteMeta(queryListCart)).
		WithArgs(testUser).
		WillReturnRows(rows)

	got, err := s.ListCart(context.Background(), testUser)
	if err != nil {
		t.Fatalf("ListCart failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != 11 || got[0].Quantity != 2 {
		t.Fatalf("unexpected cart rows: %+v", got)
	}
	if !got[0].Price.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("expected price 999, got %s", got[0].Price)
	}
	if got[1].Brand != "" || got[1].Description != "silicone" {
		t.Fatalf("null handling wrong: %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListWishlist_Success(t *testing.T) {
	s, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"id", "title", "brand", "category", "price", "stock", "hero_image", "description"}).
		AddRow(int64(3), "AirPods", "Apple", "audio", "199", 7, "https://img/air.png", "")
	mock.ExpectQuery(regexp.QuoteMeta(queryListWishlist)).
		WithArgs(testUser).
		WillReturnRows(rows)

	got, err := s.ListWishlist(context.Background(), testUser)
	if err != nil {
		t.Fatalf("ListWishlist failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != 3 || got[0].Title != "AirPods" {
		t.Fatalf("unexpected wishlist rows: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddToWishlist_DuplicateIsReported(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(queryAddToWishlist)).
		WithArgs(testUser, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryAddToWishlist)).
		WithArgs(testUser, int64(3)).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectExec(regexp.QuoteMeta(queryAddToWishlist)).
		WithArgs(testUser, int64(4)).
		WillReturnError(&pq.Error{Code: "23503", Message: "violates foreign key constraint"})

	if err := s.AddToWishlist(ctx, testUser, 3); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := s.AddToWishlist(ctx, testUser, 3); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	err := s.AddToWishlist(ctx, testUser, 4)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected a plain error for foreign key violation, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetProfile(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(queryGetProfile)).
		WithArgs(testUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "email", "full_name"}).
			AddRow(testUser.String(), "admin", "ops@example.com", nil))
	mock.ExpectQuery(regexp.QuoteMeta(queryGetProfile)).
		WithArgs(testUser).
		WillReturnError(sql.ErrNoRows)

	p, err := s.GetProfile(ctx, testUser)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if p.ID != testUser || !p.IsAdmin() || p.Email != "ops@example.com" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	if _, err := s.GetProfile(ctx, testUser); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertAndDeleteProduct(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	p := models.Product{
		ID:        7,
		Title:     "iPhone 15 Pro",
		Brand:     "Apple",
		Category:  "phones",
		Price:     decimal.RequireFromString("1199.99"),
		Stock:     3,
		HeroImage: "https://img/15pro.png",
	}

	// negative stock is rejected before touching the database
	bad := p
	bad.Stock = -1
	if err := s.UpsertProduct(ctx, bad); err == nil {
		t.Fatalf("expected error for negative stock")
	}

	mock.ExpectExec(regexp.QuoteMeta(queryUpsertProduct)).
		WithArgs(int64(7), "iPhone 15 Pro", "Apple", "phones", p.Price, 3, "https://img/15pro.png", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(queryDeleteProduct)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.UpsertProduct(ctx, p); err != nil {
		t.Fatalf("UpsertProduct failed: %v", err)
	}
	if err := s.DeleteProduct(ctx, 7); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	s, mock := newMock(t)

	script := "CREATE TABLE IF NOT EXISTS profiles (id UUID PRIMARY KEY)"
	mock.ExpectExec(regexp.QuoteMeta(script)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Migrate(context.Background(), script); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
