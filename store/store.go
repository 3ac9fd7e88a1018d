package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	models "storefront/model"
)

const (
	queryListCart = `
		SELECT p.id, p.title, p.brand, p.category, p.price, p.stock, p.hero_image, p.description, c.quantity
		FROM cart c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.product_id`

	// quantity is capped at stock inside the statement so concurrent adds from
	// two devices of the same user cannot overshoot or lose an increment
	queryAddToCart = `
		INSERT INTO cart (user_id, product_id, quantity)
		VALUES ($1, $2, LEAST($3, $4))
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = LEAST(cart.quantity + $3, $4)
		RETURNING quantity`

	querySetCartQuantity = `UPDATE cart SET quantity = $3 WHERE user_id = $1 AND product_id = $2`
	queryRemoveFromCart  = `DELETE FROM cart WHERE user_id = $1 AND product_id = $2`
	queryClearCart       = `DELETE FROM cart WHERE user_id = $1`

	queryListWishlist = `
		SELECT p.id, p.title, p.brand, p.category, p.price, p.stock, p.hero_image, p.description
		FROM wishlist w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.product_id`

	queryAddToWishlist      = `INSERT INTO wishlist (user_id, product_id) VALUES ($1, $2)`
	queryRemoveFromWishlist = `DELETE FROM wishlist WHERE user_id = $1 AND product_id = $2`
	queryClearWishlist      = `DELETE FROM wishlist WHERE user_id = $1`

	queryGetProfile = `SELECT id, role, email, full_name FROM profiles WHERE id = $1`
)

// SQLSTATE 23505
const uniqueViolation = "unique_violation"

// PostgresStore implements Store on the hosted Postgres database.
type PostgresStore struct {
	DB *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// Migrate applies the schema script. The script must be idempotent.
func (s *PostgresStore) Migrate(ctx context.Context, script string) error {
	if _, err := s.DB.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCart(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	rows, err := s.DB.QueryContext(ctx, queryListCart, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	out := []models.CartItem{}
	for rows.Next() {
		var it models.CartItem
		var brand, desc sql.NullString
		if err := rows.Scan(&it.ID, &it.Title, &brand, &it.Category, &it.Price, &it.Stock, &it.HeroImage, &desc, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		it.Brand = brand.String
		it.Description = desc.String
		out = append(out, it)
	}
	return out, rows.Err()
}

// AddToCart increases the user's quantity for productID by qty, never past stock,
// and returns the quantity now stored.
func (s *PostgresStore) AddToCart(ctx context.Context, userID uuid.UUID, productID int64, qty, stock int) (int, error) {
	if qty <= 0 {
		return 0, errors.New("quantity must be > 0")
	}
	var stored int
	if err := s.DB.QueryRowContext(ctx, queryAddToCart, userID, productID, qty, stock).Scan(&stored); err != nil {
		return 0, fmt.Errorf("add to cart: %w", err)
	}
	return stored, nil
}

// SetCartQuantity overwrites the quantity of an existing row; ErrNotFound if there is none.
func (s *PostgresStore) SetCartQuantity(ctx context.Context, userID uuid.UUID, productID int64, qty int) error {
	res, err := s.DB.ExecContext(ctx, querySetCartQuantity, userID, productID, qty)
	if err != nil {
		return fmt.Errorf("update cart quantity: %w", err)
	}
	ra, _ := res.RowsAffected()
	if ra == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveFromCart is idempotent: deleting a row that is not there is not an error.
func (s *PostgresStore) RemoveFromCart(ctx context.Context, userID uuid.UUID, productID int64) error {
	if _, err := s.DB.ExecContext(ctx, queryRemoveFromCart, userID, productID); err != nil {
		return fmt.Errorf("remove from cart: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.DB.ExecContext(ctx, queryClearCart, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListWishlist(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	rows, err := s.DB.QueryContext(ctx, queryListWishlist, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	out := []models.WishlistItem{}
	for rows.Next() {
		var it models.WishlistItem
		var brand, desc sql.NullString
		if err := rows.Scan(&it.ID, &it.Title, &brand, &it.Category, &it.Price, &it.Stock, &it.HeroImage, &desc); err != nil {
			return nil, fmt.Errorf("scan wishlist row: %w", err)
		}
		it.Brand = brand.String
		it.Description = desc.String
		out = append(out, it)
	}
	return out, rows.Err()
}

// AddToWishlist returns ErrDuplicate when the product is already on the user's wishlist.
func (s *PostgresStore) AddToWishlist(ctx context.Context, userID uuid.UUID, productID int64) error {
	if _, err := s.DB.ExecContext(ctx, queryAddToWishlist, userID, productID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("add to wishlist: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveFromWishlist(ctx context.Context, userID uuid.UUID, productID int64) error {
	if _, err := s.DB.ExecContext(ctx, queryRemoveFromWishlist, userID, productID); err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearWishlist(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.DB.ExecContext(ctx, queryClearWishlist, userID); err != nil {
		return fmt.Errorf("clear wishlist: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, id uuid.UUID) (models.Profile, error) {
	var p models.Profile
	var role, email, name sql.NullString
	err := s.DB.QueryRowContext(ctx, queryGetProfile, id).Scan(&p.ID, &role, &email, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("get profile: %w", err)
	}
	p.Role = role.String
	p.Email = email.String
	p.FullName = name.String
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == uniqueViolation
}
