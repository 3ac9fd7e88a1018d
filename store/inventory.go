package store

import (
	"context"
	"fmt"

	models "storefront/model"
)

const (
	queryUpsertProduct = `
		INSERT INTO products (id, title, brand, category, price, stock, hero_image, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET title = EXCLUDED.title, brand = EXCLUDED.brand, category = EXCLUDED.category,
			price = EXCLUDED.price, stock = EXCLUDED.stock, hero_image = EXCLUDED.hero_image,
			description = EXCLUDED.description`

	queryDeleteProduct = `DELETE FROM products WHERE id = $1`
)

// UpsertProduct copies a catalog product into the remote products table so cart and
// wishlist rows referencing it can be joined back to a snapshot.
func (s *PostgresStore) UpsertProduct(ctx context.Context, p models.Product) error {
	if p.Stock < 0 {
		return fmt.Errorf("product %d: stock cannot be negative", p.ID)
	}
	_, err := s.DB.ExecContext(ctx, queryUpsertProduct,
		p.ID, p.Title, p.Brand, p.Category, p.Price, p.Stock, p.HeroImage, p.Description)
	if err != nil {
		return fmt.Errorf("upsert product %d: %w", p.ID, err)
	}
	return nil
}

// DeleteProduct removes the remote copy; cart and wishlist rows go with it (ON DELETE CASCADE).
func (s *PostgresStore) DeleteProduct(ctx context.Context, productID int64) error {
	if _, err := s.DB.ExecContext(ctx, queryDeleteProduct, productID); err != nil {
		return fmt.Errorf("delete product %d: %w", productID, err)
	}
	return nil
}
