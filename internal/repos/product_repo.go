package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"fefe/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// Get loads a product with its variants.
func (r *ProductRepo) Get(id string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `
	  SELECT id, name, COALESCE(description,'') AS description, category, brand,
	         price, compare_at_price, active, featured, average_rating, total_reviews,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products WHERE id = ?
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := r.db.Select(&p.Variants, `
	  SELECT product_id, sku, size, color, stock
	  FROM variants WHERE product_id = ? ORDER BY sku
	`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) List(category, q string, limit, offset int) ([]domain.Product, error) {
	where := `active = 1`
	args := []any{}
	if category != "" {
		where += ` AND category = ?`
		args = append(args, category)
	}
	if q != "" {
		where += ` AND (LOWER(name) LIKE ? OR LOWER(description) LIKE ?)`
		needle := "%" + q + "%"
		args = append(args, needle, needle)
	}
	args = append(args, limit, offset)

	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT id, name, COALESCE(description,'') AS description, category, brand,
	         price, compare_at_price, active, featured, average_rating, total_reviews,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products
	  WHERE `+where+`
	  ORDER BY created_at DESC
	  LIMIT ? OFFSET ?
	`, args...)
	return out, err
}

// RestoreStock gives qty back to a variant.
func (r *ProductRepo) RestoreStock(productID, sku string, qty int) error {
	_, err := r.db.Exec(`
		UPDATE variants SET stock = stock + ?
		WHERE product_id = ? AND sku = ?
	`, qty, productID, sku)
	return err
}

// UpsertVariant sets stock for (productID, sku), creating the row if needed.
func (r *ProductRepo) UpsertVariant(v domain.Variant) error {
	_, err := r.db.Exec(`
		INSERT INTO variants(product_id, sku, size, color, stock)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(product_id, sku) DO UPDATE SET stock = excluded.stock,
		  size = excluded.size, color = excluded.color
	`, v.ProductID, v.SKU, v.Size, v.Color, v.Stock)
	return err
}

func (r *ProductRepo) VariantStock(productID, sku string) (int, error) {
	var stock int
	err := r.db.Get(&stock, `SELECT stock FROM variants WHERE product_id=? AND sku=?`, productID, sku)
	if err != nil {
		return 0, err
	}
	return stock, nil
}

// AddReview appends a review and recomputes the rating aggregate in one tx.
func (r *ProductRepo) AddReview(rev domain.Review) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO reviews(id, product_id, user_id, rating, comment)
		VALUES (?, ?, ?, ?, ?)
	`, rev.ID, rev.ProductID, rev.UserID, rev.Rating, rev.Comment); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		UPDATE products SET
		  average_rating = (SELECT AVG(rating) FROM reviews WHERE product_id = ?),
		  total_reviews  = (SELECT COUNT(*) FROM reviews WHERE product_id = ?),
		  updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, rev.ProductID, rev.ProductID, rev.ProductID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *ProductRepo) Reviews(productID string, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.Review
	err := r.db.Select(&out, `
	  SELECT id, product_id, user_id, rating, COALESCE(comment,'') AS comment, created_at
	  FROM reviews WHERE product_id = ?
	  ORDER BY datetime(created_at) DESC LIMIT ?
	`, productID, limit)
	return out, err
}
