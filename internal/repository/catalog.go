package repository

import (
	"context"

	"github.com/google/uuid"
)

const findProductById = `
SELECT id, name, slug, description, price, stock, is_available, created_at, updated_at
FROM products
WHERE id = $1
`

func (q *Queries) FindProductById(c context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(c, findProductById, id)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Slug,
		&i.Description,
		&i.Price,
		&i.Stock,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findProductBySlug = `
SELECT id, name, slug, description, price, stock, is_available, created_at, updated_at
FROM products
WHERE slug = $1
`

func (q *Queries) FindProductBySlug(c context.Context, slug string) (Product, error) {
	row := q.db.QueryRow(c, findProductBySlug, slug)
	var i Product
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Slug,
		&i.Description,
		&i.Price,
		&i.Stock,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findAvailableProducts = `
SELECT id, name, slug, description, price, stock, is_available, created_at, updated_at
FROM products
WHERE is_available
ORDER BY created_at, id
`

func (q *Queries) FindAvailableProducts(c context.Context) ([]Product, error) {
	rows, err := q.db.Query(c, findAvailableProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Product{}
	for rows.Next() {
		var i Product
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Slug,
			&i.Description,
			&i.Price,
			&i.Stock,
			&i.IsAvailable,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const findVariation = `
SELECT id, product_id, category, value, is_active
FROM variations
WHERE product_id = $1
  AND lower(category) = lower($2)
  AND lower(value) = lower($3)
  AND is_active
`

type FindVariationParams struct {
	ProductID uuid.UUID
	Category  string
	Value     string
}

// FindVariation resolves a (category, value) selector to the concrete
// variation record. Matching is case-insensitive on both fields.
func (q *Queries) FindVariation(c context.Context, arg FindVariationParams) (Variation, error) {
	row := q.db.QueryRow(c, findVariation, arg.ProductID, arg.Category, arg.Value)
	var i Variation
	err := row.Scan(&i.ID, &i.ProductID, &i.Category, &i.Value, &i.IsActive)
	return i, err
}

const findVariationsByProductId = `
SELECT id, product_id, category, value, is_active
FROM variations
WHERE product_id = $1 AND is_active
ORDER BY category, value
`

func (q *Queries) FindVariationsByProductId(
	c context.Context,
	productID uuid.UUID,
) ([]Variation, error) {
	rows, err := q.db.Query(c, findVariationsByProductId, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Variation{}
	for rows.Next() {
		var i Variation
		if err := rows.Scan(&i.ID, &i.ProductID, &i.Category, &i.Value, &i.IsActive); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const decreaseProductStock = `
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND stock >= $2
`

type DecreaseProductStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

func (q *Queries) DecreaseProductStock(
	c context.Context,
	arg DecreaseProductStockParams,
) (int64, error) {
	tag, err := q.db.Exec(c, decreaseProductStock, arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
