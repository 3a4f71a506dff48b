package repository

import (
	"context"

	"github.com/google/uuid"
)

const insertCartLine = `
INSERT INTO cart_lines (id, cart_id, product_id, quantity, variation_key)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, cart_id, product_id, quantity, variation_key, is_active, created_at, updated_at
`

type InsertCartLineParams struct {
	ID           uuid.UUID
	CartID       uuid.UUID
	ProductID    uuid.UUID
	Quantity     int32
	VariationKey string
}

func (q *Queries) InsertCartLine(c context.Context, arg InsertCartLineParams) (CartLine, error) {
	row := q.db.QueryRow(
		c,
		insertCartLine,
		arg.ID,
		arg.CartID,
		arg.ProductID,
		arg.Quantity,
		arg.VariationKey,
	)
	var i CartLine
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.VariationKey,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertCartLineVariation = `
INSERT INTO cart_line_variations (cart_line_id, variation_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`

type InsertCartLineVariationParams struct {
	CartLineID  uuid.UUID
	VariationID uuid.UUID
}

func (q *Queries) InsertCartLineVariation(
	c context.Context,
	arg InsertCartLineVariationParams,
) error {
	_, err := q.db.Exec(c, insertCartLineVariation, arg.CartLineID, arg.VariationID)
	return err
}

const findActiveLineByIdentity = `
SELECT id, cart_id, product_id, quantity, variation_key, is_active, created_at, updated_at
FROM cart_lines
WHERE cart_id = $1 AND product_id = $2 AND variation_key = $3 AND is_active
`

type FindActiveLineByIdentityParams struct {
	CartID       uuid.UUID
	ProductID    uuid.UUID
	VariationKey string
}

func (q *Queries) FindActiveLineByIdentity(
	c context.Context,
	arg FindActiveLineByIdentityParams,
) (CartLine, error) {
	row := q.db.QueryRow(c, findActiveLineByIdentity, arg.CartID, arg.ProductID, arg.VariationKey)
	var i CartLine
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.VariationKey,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findCartLine = `
SELECT id, cart_id, product_id, quantity, variation_key, is_active, created_at, updated_at
FROM cart_lines
WHERE id = $1 AND cart_id = $2 AND product_id = $3
`

type FindCartLineParams struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
}

func (q *Queries) FindCartLine(c context.Context, arg FindCartLineParams) (CartLine, error) {
	row := q.db.QueryRow(c, findCartLine, arg.ID, arg.CartID, arg.ProductID)
	var i CartLine
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.VariationKey,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findActiveLinesByCartId = `
SELECT id, cart_id, product_id, quantity, variation_key, is_active, created_at, updated_at
FROM cart_lines
WHERE cart_id = $1 AND is_active
ORDER BY created_at, id
`

func (q *Queries) FindActiveLinesByCartId(
	c context.Context,
	cartID uuid.UUID,
) ([]CartLine, error) {
	rows, err := q.db.Query(c, findActiveLinesByCartId, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CartLine{}
	for rows.Next() {
		var i CartLine
		if err := rows.Scan(
			&i.ID,
			&i.CartID,
			&i.ProductID,
			&i.Quantity,
			&i.VariationKey,
			&i.IsActive,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const findActiveLineViews = `
SELECT cl.id,
       cl.product_id,
       p.name,
       p.slug,
       p.price,
       cl.quantity,
       cl.variation_key,
       COALESCE(
           (SELECT json_agg(json_build_object('category', v.category, 'value', v.value)
                            ORDER BY v.id)
            FROM cart_line_variations clv
            JOIN variations v ON v.id = clv.variation_id
            WHERE clv.cart_line_id = cl.id),
           '[]'
       ) AS variations
FROM cart_lines cl
JOIN products p ON p.id = cl.product_id
WHERE cl.cart_id = $1 AND cl.is_active
ORDER BY cl.created_at, cl.id
`

type FindActiveLineViewsRow struct {
	ID           uuid.UUID
	ProductID    uuid.UUID
	Name         string
	Slug         string
	Price        int64
	Quantity     int32
	VariationKey string
	Variations   []byte
}

func (q *Queries) FindActiveLineViews(
	c context.Context,
	cartID uuid.UUID,
) ([]FindActiveLineViewsRow, error) {
	rows, err := q.db.Query(c, findActiveLineViews, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []FindActiveLineViewsRow{}
	for rows.Next() {
		var i FindActiveLineViewsRow
		if err := rows.Scan(
			&i.ID,
			&i.ProductID,
			&i.Name,
			&i.Slug,
			&i.Price,
			&i.Quantity,
			&i.VariationKey,
			&i.Variations,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const findActiveLineAmounts = `
SELECT cl.product_id, cl.quantity, p.price
FROM cart_lines cl
JOIN products p ON p.id = cl.product_id
WHERE cl.cart_id = $1 AND cl.is_active
ORDER BY cl.created_at, cl.id
`

type FindActiveLineAmountsRow struct {
	ProductID uuid.UUID
	Quantity  int32
	Price     int64
}

func (q *Queries) FindActiveLineAmounts(
	c context.Context,
	cartID uuid.UUID,
) ([]FindActiveLineAmountsRow, error) {
	rows, err := q.db.Query(c, findActiveLineAmounts, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []FindActiveLineAmountsRow{}
	for rows.Next() {
		var i FindActiveLineAmountsRow
		if err := rows.Scan(&i.ProductID, &i.Quantity, &i.Price); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const addCartLineQuantity = `
UPDATE cart_lines
SET quantity = quantity + $2, updated_at = now()
WHERE id = $1
RETURNING id, cart_id, product_id, quantity, variation_key, is_active, created_at, updated_at
`

type AddCartLineQuantityParams struct {
	ID    uuid.UUID
	Delta int32
}

func (q *Queries) AddCartLineQuantity(
	c context.Context,
	arg AddCartLineQuantityParams,
) (CartLine, error) {
	row := q.db.QueryRow(c, addCartLineQuantity, arg.ID, arg.Delta)
	var i CartLine
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.VariationKey,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteCartLine = `
DELETE FROM cart_lines
WHERE id = $1
`

func (q *Queries) DeleteCartLine(c context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(c, deleteCartLine, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteCartLinesByCartId = `
DELETE FROM cart_lines
WHERE cart_id = $1
`

func (q *Queries) DeleteCartLinesByCartId(c context.Context, cartID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(c, deleteCartLinesByCartId, cartID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deactivateCartLine = `
UPDATE cart_lines
SET is_active = false, updated_at = now()
WHERE id = $1
`

// DeactivateCartLine soft-deletes a line; inactive lines are excluded
// from totals and display but retained for history.
func (q *Queries) DeactivateCartLine(c context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(c, deactivateCartLine, id)
	return err
}

const reassignCartLine = `
UPDATE cart_lines
SET cart_id = $2, updated_at = now()
WHERE id = $1
`

type ReassignCartLineParams struct {
	ID     uuid.UUID
	CartID uuid.UUID
}

func (q *Queries) ReassignCartLine(c context.Context, arg ReassignCartLineParams) error {
	_, err := q.db.Exec(c, reassignCartLine, arg.ID, arg.CartID)
	return err
}
