package repository

import (
	"context"

	"github.com/google/uuid"
)

const insertAnonymousCart = `
INSERT INTO carts (id, cart_key, status)
VALUES ($1, $2, 'anonymous')
ON CONFLICT (cart_key) WHERE status <> 'merged' DO NOTHING
`

type InsertAnonymousCartParams struct {
	ID      uuid.UUID
	CartKey string
}

func (q *Queries) InsertAnonymousCart(c context.Context, arg InsertAnonymousCartParams) error {
	_, err := q.db.Exec(c, insertAnonymousCart, arg.ID, arg.CartKey)
	return err
}

const insertUserCart = `
INSERT INTO carts (id, user_id, status)
VALUES ($1, $2, 'owned')
ON CONFLICT (user_id) DO NOTHING
`

type InsertUserCartParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) InsertUserCart(c context.Context, arg InsertUserCartParams) error {
	_, err := q.db.Exec(c, insertUserCart, arg.ID, arg.UserID)
	return err
}

const findCartByKey = `
SELECT id, cart_key, user_id, status, merged_into, created_at, updated_at
FROM carts
WHERE cart_key = $1 AND status <> 'merged'
`

func (q *Queries) FindCartByKey(c context.Context, cartKey string) (Cart, error) {
	row := q.db.QueryRow(c, findCartByKey, cartKey)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.CartKey,
		&i.UserID,
		&i.Status,
		&i.MergedInto,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findCartByKeyForUpdate = `
SELECT id, cart_key, user_id, status, merged_into, created_at, updated_at
FROM carts
WHERE cart_key = $1
ORDER BY created_at DESC
LIMIT 1
FOR UPDATE
`

// FindCartByKeyForUpdate locks the newest cart row carrying the key,
// merged or not, so that merge retries observe the merge marker.
func (q *Queries) FindCartByKeyForUpdate(c context.Context, cartKey string) (Cart, error) {
	row := q.db.QueryRow(c, findCartByKeyForUpdate, cartKey)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.CartKey,
		&i.UserID,
		&i.Status,
		&i.MergedInto,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findLiveCartByKeyForUpdate = `
SELECT id, cart_key, user_id, status, merged_into, created_at, updated_at
FROM carts
WHERE cart_key = $1 AND status <> 'merged'
FOR UPDATE
`

func (q *Queries) FindLiveCartByKeyForUpdate(c context.Context, cartKey string) (Cart, error) {
	row := q.db.QueryRow(c, findLiveCartByKeyForUpdate, cartKey)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.CartKey,
		&i.UserID,
		&i.Status,
		&i.MergedInto,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findCartByUserIdForUpdate = `
SELECT id, cart_key, user_id, status, merged_into, created_at, updated_at
FROM carts
WHERE user_id = $1
FOR UPDATE
`

func (q *Queries) FindCartByUserIdForUpdate(c context.Context, userID uuid.UUID) (Cart, error) {
	row := q.db.QueryRow(c, findCartByUserIdForUpdate, userID)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.CartKey,
		&i.UserID,
		&i.Status,
		&i.MergedInto,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findCartByUserId = `
SELECT id, cart_key, user_id, status, merged_into, created_at, updated_at
FROM carts
WHERE user_id = $1
`

func (q *Queries) FindCartByUserId(c context.Context, userID uuid.UUID) (Cart, error) {
	row := q.db.QueryRow(c, findCartByUserId, userID)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.CartKey,
		&i.UserID,
		&i.Status,
		&i.MergedInto,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const markCartMerged = `
UPDATE carts
SET status = 'merged', merged_into = $2, updated_at = now()
WHERE id = $1 AND status = 'anonymous'
`

type MarkCartMergedParams struct {
	ID         uuid.UUID
	MergedInto uuid.UUID
}

func (q *Queries) MarkCartMerged(c context.Context, arg MarkCartMergedParams) (int64, error) {
	tag, err := q.db.Exec(c, markCartMerged, arg.ID, arg.MergedInto)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
