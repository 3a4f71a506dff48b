package repository

import (
	"context"

	"github.com/google/uuid"
)

const insertOrder = `
INSERT INTO orders (id, user_id, subtotal, tax, grand_total)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, subtotal, tax, grand_total, created_at
`

type InsertOrderParams struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Subtotal   int64
	Tax        int64
	GrandTotal int64
}

func (q *Queries) InsertOrder(c context.Context, arg InsertOrderParams) (Order, error) {
	row := q.db.QueryRow(
		c,
		insertOrder,
		arg.ID,
		arg.UserID,
		arg.Subtotal,
		arg.Tax,
		arg.GrandTotal,
	)
	var i Order
	err := row.Scan(&i.ID, &i.UserID, &i.Subtotal, &i.Tax, &i.GrandTotal, &i.CreatedAt)
	return i, err
}

const insertOrderLine = `
INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)
`

type InsertOrderLineParams struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice int64
}

func (q *Queries) InsertOrderLine(c context.Context, arg InsertOrderLineParams) error {
	_, err := q.db.Exec(
		c,
		insertOrderLine,
		arg.ID,
		arg.OrderID,
		arg.ProductID,
		arg.Quantity,
		arg.UnitPrice,
	)
	return err
}

const findOrdersByUserId = `
SELECT id, user_id, subtotal, tax, grand_total, created_at
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
`

func (q *Queries) FindOrdersByUserId(c context.Context, userID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(c, findOrdersByUserId, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		var i Order
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Subtotal,
			&i.Tax,
			&i.GrandTotal,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
