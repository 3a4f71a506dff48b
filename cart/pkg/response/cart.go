package response

import (
	"time"

	"github.com/google/uuid"
)

// CartTotals is the pricing record derived from a cart's active lines.
// All amounts are integers in the smallest currency unit.
type CartTotals struct {
	Subtotal      int64 `json:"subtotal"`
	Tax           int64 `json:"tax"`
	GrandTotal    int64 `json:"grand_total"`
	TotalQuantity int32 `json:"total_quantity"`
}

type Variation struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

type CartLine struct {
	ID          uuid.UUID   `json:"id"`
	ProductId   uuid.UUID   `json:"product_id"`
	ProductName string      `json:"product_name"`
	Slug        string      `json:"slug"`
	UnitPrice   int64       `json:"unit_price"`
	Quantity    int32       `json:"quantity"`
	Subtotal    int64       `json:"subtotal"`
	Variations  []Variation `json:"variations"`
}

type Cart struct {
	Lines  []CartLine `json:"lines"`
	Totals CartTotals `json:"totals"`
}

type OrderLine struct {
	ID        uuid.UUID `json:"id"`
	ProductId uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
}

type Order struct {
	ID         uuid.UUID   `json:"id"`
	UserId     uuid.UUID   `json:"user_id"`
	Subtotal   int64       `json:"subtotal"`
	Tax        int64       `json:"tax"`
	GrandTotal int64       `json:"grand_total"`
	Lines      []OrderLine `json:"lines"`
	CreatedAt  time.Time   `json:"created_at"`
}
