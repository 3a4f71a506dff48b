package repository

import (
	"time"

	"github.com/google/uuid"
)

const (
	CartStatusAnonymous = "anonymous"
	CartStatusOwned     = "owned"
	CartStatusMerged    = "merged"
)

type Cart struct {
	ID         uuid.UUID  `json:"id"`
	CartKey    *string    `json:"cart_key"`
	UserID     *uuid.UUID `json:"user_id"`
	Status     string     `json:"status"`
	MergedInto *uuid.UUID `json:"merged_into"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type CartLine struct {
	ID           uuid.UUID `json:"id"`
	CartID       uuid.UUID `json:"cart_id"`
	ProductID    uuid.UUID `json:"product_id"`
	Quantity     int32     `json:"quantity"`
	VariationKey string    `json:"variation_key"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Stock       int32     `json:"stock"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Variation struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Category  string    `json:"category"`
	Value     string    `json:"value"`
	IsActive  bool      `json:"is_active"`
}

type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Password    string    `json:"-"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	PhoneNumber string    `json:"phone_number"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Order struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Subtotal   int64     `json:"subtotal"`
	Tax        int64     `json:"tax"`
	GrandTotal int64     `json:"grand_total"`
	CreatedAt  time.Time `json:"created_at"`
}

type OrderLine struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
}
