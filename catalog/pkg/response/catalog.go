package response

import (
	"time"

	"github.com/google/uuid"
)

type Variation struct {
	ID       uuid.UUID `json:"id"`
	Category string    `json:"category"`
	Value    string    `json:"value"`
}

type Product struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Price       int64       `json:"price"`
	Stock       int32       `json:"stock"`
	IsAvailable bool        `json:"is_available"`
	Variations  []Variation `json:"variations"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
