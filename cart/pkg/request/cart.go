package request

import (
	"github.com/google/uuid"
)

// CartRef identifies the effective cart of a request: the user cart
// when UserId is set, otherwise the live cart for the session key.
type CartRef struct {
	CartKey string    `json:"cart_key"`
	UserId  uuid.UUID `json:"-"`
}

type AddItem struct {
	CartKey   string            `validate:"required"      json:"cart_key"`
	UserId    uuid.UUID         `json:"-"`
	ProductId uuid.UUID         `validate:"required,uuid" json:"product_id"`
	Selectors map[string]string `json:"selectors"`
}

type Decrement struct {
	CartKey   string    `validate:"required"      json:"cart_key"`
	UserId    uuid.UUID `json:"-"`
	ProductId uuid.UUID `validate:"required,uuid" json:"product_id"`
	LineId    uuid.UUID `validate:"required,uuid" json:"line_id"`
}

type RemoveLine struct {
	CartKey   string    `validate:"required"      json:"cart_key"`
	UserId    uuid.UUID `json:"-"`
	ProductId uuid.UUID `validate:"required,uuid" json:"product_id"`
	LineId    uuid.UUID `validate:"required,uuid" json:"line_id"`
}

type Checkout struct {
	UserId uuid.UUID `validate:"required,uuid" json:"user_id"`
}
