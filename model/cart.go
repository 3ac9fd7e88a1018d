package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a product snapshot taken at add time plus the chosen quantity.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// LineTotal is price × quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

type WishlistItem struct {
	Product
}

const RoleAdmin = "admin"

// Profile mirrors a row of the profiles table kept by the hosted auth provider.
type Profile struct {
	ID       uuid.UUID `json:"id"`
	Role     string    `json:"role"`
	Email    string    `json:"email"`
	FullName string    `json:"fullName"`
}

func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }
