package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	ID            int64             `json:"id"`
	OrderNumber   string            `json:"orderNumber"`
	Items         []json.RawMessage `json:"items"`
	Total         decimal.Decimal   `json:"total"`
	CustomerEmail string            `json:"customerEmail"`
	Status        OrderStatus       `json:"status"`
	Date          time.Time         `json:"date"`
}

// OrderInput is what a caller supplies; id, number and date are assigned on create.
type OrderInput struct {
	Items         []json.RawMessage `json:"items"`
	Total         decimal.Decimal   `json:"total"`
	CustomerEmail string            `json:"customerEmail"`
	Status        OrderStatus       `json:"status,omitempty"`
}

func (in OrderInput) Validate() error {
	var missing []string
	if in.CustomerEmail == "" {
		missing = append(missing, "customerEmail")
	}
	if len(missing) > 0 {
		return &ValidationError{Msg: "Missing required fields", Fields: missing}
	}
	if in.Total.IsNegative() {
		return &ValidationError{Msg: "total must be >= 0", Fields: []string{"total"}}
	}
	if in.Status != "" && !in.Status.Valid() {
		return &ValidationError{Msg: fmt.Sprintf("unknown status %q", in.Status), Fields: []string{"status"}}
	}
	return nil
}

// OrderNumber derives the customer-facing number for an order id.
func OrderNumber(id int64) string {
	return fmt.Sprintf("iPhone-%06d", id)
}
