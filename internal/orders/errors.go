package orders

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrAlreadyDelivered  = errors.New("order already delivered")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Shortfall reports one line item that could not be covered.
type Shortfall struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// StockError wraps ErrInsufficientStock with the per-product detail
// collected inside the place-order transaction.
type StockError struct {
	Shortfalls []Shortfall
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%v: %d product(s) short", ErrInsufficientStock, len(e.Shortfalls))
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
