package orders

import (
	"encoding/json"
	"time"
)

// Item is a line item of a persisted order. UnitPriceCents is the
// catalog price captured at placement time.
type Item struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	ShippingInfo    json.RawMessage `json:"shipping_info"`
	Items           []Item          `json:"items"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentInfo     json.RawMessage `json:"payment_info,omitempty"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	ItemsCents      int             `json:"items_cents"`
	TaxCents        int             `json:"tax_cents"`
	ShippingCents   int             `json:"shipping_cents"`
	TotalCents      int             `json:"total_cents"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
}

// ItemInput is a requested line item: product identity plus quantity.
type ItemInput struct {
	ProductID string `json:"product"`
	Qty       int    `json:"quantity"`
}

// NewOrder carries everything place-order needs. Price fields arrive
// precomputed by the caller, in cents.
type NewOrder struct {
	UserID        string
	ShippingInfo  json.RawMessage
	Items         []ItemInput
	PaymentMethod string
	PaymentInfo   json.RawMessage
	ItemsCents    int
	TaxCents      int
	ShippingCents int
	TotalCents    int
}
