package model

import (
	"time"

	"github.com/google/uuid"
)

// Order is the durable server-side record produced by a completed checkout.
// The item list, address and prices are frozen at placement time and never
// recomputed; only the fulfilment flags change afterwards.
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OwnerRef        string          `json:"ownerRef" db:"owner_ref"`
	Items           []LineItem      `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	ItemsPrice      int64           `json:"itemsPrice" db:"items_price"`
	ShippingPrice   int64           `json:"shippingPrice" db:"shipping_price"`
	TotalPrice      int64           `json:"totalPrice" db:"total_price"`
	IsPaid          bool            `json:"isPaid" db:"is_paid"`
	IsDelivered     bool            `json:"isDelivered" db:"is_delivered"`
	PaidAt          *time.Time      `json:"paidAt,omitempty" db:"paid_at"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty" db:"delivered_at"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}
