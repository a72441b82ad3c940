package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle label of an order. Orders are created as
// confirmed and nothing in this module advances them.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// DeliveryAddress is the address collected at checkout.
type DeliveryAddress struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
}

// Order is a frozen snapshot of a cart taken at checkout.
type Order struct {
	ID              string          `json:"id"`
	Items           []CartLine      `json:"items"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Discount        decimal.Decimal `json:"discount"`
	CouponCode      string          `json:"couponCode,omitempty"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	DeliveryAddress DeliveryAddress `json:"deliveryAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
}

// ItemCount returns the total number of units in the order.
func (o Order) ItemCount() int {
	n := 0
	for _, l := range o.Items {
		n += l.Quantity
	}
	return n
}

// CheckoutRequest represents the request payload for placing an order.
type CheckoutRequest struct {
	Address       DeliveryAddress `json:"address"`
	PaymentMethod string          `json:"paymentMethod"`
}
