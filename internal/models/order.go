package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirm    OrderStatus = "confirm"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPickup     OrderStatus = "pickup"
	OrderStatusOnTheWay   OrderStatus = "on the way"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var fulfillmentFlow = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirm,
	OrderStatusProcessing,
	OrderStatusPickup,
	OrderStatusOnTheWay,
	OrderStatusDelivered,
}

func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	for _, st := range fulfillmentFlow {
		if st == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition allows the next step of the fulfillment flow, or
// cancellation from any non-terminal status.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	for i, st := range fulfillmentFlow {
		if st == s {
			return i+1 < len(fulfillmentFlow) && fulfillmentFlow[i+1] == to
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// ShippingDetails is stored as a JSONB document on the order. Country,
// Province and City are opaque references into the geography catalog.
type ShippingDetails struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	Country    string `json:"country"`
	Province   string `json:"province,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	MapLink    string `json:"mapLink,omitempty"`
}

func (s ShippingDetails) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *ShippingDetails) Scan(src any) error {
	return scanJSON(src, s)
}

// Order is the immutable snapshot of a cart taken at checkout. Only Status,
// PaymentStatus and PaymentMethod change after creation.
type Order struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	CustomerID    uuid.UUID       `json:"customerId"`
	CartID        uuid.UUID       `json:"cartId"`
	Shipping      ShippingDetails `json:"shipping"`
	Items         LineItems       `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingCost  decimal.Decimal `json:"shippingCost"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	ItemCount     int             `json:"itemCount"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Version       int             `json:"version"`
}

const EventTypeOrderCreated = "order.created"

// OutboxEvent is written in the same transaction as the change it announces.
type OutboxEvent struct {
	ID          uuid.UUID
	AggregateID uuid.UUID
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
