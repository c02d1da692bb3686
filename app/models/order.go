package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Order is a purchase with a fixed shipping snapshot. PaymentRef is the
// payment provider's session id; it is unique so a confirmed payment maps to
// at most one order.
type Order struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	UserID          uint        `gorm:"not null;index" json:"userId"`
	Status          OrderStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	TotalAmount     int64       `gorm:"not null" json:"totalAmount"`
	PaymentRef      *string     `gorm:"size:255;uniqueIndex" json:"paymentRef,omitempty"`
	ShippingName    string      `gorm:"type:text" json:"shippingName"`
	ShippingEmail   string      `gorm:"size:320" json:"shippingEmail"`
	ShippingAddress string      `gorm:"type:text" json:"shippingAddress"`
	ShippingCity    string      `gorm:"size:255" json:"shippingCity"`
	ShippingPostal  string      `gorm:"size:32" json:"shippingPostal"`
	ShippingCountry string      `gorm:"size:64" json:"shippingCountry"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	Items           []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// OrderItem is one immutable line of an order. PriceAtPurchase is the unit
// price in cents confirmed by the payment provider.
type OrderItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OrderID         uint      `gorm:"not null;index" json:"orderId"`
	ProductID       uint      `gorm:"not null;index" json:"productId"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	PriceAtPurchase int64     `gorm:"not null" json:"priceAtPurchase"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Shipping is the address snapshot captured at checkout.
type Shipping struct {
	Name    string `json:"shippingName"`
	Email   string `json:"shippingEmail"`
	Address string `json:"shippingAddress"`
	City    string `json:"shippingCity"`
	Postal  string `json:"shippingPostal"`
	Country string `json:"shippingCountry"`
}
