package domain

import "github.com/shopspring/decimal"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderReturned   OrderStatus = "returned"
	OrderDisputed   OrderStatus = "disputed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// orderForward is the admin fulfillment chain. Forward-only, one step at a
// time; returned/disputed are privileged flags reachable from delivered.
var orderForward = map[OrderStatus]map[OrderStatus]bool{
	OrderConfirmed:  {OrderProcessing: true},
	OrderProcessing: {OrderShipped: true},
	OrderShipped:    {OrderDelivered: true},
	OrderDelivered:  {OrderReturned: true, OrderDisputed: true},
}

// CanTransition reports whether an admin status update from→to is legal.
func CanTransition(from, to OrderStatus) bool {
	return orderForward[from][to]
}

// Cancellable statuses; everything later in the lifecycle keeps its stock.
func (s OrderStatus) Cancellable() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing:
		return true
	}
	return false
}

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped,
		OrderDelivered, OrderCancelled, OrderReturned, OrderDisputed:
		return true
	}
	return false
}

type OrderItem struct {
	ProductID string
	SKU       string
	Size      string
	Color     string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type Pricing struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

type Address struct {
	Name       string
	Line1      string
	City       string
	State      string
	PostalCode string
	Country    string
}

type Payment struct {
	Method        string
	IntentID      string
	Status        PaymentStatus
	TransactionID string
	PaidAt        string
}

type Shipment struct {
	TrackingNumber string
	Carrier        string
	ShippedAt      string
	DeliveredAt    string
}

type TimelineEntry struct {
	Status    OrderStatus
	Message   string
	CreatedAt string
}

type Order struct {
	ID            string
	OrderNumber   string
	UserID        string
	Items         []OrderItem
	Pricing       Pricing
	Currency      string
	ShippingAddr  Address
	Payment       Payment
	Status        OrderStatus
	Timeline      []TimelineEntry
	Shipment      Shipment
	AdminNotes    string
	CustomerNotes string
	Version       int
	CreatedAt     string
	UpdatedAt     string
}
