package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fefe/internal/domain"
	"fefe/internal/notify"
	"fefe/internal/repos"
)

// Pricing rules. Shipping is free over the threshold, flat otherwise; tax is
// a single rate applied to the item subtotal.
var (
	freeShippingOver = decimal.NewFromInt(100)
	flatShipping     = decimal.NewFromInt(10)
	taxRate          = decimal.NewFromFloat(0.08)
)

type OrderItemInput struct {
	ProductID string
	Size      string
	Color     string
	Quantity  int
}

type CreateOrderInput struct {
	Items        []OrderItemInput
	ShippingAddr domain.Address
	Currency     string
	Notes        string
}

type OrderService struct {
	Orders   *repos.OrderRepo
	Products *repos.ProductRepo
	Notify   notify.Notifier
}

func NewOrderService(orders *repos.OrderRepo, products *repos.ProductRepo, n notify.Notifier) *OrderService {
	return &OrderService{Orders: orders, Products: products, Notify: n}
}

// Create validates items against live stock and builds a pending order.
// Stock is NOT reserved here; it is taken at payment confirmation, so an
// abandoned pending order never starves inventory.
func (s *OrderService) Create(ctx context.Context, userID string, in CreateOrderInput) (*domain.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order needs at least one item", domain.ErrValidation)
	}

	// Merge request lines resolving to the same variant so they become one
	// order line; order_items keys on (order_id, sku).
	merged := make([]OrderItemInput, 0, len(in.Items))
	pos := map[OrderItemInput]int{}
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
		}
		key := OrderItemInput{ProductID: it.ProductID, Size: it.Size, Color: it.Color}
		if i, ok := pos[key]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		pos[key] = len(merged)
		merged = append(merged, it)
	}

	var items []domain.OrderItem
	subtotal := decimal.Zero
	for _, it := range merged {
		p, err := s.Products.Get(it.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("product %s: %w", it.ProductID, domain.ErrNotFound)
			}
			return nil, err
		}
		v := p.FindVariant(it.Size, it.Color)
		if v == nil || v.Stock < it.Quantity {
			return nil, fmt.Errorf("%w: %s (%s, %s)", domain.ErrOutOfStock, p.Name, it.Size, it.Color)
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			SKU:       v.SKU,
			Size:      it.Size,
			Color:     it.Color,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
			LineTotal: lineTotal,
		})
	}

	shipping := flatShipping
	if subtotal.GreaterThan(freeShippingOver) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(taxRate)
	total := subtotal.Add(shipping).Add(tax)

	currency := in.Currency
	if currency == "" {
		currency = "usd"
	}

	o := &domain.Order{
		ID:            uuid.NewString(),
		OrderNumber:   fmt.Sprintf("FEFE-%d", time.Now().UnixNano()),
		UserID:        userID,
		Items:         items,
		Pricing:       domain.Pricing{Subtotal: subtotal, Shipping: shipping, Tax: tax, Total: total},
		Currency:      currency,
		ShippingAddr:  in.ShippingAddr,
		Payment:       domain.Payment{Method: "card", Status: domain.PaymentPending},
		Status:        domain.OrderPending,
		CustomerNotes: in.Notes,
	}
	if err := s.Orders.Create(o); err != nil {
		return nil, err
	}
	return o, nil
}

// lateSuccessNote marks a provider success that arrived after the order was
// already cancelled. The charge exists but the order must stay cancelled.
const lateSuccessNote = "Payment succeeded after cancellation, refund required"

// MarkPaid transitions the order to confirmed and takes stock, exactly once.
// Safe against duplicate delivery: a call on an already-paid order is a no-op.
// The caller (PaymentService) has already verified the provider reports the
// intent as succeeded.
func (s *OrderService) MarkPaid(ctx context.Context, orderID, transactionID string) (*domain.Order, error) {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	if o.Payment.Status == domain.PaymentPaid {
		return o, nil
	}
	if o.Status == domain.OrderCancelled {
		// A stale success event must not resurrect a cancelled order or
		// take stock for it. Note the charge once so it can be refunded
		// out of band, then acknowledge.
		for _, e := range o.Timeline {
			if e.Message == lateSuccessNote {
				return o, nil
			}
		}
		if err := s.Orders.AppendTimeline(o.ID, o.Status, lateSuccessNote); err != nil {
			return nil, err
		}
		return o, nil
	}

	o.Payment.Status = domain.PaymentPaid
	o.Payment.TransactionID = transactionID
	o.Payment.PaidAt = nowStamp()
	o.Status = domain.OrderConfirmed

	// The paid mark, the stock decrements and the timeline entry commit as
	// one transaction. A decrement failure rolls everything back: the order
	// stays pending and the provider retry re-runs the whole transition, so
	// stock is taken exactly once and never zero times on a paid order.
	if err := s.Orders.SavePaid(o, "Payment confirmed and order placed"); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			// Lost the race; if the winner already marked it paid there is
			// nothing left to do.
			cur, gerr := s.Orders.Get(orderID)
			if gerr == nil && cur.Payment.Status == domain.PaymentPaid {
				return cur, nil
			}
		}
		return nil, err
	}
	s.Notify.OrderConfirmation(o)
	return o, nil
}

// UpdateStatus drives the privileged fulfillment chain. Transitions are
// forward-only and one step at a time.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus, notes, tracking, carrier string) (*domain.Order, error) {
	if !domain.ValidOrderStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, newStatus)
	}
	o, err := s.Orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(o.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, o.Status, newStatus)
	}

	o.Status = newStatus
	switch newStatus {
	case domain.OrderShipped:
		o.Shipment.ShippedAt = nowStamp()
		if tracking != "" {
			o.Shipment.TrackingNumber = tracking
		}
		if carrier != "" {
			o.Shipment.Carrier = carrier
		}
	case domain.OrderDelivered:
		o.Shipment.DeliveredAt = nowStamp()
	}
	if notes != "" {
		o.AdminNotes = notes
	}

	if err := s.Orders.Save(o); err != nil {
		return nil, err
	}
	msg := notes
	if msg == "" {
		msg = fmt.Sprintf("Order status updated to %s", newStatus)
	}
	if err := s.Orders.AppendTimeline(o.ID, newStatus, msg); err != nil {
		return nil, err
	}
	s.Notify.OrderStatusUpdate(o)
	return o, nil
}

// Cancel stops an order that has not shipped. Stock is restored only when
// payment had been captured; a pending order never reserved any.
func (s *OrderService) Cancel(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, fmt.Errorf("%w: cannot cancel order in status %s", domain.ErrInvalidTransition, o.Status)
	}

	wasPaid := o.Payment.Status == domain.PaymentPaid

	o.Status = domain.OrderCancelled
	if wasPaid {
		o.Payment.Status = domain.PaymentRefunded
	}
	if reason != "" {
		o.CustomerNotes = reason
	}
	if err := s.Orders.Save(o); err != nil {
		return nil, err
	}

	if wasPaid {
		// The payment transition paid->refunded happens once (version check
		// above), so the restore cannot double-apply with a refund.
		for _, it := range o.Items {
			if err := s.Products.RestoreStock(it.ProductID, it.SKU, it.Quantity); err != nil {
				return nil, err
			}
		}
	}

	msg := reason
	if msg == "" {
		msg = "Order cancelled by customer"
	}
	if err := s.Orders.AppendTimeline(o.ID, domain.OrderCancelled, msg); err != nil {
		return nil, err
	}
	s.Notify.OrderStatusUpdate(o)
	return o, nil
}

func (s *OrderService) Get(orderID string) (*domain.Order, error) {
	return s.Orders.Get(orderID)
}

func (s *OrderService) ListByUser(userID, status string, page, limit int) ([]*domain.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	return s.Orders.List(repos.OrderFilter{
		UserID: userID, Status: status, Limit: limit, Offset: (page - 1) * limit,
	})
}

func (s *OrderService) ListAll(status, startDate, endDate string, page, limit int) ([]*domain.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Orders.List(repos.OrderFilter{
		Status: status, StartDate: startDate, EndDate: endDate,
		Limit: limit, Offset: (page - 1) * limit,
	})
}

func (s *OrderService) Stats() (*repos.OrderStats, error) { return s.Orders.Stats() }

func nowStamp() string { return time.Now().UTC().Format(time.RFC3339) }
