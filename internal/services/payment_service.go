package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fefe/internal/domain"
	"fefe/internal/payments"
	"fefe/internal/repos"
)

// PaymentService bridges order totals to the external payment provider and
// keeps order payment state consistent with provider truth. Provider calls
// happen outside any entity mutation; local state is saved through the
// repos' optimistic version checks before and after the external call.
type PaymentService struct {
	Orders         *repos.OrderRepo
	OrderLifecycle *OrderService
	Provider       payments.Provider
	WebhookSecret  string
}

func NewPaymentService(orders *repos.OrderRepo, lifecycle *OrderService, p payments.Provider, webhookSecret string) *PaymentService {
	return &PaymentService{Orders: orders, OrderLifecycle: lifecycle, Provider: p, WebhookSecret: webhookSecret}
}

// CreateIntent asks the provider for a payment intent covering the order
// total and records the intent id on the order. The returned client secret is
// opaque to this system; it goes straight back to the client.
func (s *PaymentService) CreateIntent(ctx context.Context, o *domain.Order) (clientSecret string, err error) {
	in, err := s.Provider.CreateIntent(ctx, minorUnits(o.Pricing.Total), o.Currency, map[string]string{
		"order_id": o.ID,
		"user_id":  o.UserID,
	})
	if err != nil {
		return "", err
	}
	if err := s.Orders.SetIntent(o.ID, in.ID); err != nil {
		return "", err
	}
	o.Payment.IntentID = in.ID
	return in.ClientSecret, nil
}

// Confirm checks provider truth for the intent and, only if the provider
// reports success, drives the order's paid transition. Idempotent through
// OrderService.MarkPaid.
func (s *PaymentService) Confirm(ctx context.Context, orderID, intentID string) (*domain.Order, error) {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		return nil, err
	}
	if o.Payment.IntentID != "" && o.Payment.IntentID != intentID {
		return nil, fmt.Errorf("%w: intent does not belong to this order", domain.ErrValidation)
	}

	in, err := s.Provider.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if in.Status != payments.IntentSucceeded {
		return nil, fmt.Errorf("%w: intent status %s", domain.ErrPaymentNotSucceeded, in.Status)
	}
	return s.OrderLifecycle.MarkPaid(ctx, orderID, in.ID)
}

// HandleEvent processes an asynchronous provider notification. The signature
// is verified before any of the payload is trusted; a bad signature is
// Unauthorized, never a failed payment. Success events are the retryable
// entry point for confirmation, so everything downstream is idempotent.
func (s *PaymentService) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	ev, err := payments.VerifyAndParse(payload, sigHeader, s.WebhookSecret, payments.DefaultTolerance)
	if err != nil {
		return err
	}

	switch ev.Type {
	case payments.EventIntentSucceeded:
		o, err := s.Orders.ByIntent(ev.Data.Object.ID)
		if err != nil {
			return err
		}
		_, err = s.OrderLifecycle.MarkPaid(ctx, o.ID, ev.Data.Object.ID)
		return err

	case payments.EventIntentFailed:
		o, err := s.Orders.ByIntent(ev.Data.Object.ID)
		if err != nil {
			return err
		}
		msg := "Payment attempt failed"
		if ev.Data.Object.LastPaymentError != nil && ev.Data.Object.LastPaymentError.Message != "" {
			msg = "Payment attempt failed: " + ev.Data.Object.LastPaymentError.Message
		}
		// Note only; no stock or status side effects on failure.
		return s.Orders.AppendTimeline(o.ID, o.Status, msg)
	}

	// Unhandled event types are acknowledged and dropped.
	return nil
}

// Refund refunds a paid order, fully when amount is zero. On success the
// order ends cancelled with payment refunded and its stock restored.
func (s *PaymentService) Refund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (*domain.Order, *payments.Refund, error) {
	o, err := s.Orders.Get(orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.Payment.Status != domain.PaymentPaid {
		return nil, nil, fmt.Errorf("%w: payment status %s", domain.ErrNotRefundable, o.Payment.Status)
	}
	if amount.GreaterThan(o.Pricing.Total) {
		return nil, nil, fmt.Errorf("%w: refund exceeds order total", domain.ErrValidation)
	}

	rf, err := s.Provider.Refund(ctx, o.Payment.IntentID, minorUnits(amount))
	if err != nil {
		return nil, nil, err
	}

	// Reload before mutating: the provider call ran without holding the
	// entity, so the order may have moved.
	o, err = s.Orders.Get(orderID)
	if err != nil {
		return nil, nil, err
	}
	if o.Payment.Status != domain.PaymentPaid {
		// Someone else already settled it (e.g. a concurrent cancel).
		return o, rf, nil
	}
	o.Payment.Status = domain.PaymentRefunded
	o.Status = domain.OrderCancelled
	if err := s.Orders.Save(o); err != nil {
		return nil, nil, err
	}

	for _, it := range o.Items {
		if err := s.OrderLifecycle.Products.RestoreStock(it.ProductID, it.SKU, it.Quantity); err != nil {
			return nil, nil, err
		}
	}

	msg := reason
	if msg == "" {
		msg = "Refund processed"
	}
	if err := s.Orders.AppendTimeline(o.ID, domain.OrderCancelled, msg); err != nil {
		return nil, nil, err
	}
	return o, rf, nil
}

// minorUnits converts a decimal amount to integer minor currency units.
func minorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
