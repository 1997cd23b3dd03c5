package notify

import (
	applog "fefe/internal/log"

	"fefe/internal/domain"
)

// Notifier sends customer-facing messages. Fire-and-forget: callers must not
// fail the triggering operation when a send fails.
type Notifier interface {
	OrderConfirmation(o *domain.Order)
	OrderStatusUpdate(o *domain.Order)
}

// LogNotifier stands in for the mail gateway; it records what would have been
// sent in the audit log.
type LogNotifier struct{}

func (LogNotifier) OrderConfirmation(o *domain.Order) {
	applog.Audit(nil, "notify.order.confirmation", map[string]any{
		"order_id": o.ID, "order_number": o.OrderNumber, "total": o.Pricing.Total.String(),
	})
}

func (LogNotifier) OrderStatusUpdate(o *domain.Order) {
	applog.Audit(nil, "notify.order.status", map[string]any{
		"order_id": o.ID, "status": string(o.Status),
	})
}
