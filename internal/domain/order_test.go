package domain

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to OrderStatus }{
		{OrderConfirmed, OrderProcessing},
		{OrderProcessing, OrderShipped},
		{OrderShipped, OrderDelivered},
		{OrderDelivered, OrderReturned},
		{OrderDelivered, OrderDisputed},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	rejected := []struct{ from, to OrderStatus }{
		{OrderConfirmed, OrderShipped},   // skips processing
		{OrderShipped, OrderProcessing},  // backwards
		{OrderProcessing, OrderReturned}, // returned only from delivered
		{OrderPending, OrderConfirmed},   // confirmation goes through payment
		{OrderDelivered, OrderDelivered},
	}
	for _, tc := range rejected {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestCancellable(t *testing.T) {
	for _, s := range []OrderStatus{OrderPending, OrderConfirmed, OrderProcessing} {
		if !s.Cancellable() {
			t.Errorf("%s should be cancellable", s)
		}
	}
	for _, s := range []OrderStatus{OrderShipped, OrderDelivered, OrderCancelled, OrderReturned, OrderDisputed} {
		if s.Cancellable() {
			t.Errorf("%s should not be cancellable", s)
		}
	}
}
