package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"fefe/internal/domain"
	"fefe/internal/payments"
	"fefe/internal/repos"
	"fefe/internal/services"
)

const testWebhookSecret = "whsec_test"

func paymentFixture(t *testing.T) (*services.PaymentService, *services.OrderService, *payments.FakeProvider, *domain.Order, *sqlx.DB) {
	t.Helper()
	db := memdb(t)
	orderSvc := newOrderSvc(db)
	provider := payments.NewFakeProvider()
	paySvc := services.NewPaymentService(repos.NewOrderRepo(db), orderSvc, provider, testWebhookSecret)

	o, err := orderSvc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return paySvc, orderSvc, provider, o, db
}

func TestCreateIntent_StoresIntentID(t *testing.T) {
	paySvc, orderSvc, _, o, _ := paymentFixture(t)

	secret, err := paySvc.CreateIntent(context.Background(), o)
	if err != nil {
		t.Fatal(err)
	}
	if secret == "" {
		t.Fatal("empty client secret")
	}
	stored, err := orderSvc.Get(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Payment.IntentID == "" {
		t.Fatal("intent id not recorded on order")
	}
}

func TestConfirm_RequiresSucceededIntent(t *testing.T) {
	paySvc, _, provider, o, _ := paymentFixture(t)

	if _, err := paySvc.CreateIntent(context.Background(), o); err != nil {
		t.Fatal(err)
	}

	// Still requires_payment_method at the provider.
	_, err := paySvc.Confirm(context.Background(), o.ID, o.Payment.IntentID)
	if !errors.Is(err, domain.ErrPaymentNotSucceeded) {
		t.Fatalf("err = %v, want ErrPaymentNotSucceeded", err)
	}

	provider.SetIntentStatus(o.Payment.IntentID, payments.IntentSucceeded)
	paid, err := paySvc.Confirm(context.Background(), o.ID, o.Payment.IntentID)
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status != domain.OrderConfirmed || paid.Payment.Status != domain.PaymentPaid {
		t.Fatalf("order = %s/%s, want confirmed/paid", paid.Status, paid.Payment.Status)
	}
}

func TestConfirm_RejectsForeignIntent(t *testing.T) {
	paySvc, _, _, o, _ := paymentFixture(t)

	if _, err := paySvc.CreateIntent(context.Background(), o); err != nil {
		t.Fatal(err)
	}
	_, err := paySvc.Confirm(context.Background(), o.ID, "pi_someone_elses")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestRefund_PendingPaymentNotRefundable(t *testing.T) {
	paySvc, _, _, o, _ := paymentFixture(t)

	_, _, err := paySvc.Refund(context.Background(), o.ID, decimal.Zero, "never paid")
	if !errors.Is(err, domain.ErrNotRefundable) {
		t.Fatalf("err = %v, want ErrNotRefundable", err)
	}
}

func TestRefund_RestoresStockAndCancels(t *testing.T) {
	paySvc, _, provider, o, db := paymentFixture(t)

	if _, err := paySvc.CreateIntent(context.Background(), o); err != nil {
		t.Fatal(err)
	}
	provider.SetIntentStatus(o.Payment.IntentID, payments.IntentSucceeded)
	if _, err := paySvc.Confirm(context.Background(), o.ID, o.Payment.IntentID); err != nil {
		t.Fatal(err)
	}

	refunded, rf, err := paySvc.Refund(context.Background(), o.ID, decimal.Zero, "customer request")
	if err != nil {
		t.Fatal(err)
	}
	if rf.Status != "succeeded" {
		t.Fatalf("refund status = %s", rf.Status)
	}
	if refunded.Status != domain.OrderCancelled || refunded.Payment.Status != domain.PaymentRefunded {
		t.Fatalf("order = %s/%s, want cancelled/refunded", refunded.Status, refunded.Payment.Status)
	}

	if got := variantStock(t, db, "TEE-M-BLK"); got != 5 {
		t.Fatalf("stock after refund = %d, want 5 restored", got)
	}
}

func TestRefund_ProviderDownIsRetryable(t *testing.T) {
	paySvc, _, provider, o, _ := paymentFixture(t)

	if _, err := paySvc.CreateIntent(context.Background(), o); err != nil {
		t.Fatal(err)
	}
	provider.SetIntentStatus(o.Payment.IntentID, payments.IntentSucceeded)
	if _, err := paySvc.Confirm(context.Background(), o.ID, o.Payment.IntentID); err != nil {
		t.Fatal(err)
	}

	provider.FailNext = true
	_, _, err := paySvc.Refund(context.Background(), o.ID, decimal.Zero, "")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func eventPayload(t *testing.T, evType, intentID string) []byte {
	t.Helper()
	ev := payments.Event{Type: evType, Created: time.Now().Unix()}
	ev.ID = "evt_1"
	ev.Data.Object.ID = intentID
	ev.Data.Object.Status = payments.IntentSucceeded
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleEvent_BadSignatureRejected(t *testing.T) {
	paySvc, _, _, o, _ := paymentFixture(t)

	if _, err := paySvc.CreateIntent(context.Background(), o); err != nil {
		t.Fatal(err)
	}
	payload := eventPayload(t, payments.EventIntentSucceeded, o.Payment.IntentID)

	err := paySvc.HandleEvent(context.Background(), payload, payments.Sign(payload, "wrong-secret", time.Now()))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}

	// Stale timestamps are rejected even with the right secret.
	err = paySvc.HandleEvent(context.Background(), payload, payments.Sign(payload, testWebhookSecret, time.Now().Add(-time.Hour)))
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("stale err = %v, want ErrUnauthorized", err)
	}
}

func TestHandleEvent_SucceededMarksPaid(t *testing.T) {
	paySvc, orderSvc, _, o, _ := paymentFixture(t)

	if _, err := paySvc.CreateIntent(context.Background(), o); err != nil {
		t.Fatal(err)
	}
	payload := eventPayload(t, payments.EventIntentSucceeded, o.Payment.IntentID)
	sig := payments.Sign(payload, testWebhookSecret, time.Now())

	if err := paySvc.HandleEvent(context.Background(), payload, sig); err != nil {
		t.Fatal(err)
	}
	paid, err := orderSvc.Get(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if paid.Payment.Status != domain.PaymentPaid || paid.Status != domain.OrderConfirmed {
		t.Fatalf("order = %s/%s, want confirmed/paid", paid.Status, paid.Payment.Status)
	}

	// Redelivery of the same event is acknowledged without side effects.
	if err := paySvc.HandleEvent(context.Background(), payload, payments.Sign(payload, testWebhookSecret, time.Now())); err != nil {
		t.Fatal(err)
	}
}
