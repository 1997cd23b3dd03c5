package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"fefe/internal/domain"
	"fefe/internal/notify"
	"fefe/internal/repos"
	"fefe/internal/services"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := repos.EnsureSchema(db); err != nil {
		t.Fatal(err)
	}
	fixtures := `
	INSERT INTO users(id,email,name,password_hash,role)
	  VALUES ('u-1','shopper@example.com','Shopper','x','USER');
	INSERT INTO products(id,name,description,category,brand,price,active)
	  VALUES ('p-tee','Boxy Tee','Oversized tee','tops','FEFE',40.00,1);
	INSERT INTO variants(product_id,sku,size,color,stock) VALUES
	  ('p-tee','TEE-M-BLK','M','black',5),
	  ('p-tee','TEE-L-BLK','L','black',2);
	`
	if _, err := db.Exec(fixtures); err != nil {
		t.Fatal(err)
	}
	return db
}

func newOrderSvc(db *sqlx.DB) *services.OrderService {
	return services.NewOrderService(repos.NewOrderRepo(db), repos.NewProductRepo(db), notify.LogNotifier{})
}

func variantStock(t *testing.T, db *sqlx.DB, sku string) int {
	t.Helper()
	stock, err := repos.NewProductRepo(db).VariantStock("p-tee", sku)
	if err != nil {
		t.Fatal(err)
	}
	return stock
}

func TestCreateOrder_Pricing(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	// 2 x 40.00 = 80 subtotal: under the free-shipping threshold.
	o, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !o.Pricing.Subtotal.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("subtotal = %s, want 80", o.Pricing.Subtotal)
	}
	if !o.Pricing.Shipping.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("shipping = %s, want 10", o.Pricing.Shipping)
	}
	if !o.Pricing.Tax.Equal(decimal.NewFromFloat(6.4)) {
		t.Fatalf("tax = %s, want 6.4", o.Pricing.Tax)
	}
	if !o.Pricing.Total.Equal(decimal.NewFromFloat(96.4)) {
		t.Fatalf("total = %s, want 96.4", o.Pricing.Total)
	}
	if o.Status != domain.OrderPending || o.Payment.Status != domain.PaymentPending {
		t.Fatalf("new order should be pending/pending, got %s/%s", o.Status, o.Payment.Status)
	}
	// Creation never touches stock.
	if got := variantStock(t, db, "TEE-M-BLK"); got != 5 {
		t.Fatalf("stock after create = %d, want 5", got)
	}
}

func TestCreateOrder_FreeShippingOverThreshold(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	// 3 x 40.00 = 120 subtotal.
	o, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 3}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !o.Pricing.Shipping.IsZero() {
		t.Fatalf("shipping = %s, want 0", o.Pricing.Shipping)
	}
}

func TestCreateOrder_OutOfStock(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	_, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "L", Color: "black", Quantity: 3}},
	})
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("err = %v, want ErrOutOfStock", err)
	}

	// Unknown size/color combination reads the same as no stock.
	_, err = svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "XS", Color: "red", Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("err = %v, want ErrOutOfStock", err)
	}
}

func TestMarkPaid_DecrementsStockExactlyOnce(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	o, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.MarkPaid(context.Background(), o.ID, "txn-1"); err != nil {
		t.Fatal(err)
	}
	if got := variantStock(t, db, "TEE-M-BLK"); got != 3 {
		t.Fatalf("stock after payment = %d, want 3", got)
	}

	// Duplicate delivery of the same confirmation is a no-op.
	paid, err := svc.MarkPaid(context.Background(), o.ID, "txn-1")
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status != domain.OrderConfirmed || paid.Payment.Status != domain.PaymentPaid {
		t.Fatalf("order = %s/%s, want confirmed/paid", paid.Status, paid.Payment.Status)
	}
	if got := variantStock(t, db, "TEE-M-BLK"); got != 3 {
		t.Fatalf("stock after duplicate confirm = %d, want 3", got)
	}
}

func TestCancel_PendingRestoresNothing(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	o, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}

	cancelled, err := svc.Cancel(context.Background(), o.ID, "changed my mind")
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != domain.OrderCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.Payment.Status != domain.PaymentPending {
		t.Fatalf("payment = %s, want pending (nothing was captured)", cancelled.Payment.Status)
	}
	if got := variantStock(t, db, "TEE-M-BLK"); got != 5 {
		t.Fatalf("stock = %d, want 5 untouched", got)
	}
}

func TestCancel_PaidRestoresExactQuantities(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	o, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkPaid(context.Background(), o.ID, "txn-1"); err != nil {
		t.Fatal(err)
	}

	cancelled, err := svc.Cancel(context.Background(), o.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Payment.Status != domain.PaymentRefunded {
		t.Fatalf("payment = %s, want refunded", cancelled.Payment.Status)
	}
	if got := variantStock(t, db, "TEE-M-BLK"); got != 5 {
		t.Fatalf("stock after cancel = %d, want 5 restored", got)
	}
}

func TestCancel_RejectedAfterShipment(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	o, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkPaid(context.Background(), o.ID, "txn-1"); err != nil {
		t.Fatal(err)
	}
	for _, next := range []domain.OrderStatus{domain.OrderProcessing, domain.OrderShipped} {
		if _, err := svc.UpdateStatus(context.Background(), o.ID, next, "", "1Z999", "ups"); err != nil {
			t.Fatal(err)
		}
	}

	_, err = svc.Cancel(context.Background(), o.ID, "too late")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateStatus_ForwardOnly(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	o, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkPaid(context.Background(), o.ID, "txn-1"); err != nil {
		t.Fatal(err)
	}

	// Skipping a step is rejected.
	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.OrderShipped, "", "", ""); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("confirmed->shipped err = %v, want ErrInvalidTransition", err)
	}
	// Moving backwards is rejected.
	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.OrderProcessing, "", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.OrderConfirmed, "", "", ""); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("processing->confirmed err = %v, want ErrInvalidTransition", err)
	}
	// returned only from delivered.
	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.OrderReturned, "", "", ""); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("processing->returned err = %v, want ErrInvalidTransition", err)
	}

	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.OrderShipped, "", "1Z999", "ups"); err != nil {
		t.Fatal(err)
	}
	shipped, err := svc.Get(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if shipped.Shipment.ShippedAt == "" || shipped.Shipment.TrackingNumber != "1Z999" {
		t.Fatalf("shipment not stamped: %+v", shipped.Shipment)
	}

	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.OrderDelivered, "", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(context.Background(), o.ID, domain.OrderReturned, "damaged sleeve", "", ""); err != nil {
		t.Fatal(err)
	}
}

func TestCreateOrder_DuplicateLinesMerge(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	// The same variant listed twice becomes a single order line.
	o, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{
			{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 2},
			{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 2},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Items) != 1 {
		t.Fatalf("items = %d, want 1 merged line", len(o.Items))
	}
	if o.Items[0].Quantity != 4 {
		t.Fatalf("quantity = %d, want 4", o.Items[0].Quantity)
	}
	if !o.Pricing.Subtotal.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("subtotal = %s, want 160", o.Pricing.Subtotal)
	}

	// The merged quantity is checked against stock as one line.
	_, err = svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{
			{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 3},
			{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 3},
		},
	})
	if !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("err = %v, want ErrOutOfStock", err)
	}
}

func TestMarkPaid_StockShortfallKeepsOrderPending(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	o, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}

	// A competing confirmation consumed the stock between create and confirm.
	if _, err := db.Exec(`UPDATE variants SET stock = 1 WHERE sku = 'TEE-M-BLK'`); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.MarkPaid(context.Background(), o.ID, "txn-1"); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("err = %v, want ErrOutOfStock", err)
	}

	// The failed decrement rolled the paid mark back with it.
	cur, err := repos.NewOrderRepo(db).Get(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cur.Status != domain.OrderPending || cur.Payment.Status != domain.PaymentPending {
		t.Fatalf("after failed confirm: %s/%s, want pending/pending", cur.Status, cur.Payment.Status)
	}

	// Once stock returns, the retry runs the whole transition.
	if _, err := db.Exec(`UPDATE variants SET stock = 2 WHERE sku = 'TEE-M-BLK'`); err != nil {
		t.Fatal(err)
	}
	paid, err := svc.MarkPaid(context.Background(), o.ID, "txn-1")
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status != domain.OrderConfirmed || paid.Payment.Status != domain.PaymentPaid {
		t.Fatalf("after retry: %s/%s, want confirmed/paid", paid.Status, paid.Payment.Status)
	}
	if got := variantStock(t, db, "TEE-M-BLK"); got != 0 {
		t.Fatalf("stock after retry = %d, want 0", got)
	}
}

func TestMarkPaid_MultiItemShortfallTakesNothing(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	o, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{
			{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 2},
			{ProductID: "p-tee", Size: "L", Color: "black", Quantity: 2},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.Exec(`UPDATE variants SET stock = 1 WHERE sku = 'TEE-L-BLK'`); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.MarkPaid(context.Background(), o.ID, "txn-1"); !errors.Is(err, domain.ErrOutOfStock) {
		t.Fatalf("err = %v, want ErrOutOfStock", err)
	}
	// No partial take: the first line's decrement rolled back too.
	if got := variantStock(t, db, "TEE-M-BLK"); got != 5 {
		t.Fatalf("TEE-M-BLK stock = %d, want 5", got)
	}
}

func TestMarkPaid_LateSuccessLeavesCancelledOrderAlone(t *testing.T) {
	db := memdb(t)
	svc := newOrderSvc(db)

	o, err := svc.Create(context.Background(), "u-1", services.CreateOrderInput{
		Items: []services.OrderItemInput{{ProductID: "p-tee", Size: "M", Color: "black", Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Cancel(context.Background(), o.ID, "changed my mind"); err != nil {
		t.Fatal(err)
	}

	// Provider success delivered after the cancellation.
	cur, err := svc.MarkPaid(context.Background(), o.ID, "txn-late")
	if err != nil {
		t.Fatal(err)
	}
	if cur.Status != domain.OrderCancelled {
		t.Fatalf("status = %s, want cancelled", cur.Status)
	}
	if cur.Payment.Status == domain.PaymentPaid {
		t.Fatalf("late success must not mark a cancelled order paid")
	}
	if got := variantStock(t, db, "TEE-M-BLK"); got != 5 {
		t.Fatalf("stock = %d, want 5 untouched", got)
	}

	// Redelivery leaves a single refund note.
	if _, err := svc.MarkPaid(context.Background(), o.ID, "txn-late"); err != nil {
		t.Fatal(err)
	}
	cur, err = repos.NewOrderRepo(db).Get(o.ID)
	if err != nil {
		t.Fatal(err)
	}
	notes := 0
	for _, e := range cur.Timeline {
		if e.Message == "Payment succeeded after cancellation, refund required" {
			notes++
		}
	}
	if notes != 1 {
		t.Fatalf("refund notes = %d, want exactly 1", notes)
	}
}
