package repos_test

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"fefe/internal/domain"
	"fefe/internal/repos"
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
	if _, err := db.Exec(`
		INSERT INTO users(id,email,name,password_hash,role)
		  VALUES ('u-1','shopper@example.com','Shopper','x','USER');
		INSERT INTO products(id,name,category,price) VALUES ('p-1','Tee','tops',40);
	`); err != nil {
		t.Fatal(err)
	}
	return db
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:          "o-1",
		OrderNumber: "FEFE-1",
		UserID:      "u-1",
		Items: []domain.OrderItem{{
			ProductID: "p-1", SKU: "TEE-M-BLK", Size: "M", Quantity: 2,
			UnitPrice: decimal.NewFromInt(40), LineTotal: decimal.NewFromInt(80),
		}},
		Pricing: domain.Pricing{
			Subtotal: decimal.NewFromInt(80), Shipping: decimal.NewFromInt(10),
			Tax: decimal.NewFromFloat(6.4), Total: decimal.NewFromFloat(96.4),
		},
		Currency: "usd",
		Payment:  domain.Payment{Method: "card", Status: domain.PaymentPending},
		Status:   domain.OrderPending,
	}
}

func TestOrderSave_VersionConflict(t *testing.T) {
	db := memdb(t)
	orders := repos.NewOrderRepo(db)

	if err := orders.Create(sampleOrder()); err != nil {
		t.Fatal(err)
	}

	a, err := orders.Get("o-1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := orders.Get("o-1")
	if err != nil {
		t.Fatal(err)
	}

	a.Status = domain.OrderConfirmed
	if err := orders.Save(a); err != nil {
		t.Fatal(err)
	}
	if a.Version != 2 {
		t.Fatalf("winner version = %d, want 2", a.Version)
	}

	// The stale copy lost the race.
	b.Status = domain.OrderCancelled
	if err := orders.Save(b); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("stale save err = %v, want ErrVersionConflict", err)
	}

	// A reload picks up the winner's write and can save again.
	cur, err := orders.Get("o-1")
	if err != nil {
		t.Fatal(err)
	}
	if cur.Status != domain.OrderConfirmed || cur.Version != 2 {
		t.Fatalf("order = %s v%d, want confirmed v2", cur.Status, cur.Version)
	}
	cur.Status = domain.OrderProcessing
	if err := orders.Save(cur); err != nil {
		t.Fatal(err)
	}
}

func TestOrderByIntent(t *testing.T) {
	db := memdb(t)
	orders := repos.NewOrderRepo(db)

	if err := orders.Create(sampleOrder()); err != nil {
		t.Fatal(err)
	}
	if err := orders.SetIntent("o-1", "pi_123"); err != nil {
		t.Fatal(err)
	}

	o, err := orders.ByIntent("pi_123")
	if err != nil {
		t.Fatal(err)
	}
	if o.ID != "o-1" || len(o.Items) != 1 {
		t.Fatalf("order = %+v", o)
	}

	if _, err := orders.ByIntent("pi_unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOrderTimeline_AppendedOnCreate(t *testing.T) {
	db := memdb(t)
	orders := repos.NewOrderRepo(db)

	if err := orders.Create(sampleOrder()); err != nil {
		t.Fatal(err)
	}
	o, err := orders.Get("o-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Timeline) != 1 || o.Timeline[0].Status != domain.OrderPending {
		t.Fatalf("timeline = %+v", o.Timeline)
	}

	if err := orders.AppendTimeline("o-1", domain.OrderConfirmed, "Payment confirmed and order placed"); err != nil {
		t.Fatal(err)
	}
	o, err = orders.Get("o-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Timeline) != 2 {
		t.Fatalf("timeline entries = %d, want 2", len(o.Timeline))
	}
}
