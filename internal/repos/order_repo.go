package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"fefe/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type orderRow struct {
	ID            string          `db:"id"`
	OrderNumber   string          `db:"order_number"`
	UserID        string          `db:"user_id"`
	Subtotal      decimal.Decimal `db:"subtotal"`
	Shipping      decimal.Decimal `db:"shipping"`
	Tax           decimal.Decimal `db:"tax"`
	Total         decimal.Decimal `db:"total"`
	Currency      string          `db:"currency"`
	ShipName      string          `db:"ship_name"`
	ShipLine1     string          `db:"ship_line1"`
	ShipCity      string          `db:"ship_city"`
	ShipState     string          `db:"ship_state"`
	ShipPostal    string          `db:"ship_postal"`
	ShipCountry   string          `db:"ship_country"`
	PaymentMethod string          `db:"payment_method"`
	IntentID      string          `db:"payment_intent_id"`
	PaymentStatus string          `db:"payment_status"`
	TransactionID string          `db:"transaction_id"`
	PaidAt        string          `db:"paid_at"`
	Status        string          `db:"status"`
	Tracking      string          `db:"tracking_number"`
	Carrier       string          `db:"carrier"`
	ShippedAt     string          `db:"shipped_at"`
	DeliveredAt   string          `db:"delivered_at"`
	AdminNotes    string          `db:"admin_notes"`
	CustomerNotes string          `db:"customer_notes"`
	Version       int             `db:"version"`
	CreatedAt     string          `db:"created_at"`
	UpdatedAt     string          `db:"updated_at"`
}

type orderItemRow struct {
	OrderID   string          `db:"order_id"`
	ProductID string          `db:"product_id"`
	SKU       string          `db:"sku"`
	Size      string          `db:"size"`
	Color     string          `db:"color"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	LineTotal decimal.Decimal `db:"line_total"`
}

const orderCols = `
  id, order_number, user_id, subtotal, shipping, tax, total, currency,
  COALESCE(ship_name,'') AS ship_name, COALESCE(ship_line1,'') AS ship_line1,
  COALESCE(ship_city,'') AS ship_city, COALESCE(ship_state,'') AS ship_state,
  COALESCE(ship_postal,'') AS ship_postal, COALESCE(ship_country,'') AS ship_country,
  payment_method, COALESCE(payment_intent_id,'') AS payment_intent_id,
  payment_status, COALESCE(transaction_id,'') AS transaction_id,
  COALESCE(paid_at,'') AS paid_at, status,
  COALESCE(tracking_number,'') AS tracking_number, COALESCE(carrier,'') AS carrier,
  COALESCE(shipped_at,'') AS shipped_at, COALESCE(delivered_at,'') AS delivered_at,
  COALESCE(admin_notes,'') AS admin_notes, COALESCE(customer_notes,'') AS customer_notes,
  version, created_at, COALESCE(updated_at,'') AS updated_at`

func (row orderRow) toDomain() *domain.Order {
	return &domain.Order{
		ID:          row.ID,
		OrderNumber: row.OrderNumber,
		UserID:      row.UserID,
		Pricing: domain.Pricing{
			Subtotal: row.Subtotal, Shipping: row.Shipping,
			Tax: row.Tax, Total: row.Total,
		},
		Currency: row.Currency,
		ShippingAddr: domain.Address{
			Name: row.ShipName, Line1: row.ShipLine1, City: row.ShipCity,
			State: row.ShipState, PostalCode: row.ShipPostal, Country: row.ShipCountry,
		},
		Payment: domain.Payment{
			Method: row.PaymentMethod, IntentID: row.IntentID,
			Status: domain.PaymentStatus(row.PaymentStatus),
			TransactionID: row.TransactionID, PaidAt: row.PaidAt,
		},
		Status: domain.OrderStatus(row.Status),
		Shipment: domain.Shipment{
			TrackingNumber: row.Tracking, Carrier: row.Carrier,
			ShippedAt: row.ShippedAt, DeliveredAt: row.DeliveredAt,
		},
		AdminNotes:    row.AdminNotes,
		CustomerNotes: row.CustomerNotes,
		Version:       row.Version,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

// Create inserts the order header, its line items and the opening timeline
// entry in one transaction.
func (r *OrderRepo) Create(o *domain.Order) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	  INSERT INTO orders(
	    id, order_number, user_id, subtotal, shipping, tax, total, currency,
	    ship_name, ship_line1, ship_city, ship_state, ship_postal, ship_country,
	    payment_method, payment_intent_id, payment_status, status, customer_notes, version
	  ) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,1)
	`, o.ID, o.OrderNumber, o.UserID,
		o.Pricing.Subtotal, o.Pricing.Shipping, o.Pricing.Tax, o.Pricing.Total, o.Currency,
		o.ShippingAddr.Name, o.ShippingAddr.Line1, o.ShippingAddr.City,
		o.ShippingAddr.State, o.ShippingAddr.PostalCode, o.ShippingAddr.Country,
		o.Payment.Method, o.Payment.IntentID, string(o.Payment.Status),
		string(o.Status), o.CustomerNotes); err != nil {
		return err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(`
		  INSERT INTO order_items(order_id, product_id, sku, size, color, quantity, unit_price, line_total)
		  VALUES (?,?,?,?,?,?,?,?)
		`, o.ID, it.ProductID, it.SKU, it.Size, it.Color, it.Quantity, it.UnitPrice, it.LineTotal); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`
	  INSERT INTO order_timeline(order_id, status, message) VALUES (?,?,?)
	`, o.ID, string(o.Status), "Order created, awaiting payment"); err != nil {
		return err
	}

	o.Version = 1
	return tx.Commit()
}

func (r *OrderRepo) Get(id string) (*domain.Order, error) {
	var row orderRow
	if err := r.db.Get(&row, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o := row.toDomain()
	if err := r.loadChildren(o); err != nil {
		return nil, err
	}
	return o, nil
}

// ByIntent resolves the order carrying a provider payment intent id.
func (r *OrderRepo) ByIntent(intentID string) (*domain.Order, error) {
	var row orderRow
	if err := r.db.Get(&row, `SELECT `+orderCols+` FROM orders WHERE payment_intent_id = ?`, intentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o := row.toDomain()
	if err := r.loadChildren(o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) loadChildren(o *domain.Order) error {
	var items []orderItemRow
	if err := r.db.Select(&items, `
	  SELECT order_id, product_id, sku, size, color, quantity, unit_price, line_total
	  FROM order_items WHERE order_id = ? ORDER BY sku
	`, o.ID); err != nil {
		return err
	}
	for _, it := range items {
		o.Items = append(o.Items, domain.OrderItem{
			ProductID: it.ProductID, SKU: it.SKU, Size: it.Size, Color: it.Color,
			Quantity: it.Quantity, UnitPrice: it.UnitPrice, LineTotal: it.LineTotal,
		})
	}

	var tl []struct {
		Status    string `db:"status"`
		Message   string `db:"message"`
		CreatedAt string `db:"created_at"`
	}
	if err := r.db.Select(&tl, `
	  SELECT status, COALESCE(message,'') AS message, created_at
	  FROM order_timeline WHERE order_id = ? ORDER BY id
	`, o.ID); err != nil {
		return err
	}
	for _, e := range tl {
		o.Timeline = append(o.Timeline, domain.TimelineEntry{
			Status: domain.OrderStatus(e.Status), Message: e.Message, CreatedAt: e.CreatedAt,
		})
	}
	return nil
}

// Save writes the mutable header fields under the optimistic version check.
// Zero rows affected means the row moved since load: domain.ErrVersionConflict.
func (r *OrderRepo) Save(o *domain.Order) error {
	res, err := r.db.Exec(`
	  UPDATE orders SET
	    payment_status = ?, transaction_id = ?, paid_at = ?, status = ?,
	    tracking_number = ?, carrier = ?, shipped_at = ?, delivered_at = ?,
	    admin_notes = ?, customer_notes = ?,
	    version = version + 1, updated_at = ?
	  WHERE id = ? AND version = ?
	`, string(o.Payment.Status), o.Payment.TransactionID, o.Payment.PaidAt, string(o.Status),
		o.Shipment.TrackingNumber, o.Shipment.Carrier, o.Shipment.ShippedAt, o.Shipment.DeliveredAt,
		o.AdminNotes, o.CustomerNotes, now(), o.ID, o.Version)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrVersionConflict
	}
	o.Version++
	return nil
}

// SavePaid commits the paid transition as one unit: the version-checked
// header update, the per-item stock decrements and the timeline entry all
// land or none do. A decrement finding insufficient stock rolls the paid
// mark back, so a later confirmation attempt re-runs the whole transition.
func (r *OrderRepo) SavePaid(o *domain.Order, message string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
	  UPDATE orders SET
	    payment_status = ?, transaction_id = ?, paid_at = ?, status = ?,
	    version = version + 1, updated_at = ?
	  WHERE id = ? AND version = ?
	`, string(o.Payment.Status), o.Payment.TransactionID, o.Payment.PaidAt,
		string(o.Status), now(), o.ID, o.Version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrVersionConflict
	}

	for _, it := range o.Items {
		res, err := tx.Exec(`
		  UPDATE variants SET stock = stock - ?
		  WHERE product_id = ? AND sku = ? AND stock >= ?
		`, it.Quantity, it.ProductID, it.SKU, it.Quantity)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s/%s", domain.ErrOutOfStock, it.ProductID, it.SKU)
		}
	}

	if _, err := tx.Exec(`
	  INSERT INTO order_timeline(order_id, status, message) VALUES (?,?,?)
	`, o.ID, string(o.Status), message); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	o.Version++
	return nil
}

// SetIntent records the provider intent id once the intent exists.
func (r *OrderRepo) SetIntent(orderID, intentID string) error {
	_, err := r.db.Exec(`UPDATE orders SET payment_intent_id = ? WHERE id = ?`, intentID, orderID)
	return err
}

func (r *OrderRepo) AppendTimeline(orderID string, status domain.OrderStatus, message string) error {
	_, err := r.db.Exec(`
	  INSERT INTO order_timeline(order_id, status, message) VALUES (?,?,?)
	`, orderID, string(status), message)
	return err
}

// ---------- Listing ----------

type OrderFilter struct {
	UserID    string
	Status    string
	StartDate string
	EndDate   string
	Limit     int
	Offset    int
}

func (r *OrderRepo) List(f OrderFilter) ([]*domain.Order, int, error) {
	where := `1=1`
	args := []any{}
	if f.UserID != "" {
		where += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.StartDate != "" {
		where += ` AND datetime(created_at) >= datetime(?)`
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		where += ` AND datetime(created_at) <= datetime(?)`
		args = append(args, f.EndDate)
	}

	var total int
	if err := r.db.Get(&total, `SELECT COUNT(*) FROM orders WHERE `+where, args...); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Offset)

	var rows []orderRow
	if err := r.db.Select(&rows, `
	  SELECT `+orderCols+` FROM orders WHERE `+where+`
	  ORDER BY datetime(created_at) DESC LIMIT ? OFFSET ?
	`, args...); err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, total, nil
}

// Stats aggregates order counts per status and paid revenue.
type OrderStats struct {
	TotalOrders  int
	ByStatus     map[string]int
	TotalRevenue decimal.Decimal
	MonthRevenue decimal.Decimal
}

func (r *OrderRepo) Stats() (*OrderStats, error) {
	st := &OrderStats{ByStatus: map[string]int{}}

	var counts []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := r.db.Select(&counts, `SELECT status, COUNT(*) AS n FROM orders GROUP BY status`); err != nil {
		return nil, err
	}
	for _, c := range counts {
		st.ByStatus[c.Status] = c.N
		st.TotalOrders += c.N
	}

	var total sql.NullFloat64
	if err := r.db.Get(&total, `SELECT SUM(total) FROM orders WHERE payment_status='paid'`); err != nil {
		return nil, err
	}
	st.TotalRevenue = decimal.NewFromFloat(total.Float64)

	monthStart := time.Now().UTC().Format("2006-01") + "-01"
	var month sql.NullFloat64
	if err := r.db.Get(&month, `
	  SELECT SUM(total) FROM orders
	  WHERE payment_status='paid' AND datetime(created_at) >= datetime(?)
	`, monthStart); err != nil {
		return nil, err
	}
	st.MonthRevenue = decimal.NewFromFloat(month.Float64)
	return st, nil
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }
