package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	// Seed demo catalog and accounts if the DB is empty (idempotent).
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates all tables. Also used by test fixtures.
func EnsureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Catalog
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  brand TEXT NOT NULL DEFAULT 'FEFE Wear',
  price NUMERIC NOT NULL CHECK (price >= 0),
  compare_at_price NUMERIC NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  featured INTEGER NOT NULL DEFAULT 0,
  average_rating REAL NOT NULL DEFAULT 0,
  total_reviews INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(LOWER(name));

CREATE TABLE IF NOT EXISTS variants(
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  sku TEXT NOT NULL,
  size TEXT NOT NULL,
  color TEXT NOT NULL DEFAULT '',
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  PRIMARY KEY(product_id, sku)
);
CREATE INDEX IF NOT EXISTS idx_variants_product ON variants(product_id);

CREATE TABLE IF NOT EXISTS reviews(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES users(id),
  rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
  comment TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews(product_id);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL REFERENCES users(id),
  subtotal NUMERIC NOT NULL,
  shipping NUMERIC NOT NULL,
  tax NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'usd',
  ship_name TEXT, ship_line1 TEXT, ship_city TEXT,
  ship_state TEXT, ship_postal TEXT, ship_country TEXT,
  payment_method TEXT NOT NULL DEFAULT 'card',
  payment_intent_id TEXT,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  transaction_id TEXT,
  paid_at TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  tracking_number TEXT, carrier TEXT, shipped_at TEXT, delivered_at TEXT,
  admin_notes TEXT, customer_notes TEXT,
  version INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_intent ON orders(payment_intent_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id),
  sku TEXT NOT NULL,
  size TEXT NOT NULL,
  color TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  unit_price NUMERIC NOT NULL,
  line_total NUMERIC NOT NULL,
  PRIMARY KEY (order_id, sku)
);

CREATE TABLE IF NOT EXISTS order_timeline(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  message TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_timeline_order ON order_timeline(order_id);

-- Collaborators
CREATE TABLE IF NOT EXISTS collaborators(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
  stage_name TEXT NOT NULL,
  bio TEXT,
  primary_skill TEXT NOT NULL,
  experience_level TEXT NOT NULL,
  hourly_rate_min NUMERIC NOT NULL DEFAULT 0,
  hourly_rate_max NUMERIC NOT NULL DEFAULT 0,
  rating_average REAL NOT NULL DEFAULT 0,
  rating_count INTEGER NOT NULL DEFAULT 0,
  completed_collaborations INTEGER NOT NULL DEFAULT 0,
  active_collaborations INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);

-- Collaboration projects
CREATE TABLE IF NOT EXISTS collaborations(
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT,
  project_type TEXT NOT NULL,
  genre TEXT NOT NULL,
  initiator_id TEXT NOT NULL REFERENCES collaborators(id),
  start_date TEXT, end_date TEXT,
  budget_total NUMERIC NOT NULL DEFAULT 0,
  budget_currency TEXT NOT NULL DEFAULT 'USD',
  commission_pct NUMERIC NOT NULL DEFAULT 15,
  commission_amount NUMERIC NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'draft',
  collab_type TEXT NOT NULL DEFAULT 'remote',
  views INTEGER NOT NULL DEFAULT 0,
  applications INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_collab_status ON collaborations(status, genre);
CREATE INDEX IF NOT EXISTS idx_collab_initiator ON collaborations(initiator_id);

CREATE TABLE IF NOT EXISTS participants(
  id TEXT PRIMARY KEY,
  collaboration_id TEXT NOT NULL REFERENCES collaborations(id) ON DELETE CASCADE,
  collaborator_id TEXT NOT NULL REFERENCES collaborators(id),
  role TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'invited',
  invited_at TEXT DEFAULT CURRENT_TIMESTAMP,
  responded_at TEXT, joined_at TEXT,
  contribution TEXT,
  agreed_rate NUMERIC NOT NULL DEFAULT 0,
  rate_type TEXT NOT NULL DEFAULT 'project',
  UNIQUE(collaboration_id, collaborator_id)
);
CREATE INDEX IF NOT EXISTS idx_participants_collab ON participants(collaboration_id);

CREATE TABLE IF NOT EXISTS skills_needed(
  id TEXT PRIMARY KEY,
  collaboration_id TEXT NOT NULL REFERENCES collaborations(id) ON DELETE CASCADE,
  skill TEXT NOT NULL,
  experience_level TEXT NOT NULL,
  description TEXT,
  is_filled INTEGER NOT NULL DEFAULT 0,
  filled_by TEXT
);
CREATE INDEX IF NOT EXISTS idx_skills_collab ON skills_needed(collaboration_id, is_filled);

CREATE TABLE IF NOT EXISTS milestones(
  id TEXT PRIMARY KEY,
  collaboration_id TEXT NOT NULL REFERENCES collaborations(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  description TEXT,
  due_date TEXT,
  status TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS collab_payments(
  id TEXT PRIMARY KEY,
  collaboration_id TEXT NOT NULL REFERENCES collaborations(id) ON DELETE CASCADE,
  to_collaborator TEXT NOT NULL REFERENCES collaborators(id),
  amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  status TEXT NOT NULL DEFAULT 'pending',
  transaction_id TEXT,
  commission_amount NUMERIC NOT NULL DEFAULT 0,
  paid_at TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_collab_payments ON collab_payments(collaboration_id);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo products/variants")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO products(id,name,description,category,price) VALUES
	  ('tee-classic','FEFE Classic Tee','Organic cotton tee','shirts',30),
	  ('dress-wrap','Wrap Dress','Midi wrap dress','dresses',85),
	  ('cap-logo','Logo Cap','Adjustable cap','accessories',20)`)

	tx.MustExec(`INSERT INTO variants(product_id,sku,size,color,stock) VALUES
	  ('tee-classic','TEE-S-BLK','S','black',25),
	  ('tee-classic','TEE-M-BLK','M','black',40),
	  ('tee-classic','TEE-M-WHT','M','white',12),
	  ('dress-wrap','DRS-S-RED','S','red',8),
	  ('dress-wrap','DRS-M-RED','M','red',0),
	  ('cap-logo','CAP-OS-BLK','OS','black',60)`)

	return tx.Commit()
}

// seedUsers ensures a demo USER and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	users := []u{
		mk("u-demo", "demo@fefe.test", "Demo", "USER", "Passw0rd!"),
		mk("u-admin", "admin@fefe.test", "Admin", "ADMIN", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}
