package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates the e-commerce store tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			customer_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			phone TEXT,
			address TEXT,
			registration_date DATE NOT NULL DEFAULT CURRENT_DATE
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			product_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT,
			price REAL NOT NULL,
			category TEXT,
			stock_quantity INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_id INTEGER REFERENCES customers(customer_id),
			order_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			total_amount REAL NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			shipping_address TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS order_items (
			order_item_id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id INTEGER REFERENCES orders(order_id),
			product_id INTEGER REFERENCES products(product_id),
			quantity INTEGER NOT NULL,
			unit_price REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS reviews (
			review_id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id INTEGER REFERENCES products(product_id),
			customer_id INTEGER REFERENCES customers(customer_id),
			rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			comment TEXT,
			review_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS support_tickets (
			ticket_id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_id INTEGER REFERENCES customers(customer_id),
			subject TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL DEFAULT 'open',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			resolved_at TIMESTAMP
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// Seed inserts the sample dataset if the store is empty.
// Running it against a populated store is a no-op.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	statements := []string{
		`INSERT INTO customers (name, email, phone, address) VALUES
			('John Doe', 'john@example.com', '555-123-4567', '123 Main St, Anytown, USA'),
			('Jane Smith', 'jane@example.com', '555-234-5678', '456 Oak Ave, Somewhere, USA'),
			('Bob Johnson', 'bob@example.com', '555-345-6789', '789 Pine Rd, Nowhere, USA'),
			('Alice Brown', 'alice@example.com', '555-456-7890', '321 Maple Dr, Everywhere, USA'),
			('Charlie Davis', 'charlie@example.com', '555-567-8901', '654 Birch Ln, Anywhere, USA');`,
		`INSERT INTO products (name, description, price, category, stock_quantity) VALUES
			('Smartphone X', 'Latest model with advanced features', 999.99, 'Electronics', 50),
			('Laptop Pro', 'High-performance laptop for professionals', 1499.99, 'Electronics', 30),
			('Wireless Headphones', 'Noise-cancelling wireless headphones', 199.99, 'Electronics', 100),
			('Running Shoes', 'Comfortable shoes for runners', 89.99, 'Footwear', 200),
			('Coffee Maker', 'Automatic coffee maker with timer', 59.99, 'Kitchen', 75);`,
		`INSERT INTO orders (customer_id, total_amount, status, shipping_address) VALUES
			(1, 1199.98, 'delivered', '123 Main St, Anytown, USA'),
			(2, 199.99, 'shipped', '456 Oak Ave, Somewhere, USA'),
			(3, 1499.99, 'processing', '789 Pine Rd, Nowhere, USA'),
			(4, 149.98, 'delivered', '321 Maple Dr, Everywhere, USA'),
			(1, 59.99, 'cancelled', '123 Main St, Anytown, USA');`,
		`INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES
			(1, 1, 1, 999.99),
			(1, 3, 1, 199.99),
			(2, 3, 1, 199.99),
			(3, 2, 1, 1499.99),
			(4, 4, 1, 89.99),
			(4, 5, 1, 59.99),
			(5, 5, 1, 59.99);`,
		`INSERT INTO reviews (product_id, customer_id, rating, comment) VALUES
			(1, 1, 5, 'Great smartphone, very fast and excellent camera!'),
			(2, 3, 4, 'Good laptop, but battery life could be better'),
			(3, 2, 5, 'Amazing sound quality and comfortable to wear'),
			(4, 4, 3, 'Decent shoes, but not very durable'),
			(5, 1, 4, 'Makes great coffee and easy to use');`,
		`INSERT INTO support_tickets (customer_id, subject, description, status) VALUES
			(1, 'Order Delay', 'My order #1 is taking longer than expected', 'resolved'),
			(2, 'Defective Product', 'The headphones I received have sound issues', 'open'),
			(3, 'Refund Request', 'I would like to return my laptop and get a refund', 'in progress'),
			(4, 'Account Access', 'I cannot log into my account', 'resolved'),
			(5, 'Missing Item', 'My order was missing an item', 'open');`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
