package store

import (
	"context"
	"fmt"
	"time"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store is the write-through persistence behind the engine. Ids are assigned
// by the engine, so rows are written with explicit ids and upserted.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// State is the full persisted dataset, loaded once at boot to seed the
// in-memory engine.
type State struct {
	Plants    []models.Plant
	Suppliers []models.Supplier
	Orders    []models.Order
}

// Load reads the entire dataset.
func (s *Store) Load(ctx context.Context) (*State, error) {
	state := &State{}

	if err := s.db.SelectContext(ctx, &state.Plants,
		"SELECT id, name, category, sku, price, cost_price, quantity, reorder_at, supplier_id FROM plants ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to load plants: %w", err)
	}

	if err := s.db.SelectContext(ctx, &state.Suppliers,
		"SELECT id, name, email, contact_person, phone, address FROM suppliers ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to load suppliers: %w", err)
	}

	if err := s.db.SelectContext(ctx, &state.Orders,
		"SELECT id, customer_name, total, notes, date FROM orders ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	for i := range state.Orders {
		var lines []models.OrderLine
		if err := s.db.SelectContext(ctx, &lines,
			"SELECT order_id, product_id, product_name, quantity, price_at_sale FROM order_lines WHERE order_id = $1 ORDER BY id",
			state.Orders[i].ID); err != nil {
			return nil, fmt.Errorf("failed to load order lines: %w", err)
		}
		state.Orders[i].Lines = lines
	}

	return state, nil
}

// SavePlant inserts or updates a plant row.
func (s *Store) SavePlant(ctx context.Context, p models.Plant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plants (id, name, category, sku, price, cost_price, quantity, reorder_at, supplier_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			sku = EXCLUDED.sku,
			price = EXCLUDED.price,
			cost_price = EXCLUDED.cost_price,
			quantity = EXCLUDED.quantity,
			reorder_at = EXCLUDED.reorder_at,
			supplier_id = EXCLUDED.supplier_id`,
		p.ID, p.Name, p.Category, p.SKU, p.Price, p.CostPrice, p.Quantity, p.ReorderAt, p.SupplierID)
	return err
}

// DeletePlant removes a plant row.
func (s *Store) DeletePlant(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM plants WHERE id = $1", id)
	return err
}

// SaveStock writes a committed quantity.
func (s *Store) SaveStock(ctx context.Context, plantID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE plants SET quantity = $1 WHERE id = $2", quantity, plantID)
	return err
}

// SaveSupplier inserts or updates a supplier row.
func (s *Store) SaveSupplier(ctx context.Context, sup models.Supplier) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, email, contact_person, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			contact_person = EXCLUDED.contact_person,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address`,
		sup.ID, sup.Name, sup.Email, sup.ContactPerson, sup.Phone, sup.Address)
	return err
}

// DeleteSupplier removes a supplier row.
func (s *Store) DeleteSupplier(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	return err
}
