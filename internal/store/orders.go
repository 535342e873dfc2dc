package store

import (
	"context"
	"fmt"

	"github.com/strobelightprojects/Nursery-inventory-management/internal/models"
)

// CommitOrder writes the order, its lines and the debited plant rows in one
// transaction, so the durable state never shows a half-applied order.
func (s *Store) CommitOrder(ctx context.Context, order models.Order, plants []models.Plant) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_name, total, notes, date)
		VALUES ($1, $2, $3, $4, $5)`,
		order.ID, order.CustomerName, order.Total, order.Notes, order.Date); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, line := range order.Lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, product_name, quantity, price_at_sale)
			VALUES ($1, $2, $3, $4, $5)`,
			order.ID, line.ProductID, line.ProductName, line.Quantity, line.PriceAtSale); err != nil {
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	for _, p := range plants {
		if _, err := tx.ExecContext(ctx,
			"UPDATE plants SET quantity = $1 WHERE id = $2", p.Quantity, p.ID); err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}
	}

	return tx.Commit()
}

// RevertOrder removes the order and writes the credited plant rows in one
// transaction.
func (s *Store) RevertOrder(ctx context.Context, orderID int64, plants []models.Plant) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_lines WHERE order_id = $1", orderID); err != nil {
		return fmt.Errorf("failed to delete order lines: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", orderID); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	for _, p := range plants {
		if _, err := tx.ExecContext(ctx,
			"UPDATE plants SET quantity = $1 WHERE id = $2", p.Quantity, p.ID); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	return tx.Commit()
}
