package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
)

const userCartQuery = `
	SELECT c.product_id, c.quantity, c.added_at,
	       p.id, p.name, p.price, p.stock, p.created_at, p.updated_at
	FROM carts c
	JOIN products p ON p.id = c.product_id
	WHERE c.user_id = $1
	ORDER BY c.added_at`

func (r *Repository) GetUserCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	rows, err := r.db.QueryContext(ctx, userCartQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	return collectCart(rows, userID)
}

func (r *Repository) UpsertCartItem(ctx context.Context, userID, productID int64, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, product_id, quantity, added_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *Repository) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM carts WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart item rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *Repository) ClearCart(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// GetUserCart inside a transaction is the authoritative cart read at
// checkout time. It locks the cart rows: a concurrent checkout of the
// same cart blocks here until the first transaction commits, and under
// read committed the re-evaluated rows are gone, so the loser sees an
// empty cart.
func (t *pgTx) GetUserCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	rows, err := t.tx.QueryContext(ctx, userCartQuery+` FOR UPDATE OF c`, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	return collectCart(rows, userID)
}

func (t *pgTx) ClearCart(ctx context.Context, userID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func collectCart(rows *sql.Rows, userID int64) (*domain.Cart, error) {
	defer rows.Close()

	cart := &domain.Cart{UserID: userID}
	for rows.Next() {
		var (
			item domain.CartItem
			p    domain.Product
		)
		if err := rows.Scan(
			&item.ProductID, &item.Quantity, &item.AddedAt,
			&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		item.Product = &p
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return cart, nil
}
