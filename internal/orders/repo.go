package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// PlaceOrder runs stock decrement and order creation as one transaction.
// Each product row is locked, its stock conditionally reduced, and the
// order inserted with the catalog price captured per line item. Any
// shortfall rolls the whole thing back: no order row, no stock change.
func (r *Repo) PlaceOrder(ctx context.Context, in NewOrder) (Order, error) {
	if len(in.Items) == 0 {
		return Order{}, fmt.Errorf("no line items")
	}
	for _, it := range in.Items {
		if it.Qty <= 0 {
			return Order{}, fmt.Errorf("invalid qty for product %s", it.ProductID)
		}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var shortfalls []Shortfall
	prices := make(map[string]int, len(in.Items))

	for _, it := range in.Items {
		var stock, price int
		err := tx.QueryRow(ctx,
			`SELECT stock, price_cents FROM products WHERE id=$1 FOR UPDATE`,
			it.ProductID).Scan(&stock, &price)
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}
		if err != nil {
			return Order{}, err
		}
		prices[it.ProductID] = price

		if stock < it.Qty {
			shortfalls = append(shortfalls, Shortfall{
				ProductID: it.ProductID, Required: it.Qty, Available: stock,
			})
			continue
		}
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`,
			it.ProductID, it.Qty); err != nil {
			return Order{}, err
		}
	}

	if len(shortfalls) > 0 {
		return Order{}, &StockError{Shortfalls: shortfalls} // rollback via defer
	}

	o := Order{
		ID:            uuid.NewString(),
		UserID:        in.UserID,
		ShippingInfo:  in.ShippingInfo,
		PaymentMethod: in.PaymentMethod,
		PaymentInfo:   in.PaymentInfo,
		ItemsCents:    in.ItemsCents,
		TaxCents:      in.TaxCents,
		ShippingCents: in.ShippingCents,
		TotalCents:    in.TotalCents,
		Status:        StatusPreparing,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, shipping_info, payment_method, payment_info,
		                   items_cents, tax_cents, shipping_cents, total_cents, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		o.ID, o.UserID, o.ShippingInfo, o.PaymentMethod, o.PaymentInfo,
		o.ItemsCents, o.TaxCents, o.ShippingCents, o.TotalCents, string(o.Status),
	).Scan(&o.CreatedAt)
	if err != nil {
		return Order{}, err
	}

	for _, it := range in.Items {
		item := Item{ProductID: it.ProductID, Qty: it.Qty, UnitPriceCents: prices[it.ProductID]}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, qty, unit_price_cents)
			VALUES ($1,$2,$3,$4)`,
			o.ID, item.ProductID, item.Qty, item.UnitPriceCents); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// AdvanceStatus moves an order one step along its lifecycle under a row
// lock. The transition into Delivered stamps delivered_at.
func (r *Repo) AdvanceStatus(ctx context.Context, orderID string) (from, to Status, deliveredAt *time.Time, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", "", nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var s string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", nil, ErrOrderNotFound
	}
	if err != nil {
		return "", "", nil, err
	}

	from = Status(s)
	to, ok := from.Next()
	if !ok {
		return from, "", nil, ErrAlreadyDelivered
	}

	if to == StatusDelivered {
		var d time.Time
		err = tx.QueryRow(ctx,
			`UPDATE orders SET status=$2, delivered_at=now() WHERE id=$1 RETURNING delivered_at`,
			orderID, string(to)).Scan(&d)
		if err != nil {
			return from, to, nil, err
		}
		deliveredAt = &d
	} else {
		if _, err = tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, orderID, string(to)); err != nil {
			return from, to, nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return from, to, nil, err
	}
	return from, to, deliveredAt, nil
}

// AttachPaymentIntent records the gateway's intent id on an order so the
// payment can later be reconciled against it.
func (r *Repo) AttachPaymentIntent(ctx context.Context, orderID, intentID string) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE orders SET payment_intent_id=$2 WHERE id=$1`, orderID, intentID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, orderID string) (Order, error) {
	o, err := r.scanOne(ctx, `
		SELECT id, user_id, shipping_info, payment_method, payment_info,
		       COALESCE(payment_intent_id,''), items_cents, tax_cents,
		       shipping_cents, total_cents, status, created_at, delivered_at
		FROM orders WHERE id=$1`, orderID)
	if err != nil {
		return Order{}, err
	}
	items, err := r.itemsFor(ctx, []string{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, shipping_info, payment_method, payment_info,
		       COALESCE(payment_intent_id,''), items_cents, tax_cents,
		       shipping_cents, total_cents, status, created_at, delivered_at
		FROM orders ORDER BY created_at DESC`)
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, shipping_info, payment_method, payment_info,
		       COALESCE(payment_intent_id,''), items_cents, tax_cents,
		       shipping_cents, total_cents, status, created_at, delivered_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (r *Repo) scanOne(ctx context.Context, q string, args ...any) (Order, error) {
	var o Order
	err := scanOrder(r.DB.QueryRow(ctx, q, args...), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) itemsFor(ctx context.Context, orderIDs []string) (map[string][]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, qty, unit_price_cents
		FROM order_items WHERE order_id = ANY($1)`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Item, len(orderIDs))
	for rows.Next() {
		var oid string
		var it Item
		if err := rows.Scan(&oid, &it.ProductID, &it.Qty, &it.UnitPriceCents); err != nil {
			return nil, err
		}
		out[oid] = append(out[oid], it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row, o *Order) error {
	var status string
	err := row.Scan(&o.ID, &o.UserID, &o.ShippingInfo, &o.PaymentMethod, &o.PaymentInfo,
		&o.PaymentIntentID, &o.ItemsCents, &o.TaxCents, &o.ShippingCents, &o.TotalCents,
		&status, &o.CreatedAt, &o.DeliveredAt)
	if err != nil {
		return err
	}
	o.Status = Status(status)
	return nil
}
