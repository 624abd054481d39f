package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rspatil/orderdesk/internal/apperrors"
	"github.com/rspatil/orderdesk/internal/model"
)

type PostgresOrderStorage struct {
	db *pgxpool.Pool
}

func NewPostgresOrderStorage(pool *pgxpool.Pool) OrderStorage {
	return &PostgresOrderStorage{db: pool}
}

func (s *PostgresOrderStorage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const insertOrderQuery = `
	INSERT INTO orders (id, restaurant_id, channel, external_order_id, status, payment_status, total_amount)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (channel, external_order_id) DO NOTHING
	RETURNING created_at
`

func (s *PostgresOrderStorage) InsertIfAbsent(ctx context.Context, order model.Order) (model.Order, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Order{}, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.New().String()
	if order.Status == "" {
		order.Status = model.StatusNew
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = model.PaymentPending
	}

	err = tx.QueryRow(ctx, insertOrderQuery,
		order.ID, order.RestaurantID, order.Channel, order.ExternalOrderID,
		order.Status, order.PaymentStatus, order.TotalAmount,
	).Scan(&order.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// The unique constraint on (channel, external_order_id) absorbed a
		// replayed delivery. Hand back the row the winner inserted.
		existing, ferr := s.findByDedupKey(ctx, order.Channel, *order.ExternalOrderID)
		if ferr != nil {
			return model.Order{}, false, ferr
		}
		return existing, false, nil
	}
	if err != nil {
		return model.Order{}, false, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
		`, order.ID, item.Name, item.Quantity, item.UnitPrice)
		if err != nil {
			return model.Order{}, false, fmt.Errorf("insert item %q: %w", item.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, false, fmt.Errorf("commit transaction: %w", err)
	}
	return order, true, nil
}

func (s *PostgresOrderStorage) UpdateStatus(ctx context.Context, orderID string, next model.Status) (model.Order, error) {
	if !next.Valid() {
		return model.Order{}, apperrors.NewValidation("unknown status %q", next)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Order{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current model.Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Order{}, apperrors.NewNotFound("order %s", orderID)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("lock order row: %w", err)
	}

	if !current.CanTransitionTo(next) {
		return model.Order{}, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, current, next)
	}

	var order model.Order
	err = tx.QueryRow(ctx, `
		UPDATE orders SET status = $1
		WHERE id = $2
		RETURNING id, restaurant_id, channel, external_order_id, status, payment_status, total_amount, created_at
	`, next, orderID).Scan(
		&order.ID, &order.RestaurantID, &order.Channel, &order.ExternalOrderID,
		&order.Status, &order.PaymentStatus, &order.TotalAmount, &order.CreatedAt,
	)
	if err != nil {
		return model.Order{}, fmt.Errorf("update status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, fmt.Errorf("commit transaction: %w", err)
	}

	order.Items, err = s.itemsFor(ctx, order.ID)
	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}

const selectOrderQuery = `
	SELECT id, restaurant_id, channel, external_order_id, status, payment_status, total_amount, created_at
	FROM orders
`

func (s *PostgresOrderStorage) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	return s.scanOne(ctx, selectOrderQuery+` WHERE id = $1`, orderID)
}

func (s *PostgresOrderStorage) findByDedupKey(ctx context.Context, channel model.Channel, externalID string) (model.Order, error) {
	return s.scanOne(ctx, selectOrderQuery+` WHERE channel = $1 AND external_order_id = $2`, channel, externalID)
}

func (s *PostgresOrderStorage) scanOne(ctx context.Context, query string, args ...any) (model.Order, error) {
	var order model.Order
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&order.ID, &order.RestaurantID, &order.Channel, &order.ExternalOrderID,
		&order.Status, &order.PaymentStatus, &order.TotalAmount, &order.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Order{}, apperrors.NewNotFound("order not found")
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("select order: %w", err)
	}

	order.Items, err = s.itemsFor(ctx, order.ID)
	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (s *PostgresOrderStorage) itemsFor(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("item iteration: %w", err)
	}
	return items, nil
}
