package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/courseloop/order-intake/internal/domain"
)

// InsertOutcome is the tagged result of an order insert. Duplicate is the
// unique-constraint path: two deliveries of the same external order raced
// past the pre-check and the database rejected the second row.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	Duplicate
)

const (
	// uniqueViolation is the Postgres code for unique-constraint errors.
	uniqueViolation = pq.ErrorCode("23505")
	// externalIDConstraint names the unique index on external_order_id.
	externalIDConstraint = "orders_external_order_id_key"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Insert writes the order and assigns its id. A unique violation on the
// external order id is reported as Duplicate, not as an error; the
// constraint is the actual dedup guarantee, the caller's pre-check is only
// an optimization.
func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) (InsertOutcome, error) {
	order.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, customer_email, customer_name, order_details, status, external_order_id, order_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, order.ID, nullable(order.UserID), order.CustomerEmail, nullable(order.CustomerName),
		[]byte(order.Details), order.Status, nullable(order.ExternalID), order.OrderDate)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == externalIDConstraint {
			return Duplicate, nil
		}
		return 0, err
	}

	return Inserted, nil
}

// FindByExternalID returns (nil, nil) when no order carries the id.
func (r *OrderRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Order, error) {
	return r.queryOne(ctx, `
		SELECT id, user_id, customer_email, customer_name, order_details, status, external_order_id, order_date, tracking_number
		FROM orders
		WHERE external_order_id = $1
	`, externalID)
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.queryOne(ctx, `
		SELECT id, user_id, customer_email, customer_name, order_details, status, external_order_id, order_date, tracking_number
		FROM orders
		WHERE id = $1
	`, id)
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, customer_email, customer_name, order_details, status, external_order_id, order_date, tracking_number
		FROM orders
		ORDER BY order_date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *OrderRepository) queryOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order      domain.Order
		userID     sql.NullString
		name       sql.NullString
		details    []byte
		externalID sql.NullString
		tracking   sql.NullString
		orderDate  time.Time
	)

	err := row.Scan(&order.ID, &userID, &order.CustomerEmail, &name, &details,
		&order.Status, &externalID, &orderDate, &tracking)
	if err != nil {
		return nil, err
	}

	order.UserID = userID.String
	order.CustomerName = name.String
	order.Details = details
	order.ExternalID = externalID.String
	order.OrderDate = orderDate
	order.TrackingNumber = tracking.String

	return &order, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
