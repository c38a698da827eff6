package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/teresa-solution/rent-payment-service/internal/model"
)

// ErrTransitionRejected is returned when a conditional status write matched no row
// because the payment is not in one of the allowed source statuses.
var ErrTransitionRejected = errors.New("payment status does not allow this transition")

// ErrActiveTenancyExists is returned when activating an assignment would give
// a user a second Active tenancy.
var ErrActiveTenancyExists = errors.New("user already has an active tenancy")

// PaymentStore persists payment records.
// Lookups return (nil, nil) when no row matches.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *model.Payment) error
	GetPayment(ctx context.Context, id int64) (*model.PaymentDetail, error)
	// GetPaymentRecord reads the payment row from the authoritative store, bypassing any cache.
	GetPaymentRecord(ctx context.Context, id int64) (*model.Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	GetPaymentByGatewayPaymentID(ctx context.Context, paymentID string) (*model.Payment, error)
	ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.PaymentDetail, int, error)
	// TransitionPayment applies t atomically, keyed by payment id.
	// Returns ErrTransitionRejected when the current status is not in t.From.
	TransitionPayment(ctx context.Context, id int64, t model.Transition) (*model.Payment, error)
}

// OccupancyStore persists tenant assignments and room occupancy
type OccupancyStore interface {
	// UpsertAssignment inserts a new Active assignment, or re-activates the row with the same id.
	UpsertAssignment(ctx context.Context, a *model.TenantAssignment) error
	ListAssignments(ctx context.Context, propertyID, roomID int64, status model.AssignmentStatus) ([]model.TenantAssignment, error)
	ListActiveAssignmentsByUser(ctx context.Context, userID int64) ([]model.TenantAssignment, error)
	// SetAssignmentStatus updates only the given ids that belong to the (property, room).
	SetAssignmentStatus(ctx context.Context, propertyID, roomID int64, ids []int64, status model.AssignmentStatus) error
	CountActiveAssignments(ctx context.Context, roomID int64) (int, error)
	GetRoom(ctx context.Context, roomID int64) (*model.Room, error)
	UpdateRoomStatus(ctx context.Context, roomID int64, status model.RoomStatus) error
}

// RedisClient is the subset of go-redis used by the payment cache
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// NewPool opens a pgx pool and verifies connectivity
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	config.MaxConns = 20
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
