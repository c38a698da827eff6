package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/teresa-solution/rent-payment-service/internal/model"
)

// OccupancyRepository handles database operations for tenant assignments and rooms
type OccupancyRepository struct {
	pool *pgxpool.Pool
}

// NewOccupancyRepository creates a new OccupancyRepository
func NewOccupancyRepository(pool *pgxpool.Pool) *OccupancyRepository {
	return &OccupancyRepository{pool: pool}
}

const activeUserIndex = "idx_tenant_assignments_active_user"

// activeTenancyConflict maps a unique violation on the active-user index to ErrActiveTenancyExists
func activeTenancyConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == activeUserIndex {
		return ErrActiveTenancyExists
	}
	return err
}

func (r *OccupancyRepository) UpsertAssignment(ctx context.Context, a *model.TenantAssignment) error {
	var query string
	var args []interface{}
	if a.ID == 0 {
		query = `
			INSERT INTO tenant_assignments (user_id, property_id, room_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, 'Active', now(), now())
			RETURNING id, status, created_at, updated_at
		`
		args = []interface{}{a.UserID, a.PropertyID, a.RoomID}
	} else {
		query = `
			INSERT INTO tenant_assignments (id, user_id, property_id, room_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'Active', now(), now())
			ON CONFLICT (id) DO UPDATE SET status = 'Active', updated_at = now()
			RETURNING id, status, created_at, updated_at
		`
		args = []interface{}{a.ID, a.UserID, a.PropertyID, a.RoomID}
	}

	var status string
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&a.ID, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("upsert tenant assignment: %w", activeTenancyConflict(err))
	}
	a.Status = model.AssignmentStatus(status)
	return nil
}

func (r *OccupancyRepository) ListAssignments(ctx context.Context, propertyID, roomID int64, status model.AssignmentStatus) ([]model.TenantAssignment, error) {
	query := `
		SELECT id, user_id, property_id, room_id, status, created_at, updated_at
		FROM tenant_assignments
		WHERE property_id = $1 AND room_id = $2 AND status = $3
		ORDER BY id
	`
	return r.queryAssignments(ctx, query, propertyID, roomID, string(status))
}

func (r *OccupancyRepository) ListActiveAssignmentsByUser(ctx context.Context, userID int64) ([]model.TenantAssignment, error) {
	query := `
		SELECT id, user_id, property_id, room_id, status, created_at, updated_at
		FROM tenant_assignments
		WHERE user_id = $1 AND status = 'Active'
		ORDER BY id
	`
	return r.queryAssignments(ctx, query, userID)
}

func (r *OccupancyRepository) queryAssignments(ctx context.Context, query string, args ...interface{}) ([]model.TenantAssignment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tenant assignments: %w", err)
	}
	defer rows.Close()

	var out []model.TenantAssignment
	for rows.Next() {
		var a model.TenantAssignment
		var status string
		if err := rows.Scan(&a.ID, &a.UserID, &a.PropertyID, &a.RoomID, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant assignment: %w", err)
		}
		a.Status = model.AssignmentStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *OccupancyRepository) SetAssignmentStatus(ctx context.Context, propertyID, roomID int64, ids []int64, status model.AssignmentStatus) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE tenant_assignments
		SET status = $4, updated_at = now()
		WHERE property_id = $1 AND room_id = $2 AND id = ANY($3) AND status <> $4
	`
	if _, err := r.pool.Exec(ctx, query, propertyID, roomID, ids, string(status)); err != nil {
		return fmt.Errorf("set tenant assignment status: %w", activeTenancyConflict(err))
	}
	return nil
}

func (r *OccupancyRepository) CountActiveAssignments(ctx context.Context, roomID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tenant_assignments WHERE room_id = $1 AND status = 'Active'`
	if err := r.pool.QueryRow(ctx, query, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active assignments: %w", err)
	}
	return count, nil
}

func (r *OccupancyRepository) GetRoom(ctx context.Context, roomID int64) (*model.Room, error) {
	query := `
		SELECT id, property_id, room_no, rent, total_bed, status, updated_at
		FROM rooms WHERE id = $1
	`
	room := &model.Room{}
	var status string
	err := r.pool.QueryRow(ctx, query, roomID).Scan(
		&room.ID, &room.PropertyID, &room.RoomNumber, &room.Rent, &room.TotalBed, &status, &room.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", roomID, err)
	}
	room.Status = model.RoomStatus(status)
	return room, nil
}

func (r *OccupancyRepository) UpdateRoomStatus(ctx context.Context, roomID int64, status model.RoomStatus) error {
	query := `UPDATE rooms SET status = $2, updated_at = now() WHERE id = $1 AND status <> 'Deleted'`
	tag, err := r.pool.Exec(ctx, query, roomID, string(status))
	if err != nil {
		return fmt.Errorf("update room %d status: %w", roomID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("room %d not found or deleted", roomID)
	}
	return nil
}
