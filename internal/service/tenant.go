package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/rent-payment-service/internal/model"
	"github.com/teresa-solution/rent-payment-service/internal/monitoring"
	"github.com/teresa-solution/rent-payment-service/internal/store"
)

// ReconcileResult lists what a Reconcile call changed
type ReconcileResult struct {
	Deleted  []int64                  `json:"deleted"`
	Restored []int64                  `json:"restored"`
	Created  []model.TenantAssignment `json:"created"`
}

// TenantService keeps tenant assignments and derived room occupancy consistent
type TenantService struct {
	store store.OccupancyStore
	locks *roomLocks
}

func NewTenantService(store store.OccupancyStore) *TenantService {
	return &TenantService{store: store, locks: newRoomLocks()}
}

// Assign creates an Active assignment for every user not already active in the room,
// then recomputes the room status.
func (s *TenantService) Assign(ctx context.Context, propertyID, roomID int64, userIDs []int64) ([]model.TenantAssignment, error) {
	if err := validateRoomRef(propertyID, roomID); err != nil {
		return nil, err
	}
	users, err := normalizeUserIDs(userIDs)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(propertyID, roomID)
	defer unlock()

	if err := s.checkRoom(ctx, propertyID, roomID, len(users) > 0); err != nil {
		return nil, err
	}
	active, err := s.store.ListAssignments(ctx, propertyID, roomID, model.AssignmentActive)
	if err != nil {
		return nil, err
	}
	activeUsers := usersOf(active)

	var toCreate []int64
	for _, u := range users {
		if !activeUsers[u] {
			toCreate = append(toCreate, u)
		}
	}
	if err := s.checkSingleTenancy(ctx, roomID, toCreate); err != nil {
		return nil, err
	}

	created, err := s.create(ctx, propertyID, roomID, toCreate)
	s.recomputeRoom(ctx, roomID)
	if err != nil {
		return created, err
	}
	log.Info().Int64("property_id", propertyID).Int64("room_id", roomID).Int("created", len(created)).Msg("Assigned tenants")
	return created, nil
}

// Reconcile makes the room's Active assignments match the target lists:
// deletions first, then restorations of Deleted rows, then creations.
// The room status is recomputed once at the end.
func (s *TenantService) Reconcile(ctx context.Context, propertyID, roomID int64, targetUserIDs, targetAssignmentIDs []int64) (*ReconcileResult, error) {
	if err := validateRoomRef(propertyID, roomID); err != nil {
		return nil, err
	}
	users, err := normalizeUserIDs(targetUserIDs)
	if err != nil {
		return nil, err
	}
	keepIDs := make(map[int64]bool, len(targetAssignmentIDs))
	for _, id := range targetAssignmentIDs {
		keepIDs[id] = true
	}

	unlock := s.locks.lock(propertyID, roomID)
	defer unlock()

	if err := s.checkRoom(ctx, propertyID, roomID, len(users) > 0); err != nil {
		return nil, err
	}
	active, err := s.store.ListAssignments(ctx, propertyID, roomID, model.AssignmentActive)
	if err != nil {
		return nil, err
	}
	deleted, err := s.store.ListAssignments(ctx, propertyID, roomID, model.AssignmentDeleted)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	remaining := make(map[int64]bool)
	for _, a := range active {
		if keepIDs[a.ID] {
			remaining[a.UserID] = true
		} else {
			result.Deleted = append(result.Deleted, a.ID)
		}
	}

	wanted := make(map[int64]bool, len(users))
	for _, u := range users {
		wanted[u] = true
	}
	// newest Deleted row per wanted user that is not staying active
	restoreByUser := make(map[int64]int64)
	for _, a := range deleted {
		if wanted[a.UserID] && !remaining[a.UserID] && a.ID > restoreByUser[a.UserID] {
			restoreByUser[a.UserID] = a.ID
		}
	}
	for _, a := range active {
		if !keepIDs[a.ID] && wanted[a.UserID] && !remaining[a.UserID] {
			if _, ok := restoreByUser[a.UserID]; !ok {
				// being deleted in this call; restore the same row
				restoreByUser[a.UserID] = a.ID
			}
		}
	}

	var toCreate, activating []int64
	for _, u := range users {
		if remaining[u] {
			continue
		}
		activating = append(activating, u)
		if id, ok := restoreByUser[u]; ok {
			result.Restored = append(result.Restored, id)
		} else {
			toCreate = append(toCreate, u)
		}
	}
	sort.Slice(result.Restored, func(i, j int) bool { return result.Restored[i] < result.Restored[j] })

	if err := s.checkSingleTenancy(ctx, roomID, activating); err != nil {
		return nil, err
	}

	defer s.recomputeRoom(ctx, roomID)

	if err := s.store.SetAssignmentStatus(ctx, propertyID, roomID, result.Deleted, model.AssignmentDeleted); err != nil {
		return nil, fmt.Errorf("delete assignments: %w", err)
	}
	if err := s.store.SetAssignmentStatus(ctx, propertyID, roomID, result.Restored, model.AssignmentActive); err != nil {
		if errors.Is(err, store.ErrActiveTenancyExists) {
			return nil, &InvalidStateError{Op: "assign tenant", Reason: "a restored user already has an active tenancy elsewhere"}
		}
		return nil, fmt.Errorf("restore assignments: %w", err)
	}
	result.Created, err = s.create(ctx, propertyID, roomID, toCreate)
	if err != nil {
		return nil, err
	}

	log.Info().Int64("property_id", propertyID).Int64("room_id", roomID).
		Int("deleted", len(result.Deleted)).Int("restored", len(result.Restored)).Int("created", len(result.Created)).
		Msg("Reconciled tenant assignments")
	return result, nil
}

func (s *TenantService) ListActive(ctx context.Context, propertyID, roomID int64) ([]model.TenantAssignment, error) {
	return s.list(ctx, propertyID, roomID, model.AssignmentActive)
}

func (s *TenantService) ListDeleted(ctx context.Context, propertyID, roomID int64) ([]model.TenantAssignment, error) {
	return s.list(ctx, propertyID, roomID, model.AssignmentDeleted)
}

func (s *TenantService) list(ctx context.Context, propertyID, roomID int64, status model.AssignmentStatus) ([]model.TenantAssignment, error) {
	if err := validateRoomRef(propertyID, roomID); err != nil {
		return nil, err
	}
	out, err := s.store.ListAssignments(ctx, propertyID, roomID, status)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.TenantAssignment{}
	}
	return out, nil
}

func (s *TenantService) create(ctx context.Context, propertyID, roomID int64, userIDs []int64) ([]model.TenantAssignment, error) {
	created := make([]model.TenantAssignment, 0, len(userIDs))
	for _, u := range userIDs {
		a := &model.TenantAssignment{UserID: u, PropertyID: propertyID, RoomID: roomID}
		if err := s.store.UpsertAssignment(ctx, a); err != nil {
			if errors.Is(err, store.ErrActiveTenancyExists) {
				log.Warn().Int64("user_id", u).Int64("room_id", roomID).Msg("Concurrent assignment gave user an active tenancy elsewhere")
				return created, &InvalidStateError{
					Op:     "assign tenant",
					Reason: fmt.Sprintf("user %d already has an active tenancy", u),
				}
			}
			log.Error().Err(err).Int64("user_id", u).Int64("room_id", roomID).Msg("Failed to create tenant assignment")
			return created, fmt.Errorf("create assignment for user %d: %w", u, err)
		}
		created = append(created, *a)
	}
	return created, nil
}

// checkRoom rejects unknown rooms, and Deleted rooms when tenants would be activated
func (s *TenantService) checkRoom(ctx context.Context, propertyID, roomID int64, activating bool) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil || room.PropertyID != propertyID {
		return &NotFoundError{Entity: "room", ID: formatID(roomID)}
	}
	if activating && room.Status == model.RoomDeleted {
		return &InvalidStateError{Op: "assign tenant", Status: string(room.Status), Reason: "room is deleted"}
	}
	return nil
}

// checkSingleTenancy rejects users already holding an Active assignment in another room
func (s *TenantService) checkSingleTenancy(ctx context.Context, roomID int64, userIDs []int64) error {
	for _, u := range userIDs {
		active, err := s.store.ListActiveAssignmentsByUser(ctx, u)
		if err != nil {
			return err
		}
		for _, a := range active {
			if a.RoomID != roomID {
				return &InvalidStateError{
					Op:     "assign tenant",
					Reason: fmt.Sprintf("user %d already has an active tenancy in room %d", u, a.RoomID),
				}
			}
		}
	}
	return nil
}

// recomputeRoom derives the room status from its Active assignments.
// Failures are logged, alerted and counted; they never fail the caller.
func (s *TenantService) recomputeRoom(ctx context.Context, roomID int64) {
	fail := func(err error, msg string) {
		log.Error().Err(err).Int64("room_id", roomID).Msg(msg)
		monitoring.Alert("room status recompute failed", map[string]string{"room_id": formatID(roomID)})
		monitoring.RoomRecomputes.WithLabelValues("error").Inc()
	}

	count, err := s.store.CountActiveAssignments(ctx, roomID)
	if err != nil {
		fail(err, "Failed to count active assignments")
		return
	}
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		fail(err, "Failed to load room")
		return
	}
	if room == nil {
		fail(fmt.Errorf("room %d not found", roomID), "Room vanished during recompute")
		return
	}
	if room.Status == model.RoomDeleted {
		monitoring.RoomRecomputes.WithLabelValues("skipped").Inc()
		return
	}

	want := model.OccupancyFor(count)
	if room.Status == want {
		monitoring.RoomRecomputes.WithLabelValues("unchanged").Inc()
		return
	}
	if err := s.store.UpdateRoomStatus(ctx, roomID, want); err != nil {
		fail(err, "Failed to update room status")
		return
	}
	monitoring.RoomRecomputes.WithLabelValues("updated").Inc()
	log.Info().Int64("room_id", roomID).Str("status", string(want)).Int("active", count).Msg("Updated room status")
}

func validateRoomRef(propertyID, roomID int64) error {
	if propertyID <= 0 {
		return &ValidationError{Field: "propertyId", Reason: "must be positive"}
	}
	if roomID <= 0 {
		return &ValidationError{Field: "roomId", Reason: "must be positive"}
	}
	return nil
}

// normalizeUserIDs rejects non-positive ids and collapses duplicates, keeping first-seen order
func normalizeUserIDs(ids []int64) ([]int64, error) {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, &ValidationError{Field: "userIds", Reason: fmt.Sprintf("invalid user id %d", id)}
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

func usersOf(assignments []model.TenantAssignment) map[int64]bool {
	out := make(map[int64]bool, len(assignments))
	for _, a := range assignments {
		out[a.UserID] = true
	}
	return out
}

// roomLocks serializes writers per (property, room)
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

func (l *roomLocks) lock(propertyID, roomID int64) func() {
	key := fmt.Sprintf("%d/%d", propertyID, roomID)

	l.mu.Lock()
	rl, ok := l.locks[key]
	if !ok {
		rl = &roomLock{}
		l.locks[key] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
