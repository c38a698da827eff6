package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/teresa-solution/rent-payment-service/internal/model"
)

type memoryUser struct {
	name, email, mobile string
}

// MemoryStore is an in-process PaymentStore and OccupancyStore.
// It backs local runs without Postgres and the service tests.
type MemoryStore struct {
	mu          sync.Mutex
	payments    map[int64]*model.Payment
	assignments map[int64]*model.TenantAssignment
	rooms       map[int64]*model.Room
	users       map[int64]memoryUser
	properties  map[int64]string
	nextPayment int64
	nextAssign  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments:    make(map[int64]*model.Payment),
		assignments: make(map[int64]*model.TenantAssignment),
		rooms:       make(map[int64]*model.Room),
		users:       make(map[int64]memoryUser),
		properties:  make(map[int64]string),
	}
}

// AddUser registers a user for payment search joins
func (m *MemoryStore) AddUser(id int64, name, email, mobile string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = memoryUser{name: name, email: email, mobile: mobile}
}

// AddProperty registers a property name for payment search joins
func (m *MemoryStore) AddProperty(id int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[id] = name
}

// AddRoom registers a room; an empty status defaults to Available
func (m *MemoryStore) AddRoom(room model.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room.Status == "" {
		room.Status = model.RoomAvailable
	}
	m.rooms[room.ID] = &room
}

// AddAssignment inserts an assignment as-is, keeping its id and status
func (m *MemoryStore) AddAssignment(a model.TenantAssignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	m.assignments[a.ID] = &a
	if a.ID > m.nextAssign {
		m.nextAssign = a.ID
	}
}

// Assignment returns a copy of the assignment with the given id
func (m *MemoryStore) Assignment(id int64) (model.TenantAssignment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return model.TenantAssignment{}, false
	}
	return *a, true
}

func (m *MemoryStore) CreatePayment(ctx context.Context, payment *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.RazorpayOrderID == payment.RazorpayOrderID {
			return fmt.Errorf("insert payment: duplicate order id %s", payment.RazorpayOrderID)
		}
	}
	m.nextPayment++
	now := time.Now()
	payment.ID = m.nextPayment
	payment.CreatedAt, payment.UpdatedAt = now, now
	stored := *payment
	m.payments[stored.ID] = &stored
	return nil
}

func (m *MemoryStore) GetPayment(ctx context.Context, id int64) (*model.PaymentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, nil
	}
	d := m.detail(p)
	return &d, nil
}

func (m *MemoryStore) GetPaymentRecord(ctx context.Context, id int64) (*model.Payment, error) {
	return m.findPayment(func(p *model.Payment) bool { return p.ID == id }), nil
}

func (m *MemoryStore) GetPaymentByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	return m.findPayment(func(p *model.Payment) bool { return p.RazorpayOrderID == orderID }), nil
}

func (m *MemoryStore) GetPaymentByGatewayPaymentID(ctx context.Context, paymentID string) (*model.Payment, error) {
	return m.findPayment(func(p *model.Payment) bool {
		return p.RazorpayPaymentID != nil && *p.RazorpayPaymentID == paymentID
	}), nil
}

func (m *MemoryStore) findPayment(match func(*model.Payment) bool) *model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if match(p) {
			c := copyPayment(p)
			return &c
		}
	}
	return nil
}

func (m *MemoryStore) ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.PaymentDetail, int, error) {
	filter = filter.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.PaymentDetail
	for _, p := range m.payments {
		d := m.detail(p)
		if matchesFilter(d, filter) {
			matched = append(matched, d)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := filter.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return append([]model.PaymentDetail{}, matched[start:end]...), total, nil
}

func (m *MemoryStore) TransitionPayment(ctx context.Context, id int64, t model.Transition) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || !containsStatus(t.From, p.Status) {
		return nil, ErrTransitionRejected
	}

	if p.Status != t.To {
		p.Status = t.To
		p.UpdatedAt = time.Now()
	}
	// gateway details from a payment other than the linked one are not applied
	sameGateway := t.RazorpayPaymentID == "" || p.RazorpayPaymentID == nil || *p.RazorpayPaymentID == t.RazorpayPaymentID
	if t.RazorpayPaymentID != "" && p.RazorpayPaymentID == nil {
		v := t.RazorpayPaymentID
		p.RazorpayPaymentID = &v
	}
	if !sameGateway {
		c := copyPayment(p)
		return &c, nil
	}
	if t.RazorpaySignature != "" {
		v := t.RazorpaySignature
		p.RazorpaySignature = &v
	}
	if t.PaymentMethod != "" {
		v := t.PaymentMethod
		p.PaymentMethod = &v
	}
	if t.PaymentMethodDetails != "" {
		v := t.PaymentMethodDetails
		p.PaymentMethodDetails = &v
	}
	c := copyPayment(p)
	return &c, nil
}

func (m *MemoryStore) UpsertAssignment(ctx context.Context, a *model.TenantAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasOtherActive(a.UserID, a.ID) {
		return fmt.Errorf("upsert tenant assignment: %w", ErrActiveTenancyExists)
	}
	now := time.Now()
	if existing, ok := m.assignments[a.ID]; ok && a.ID != 0 {
		existing.Status = model.AssignmentActive
		existing.UpdatedAt = now
		*a = *existing
		return nil
	}
	if a.ID == 0 {
		m.nextAssign++
		a.ID = m.nextAssign
	} else if a.ID > m.nextAssign {
		m.nextAssign = a.ID
	}
	a.Status = model.AssignmentActive
	a.CreatedAt, a.UpdatedAt = now, now
	stored := *a
	m.assignments[a.ID] = &stored
	return nil
}

func (m *MemoryStore) ListAssignments(ctx context.Context, propertyID, roomID int64, status model.AssignmentStatus) ([]model.TenantAssignment, error) {
	return m.listAssignments(func(a *model.TenantAssignment) bool {
		return a.PropertyID == propertyID && a.RoomID == roomID && a.Status == status
	}), nil
}

func (m *MemoryStore) ListActiveAssignmentsByUser(ctx context.Context, userID int64) ([]model.TenantAssignment, error) {
	return m.listAssignments(func(a *model.TenantAssignment) bool {
		return a.UserID == userID && a.Status == model.AssignmentActive
	}), nil
}

func (m *MemoryStore) listAssignments(match func(*model.TenantAssignment) bool) []model.TenantAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TenantAssignment
	for _, a := range m.assignments {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) SetAssignmentStatus(ctx context.Context, propertyID, roomID int64, ids []int64, status model.AssignmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed []*model.TenantAssignment
	for _, id := range ids {
		a, ok := m.assignments[id]
		if !ok || a.PropertyID != propertyID || a.RoomID != roomID || a.Status == status {
			continue
		}
		if status == model.AssignmentActive && m.hasOtherActive(a.UserID, a.ID) {
			return fmt.Errorf("set tenant assignment status: %w", ErrActiveTenancyExists)
		}
		changed = append(changed, a)
	}
	now := time.Now()
	for _, a := range changed {
		a.Status = status
		a.UpdatedAt = now
	}
	return nil
}

// hasOtherActive reports whether userID holds an Active assignment other than id; callers hold m.mu
func (m *MemoryStore) hasOtherActive(userID, id int64) bool {
	for _, a := range m.assignments {
		if a.UserID == userID && a.ID != id && a.Status == model.AssignmentActive {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CountActiveAssignments(ctx context.Context, roomID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.assignments {
		if a.RoomID == roomID && a.Status == model.AssignmentActive {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) GetRoom(ctx context.Context, roomID int64) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, nil
	}
	c := *room
	return &c, nil
}

func (m *MemoryStore) UpdateRoomStatus(ctx context.Context, roomID int64, status model.RoomStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok || room.Status == model.RoomDeleted {
		return fmt.Errorf("room %d not found or deleted", roomID)
	}
	room.Status = status
	room.UpdatedAt = time.Now()
	return nil
}

// detail joins p with the directory tables; caller holds m.mu
func (m *MemoryStore) detail(p *model.Payment) model.PaymentDetail {
	d := model.PaymentDetail{Payment: copyPayment(p)}
	if u, ok := m.users[p.TenantID]; ok {
		d.TenantName, d.TenantEmail, d.TenantMobile = u.name, u.email, u.mobile
	}
	d.PropertyName = m.properties[p.PropertyID]
	if r, ok := m.rooms[p.RoomID]; ok {
		d.RoomNumber = r.RoomNumber
	}
	return d
}

func matchesFilter(d model.PaymentDetail, f model.PaymentFilter) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.TenantID != 0 && d.TenantID != f.TenantID {
		return false
	}
	if f.PropertyID != 0 && d.PropertyID != f.PropertyID {
		return false
	}
	if f.RoomID != 0 && d.RoomID != f.RoomID {
		return false
	}
	if f.From != nil && d.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && d.CreatedAt.After(*f.To) {
		return false
	}
	s := strings.TrimSpace(f.Search)
	if s == "" {
		return true
	}
	needle := strings.ToLower(s)
	for _, field := range []string{d.TenantName, d.TenantEmail, d.TenantMobile, d.PropertyName, d.RoomNumber} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return d.ID == id || d.RoomNumber == s
	}
	return false
}

func containsStatus(list []model.PaymentStatus, s model.PaymentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func copyPayment(p *model.Payment) model.Payment {
	c := *p
	if p.RazorpayPaymentID != nil {
		v := *p.RazorpayPaymentID
		c.RazorpayPaymentID = &v
	}
	if p.RazorpaySignature != nil {
		v := *p.RazorpaySignature
		c.RazorpaySignature = &v
	}
	if p.PaymentMethod != nil {
		v := *p.PaymentMethod
		c.PaymentMethod = &v
	}
	if p.PaymentMethodDetails != nil {
		v := *p.PaymentMethodDetails
		c.PaymentMethodDetails = &v
	}
	return c
}
