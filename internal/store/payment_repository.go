package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/teresa-solution/rent-payment-service/internal/model"
)

const paymentColumns = `p.id, p.tenant_id, p.property_id, p.room_id, p.amount, p.currency, p.status,
	p.description, p.receipt, p.razorpay_order_id, p.razorpay_payment_id, p.razorpay_signature,
	p.payment_method, p.payment_method_details, p.created_at, p.updated_at`

const paymentDetailJoins = `
	FROM payments p
	LEFT JOIN users u ON u.id = p.tenant_id
	LEFT JOIN properties pr ON pr.id = p.property_id
	LEFT JOIN rooms r ON r.id = p.room_id`

const paymentDetailColumns = paymentColumns + `,
	COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.mobile, ''),
	COALESCE(pr.name, ''), COALESCE(r.room_no, '')`

// PaymentRepository handles database operations for payments
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// CreatePayment inserts a new payment and fills in its id and timestamps
func (r *PaymentRepository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (tenant_id, property_id, room_id, amount, currency, status,
			description, receipt, razorpay_order_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		payment.TenantID, payment.PropertyID, payment.RoomID, payment.Amount, payment.Currency,
		string(payment.Status), payment.Description, payment.Receipt, payment.RazorpayOrderID,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetPayment retrieves a payment with its tenant, property and room details
func (r *PaymentRepository) GetPayment(ctx context.Context, id int64) (*model.PaymentDetail, error) {
	query := `SELECT ` + paymentDetailColumns + paymentDetailJoins + ` WHERE p.id = $1`
	detail, err := scanPaymentDetail(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment %d: %w", id, err)
	}
	return detail, nil
}

// GetPaymentRecord retrieves the bare payment row by id
func (r *PaymentRepository) GetPaymentRecord(ctx context.Context, id int64) (*model.Payment, error) {
	return r.getOne(ctx, `p.id = $1`, id)
}

// GetPaymentByOrderID retrieves a payment by its gateway order id
func (r *PaymentRepository) GetPaymentByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	return r.getOne(ctx, `p.razorpay_order_id = $1`, orderID)
}

// GetPaymentByGatewayPaymentID retrieves a payment by its gateway payment id
func (r *PaymentRepository) GetPaymentByGatewayPaymentID(ctx context.Context, paymentID string) (*model.Payment, error) {
	return r.getOne(ctx, `p.razorpay_payment_id = $1`, paymentID)
}

func (r *PaymentRepository) getOne(ctx context.Context, where string, arg interface{}) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE ` + where
	payment, err := scanPayment(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by %s: %w", where, err)
	}
	return payment, nil
}

// ListPayments returns one page of payments matching filter and the total match count
func (r *PaymentRepository) ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.PaymentDetail, int, error) {
	filter = filter.Normalize()
	where, args := buildPaymentWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*)` + paymentDetailJoins + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset())
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`,
		paymentDetailColumns, paymentDetailJoins, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]model.PaymentDetail, 0, filter.Limit)
	for rows.Next() {
		detail, err := scanPaymentDetail(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *detail)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	return payments, total, nil
}

// sameGatewayPayment holds when the transition carries no gateway payment id,
// or the one it carries is (or becomes) the row's linked id
const sameGatewayPayment = `($3 = '' OR p.razorpay_payment_id IS NULL OR p.razorpay_payment_id = $3)`

// TransitionPayment writes a status change in a single conditional statement.
// The gateway payment id is only set when still NULL; signature and method
// from a different gateway payment are ignored.
func (r *PaymentRepository) TransitionPayment(ctx context.Context, id int64, t model.Transition) (*model.Payment, error) {
	from := make([]string, len(t.From))
	for i, s := range t.From {
		from[i] = string(s)
	}
	query := `
		UPDATE payments p SET
			status = $2,
			razorpay_payment_id = COALESCE(p.razorpay_payment_id, NULLIF($3, '')),
			razorpay_signature = CASE WHEN ` + sameGatewayPayment + `
				THEN COALESCE(NULLIF($4, ''), p.razorpay_signature) ELSE p.razorpay_signature END,
			payment_method = CASE WHEN ` + sameGatewayPayment + `
				THEN COALESCE(NULLIF($5, ''), p.payment_method) ELSE p.payment_method END,
			payment_method_details = CASE WHEN ` + sameGatewayPayment + `
				THEN COALESCE(NULLIF($6, ''), p.payment_method_details) ELSE p.payment_method_details END,
			updated_at = CASE WHEN p.status = $2 THEN p.updated_at ELSE now() END
		WHERE p.id = $1 AND p.status = ANY($7)
		RETURNING ` + paymentColumns
	payment, err := scanPayment(r.pool.QueryRow(ctx, query, id, string(t.To),
		t.RazorpayPaymentID, t.RazorpaySignature, string(t.PaymentMethod), t.PaymentMethodDetails, from))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransitionRejected
	}
	if err != nil {
		return nil, fmt.Errorf("transition payment %d to %s: %w", id, t.To, err)
	}
	return payment, nil
}

// buildPaymentWhere renders filter as a WHERE clause with positional arguments
func buildPaymentWhere(f model.PaymentFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("p.status = $%d", string(f.Status))
	}
	if f.TenantID != 0 {
		add("p.tenant_id = $%d", f.TenantID)
	}
	if f.PropertyID != 0 {
		add("p.property_id = $%d", f.PropertyID)
	}
	if f.RoomID != 0 {
		add("p.room_id = $%d", f.RoomID)
	}
	if f.From != nil {
		add("p.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("p.created_at <= $%d", *f.To)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		parts := []string{
			fmt.Sprintf("u.name ILIKE $%d", n),
			fmt.Sprintf("u.email ILIKE $%d", n),
			fmt.Sprintf("u.mobile ILIKE $%d", n),
			fmt.Sprintf("pr.name ILIKE $%d", n),
			fmt.Sprintf("r.room_no ILIKE $%d", n),
		}
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			args = append(args, id)
			parts = append(parts, fmt.Sprintf("p.id = $%d", len(args)))
			args = append(args, s)
			parts = append(parts, fmt.Sprintf("r.room_no = $%d", len(args)))
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	var status string
	var method *string
	err := row.Scan(&p.ID, &p.TenantID, &p.PropertyID, &p.RoomID, &p.Amount, &p.Currency, &status,
		&p.Description, &p.Receipt, &p.RazorpayOrderID, &p.RazorpayPaymentID, &p.RazorpaySignature,
		&method, &p.PaymentMethodDetails, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	if method != nil {
		m := model.PaymentMethod(*method)
		p.PaymentMethod = &m
	}
	return p, nil
}

func scanPaymentDetail(row pgx.Row) (*model.PaymentDetail, error) {
	d := &model.PaymentDetail{}
	p := &d.Payment
	var status string
	var method *string
	err := row.Scan(&p.ID, &p.TenantID, &p.PropertyID, &p.RoomID, &p.Amount, &p.Currency, &status,
		&p.Description, &p.Receipt, &p.RazorpayOrderID, &p.RazorpayPaymentID, &p.RazorpaySignature,
		&method, &p.PaymentMethodDetails, &p.CreatedAt, &p.UpdatedAt,
		&d.TenantName, &d.TenantEmail, &d.TenantMobile, &d.PropertyName, &d.RoomNumber)
	if err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	if method != nil {
		m := model.PaymentMethod(*method)
		p.PaymentMethod = &m
	}
	return d, nil
}
