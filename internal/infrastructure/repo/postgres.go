package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"

	"github.com/Durga812/new-web-app-sub001/internal/domain"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresRepo{db: db}, nil
}

func NewPostgresRepoFromDB(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const opTimeout = 5 * time.Second

func (r *PostgresRepo) PutEnrollment(ctx context.Context, e *domain.Enrollment) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO enrollments
		(id,user_id,product_id,product_type,product_title,enroll_id,status,outcome,order_id,
		 refund_requested_at,refund_approved_at,refund_approved_by,refund_reason,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET status=$7,outcome=$8,
			refund_requested_at=$10,refund_approved_at=$11,refund_approved_by=$12,refund_reason=$13,updated_at=$15`,
		e.ID, e.UserID, e.ProductID, string(e.ProductType), e.ProductTitle, e.EnrollID,
		string(e.Status), string(e.Outcome), e.OrderID,
		e.RefundRequestedAt, e.RefundApprovedAt, nullIfEmpty(e.RefundApprovedBy), nullIfEmpty(e.RefundReason),
		e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *PostgresRepo) GetEnrollment(ctx context.Context, id string) (*domain.Enrollment, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var e domain.Enrollment
	var approvedBy, reason sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id,user_id,product_id,product_type,product_title,enroll_id,
		status,outcome,order_id,refund_requested_at,refund_approved_at,refund_approved_by,refund_reason,
		created_at,updated_at FROM enrollments WHERE id=$1`, id).
		Scan(&e.ID, &e.UserID, &e.ProductID, (*string)(&e.ProductType), &e.ProductTitle, &e.EnrollID,
			(*string)(&e.Status), (*string)(&e.Outcome), &e.OrderID,
			&e.RefundRequestedAt, &e.RefundApprovedAt, &approvedBy, &reason,
			&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, false
	}
	e.RefundApprovedBy = approvedBy.String
	e.RefundReason = reason.String
	return &e, true
}

func (r *PostgresRepo) ListEnrollmentsByUser(ctx context.Context, userID string) ([]domain.Enrollment, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id,user_id,product_id,product_type,product_title,enroll_id,
		status,outcome,order_id,refund_requested_at,refund_approved_at,refund_approved_by,refund_reason,
		created_at,updated_at FROM enrollments WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Enrollment
	for rows.Next() {
		var e domain.Enrollment
		var approvedBy, reason sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.ProductID, (*string)(&e.ProductType), &e.ProductTitle, &e.EnrollID,
			(*string)(&e.Status), (*string)(&e.Outcome), &e.OrderID,
			&e.RefundRequestedAt, &e.RefundApprovedAt, &approvedBy, &reason,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.RefundApprovedBy = approvedBy.String
		e.RefundReason = reason.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClaimEnrollmentRefund flips the enrollment to refunded with a conditional
// update. The WHERE status='active' guard plus the rows-affected check is
// what stops two concurrent settlements from both passing the eligibility
// read: exactly one caller wins the claim.
func (r *PostgresRepo) ClaimEnrollmentRefund(ctx context.Context, id, approvedBy, reason string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE enrollments
		SET status=$2, refund_requested_at=$3, refund_approved_at=$3, refund_approved_by=$4, refund_reason=$5, updated_at=$3
		WHERE id=$1 AND status=$6`,
		id, string(domain.EnrollmentRefunded), at, approvedBy, reason, string(domain.EnrollmentActive))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseEnrollmentRefund undoes a claim after the payment processor refused
// the refund, restoring the enrollment to active.
func (r *PostgresRepo) ReleaseEnrollmentRefund(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE enrollments
		SET status=$2, refund_requested_at=NULL, refund_approved_at=NULL, refund_approved_by=NULL, refund_reason=NULL, updated_at=$3
		WHERE id=$1 AND status=$4`,
		id, string(domain.EnrollmentActive), at, string(domain.EnrollmentRefunded))
	return err
}

func (r *PostgresRepo) PutOrder(ctx context.Context, o *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	purchased, _ := json.Marshal(o.PurchasedItems)
	refunded, _ := json.Marshal(o.RefundedItems)
	_, err := r.db.ExecContext(ctx, `INSERT INTO orders
		(id,payment_intent_id,payment_status,customer_email,customer_name,purchased_items,paid_at,
		 refunded_items,refund_amount,refund_reason,refund_processor,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET payment_status=$3,
			refunded_items=$8,refund_amount=$9,refund_reason=$10,refund_processor=$11,updated_at=$13`,
		o.ID, o.PaymentIntentID, string(o.PaymentStatus), o.CustomerEmail, o.CustomerName,
		string(purchased), o.PaidAt, string(refunded), o.RefundAmount,
		nullIfEmpty(o.RefundReason), nullIfEmpty(o.RefundProcessor), o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *PostgresRepo) GetOrder(ctx context.Context, id string) (*domain.Order, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var o domain.Order
	var purchased, refunded string
	var reason, processor sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id,payment_intent_id,payment_status,customer_email,customer_name,
		purchased_items,paid_at,refunded_items,refund_amount,refund_reason,refund_processor,created_at,updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.PaymentIntentID, (*string)(&o.PaymentStatus), &o.CustomerEmail, &o.CustomerName,
			&purchased, &o.PaidAt, &refunded, &o.RefundAmount, &reason, &processor, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, false
	}
	_ = json.Unmarshal([]byte(purchased), &o.PurchasedItems)
	_ = json.Unmarshal([]byte(refunded), &o.RefundedItems)
	o.RefundReason = reason.String
	o.RefundProcessor = processor.String
	return &o, true
}

func (r *PostgresRepo) PutProduct(ctx context.Context, p *domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	children, _ := json.Marshal(p.Children)
	_, err := r.db.ExecContext(ctx, `INSERT INTO products
		(id,type,title,description,price,validity_days,enroll_id,children,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET type=$2,title=$3,description=$4,price=$5,validity_days=$6,
			enroll_id=$7,children=$8,updated_at=$10`,
		p.ID, string(p.Type), p.Title, p.Description, p.Price, p.ValidityDays, p.EnrollID,
		string(children), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PostgresRepo) GetProduct(ctx context.Context, id string) (*domain.Product, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var p domain.Product
	var children string
	err := r.db.QueryRowContext(ctx, `SELECT id,type,title,description,price,validity_days,enroll_id,children,
		created_at,updated_at FROM products WHERE id=$1`, id).
		Scan(&p.ID, (*string)(&p.Type), &p.Title, &p.Description, &p.Price, &p.ValidityDays,
			&p.EnrollID, &children, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, false
	}
	_ = json.Unmarshal([]byte(children), &p.Children)
	return &p, true
}

func (r *PostgresRepo) ListProducts(ctx context.Context, ptype domain.ProductType) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	q := `SELECT id,type,title,description,price,validity_days,enroll_id,children,created_at,updated_at
		FROM products ORDER BY title ASC`
	args := []any{}
	if ptype != "" {
		q = `SELECT id,type,title,description,price,validity_days,enroll_id,children,created_at,updated_at
			FROM products WHERE type=$1 ORDER BY title ASC`
		args = append(args, string(ptype))
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		var children string
		if err := rows.Scan(&p.ID, (*string)(&p.Type), &p.Title, &p.Description, &p.Price, &p.ValidityDays,
			&p.EnrollID, &children, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(children), &p.Children)
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
