package usecase

import (
	"context"
	"time"

	"github.com/Durga812/new-web-app-sub001/internal/domain"
)

type EnrollmentRepo interface {
	PutEnrollment(ctx context.Context, e *domain.Enrollment) error
	GetEnrollment(ctx context.Context, id string) (*domain.Enrollment, bool)
	ListEnrollmentsByUser(ctx context.Context, userID string) ([]domain.Enrollment, error)
	// ClaimEnrollmentRefund atomically moves an active enrollment to
	// refunded and reports whether this caller won the claim.
	ClaimEnrollmentRefund(ctx context.Context, id, approvedBy, reason string, at time.Time) (bool, error)
	ReleaseEnrollmentRefund(ctx context.Context, id string, at time.Time) error
}

type OrderRepo interface {
	PutOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, bool)
}

type ProductRepo interface {
	PutProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, id string) (*domain.Product, bool)
	ListProducts(ctx context.Context, ptype domain.ProductType) ([]domain.Product, error)
}
