package repo

import (
	"context"
	"sync"
	"time"

	"github.com/Durga812/new-web-app-sub001/internal/domain"
)

// MemoryRepo backs dev mode (no DATABASE_URL) and tests.
type MemoryRepo struct {
	mu          sync.RWMutex
	enrollments map[string]*domain.Enrollment
	orders      map[string]*domain.Order
	products    map[string]*domain.Product
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		enrollments: make(map[string]*domain.Enrollment),
		orders:      make(map[string]*domain.Order),
		products:    make(map[string]*domain.Product),
	}
}

func (r *MemoryRepo) PutEnrollment(_ context.Context, e *domain.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.enrollments[e.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetEnrollment(_ context.Context, id string) (*domain.Enrollment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.enrollments[id]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

func (r *MemoryRepo) ListEnrollmentsByUser(_ context.Context, userID string) ([]domain.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Enrollment
	for _, e := range r.enrollments {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ClaimEnrollmentRefund(_ context.Context, id, approvedBy, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok || e.Status != domain.EnrollmentActive {
		return false, nil
	}
	e.Status = domain.EnrollmentRefunded
	e.RefundRequestedAt = &at
	e.RefundApprovedAt = &at
	e.RefundApprovedBy = approvedBy
	e.RefundReason = reason
	e.UpdatedAt = at
	return true, nil
}

func (r *MemoryRepo) ReleaseEnrollmentRefund(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok || e.Status != domain.EnrollmentRefunded {
		return nil
	}
	e.Status = domain.EnrollmentActive
	e.RefundRequestedAt = nil
	e.RefundApprovedAt = nil
	e.RefundApprovedBy = ""
	e.RefundReason = ""
	e.UpdatedAt = at
	return nil
}

func (r *MemoryRepo) PutOrder(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetOrder(_ context.Context, id string) (*domain.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, false
	}
	cp := *o
	return &cp, true
}

func (r *MemoryRepo) PutProduct(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetProduct(_ context.Context, id string) (*domain.Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (r *MemoryRepo) ListProducts(_ context.Context, ptype domain.ProductType) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Product
	for _, p := range r.products {
		if ptype == "" || p.Type == ptype {
			out = append(out, *p)
		}
	}
	return out, nil
}
