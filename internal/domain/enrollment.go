package domain

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive   EnrollmentStatus = "active"
	EnrollmentRefunded EnrollmentStatus = "refunded"
	EnrollmentExpired  EnrollmentStatus = "expired"
)

// EnrollOutcome records whether provisioning on the learning platform
// succeeded. Distinct from the lifecycle status above.
type EnrollOutcome string

const (
	EnrollSuccess EnrollOutcome = "success"
	EnrollFailure EnrollOutcome = "failure"
)

type Enrollment struct {
	ID           string           `json:"id"`
	UserID       string           `json:"userId"`
	ProductID    string           `json:"productId"`
	ProductType  ProductType      `json:"productType"`
	ProductTitle string           `json:"productTitle"`
	EnrollID     string           `json:"enrollId"`
	Status       EnrollmentStatus `json:"status"`
	Outcome      EnrollOutcome    `json:"outcome"`
	OrderID      string           `json:"orderId"`

	RefundRequestedAt *time.Time `json:"refundRequestedAt,omitempty"`
	RefundApprovedAt  *time.Time `json:"refundApprovedAt,omitempty"`
	RefundApprovedBy  string     `json:"refundApprovedBy,omitempty"`
	RefundReason      string     `json:"refundReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Refundable reports whether the enrollment can enter the refund flow at all.
// Only successfully provisioned, still-active enrollments qualify.
func (e *Enrollment) Refundable() bool {
	return e.Status == EnrollmentActive && e.Outcome == EnrollSuccess
}
