package domain

import "time"

// EligibilityVerdict is computed fresh on every check and never persisted.
type EligibilityVerdict struct {
	Eligible bool                `json:"eligible"`
	Reason   string              `json:"reason,omitempty"`
	Details  *EligibilityDetails `json:"details,omitempty"`
}

type EligibilityDetails struct {
	EnrollmentID    string    `json:"enrollmentId"`
	ProductTitle    string    `json:"productTitle"`
	PurchaseDate    time.Time `json:"purchaseDate"`
	DaysElapsed     int       `json:"daysElapsed"`
	ProgressPercent float64   `json:"progressPercent"`
	// RefundAmount is the gross line-item price; the processing fee is
	// applied at settlement time, not here.
	RefundAmount float64 `json:"refundAmount"`
}

func Ineligible(reason string) EligibilityVerdict {
	return EligibilityVerdict{Eligible: false, Reason: reason}
}

type RefundResult struct {
	RefundID string  `json:"refundId"`
	Amount   float64 `json:"amount"`
}
