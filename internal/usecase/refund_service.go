package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Durga812/new-web-app-sub001/internal/config"
	"github.com/Durga812/new-web-app-sub001/internal/domain"
)

const defaultRefundReason = "Requested by customer"

// PaymentRefunder issues refunds at the payment processor.
type PaymentRefunder interface {
	CreateRefund(paymentIntentID string, amountCents int64, metadata map[string]string) (string, error)
}

// Mailer sends customer-facing transactional mail.
type Mailer interface {
	SendRefundProcessing(ctx context.Context, to, name, productTitle string, amount float64, orderNumber string) error
	SendPurchaseConfirmation(ctx context.Context, to, name, orderNumber string, itemTitles []string) error
}

// RefundService settles a refund the caller has already confirmed eligible.
// The processor call is the point of no return: everything before it is
// side-effect-free or reversible, everything after it is best-effort
// bookkeeping that logs instead of failing the operation.
type RefundService struct {
	Enrollments EnrollmentRepo
	Orders      OrderRepo
	Payments    PaymentRefunder
	Progress    ProgressClient
	Mail        Mailer
	Policy      config.RefundPolicy
	Now         func() time.Time
}

func (s *RefundService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// ProcessRefund issues the refund and updates dependent records.
func (s *RefundService) ProcessRefund(ctx context.Context, userID, enrollmentID, reason string) (domain.RefundResult, error) {
	if strings.TrimSpace(enrollmentID) == "" {
		return domain.RefundResult{}, ErrBadRequest("enrollmentId required")
	}
	e, ok := s.Enrollments.GetEnrollment(ctx, enrollmentID)
	if !ok || e.UserID != userID {
		return domain.RefundResult{}, ErrNotFound("enrollment")
	}
	o, ok := s.Orders.GetOrder(ctx, e.OrderID)
	if !ok {
		return domain.RefundResult{}, ErrNotFound("order")
	}
	item, ok := o.ItemByProductID(e.ProductID)
	if !ok {
		return domain.RefundResult{}, ErrNotFound("purchased item")
	}
	if strings.TrimSpace(reason) == "" {
		reason = defaultRefundReason
	}
	now := s.now()

	// Claim the enrollment before touching money. The conditional update
	// guarantees at most one settlement reaches the processor; losing the
	// claim means a concurrent refund (or an earlier one) got here first.
	claimed, err := s.Enrollments.ClaimEnrollmentRefund(ctx, e.ID, userID, reason, now)
	if err != nil {
		return domain.RefundResult{}, fmt.Errorf("claim enrollment: %w", err)
	}
	if !claimed {
		return domain.RefundResult{}, ErrConflict("enrollment is not active")
	}

	paidCents, feeCents, refundCents := s.computeFee(item.Price)
	amount := float64(refundCents) / 100

	refundID, err := s.Payments.CreateRefund(o.PaymentIntentID, refundCents, map[string]string{
		"enrollment_id": e.ID,
		"product_id":    e.ProductID,
		"product_title": e.ProductTitle,
		"requested_by":  userID,
		"paid_cents":    fmt.Sprintf("%d", paidCents),
		"fee_cents":     fmt.Sprintf("%d", feeCents),
		"refund_amount": fmt.Sprintf("%.2f", amount),
	})
	if err != nil {
		if relErr := s.Enrollments.ReleaseEnrollmentRefund(ctx, e.ID, s.now()); relErr != nil {
			log.WithError(relErr).WithField("enrollment_id", e.ID).
				Error("failed to release refund claim after processor error")
		}
		return domain.RefundResult{}, ErrPayment(err.Error())
	}

	// Money has moved. Every remaining step logs on failure and continues;
	// a stale local record is an operator follow-up, not a user error.
	if err := s.Progress.Unenroll(ctx, o.CustomerEmail, e.EnrollID, string(e.ProductType)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"enrollment_id": e.ID,
			"enroll_id":     e.EnrollID,
			"refund_id":     refundID,
		}).Error("access revocation failed; needs manual follow-up")
	}

	o.RefundedItems = append(o.RefundedItems, domain.RefundedItem{
		ProductID:    e.ProductID,
		ProductType:  e.ProductType,
		ProductTitle: e.ProductTitle,
		RefundAmount: amount,
		RefundedAt:   now,
		EnrollmentID: e.ID,
	})
	total := 0.0
	for _, ri := range o.RefundedItems {
		total += ri.RefundAmount
	}
	o.RefundAmount = math.Round(total*100) / 100
	if len(o.RefundedItems) == len(o.PurchasedItems) {
		o.PaymentStatus = domain.PaymentRefunded
	} else {
		o.PaymentStatus = domain.PaymentPartiallyRefunded
	}
	o.RefundReason = reason
	o.RefundProcessor = "stripe"
	o.UpdatedAt = now
	if err := s.Orders.PutOrder(ctx, o); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"order_id":  o.ID,
			"refund_id": refundID,
		}).Error("order refund bookkeeping failed; needs manual follow-up")
	}

	if s.Mail != nil {
		if err := s.Mail.SendRefundProcessing(ctx, o.CustomerEmail, o.CustomerName, item.Title, amount, o.ID); err != nil {
			log.WithError(err).WithField("order_id", o.ID).Warn("refund notification email failed")
		}
	}

	return domain.RefundResult{RefundID: refundID, Amount: amount}, nil
}

// computeFee does the refund arithmetic in integer cents so repeated
// float64 rounding can never drift the charged amount.
func (s *RefundService) computeFee(price float64) (paidCents, feeCents, refundCents int64) {
	paidCents = int64(math.Round(price * 100))
	if s.Policy.ApplyProcessingFee {
		feeCents = int64(math.Round(float64(paidCents) * s.Policy.ProcessingFeePercent))
	}
	refundCents = paidCents - feeCents
	if refundCents < 0 {
		refundCents = 0
	}
	return paidCents, feeCents, refundCents
}
