package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Durga812/new-web-app-sub001/internal/config"
	"github.com/Durga812/new-web-app-sub001/internal/domain"
	"github.com/Durga812/new-web-app-sub001/internal/infrastructure/repo"
)

type fakePayments struct {
	refundID string
	err      error
	calls    int

	gotPaymentIntent string
	gotAmountCents   int64
	gotMetadata      map[string]string
}

func (f *fakePayments) CreateRefund(paymentIntentID string, amountCents int64, metadata map[string]string) (string, error) {
	f.calls++
	f.gotPaymentIntent = paymentIntentID
	f.gotAmountCents = amountCents
	f.gotMetadata = metadata
	if f.err != nil {
		return "", f.err
	}
	return f.refundID, nil
}

type fakeMailer struct {
	refundMails   int
	purchaseMails int
	err           error
}

func (f *fakeMailer) SendRefundProcessing(_ context.Context, _, _, _ string, _ float64, _ string) error {
	f.refundMails++
	return f.err
}

func (f *fakeMailer) SendPurchaseConfirmation(_ context.Context, _, _, _ string, _ []string) error {
	f.purchaseMails++
	return f.err
}

// failingOrders simulates a store outage on the post-payment order update.
type failingOrders struct {
	*repo.MemoryRepo
}

func (f *failingOrders) PutOrder(_ context.Context, _ *domain.Order) error {
	return errors.New("store unavailable")
}

func newRefundService(store *repo.MemoryRepo, pay *fakePayments, prog *fakeProgress, mail *fakeMailer, policy config.RefundPolicy, now time.Time) *RefundService {
	s := &RefundService{
		Enrollments: store,
		Orders:      store,
		Payments:    pay,
		Progress:    prog,
		Policy:      policy,
		Now:         func() time.Time { return now },
	}
	if mail != nil {
		s.Mail = mail
	}
	return s
}

func TestComputeFee(t *testing.T) {
	cases := []struct {
		name       string
		price      float64
		apply      bool
		pct        float64
		wantPaid   int64
		wantFee    int64
		wantRefund int64
	}{
		{"five percent of 100", 100.00, true, 0.05, 10000, 500, 9500},
		{"fee disabled", 100.00, false, 0.05, 10000, 0, 10000},
		{"fee over one clamps to zero", 50.00, true, 1.5, 5000, 7500, 0},
		{"odd cents round half up", 19.99, true, 0.05, 1999, 100, 1899},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &RefundService{Policy: config.RefundPolicy{ApplyProcessingFee: tc.apply, ProcessingFeePercent: tc.pct}}
			paid, fee, refund := s.computeFee(tc.price)
			if paid != tc.wantPaid || fee != tc.wantFee || refund != tc.wantRefund {
				t.Fatalf("computeFee(%v) = (%d,%d,%d), want (%d,%d,%d)",
					tc.price, paid, fee, refund, tc.wantPaid, tc.wantFee, tc.wantRefund)
			}
		})
	}
}

func TestProcessRefund_Success(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := seedCourse(t, now, 10)
	pay := &fakePayments{refundID: "re_123"}
	prog := &fakeProgress{}
	mail := &fakeMailer{}
	svc := newRefundService(store, pay, prog, mail, testPolicy(), now)

	ctx := context.Background()
	res, err := svc.ProcessRefund(ctx, "user-1", "enr-1", "changed my mind")
	if err != nil {
		t.Fatalf("ProcessRefund error: %v", err)
	}
	if res.RefundID != "re_123" {
		t.Fatalf("refundId = %q, want re_123", res.RefundID)
	}
	if res.Amount != 95.00 {
		t.Fatalf("amount = %v, want 95.00 after 5%% fee", res.Amount)
	}
	if pay.gotPaymentIntent != "pi_123" || pay.gotAmountCents != 9500 {
		t.Fatalf("processor called with (%q,%d), want (pi_123,9500)", pay.gotPaymentIntent, pay.gotAmountCents)
	}
	if pay.gotMetadata["enrollment_id"] != "enr-1" {
		t.Fatalf("metadata missing enrollment id: %v", pay.gotMetadata)
	}

	e, _ := store.GetEnrollment(ctx, "enr-1")
	if e.Status != domain.EnrollmentRefunded {
		t.Fatalf("enrollment status = %s, want refunded", e.Status)
	}
	if e.RefundApprovedBy != "user-1" || e.RefundReason != "changed my mind" {
		t.Fatalf("audit fields = (%q,%q)", e.RefundApprovedBy, e.RefundReason)
	}
	if e.RefundApprovedAt == nil || !e.RefundApprovedAt.Equal(now) {
		t.Fatalf("refundApprovedAt = %v, want %v", e.RefundApprovedAt, now)
	}

	o, _ := store.GetOrder(ctx, "order-1")
	if len(o.RefundedItems) != 1 || o.RefundedItems[0].EnrollmentID != "enr-1" {
		t.Fatalf("refundedItems = %+v", o.RefundedItems)
	}
	if o.RefundAmount != 95.00 {
		t.Fatalf("order refundAmount = %v, want 95.00", o.RefundAmount)
	}
	if o.PaymentStatus != domain.PaymentRefunded {
		t.Fatalf("paymentStatus = %s, want refunded (single item fully refunded)", o.PaymentStatus)
	}
	if prog.unenrollCalls != 1 {
		t.Fatalf("unenroll calls = %d, want 1", prog.unenrollCalls)
	}
	if mail.refundMails != 1 {
		t.Fatalf("refund mails = %d, want 1", mail.refundMails)
	}
}

func TestProcessRefund_DefaultReason(t *testing.T) {
	now := time.Now().UTC()
	store := seedCourse(t, now, 1)
	svc := newRefundService(store, &fakePayments{refundID: "re_1"}, &fakeProgress{}, nil, testPolicy(), now)

	if _, err := svc.ProcessRefund(context.Background(), "user-1", "enr-1", "  "); err != nil {
		t.Fatalf("ProcessRefund error: %v", err)
	}
	e, _ := store.GetEnrollment(context.Background(), "enr-1")
	if e.RefundReason != defaultRefundReason {
		t.Fatalf("refundReason = %q, want default", e.RefundReason)
	}
}

func TestProcessRefund_PartialOrderRefund(t *testing.T) {
	now := time.Now().UTC()
	store := seedCourse(t, now, 1)
	ctx := context.Background()
	// Add a second purchased item so one refund is only partial.
	o, _ := store.GetOrder(ctx, "order-1")
	o.PurchasedItems = append(o.PurchasedItems, domain.PurchasedItem{
		ProductID: "course-b", ProductType: domain.ProductCourse, Title: "Interview Prep", Price: 80.00,
	})
	_ = store.PutOrder(ctx, o)

	svc := newRefundService(store, &fakePayments{refundID: "re_2"}, &fakeProgress{}, nil, testPolicy(), now)
	if _, err := svc.ProcessRefund(ctx, "user-1", "enr-1", ""); err != nil {
		t.Fatalf("ProcessRefund error: %v", err)
	}
	got, _ := store.GetOrder(ctx, "order-1")
	if got.PaymentStatus != domain.PaymentPartiallyRefunded {
		t.Fatalf("paymentStatus = %s, want partially_refunded", got.PaymentStatus)
	}
}

func TestProcessRefund_ProcessorFailureLeavesStateUntouched(t *testing.T) {
	now := time.Now().UTC()
	store := seedCourse(t, now, 1)
	pay := &fakePayments{err: errors.New("card network declined the refund")}
	svc := newRefundService(store, pay, &fakeProgress{}, &fakeMailer{}, testPolicy(), now)

	ctx := context.Background()
	_, err := svc.ProcessRefund(ctx, "user-1", "enr-1", "")
	var pe ErrPayment
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ErrPayment", err)
	}
	if !strings.Contains(pe.Error(), "declined") {
		t.Fatalf("payment error lost details: %q", pe.Error())
	}

	// The claim was released: the enrollment is refundable again.
	e, _ := store.GetEnrollment(ctx, "enr-1")
	if e.Status != domain.EnrollmentActive || e.RefundApprovedAt != nil {
		t.Fatalf("enrollment mutated after processor failure: %+v", e)
	}
	o, _ := store.GetOrder(ctx, "order-1")
	if len(o.RefundedItems) != 0 || o.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("order mutated after processor failure: %+v", o)
	}
}

func TestProcessRefund_ConcurrentClaimConflict(t *testing.T) {
	now := time.Now().UTC()
	store := seedCourse(t, now, 1)
	pay := &fakePayments{refundID: "re_3"}
	svc := newRefundService(store, pay, &fakeProgress{}, nil, testPolicy(), now)

	ctx := context.Background()
	if _, err := svc.ProcessRefund(ctx, "user-1", "enr-1", ""); err != nil {
		t.Fatalf("first refund: %v", err)
	}
	_, err := svc.ProcessRefund(ctx, "user-1", "enr-1", "")
	if !errors.As(err, new(ErrConflict)) {
		t.Fatalf("second refund: err = %v, want ErrConflict", err)
	}
	if pay.calls != 1 {
		t.Fatalf("processor calls = %d, want exactly 1", pay.calls)
	}
}

func TestProcessRefund_BestEffortOrderUpdateFailure(t *testing.T) {
	now := time.Now().UTC()
	store := seedCourse(t, now, 1)
	svc := newRefundService(store, &fakePayments{refundID: "re_4"}, &fakeProgress{}, nil, testPolicy(), now)
	svc.Orders = &failingOrders{store}

	res, err := svc.ProcessRefund(context.Background(), "user-1", "enr-1", "")
	if err != nil {
		t.Fatalf("order bookkeeping failure must not fail the refund: %v", err)
	}
	if res.RefundID != "re_4" || res.Amount != 95.00 {
		t.Fatalf("result = %+v", res)
	}
}

func TestProcessRefund_RevocationFailureStillSucceeds(t *testing.T) {
	now := time.Now().UTC()
	store := seedCourse(t, now, 1)
	prog := &fakeProgress{unenrollErr: errors.New("platform unavailable")}
	svc := newRefundService(store, &fakePayments{refundID: "re_5"}, prog, nil, testPolicy(), now)

	if _, err := svc.ProcessRefund(context.Background(), "user-1", "enr-1", ""); err != nil {
		t.Fatalf("revocation failure must not fail the refund: %v", err)
	}
}

func TestProcessRefund_ThenEligibilityRejects(t *testing.T) {
	now := time.Now().UTC()
	store := seedCourse(t, now, 1)
	refunds := newRefundService(store, &fakePayments{refundID: "re_6"}, &fakeProgress{}, nil, testPolicy(), now)
	eligibility := newEligibility(store, &fakeProgress{}, now, testPolicy())

	ctx := context.Background()
	if _, err := refunds.ProcessRefund(ctx, "user-1", "enr-1", ""); err != nil {
		t.Fatalf("ProcessRefund error: %v", err)
	}
	v, err := eligibility.CheckEligibility(ctx, "user-1", "enr-1")
	if err != nil {
		t.Fatalf("CheckEligibility error: %v", err)
	}
	if v.Eligible || !strings.Contains(v.Reason, "already been refunded") {
		t.Fatalf("verdict after refund = %+v, want already-refunded rejection", v)
	}
}

func TestProcessRefund_NotFound(t *testing.T) {
	now := time.Now().UTC()
	store := seedCourse(t, now, 1)
	svc := newRefundService(store, &fakePayments{}, &fakeProgress{}, nil, testPolicy(), now)

	ctx := context.Background()
	if _, err := svc.ProcessRefund(ctx, "user-1", "missing", ""); !errors.As(err, new(ErrNotFound)) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := svc.ProcessRefund(ctx, "user-2", "enr-1", ""); !errors.As(err, new(ErrNotFound)) {
		t.Fatalf("foreign enrollment err = %v, want ErrNotFound", err)
	}
}
