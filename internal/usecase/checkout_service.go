package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Durga812/new-web-app-sub001/internal/domain"
	"github.com/Durga812/new-web-app-sub001/internal/infrastructure/stripepay"
)

// CheckoutClient creates hosted payment sessions at the processor.
type CheckoutClient interface {
	CreateCheckoutSession(userID, email string, items []domain.PurchasedItem) (stripepay.CheckoutSession, error)
}

type CartItem struct {
	ProductID string `json:"productId"`
}

// CheckoutService turns a cart into a payment session and, once the
// processor confirms payment, into an order with provisioned enrollments.
type CheckoutService struct {
	Products    ProductRepo
	Orders      OrderRepo
	Enrollments EnrollmentRepo
	Payments    CheckoutClient
	Learn       ProgressClient
	Mail        Mailer
	Now         func() time.Time
}

func (s *CheckoutService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// CreateSession validates the cart against the catalog and opens a checkout
// session. Prices always come from the stored products, never the client.
func (s *CheckoutService) CreateSession(ctx context.Context, userID, email string, cart []CartItem) (stripepay.CheckoutSession, error) {
	if len(cart) == 0 {
		return stripepay.CheckoutSession{}, ErrBadRequest("cart is empty")
	}
	items := make([]domain.PurchasedItem, 0, len(cart))
	for _, ci := range cart {
		p, ok := s.Products.GetProduct(ctx, ci.ProductID)
		if !ok {
			return stripepay.CheckoutSession{}, ErrNotFound("product " + ci.ProductID)
		}
		items = append(items, domain.PurchasedItem{
			ProductID:    p.ID,
			ProductType:  p.Type,
			Title:        p.Title,
			Price:        p.Price,
			ValidityDays: p.ValidityDays,
		})
	}
	return s.Payments.CreateCheckoutSession(userID, email, items)
}

// Fulfill handles a verified checkout.session.completed event: it records
// the paid order and provisions one enrollment per purchased item. A
// provisioning failure marks that enrollment's outcome as failure and moves
// on; the customer already paid, so fulfillment never aborts halfway.
//
// Stripe delivers events at least once, so the order is keyed on the session
// id and a redelivery of an already-fulfilled session is a no-op.
func (s *CheckoutService) Fulfill(ctx context.Context, ev stripepay.WebhookEvent) error {
	if ev.Type != "checkout.session.completed" {
		return nil
	}
	if ev.SessionID == "" || ev.PaymentIntentID == "" || len(ev.ProductIDs) == 0 {
		return ErrBadRequest("incomplete checkout event")
	}
	if _, ok := s.Orders.GetOrder(ctx, ev.SessionID); ok {
		log.WithField("session_id", ev.SessionID).Info("checkout session already fulfilled; ignoring redelivery")
		return nil
	}
	now := s.now()

	items := make([]domain.PurchasedItem, 0, len(ev.ProductIDs))
	for _, pid := range ev.ProductIDs {
		p, ok := s.Products.GetProduct(ctx, pid)
		if !ok {
			log.WithField("product_id", pid).Error("checkout event references unknown product")
			continue
		}
		items = append(items, domain.PurchasedItem{
			ProductID:    p.ID,
			ProductType:  p.Type,
			Title:        p.Title,
			Price:        p.Price,
			ValidityDays: p.ValidityDays,
		})
	}
	if len(items) == 0 {
		return ErrNotFound("purchased products")
	}

	order := &domain.Order{
		ID:              ev.SessionID,
		PaymentIntentID: ev.PaymentIntentID,
		PaymentStatus:   domain.PaymentPaid,
		CustomerEmail:   ev.CustomerEmail,
		CustomerName:    ev.CustomerName,
		PurchasedItems:  items,
		PaidAt:          now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Orders.PutOrder(ctx, order); err != nil {
		return err
	}

	titles := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.Title)
		e := &domain.Enrollment{
			ID:           uuid.NewString(),
			UserID:       ev.UserID,
			ProductID:    it.ProductID,
			ProductType:  it.ProductType,
			ProductTitle: it.Title,
			Status:       domain.EnrollmentActive,
			Outcome:      domain.EnrollSuccess,
			OrderID:      order.ID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		enrollID, err := s.Learn.Enroll(ctx, ev.CustomerEmail, ev.CustomerName, it.ProductID, string(it.ProductType))
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": it.ProductID,
			}).Error("learning platform enrollment failed")
			e.Outcome = domain.EnrollFailure
		} else {
			e.EnrollID = enrollID
		}
		if err := s.Enrollments.PutEnrollment(ctx, e); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": it.ProductID,
			}).Error("failed to persist enrollment")
		}
	}

	if s.Mail != nil {
		if err := s.Mail.SendPurchaseConfirmation(ctx, ev.CustomerEmail, ev.CustomerName, order.ID, titles); err != nil {
			log.WithError(err).WithField("order_id", order.ID).Warn("purchase confirmation email failed")
		}
	}
	return nil
}
