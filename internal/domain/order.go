package domain

import "time"

type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentPaid              PaymentStatus = "paid"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

type PurchasedItem struct {
	ProductID    string      `json:"productId"`
	ProductType  ProductType `json:"productType"`
	Title        string      `json:"title"`
	Price        float64     `json:"price"`
	ValidityDays int         `json:"validityDays"`
}

type RefundedItem struct {
	ProductID    string      `json:"productId"`
	ProductType  ProductType `json:"productType"`
	ProductTitle string      `json:"productTitle"`
	RefundAmount float64     `json:"refundAmount"`
	RefundedAt   time.Time   `json:"refundedAt"`
	EnrollmentID string      `json:"enrollmentId"`
}

type Order struct {
	ID              string        `json:"id"`
	PaymentIntentID string        `json:"paymentIntentId"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	CustomerEmail   string        `json:"customerEmail"`
	CustomerName    string        `json:"customerName"`

	// PurchasedItems is fixed at order creation and immutable afterward.
	PurchasedItems []PurchasedItem `json:"purchasedItems"`
	PaidAt         time.Time       `json:"paidAt"`

	// RefundedItems grows by one entry per settled refund.
	RefundedItems   []RefundedItem `json:"refundedItems,omitempty"`
	RefundAmount    float64        `json:"refundAmount"`
	RefundReason    string         `json:"refundReason,omitempty"`
	RefundProcessor string         `json:"refundProcessor,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ItemByProductID locates a purchased line item.
func (o *Order) ItemByProductID(productID string) (PurchasedItem, bool) {
	for _, it := range o.PurchasedItems {
		if it.ProductID == productID {
			return it, true
		}
	}
	return PurchasedItem{}, false
}
