package stripepay

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/Durga812/new-web-app-sub001/internal/domain"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// Client wraps the Stripe SDK for the three things the storefront needs:
// checkout session creation, refund issuance, and webhook verification.
type Client struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("stripe secret key required")
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &Client{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}, nil
}

type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutSession opens a hosted payment page for the given items.
// The user id and product ids travel in session metadata so webhook
// fulfillment can map the payment back to an account and catalog entries.
func (c *Client) CreateCheckoutSession(userID, email string, items []domain.PurchasedItem) (CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	productIDs := make([]string, 0, len(items))
	for _, it := range items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(toCents(it.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(it.Title),
				},
			},
		})
		productIDs = append(productIDs, it.ProductID)
	}
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(email),
		SuccessURL:    stripe.String(c.successURL),
		CancelURL:     stripe.String(c.cancelURL),
		LineItems:     lineItems,
	}
	params.AddMetadata("user_id", userID)
	params.AddMetadata("product_ids", strings.Join(productIDs, ","))
	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, err
	}
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// CreateRefund issues a refund for amountCents against a payment intent.
// Metadata carries the audit trail that shows up on the Stripe dashboard.
func (c *Client) CreateRefund(paymentIntentID string, amountCents int64, metadata map[string]string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amountCents),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	r, err := c.api.Refunds.New(params)
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// WebhookEvent is the subset of a verified checkout.session.completed event
// that fulfillment needs.
type WebhookEvent struct {
	Type            string
	SessionID       string
	PaymentIntentID string
	CustomerEmail   string
	CustomerName    string
	UserID          string
	ProductIDs      []string
}

// VerifyWebhook checks the Stripe signature and decodes the event payload.
func (c *Client) VerifyWebhook(payload []byte, signature string) (WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return WebhookEvent{}, err
	}
	out := WebhookEvent{Type: string(event.Type)}
	if event.Type != "checkout.session.completed" {
		return out, nil
	}
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return WebhookEvent{}, err
	}
	out.SessionID = sess.ID
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	out.CustomerEmail = sess.CustomerEmail
	if sess.CustomerDetails != nil {
		if sess.CustomerDetails.Email != "" {
			out.CustomerEmail = sess.CustomerDetails.Email
		}
		out.CustomerName = sess.CustomerDetails.Name
	}
	out.UserID = sess.Metadata["user_id"]
	if ids := sess.Metadata["product_ids"]; ids != "" {
		out.ProductIDs = strings.Split(ids, ",")
	}
	return out, nil
}

func toCents(price float64) int64 {
	return int64(math.Round(price * 100))
}
