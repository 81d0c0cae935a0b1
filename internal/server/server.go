package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/Durga812/new-web-app-sub001/internal/domain"
	"github.com/Durga812/new-web-app-sub001/internal/infrastructure/stripepay"
	"github.com/Durga812/new-web-app-sub001/internal/usecase"
)

// WebhookVerifier checks a processor webhook's signature and decodes it.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) (stripepay.WebhookEvent, error)
}

type Server struct {
	Auth        *usecase.AuthService
	Eligibility *usecase.EligibilityService
	Refunds     *usecase.RefundService
	Checkout    *usecase.CheckoutService
	Enrollments usecase.EnrollmentRepo
	Products    usecase.ProductRepo
	Webhooks    WebhookVerifier

	engine *gin.Engine
}

func New(s *Server) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), cors())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/catalog/products", s.handleListProducts)
	r.GET("/catalog/products/:id", s.handleGetProduct)
	r.POST("/webhooks/stripe", s.handleStripeWebhook)

	authed := r.Group("/", s.requireUser())
	authed.POST("/checkout/session", s.handleCreateCheckoutSession)
	authed.GET("/me/enrollments", s.handleMyEnrollments)
	authed.POST("/refunds/check-eligibility", s.handleCheckEligibility)
	authed.POST("/refunds/process", s.handleProcessRefund)

	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleListProducts(c *gin.Context) {
	ptype := domain.ProductType(c.Query("type"))
	if ptype != "" && !ptype.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be course or bundle"})
		return
	}
	products, err := s.Products.ListProducts(c.Request.Context(), ptype)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (s *Server) handleGetProduct(c *gin.Context) {
	p, ok := s.Products.GetProduct(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

type checkoutSessionBody struct {
	Items []usecase.CartItem `json:"items" binding:"required"`
}

func (s *Server) handleCreateCheckoutSession(c *gin.Context) {
	var body checkoutSessionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := s.Checkout.CreateSession(c.Request.Context(), userID(c), userEmail(c), body.Items)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sess.ID, "url": sess.URL})
}

func (s *Server) handleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}
	ev, err := s.Webhooks.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}
	if err := s.Checkout.Fulfill(c.Request.Context(), ev); err != nil {
		log.WithError(err).WithField("session_id", ev.SessionID).Error("webhook fulfillment failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fulfillment failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) handleMyEnrollments(c *gin.Context) {
	list, err := s.Enrollments.ListEnrollmentsByUser(c.Request.Context(), userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list enrollments"})
		return
	}
	if list == nil {
		list = []domain.Enrollment{}
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": list})
}

type refundBody struct {
	EnrollmentID string `json:"enrollmentId"`
	RefundReason string `json:"refundReason"`
}

func (s *Server) handleCheckEligibility(c *gin.Context) {
	var body refundBody
	if err := c.ShouldBindJSON(&body); err != nil || body.EnrollmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enrollmentId required"})
		return
	}
	verdict, err := s.Eligibility.CheckEligibility(c.Request.Context(), userID(c), body.EnrollmentID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (s *Server) handleProcessRefund(c *gin.Context) {
	var body refundBody
	if err := c.ShouldBindJSON(&body); err != nil || body.EnrollmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enrollmentId required"})
		return
	}
	res, err := s.Refunds.ProcessRefund(c.Request.Context(), userID(c), body.EnrollmentID, body.RefundReason)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "refundId": res.RefundID, "amount": res.Amount})
}

// fail maps usecase errors onto the HTTP taxonomy.
func (s *Server) fail(c *gin.Context, err error) {
	var nf usecase.ErrNotFound
	var br usecase.ErrBadRequest
	var cf usecase.ErrConflict
	var pay usecase.ErrPayment
	switch {
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &br):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &cf):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &pay):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Refund processing failed", "details": err.Error()})
	default:
		log.WithError(err).Error("unhandled request error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
