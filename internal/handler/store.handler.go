package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"credit-checkout/internal/domain"
	"credit-checkout/internal/service"
	"credit-checkout/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	homePath  = "/"
	storePath = "/store"
)

type storeHandler struct {
	purchases service.PurchaseService
	siteURL   string
	loginURL  string
	log       *logrus.Entry
}

type productView struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	AmountSubunit int64  `json:"amount_subunit"`
	Credits       int64  `json:"credits"`
}

func toProductViews(products []domain.Product) []productView {
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, productView{
			ID:            p.ID,
			Name:          p.Name,
			Price:         p.Price.StringFixed(2),
			AmountSubunit: p.SubunitAmount(),
			Credits:       p.Credits,
		})
	}
	return out
}

func (h *storeHandler) Home(c *gin.Context) {
	sess := session.FromContext(c)
	var balance int64
	if sess.Email != "" {
		b, err := h.purchases.Balance(c.Request.Context(), sess.Email)
		if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
			h.log.WithError(err).Warn("balance lookup failed")
		}
		balance = b
	}
	c.HTML(http.StatusOK, "home.html", gin.H{
		"Email":    sess.Email,
		"Credits":  balance,
		"Flashes":  sess.PopFlashes(),
		"LoginURL": h.loginURL,
	})
}

func (h *storeHandler) Store(c *gin.Context) {
	c.HTML(http.StatusOK, "store.html", gin.H{
		"Products": toProductViews(h.purchases.ListProducts()),
	})
}

func (h *storeHandler) ListProductsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": toProductViews(h.purchases.ListProducts())})
}

func (h *storeHandler) Checkout(c *gin.Context) {
	sess := session.FromContext(c)

	// A non-numeric id is just another unknown product.
	productID, _ := strconv.Atoi(c.Param("product_id"))

	checkout, err := h.purchases.Initiate(c.Request.Context(), service.InitiateInput{
		Email:       sess.Email,
		ProductID:   productID,
		CallbackURL: h.absoluteURL(c, "/success"),
	})
	if err != nil {
		target := homePath
		if errors.Is(err, domain.ErrUnknownProduct) {
			target = storePath
		}
		h.redirectWithFlash(c, target, session.FlashDanger, initiateMessage(err))
		return
	}

	sess.SetPendingReference(checkout.Reference)
	h.redirect(c, checkout.AuthorizationURL)
}

func (h *storeHandler) Success(c *gin.Context) {
	sess := session.FromContext(c)
	pending := sess.TakePendingReference()

	reference := c.Query("reference")
	if reference == "" {
		reference = pending
	}

	receipt, err := h.purchases.Verify(c.Request.Context(), reference)
	if err != nil {
		category := session.FlashDanger
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			category = session.FlashInfo
		}
		h.redirectWithFlash(c, homePath, category, verifyMessage(err))
		return
	}

	h.log.WithFields(logrus.Fields{
		"operation": "verify",
		"reference": receipt.Reference,
		"credits":   receipt.Credits,
		"outcome":   "credited",
	}).Info("purchase completed")
	h.redirectWithFlash(c, homePath, session.FlashSuccess, "Success! Your account has been credited.")
}

func (h *storeHandler) Cancel(c *gin.Context) {
	sess := session.FromContext(c)
	sess.TakePendingReference()
	h.redirectWithFlash(c, homePath, session.FlashInfo, "Payment cancelled. No charge was made.")
}

func (h *storeHandler) redirectWithFlash(c *gin.Context, target, category, message string) {
	session.FromContext(c).AddFlash(category, message)
	h.redirect(c, target)
}

// redirect persists the session first so the follow-up request sees it.
func (h *storeHandler) redirect(c *gin.Context, target string) {
	if err := session.Commit(c); err != nil {
		h.log.WithError(err).Error("session save failed")
	}
	c.Redirect(http.StatusFound, target)
}

func (h *storeHandler) absoluteURL(c *gin.Context, path string) string {
	if h.siteURL != "" {
		return strings.TrimRight(h.siteURL, "/") + path
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + path
}

func initiateMessage(err error) string {
	var gwErr *domain.GatewayError
	switch {
	case errors.Is(err, domain.ErrUnknownProduct):
		return "Invalid product selected."
	case errors.Is(err, domain.ErrMissingEmail):
		return "User session error: Email not found."
	case errors.Is(err, domain.ErrGatewayNotConfigured):
		return "Payment gateway not configured correctly."
	case errors.As(err, &gwErr):
		return "Payment initiation failed: " + gwErr.Message
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return "Could not connect to payment gateway."
	default:
		return "Payment initiation failed: Unknown API Error"
	}
}

func verifyMessage(err error) string {
	var failed *domain.PaymentFailedError
	switch {
	case errors.Is(err, domain.ErrMissingReference):
		return "Payment verification failed: No transaction reference found."
	case errors.As(err, &failed):
		return fmt.Sprintf("Payment failed: %s. Please try again or contact support with reference: %s", failed.Status, failed.Reference)
	case errors.Is(err, domain.ErrAlreadyProcessed):
		return "This payment has already been applied to your account."
	case errors.Is(err, domain.ErrGatewayNotConfigured):
		return "Payment gateway not configured correctly."
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return "Failed to verify payment with the gateway due to a connection error."
	default:
		return "An internal error occurred during payment verification."
	}
}
