package handler

import (
	"net/http"

	"credit-checkout/internal/infrastructure/payment"
	"credit-checkout/internal/ledger"

	"github.com/gin-gonic/gin"
)

func healthHandler(store ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := store.Health(c.Request.Context())
		code := http.StatusOK
		if stats["status"] != "up" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, stats)
	}
}

// sandboxPayHandler stands in for the hosted checkout page: it approves the
// payment and sends the purchaser to the callback.
func sandboxPayHandler(g *payment.SandboxGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		callback, ok := g.Complete(c.Param("reference"))
		if !ok {
			c.String(http.StatusNotFound, "unknown transaction reference")
			return
		}
		c.Redirect(http.StatusFound, callback)
	}
}
