package handler

import (
	"embed"
	"html/template"
	"net/http"

	"credit-checkout/internal/infrastructure/payment"
	"credit-checkout/internal/ledger"
	"credit-checkout/internal/service"
	"credit-checkout/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

const sandboxPayPath = "/sandbox/pay"

// SandboxPayPath is where sandbox checkout URLs point.
func SandboxPayPath() string { return sandboxPayPath }

type Deps struct {
	Purchases      service.PurchaseService
	Sessions       session.Store
	SessionOptions session.Options
	Store          ledger.Store
	// Sandbox is set only when the in-memory gateway is active.
	Sandbox        *payment.SandboxGateway
	SiteURL        string
	LoginURL       string
	AllowedOrigins []string
	Log            *logrus.Logger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(d.Log))
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templateFS, "templates/*.html")))

	h := &storeHandler{
		purchases: d.Purchases,
		siteURL:   d.SiteURL,
		loginURL:  d.LoginURL,
		log:       d.Log.WithField("module", "handler"),
	}

	r.GET("/healthz", healthHandler(d.Store))

	api := r.Group("/api", cors.New(corsConfig(d.AllowedOrigins)))
	api.GET("/products", h.ListProductsJSON)

	web := r.Group("/", session.Middleware(d.Sessions, d.SessionOptions, d.Log))
	web.GET("/", h.Home)
	web.GET("/cancel", h.Cancel)

	auth := web.Group("/", session.RequireLogin(d.LoginURL))
	auth.GET("/store", h.Store)
	auth.GET("/checkout/:product_id", h.Checkout)
	auth.GET("/success", h.Success)

	if d.Sandbox != nil {
		r.GET(sandboxPayPath+"/:reference", sandboxPayHandler(d.Sandbox))
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodOptions}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
