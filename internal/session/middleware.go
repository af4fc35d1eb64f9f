package session

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	contextKey = "session"
	commitKey  = "session.commit"
)

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Middleware loads the session named by the cookie (creating a fresh one when
// absent) and saves it after the handler chain if it changed. Saving also
// renews the cookie lifetime to match the store TTL. A store error on load
// answers 503 instead of starting an anonymous session.
func Middleware(store Store, opts Options, log *logrus.Logger) gin.HandlerFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var s *Session
		if id, err := c.Cookie(opts.CookieName); err == nil && id != "" {
			loaded, err := store.Load(ctx, id)
			if err != nil {
				// A fresh session here would sign the user out.
				log.WithError(err).WithField("module", "session").Error("session load failed")
				c.String(http.StatusServiceUnavailable, "session store unavailable")
				c.Abort()
				return
			}
			s = loaded
		}
		isNew := s == nil
		if isNew {
			s = &Session{ID: uuid.NewString()}
		}

		// The cookie can only be (re)issued before the response is written.
		cookieIssued := false
		issueCookie := func() {
			if cookieIssued || c.Writer.Written() {
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(opts.CookieName, s.ID, int(opts.TTL.Seconds()), "/", "", opts.Secure, true)
			cookieIssued = true
		}
		if isNew {
			issueCookie()
		}

		commit := func() error {
			if !s.Dirty() {
				return nil
			}
			issueCookie()
			return store.Save(ctx, s, opts.TTL)
		}
		c.Set(contextKey, s)
		c.Set(commitKey, commit)

		c.Next()

		if err := commit(); err != nil {
			log.WithError(err).WithField("module", "session").Error("session save failed")
		}
	}
}

// FromContext returns the request session. It never returns nil inside a
// chain that ran Middleware.
func FromContext(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return &Session{ID: uuid.NewString()}
}

// Commit saves the request session now instead of after the handler chain.
// Handlers call it before redirecting so the next request sees the change.
func Commit(c *gin.Context) error {
	if v, ok := c.Get(commitKey); ok {
		if fn, ok := v.(func() error); ok {
			return fn()
		}
	}
	return nil
}

// RequireLogin sends visitors without an email in their session to loginURL,
// passing the original path as next.
func RequireLogin(loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if FromContext(c).Email != "" {
			c.Next()
			return
		}
		target := loginURL + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}
