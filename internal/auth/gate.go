// Package auth holds the request gates that protect routes: an authentication check on the
// session and an admin role check against the stored user record.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/library-service/internal/domain"
	"github.com/tazhibayda/library-service/internal/log"
	"github.com/tazhibayda/library-service/internal/metrics"
	"github.com/tazhibayda/library-service/internal/session"
	"go.uber.org/zap"
)

const CookieName = "library_sid"

const (
	ctxSessionID = "auth.session_id"
	ctxSession   = "auth.session"
	ctxTouched   = "auth.cookie_touched"
)

type UserLookup interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Gate struct {
	Sessions session.Store
	Users    UserLookup

	// CookieTTL, when set, re-issues the cookie on every allowed request so it slides with
	// the stored session.
	CookieTTL    time.Duration
	CookieSecure bool
}

func NewGate(sessions session.Store, users UserLookup) *Gate {
	return &Gate{Sessions: sessions, Users: users}
}

// Session returns the request's session, loading it from the cookie on first use.
// A missing cookie, unknown id or unreachable store all yield a nil session.
func (g *Gate) Session(c *gin.Context) (string, *session.Session) {
	if v, ok := c.Get(ctxSession); ok {
		s, _ := v.(*session.Session)
		return c.GetString(ctxSessionID), s
	}
	var (
		id   string
		sess *session.Session
	)
	if ck, err := c.Request.Cookie(CookieName); err == nil && ck.Value != "" {
		s, err := g.Sessions.Get(c.Request.Context(), ck.Value)
		switch {
		case err == nil:
			id, sess = ck.Value, s
		case !errors.Is(err, session.ErrNotFound):
			log.WithDD(c.Request.Context(), nil).Warn("session load failed", zap.Error(err))
		}
	}
	c.Set(ctxSessionID, id)
	c.Set(ctxSession, sess)
	return id, sess
}

// Forget drops the cached session so later reads see the store again.
func (g *Gate) Forget(c *gin.Context) {
	c.Set(ctxSessionID, "")
	c.Set(ctxSession, (*session.Session)(nil))
}

func (g *Gate) Authenticate(s *session.Session) Decision {
	if s == nil || !s.IsAuthenticated {
		return NotAuthenticated
	}
	return Authenticated
}

// Authorize decides whether the session's user is an admin. The role always comes from the
// store, never from the session, so demotions apply immediately.
func (g *Gate) Authorize(ctx context.Context, s *session.Session) (Decision, *domain.User, error) {
	email := s.Email()
	if email == "" {
		return NotAuthenticated, nil, nil
	}
	u, err := g.Users.FindUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return ForbiddenRole, nil, nil
	}
	if err != nil {
		return LookupFault, nil, err
	}
	if !u.IsAdmin() {
		return ForbiddenRole, u, nil
	}
	return AuthorizedAdmin, u, nil
}

// RequireSession lets the request through only with an authenticated session.
func (g *Gate) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, s := g.Session(c)
		d := g.Authenticate(s)
		metrics.GateDecisions.WithLabelValues(d.String()).Inc()
		if !d.Allowed() {
			deny(c, d, false, nil)
			return
		}
		g.touch(c)
		c.Next()
	}
}

// RequireAdmin lets the request through only when the session user is an admin.
// It can run on its own or after RequireSession.
func (g *Gate) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, s := g.Session(c)
		d, _, err := g.Authorize(c.Request.Context(), s)
		metrics.GateDecisions.WithLabelValues(d.String()).Inc()
		if !d.Allowed() {
			if d == LookupFault {
				log.WithDD(c.Request.Context(), nil).Error("admin lookup failed",
					zap.String("email", s.Email()), zap.Error(err))
			}
			deny(c, d, true, err)
			return
		}
		g.touch(c)
		c.Next()
	}
}

func (g *Gate) touch(c *gin.Context) {
	id := c.GetString(ctxSessionID)
	if id == "" || g.CookieTTL <= 0 || c.GetBool(ctxTouched) {
		return
	}
	c.Set(ctxTouched, true)
	SetCookie(c, id, int(g.CookieTTL/time.Second), g.CookieSecure)
}

// SetCookie issues or clears the session cookie. An empty id clears it.
func SetCookie(c *gin.Context, id string, maxAge int, secure bool) {
	if id == "" {
		maxAge = -1
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}
