package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/library-service/internal/auth"
	"github.com/tazhibayda/library-service/internal/domain"
	"github.com/tazhibayda/library-service/internal/log"
	"github.com/tazhibayda/library-service/internal/oauth"
	"github.com/tazhibayda/library-service/internal/session"
	"go.uber.org/zap"
)

const msgAuthFailed = "Authentication failed"

var errStateMismatch = errors.New("oauth state mismatch")

func (h *Handler) cookieMaxAge() int { return int(h.SessionTTL / time.Second) }

func (h *Handler) authFailed(c *gin.Context, step string, err error) {
	log.WithDD(c.Request.Context(), nil,
		zap.String("step", step),
		zap.String("request_id", c.GetString(ctxRequestID)),
	).Error("oauth sign-in failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": msgAuthFailed})
}

// GoogleLogin godoc
// @Summary Start Google sign-in
// @Tags auth
// @Success 302
// @Failure 500 {object} map[string]string
// @Router /google [get]
func (h *Handler) GoogleLogin(c *gin.Context) {
	ctx := c.Request.Context()
	id, s := h.Gate.Session(c)
	if s == nil {
		var err error
		if id, s, err = h.Sessions.Create(ctx); err != nil {
			h.authFailed(c, "session", err)
			return
		}
		auth.SetCookie(c, id, h.cookieMaxAge(), h.CookieSecure)
	}

	raw, err := session.NewID()
	if err != nil {
		h.authFailed(c, "state", err)
		return
	}
	state := h.OAuth.MakeState(raw)
	url, err := h.OAuth.AuthURL(state)
	if err != nil {
		h.authFailed(c, "auth_url", err)
		return
	}
	s.OAuthState = state
	if err := h.Sessions.Save(ctx, id, s); err != nil {
		h.authFailed(c, "session", err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// GoogleCallback godoc
// @Summary Google OAuth redirect target
// @Tags auth
// @Param code query string true "authorization code"
// @Param state query string true "state issued by /google"
// @Success 302
// @Failure 500 {object} map[string]string
// @Router /api/session/oauth/google [get]
func (h *Handler) GoogleCallback(c *gin.Context) {
	ctx := c.Request.Context()
	id, s := h.Gate.Session(c)
	state := c.Query("state")
	if s == nil || s.OAuthState == "" || state != s.OAuthState || !h.OAuth.VerifyState(state) {
		h.authFailed(c, "state", errStateMismatch)
		return
	}

	var prof *oauth.Profile
	err := WithSpan(ctx, "oauth.google.exchange", func(ctx2 context.Context) error {
		tok, err := h.OAuth.Exchange(ctx2, c.Query("code"))
		if err != nil {
			return err
		}
		p, err := h.OAuth.FetchProfile(ctx2, tok)
		prof = p
		return err
	})
	if err != nil {
		h.authFailed(c, "exchange", err)
		return
	}

	// the pre-login id was handed out before authentication; sign in under a fresh one
	next, sess, err := h.Sessions.Create(ctx)
	if err != nil {
		h.authFailed(c, "session", err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(prof.Email))
	sess.IsAuthenticated = true
	sess.User = &session.User{
		Email:      email,
		GivenName:  prof.GivenName,
		FamilyName: prof.FamilyName,
	}
	if err := h.Sessions.Save(ctx, next, sess); err != nil {
		h.authFailed(c, "session", err)
		return
	}
	if err := h.Sessions.Destroy(ctx, id); err != nil {
		log.WithDD(ctx, nil).Warn("pre-login session destroy failed", zap.Error(err))
	}
	h.Gate.Forget(c)
	auth.SetCookie(c, next, h.cookieMaxAge(), h.CookieSecure)

	u, created, err := h.Accounts.EnsureOAuthUser(ctx, &domain.User{
		GoogleID: prof.ID,
		Email:    email,
		Name:     strings.TrimSpace(prof.GivenName + " " + prof.FamilyName),
		Role:     domain.RoleUser,
		Profile:  domain.Profile{FirstName: prof.GivenName, LastName: prof.FamilyName},
	})
	if err != nil {
		h.authFailed(c, "user", err)
		return
	}
	if created {
		log.WithDD(ctx, nil).Info("user created on first sign-in",
			zap.String("user_id", u.ID.Hex()), zap.String("email", u.Email))
	}
	c.Redirect(http.StatusFound, "/")
}

// Logout godoc
// @Summary Sign out
// @Tags auth
// @Success 302
// @Router /logout [get]
func (h *Handler) Logout(c *gin.Context) {
	if id, _ := h.Gate.Session(c); id != "" {
		if err := h.Sessions.Destroy(c.Request.Context(), id); err != nil {
			log.WithDD(c.Request.Context(), nil).Warn("session destroy failed", zap.Error(err))
		}
	}
	h.Gate.Forget(c)
	auth.SetCookie(c, "", 0, h.CookieSecure)
	c.Redirect(http.StatusFound, "/")
}
