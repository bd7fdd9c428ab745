package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/library-service/internal/auth"
	"github.com/tazhibayda/library-service/internal/borrow"
	"github.com/tazhibayda/library-service/internal/domain"
	"github.com/tazhibayda/library-service/internal/log"
	"github.com/tazhibayda/library-service/internal/oauth"
	"github.com/tazhibayda/library-service/internal/security"
	"github.com/tazhibayda/library-service/internal/session"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Accounts is the user lookup the sign-in flow and the gate need.
type Accounts interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	EnsureOAuthUser(ctx context.Context, u *domain.User) (*domain.User, bool, error)
}

// Check is one dependency probed by /healthz.
type Check func(ctx context.Context) error

type Deps struct {
	Books    Collection[domain.Book]
	Users    Collection[domain.User]
	Reviews  Collection[domain.Review]
	Accounts Accounts
	Borrows  *borrow.Manager
	Sessions session.Store
	OAuth    oauth.Provider
	Limiter  Limiter

	SessionTTL      time.Duration
	CookieSecure    bool
	CORSOrigins     []string
	RateLimitPerMin int
	Health          map[string]Check
}

type Handler struct {
	Deps
	Gate *auth.Gate

	books   *Resource[domain.Book, bookInput]
	users   *Resource[domain.User, userInput]
	reviews *Resource[domain.Review, reviewInput]
}

func NewHandler(d Deps) *Handler {
	if d.Limiter == nil {
		d.Limiter = NewRateLimiter(d.RateLimitPerMin, time.Minute)
	}
	h := &Handler{Deps: d, Gate: auth.NewGate(d.Sessions, d.Accounts)}
	h.Gate.CookieTTL = d.SessionTTL
	h.Gate.CookieSecure = d.CookieSecure

	h.books = &Resource[domain.Book, bookInput]{
		Store:    d.Books,
		Param:    "bookId",
		NotFound: "Book not found",
		Deleted:  "Book deleted successfully",
		Filter: func(c *gin.Context) bson.M {
			if a := c.Query("author"); a != "" {
				return bson.M{"author": a}
			}
			return nil
		},
		Build:  func(_ *gin.Context, in *bookInput) (*domain.Book, error) { return in.book(), nil },
		Fields: func(_ *gin.Context, in *bookInput) (bson.M, error) { return in.set(), nil },
	}

	h.users = &Resource[domain.User, userInput]{
		Store:    d.Users,
		Param:    "userId",
		NotFound: "Cannot find user",
		Deleted:  "Deleted User",
		Filter: func(c *gin.Context) bson.M {
			if e := c.Query("email"); e != "" {
				return bson.M{"email": strings.ToLower(strings.TrimSpace(e))}
			}
			return nil
		},
		Build:       h.buildUser,
		Fields:      h.userFields,
		AfterDelete: h.revokeSessions,
	}

	h.reviews = &Resource[domain.Review, reviewInput]{
		Store:    d.Reviews,
		Param:    "reviewId",
		NotFound: "Cannot find review",
		Deleted:  "Deleted Review",
		Filter: func(c *gin.Context) bson.M {
			return bson.M{"book_id": c.Param("bookId")}
		},
		Build: h.buildReview,
		Fields: func(_ *gin.Context, in *reviewInput) (bson.M, error) {
			return bson.M{"rating": *in.Rating, "comment": strings.TrimSpace(in.Comment)}, nil
		},
	}
	return h
}

func (h *Handler) buildUser(_ *gin.Context, in *userInput) (*domain.User, error) {
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	ts := now()
	return &domain.User{
		GoogleID:     strings.TrimSpace(in.GoogleID),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         in.displayName(),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Role:         role,
		Profile:      in.profile(),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}, nil
}

func (h *Handler) userFields(_ *gin.Context, in *userInput) (bson.M, error) {
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	set := bson.M{
		"google_id":     strings.TrimSpace(in.GoogleID),
		"email":         strings.ToLower(strings.TrimSpace(in.Email)),
		"name":          in.displayName(),
		"username":      strings.TrimSpace(in.Username),
		"password_hash": hash,
		"profile":       in.profile(),
		"updated_at":    now(),
	}
	if in.Role != "" {
		set["role"] = in.Role
	}
	return set, nil
}

// revokeSessions logs a deleted user out everywhere.
func (h *Handler) revokeSessions(c *gin.Context, u *domain.User) {
	if err := h.Sessions.RevokeUser(c.Request.Context(), u.Email); err != nil {
		log.WithDD(c.Request.Context(), nil).Warn("revoke sessions failed",
			zap.String("email", u.Email), zap.Error(err))
	}
}

// buildReview takes the book from the path and the author from the session.
func (h *Handler) buildReview(c *gin.Context, in *reviewInput) (*domain.Review, error) {
	_, s := h.Gate.Session(c)
	userID := s.Email()
	u, err := h.Accounts.FindUserByEmail(c.Request.Context(), userID)
	if err == nil {
		userID = u.ID.Hex()
	}
	return &domain.Review{
		BookID:     c.Param("bookId"),
		UserID:     userID,
		Rating:     *in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
		ReviewDate: now(),
	}, nil
}

// Healthz godoc
// @Summary Liveness and dependency check
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	checks := gin.H{}
	for name, check := range h.Health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
