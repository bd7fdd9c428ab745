package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Decision is the outcome of a gate check. Every value maps to exactly one response.
type Decision int

const (
	Authenticated Decision = iota
	NotAuthenticated
	AuthorizedAdmin
	ForbiddenRole
	LookupFault
)

const (
	MsgLoginRequired   = "Authentication required, please log in using /google"
	MsgSessionRequired = "Session required"
	MsgForbidden       = "Forbidden: admin role required"
)

func (d Decision) String() string {
	switch d {
	case Authenticated:
		return "authenticated"
	case NotAuthenticated:
		return "not_authenticated"
	case AuthorizedAdmin:
		return "authorized_admin"
	case ForbiddenRole:
		return "forbidden_role"
	case LookupFault:
		return "lookup_fault"
	}
	return "unknown"
}

// Allowed reports whether the request may continue.
func (d Decision) Allowed() bool { return d == Authenticated || d == AuthorizedAdmin }

// deny aborts c with the response documented for d. roleCheck selects the role gate's
// rendering of NotAuthenticated, which is a fault rather than a 401.
func deny(c *gin.Context, d Decision, roleCheck bool, err error) {
	switch d {
	case NotAuthenticated:
		if roleCheck {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"message": MsgSessionRequired,
				"error":   "no authenticated session user",
			})
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": MsgLoginRequired})
	case ForbiddenRole:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": MsgForbidden})
	case LookupFault:
		msg := "user lookup failed"
		if err != nil {
			msg = err.Error()
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": msg})
	}
}
