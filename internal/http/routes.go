package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/tazhibayda/library-service/internal/borrow"
	"github.com/tazhibayda/library-service/internal/metrics"
)

func NewRouter(h *Handler) *gin.Engine {
	metrics.MustRegister()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Trace("library-api"))
	r.Use(AccessLog())
	r.Use(metrics.Middleware())
	if len(h.CORSOrigins) > 0 {
		r.Use(CORS(h.CORSOrigins))
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	session := h.Gate.RequireSession()
	admin := h.Gate.RequireAdmin()
	limit := RateLimit(h.Limiter)

	r.GET("/google", limit, h.GoogleLogin)
	r.GET("/api/session/oauth/google", limit, h.GoogleCallback)
	r.GET("/logout", h.Logout)

	r.GET("/books", session, h.books.List)
	r.POST("/books", Validate[bookInput](), h.books.Create)
	r.GET("/books/:bookId", session, h.books.Get)
	r.PUT("/books/:bookId", admin, Validate[bookInput](), h.books.Update)
	r.DELETE("/books/:bookId", admin, h.books.Delete)

	r.GET("/books/:bookId/reviews", session, h.reviews.List)
	r.POST("/books/:bookId/reviews", session, Validate[reviewInput](), h.reviews.Create)
	r.PUT("/reviews/:reviewId", session, Validate[reviewInput](), h.reviews.Update)
	r.DELETE("/reviews/:reviewId", session, h.reviews.Delete)

	r.GET("/borrows", session, h.ListBorrows)
	r.POST("/borrows", session, Validate[borrow.CreateInput](), h.CreateBorrow)
	r.PUT("/borrows/:borrowId", admin, Validate[statusInput](), h.UpdateBorrow)
	r.DELETE("/borrows/:borrowId", admin, h.DeleteBorrow)

	users := r.Group("/users", session, admin)
	{
		users.GET("", h.users.List)
		users.POST("", Validate[userInput](), h.users.Create)
		users.GET("/:userId", h.users.Get)
		users.PUT("/:userId", Validate[userInput](), h.users.Update)
		users.DELETE("/:userId", h.users.Delete)
	}
	return r
}
