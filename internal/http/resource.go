package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/library-service/internal/domain"
	"github.com/tazhibayda/library-service/internal/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Collection is the store surface a Resource needs; repo.Collection implements it.
type Collection[T any] interface {
	Find(ctx context.Context, filter bson.M) ([]T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	Insert(ctx context.Context, doc *T) error
	UpdateByID(ctx context.Context, id string, set bson.M) (*T, error)
	FindOneAndDelete(ctx context.Context, id string) (*T, error)
}

// Resource is the CRUD controller shared by books, users and reviews. T is the stored
// document and In the validated request body.
type Resource[T, In any] struct {
	Store Collection[T]
	// Param is the path parameter holding the document id.
	Param    string
	NotFound string
	Deleted  string

	// Filter builds the List query from the request; nil lists everything.
	Filter func(c *gin.Context) bson.M
	// Build turns a validated body into a new document.
	Build func(c *gin.Context, in *In) (*T, error)
	// Fields is the fixed field set an update writes.
	Fields func(c *gin.Context, in *In) (bson.M, error)
	// AfterDelete runs with the removed document.
	AfterDelete func(c *gin.Context, doc *T)
}

func (r *Resource[T, In]) List(c *gin.Context) {
	var filter bson.M
	if r.Filter != nil {
		filter = r.Filter(c)
	}
	docs, err := r.Store.Find(c.Request.Context(), filter)
	if err != nil {
		fault(c, "list failed", err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (r *Resource[T, In]) Get(c *gin.Context) {
	doc, err := r.Store.FindByID(c.Request.Context(), c.Param(r.Param))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": r.NotFound})
		return
	}
	if err != nil {
		fault(c, "get failed", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (r *Resource[T, In]) Create(c *gin.Context) {
	doc, err := r.Build(c, Body[In](c))
	if err != nil {
		fault(c, "build failed", err)
		return
	}
	if err := r.Store.Insert(c.Request.Context(), doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (r *Resource[T, In]) Update(c *gin.Context) {
	set, err := r.Fields(c, Body[In](c))
	if err != nil {
		fault(c, "build failed", err)
		return
	}
	doc, err := r.Store.UpdateByID(c.Request.Context(), c.Param(r.Param), set)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": r.NotFound})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (r *Resource[T, In]) Delete(c *gin.Context) {
	doc, err := r.Store.FindOneAndDelete(c.Request.Context(), c.Param(r.Param))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": r.NotFound})
		return
	}
	if err != nil {
		fault(c, "delete failed", err)
		return
	}
	if r.AfterDelete != nil {
		r.AfterDelete(c, doc)
	}
	c.JSON(http.StatusOK, gin.H{"message": r.Deleted})
}

// fault answers 500 with the underlying message and logs it.
func fault(c *gin.Context, what string, err error) {
	log.WithDD(c.Request.Context(), nil,
		zap.String("route", c.FullPath()),
		zap.String("request_id", c.GetString(ctxRequestID)),
	).Error(what, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
}
