package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/library-service/internal/borrow"
	"github.com/tazhibayda/library-service/internal/domain"
)

const (
	msgBorrowNotFound = "Cannot find borrow record"
	msgNoCopies       = "No copies available"
)

// ListBorrows godoc
// @Summary List borrow records
// @Tags borrows
// @Produce json
// @Param userId query string false "filter by user"
// @Param bookId query string false "filter by book"
// @Success 200 {array} domain.Borrow
// @Failure 401 {object} map[string]string
// @Router /borrows [get]
func (h *Handler) ListBorrows(c *gin.Context) {
	out, err := h.Borrows.List(c.Request.Context(), borrow.Filter{
		UserID: c.Query("userId"),
		BookID: c.Query("bookId"),
	})
	if err != nil {
		fault(c, "list borrows failed", err)
		return
	}
	if out == nil {
		out = []domain.Borrow{}
	}
	c.JSON(http.StatusOK, out)
}

// CreateBorrow godoc
// @Summary Borrow a book
// @Tags borrows
// @Accept json
// @Produce json
// @Param payload body borrow.CreateInput true "book and user ids"
// @Success 201 {object} domain.Borrow
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /borrows [post]
func (h *Handler) CreateBorrow(c *gin.Context) {
	in := Body[borrow.CreateInput](c)
	b, err := h.Borrows.Create(c.Request.Context(), *in, c.GetString(ctxRequestID))
	var rej *borrow.RejectedError
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, b)
	case errors.Is(err, borrow.ErrMissingIDs):
		c.JSON(http.StatusBadRequest, gin.H{"message": borrow.MsgMissingIDs})
	case errors.Is(err, domain.ErrNoCopies):
		c.JSON(http.StatusConflict, gin.H{"message": msgNoCopies})
	case errors.As(err, &rej):
		c.JSON(http.StatusBadRequest, gin.H{"message": rej.Error()})
	default:
		fault(c, "create borrow failed", err)
	}
}

// UpdateBorrow godoc
// @Summary Change a borrow's status
// @Tags borrows
// @Accept json
// @Produce json
// @Param borrowId path string true "borrow id"
// @Param payload body statusInput true "new status"
// @Success 200 {object} domain.Borrow
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]any
// @Router /borrows/{borrowId} [put]
func (h *Handler) UpdateBorrow(c *gin.Context) {
	in := Body[statusInput](c)
	b, err := h.Borrows.Transition(c.Request.Context(), c.Param("borrowId"), in.Status, c.GetString(ctxRequestID))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, b)
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": msgBorrowNotFound})
	case errors.Is(err, domain.ErrAlreadyReturned):
		c.JSON(http.StatusConflict, gin.H{"message": "Borrow record already returned"})
	case errors.Is(err, domain.ErrNoCopies):
		c.JSON(http.StatusConflict, gin.H{"message": msgNoCopies})
	case errors.Is(err, borrow.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"message": "Borrow record changed, try again"})
	case errors.Is(err, borrow.ErrInvalidStatus):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": []map[string]string{{"status": messageFor("status")}}})
	default:
		fault(c, "update borrow failed", err)
	}
}

// DeleteBorrow godoc
// @Summary Delete a borrow record
// @Tags borrows
// @Produce json
// @Param borrowId path string true "borrow id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /borrows/{borrowId} [delete]
func (h *Handler) DeleteBorrow(c *gin.Context) {
	err := h.Borrows.Delete(c.Request.Context(), c.Param("borrowId"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Deleted Borrow Record"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": msgBorrowNotFound})
	default:
		fault(c, "delete borrow failed", err)
	}
}
