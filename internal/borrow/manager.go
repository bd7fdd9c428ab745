// Package borrow owns the lifecycle of a loan: creation with a fixed loan period, the
// borrowed -> returned transition and the copies-available bookkeeping that goes with it.
package borrow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tazhibayda/library-service/internal/domain"
	"github.com/tazhibayda/library-service/internal/log"
	"github.com/tazhibayda/library-service/internal/metrics"
	"github.com/tazhibayda/library-service/internal/queue"
	"go.uber.org/zap"
)

// MsgMissingIDs is the client-facing message for ErrMissingIDs.
const MsgMissingIDs = "Book ID and User ID are required."

var (
	ErrMissingIDs       = errors.New("book id and user id are required")
	ErrInvalidStatus    = errors.New("invalid borrow status")
	// ErrConcurrentUpdate means the record kept changing under a permissive overwrite.
	ErrConcurrentUpdate = errors.New("borrow record changed concurrently")
)

const maxOverwriteAttempts = 3

// RejectedError wraps a store rejection of a write. It is the client's problem (usually a
// malformed reference), not a server fault.
type RejectedError struct{ Err error }

func (e *RejectedError) Error() string { return e.Err.Error() }
func (e *RejectedError) Unwrap() error { return e.Err }

type Repository interface {
	InsertBorrow(ctx context.Context, b *domain.Borrow) error
	FindBorrow(ctx context.Context, id string) (*domain.Borrow, error)
	DeleteBorrow(ctx context.Context, id string) (*domain.Borrow, error)
	ListBorrows(ctx context.Context, userID, bookID string) ([]domain.Borrow, error)
	TransitionBorrow(ctx context.Context, id string, from *domain.BorrowStatus, to domain.BorrowStatus, now time.Time) (*domain.Borrow, error)
}

type Inventory interface {
	ReserveCopy(ctx context.Context, bookID string) (*domain.Book, error)
	ReleaseCopy(ctx context.Context, bookID string) error
}

type Options struct {
	// Strict enforces borrowed -> returned only. When false any status may overwrite any other.
	Strict   bool
	Exchange string
	Now      func() time.Time
}

type Manager struct {
	repo     Repository
	books    Inventory
	events   queue.Publisher
	strict   bool
	exchange string
	now      func() time.Time
}

func NewManager(repo Repository, books Inventory, events queue.Publisher, opt Options) *Manager {
	if events == nil {
		events = queue.NewNoop()
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	return &Manager{
		repo:     repo,
		books:    books,
		events:   events,
		strict:   opt.Strict,
		exchange: opt.Exchange,
		now:      opt.Now,
	}
}

type CreateInput struct {
	BookID string `json:"bookId"`
	UserID string `json:"userId"`
}

// Create opens a loan. When the book is in the catalog one copy is reserved first; a book
// with no copies left yields domain.ErrNoCopies. Unknown book ids are stored as given.
func (m *Manager) Create(ctx context.Context, in CreateInput, reqID string) (*domain.Borrow, error) {
	in.BookID = strings.TrimSpace(in.BookID)
	in.UserID = strings.TrimSpace(in.UserID)
	if in.BookID == "" || in.UserID == "" {
		return nil, ErrMissingIDs
	}

	reserved := false
	switch _, err := m.books.ReserveCopy(ctx, in.BookID); {
	case err == nil:
		reserved = true
	case errors.Is(err, domain.ErrNotFound):
	case errors.Is(err, domain.ErrNoCopies):
		return nil, err
	default:
		return nil, fmt.Errorf("reserve copy: %w", err)
	}

	b := domain.NewBorrow(in.BookID, in.UserID, m.now())
	if err := m.repo.InsertBorrow(ctx, b); err != nil {
		if reserved {
			m.release(ctx, b.BookID)
		}
		return nil, &RejectedError{Err: err}
	}

	metrics.BorrowEvents.WithLabelValues(queue.KeyBorrowCreated).Inc()
	m.publish(ctx, queue.KeyBorrowCreated, queue.BorrowCreated{
		BorrowID: b.ID.Hex(), BookID: b.BookID, UserID: b.UserID, DueDate: b.DueDate,
	}, reqID)
	return b, nil
}

// Transition applies a status update and returns the record as stored afterwards.
func (m *Manager) Transition(ctx context.Context, id string, to domain.BorrowStatus, reqID string) (*domain.Borrow, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}
	if !m.strict {
		return m.overwrite(ctx, id, to, reqID)
	}

	if to == domain.StatusReturned {
		from := domain.StatusBorrowed
		b, err := m.repo.TransitionBorrow(ctx, id, &from, to, m.now())
		if err == nil {
			m.returned(ctx, b, reqID)
			return b, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		// nothing in "borrowed" matched: either no such record or already returned
		return m.repo.FindBorrow(ctx, id)
	}

	cur, err := m.repo.FindBorrow(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Status == domain.StatusReturned {
		return nil, domain.ErrAlreadyReturned
	}
	return cur, nil
}

// overwrite is the permissive mode: any status may replace any other. The write is
// conditioned on the status it was read with so the copies count moves exactly once per
// change; a lost race re-reads and tries again.
func (m *Manager) overwrite(ctx context.Context, id string, to domain.BorrowStatus, reqID string) (*domain.Borrow, error) {
	for attempt := 0; attempt < maxOverwriteAttempts; attempt++ {
		cur, err := m.repo.FindBorrow(ctx, id)
		if err != nil {
			return nil, err
		}
		reborrow := cur.Status == domain.StatusReturned && to == domain.StatusBorrowed
		reserved := false
		if reborrow {
			switch _, err := m.books.ReserveCopy(ctx, cur.BookID); {
			case err == nil:
				reserved = true
			case errors.Is(err, domain.ErrNotFound):
			case errors.Is(err, domain.ErrNoCopies):
				return nil, err
			default:
				return nil, fmt.Errorf("reserve copy: %w", err)
			}
		}

		from := cur.Status
		b, err := m.repo.TransitionBorrow(ctx, id, &from, to, m.now())
		if err != nil {
			if reserved {
				m.release(ctx, cur.BookID)
			}
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if cur.Status == domain.StatusBorrowed && to == domain.StatusReturned {
			m.returned(ctx, b, reqID)
		}
		return b, nil
	}
	return nil, fmt.Errorf("borrow %s: %w", id, ErrConcurrentUpdate)
}

// Delete removes a record; a loan still out gives its copy back.
func (m *Manager) Delete(ctx context.Context, id string) error {
	b, err := m.repo.DeleteBorrow(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == domain.StatusBorrowed {
		m.release(ctx, b.BookID)
	}
	metrics.BorrowEvents.WithLabelValues("borrow.deleted").Inc()
	return nil
}

type Filter struct {
	UserID string
	BookID string
}

func (m *Manager) List(ctx context.Context, f Filter) ([]domain.Borrow, error) {
	return m.repo.ListBorrows(ctx, f.UserID, f.BookID)
}

func (m *Manager) returned(ctx context.Context, b *domain.Borrow, reqID string) {
	m.release(ctx, b.BookID)
	metrics.BorrowEvents.WithLabelValues(queue.KeyBorrowReturned).Inc()
	ev := queue.BorrowReturned{BorrowID: b.ID.Hex(), BookID: b.BookID, UserID: b.UserID}
	if b.ReturnedAt != nil {
		ev.ReturnedAt = *b.ReturnedAt
	}
	m.publish(ctx, queue.KeyBorrowReturned, ev, reqID)
}

func (m *Manager) release(ctx context.Context, bookID string) {
	if err := m.books.ReleaseCopy(ctx, bookID); err != nil {
		log.WithDD(ctx, nil).Warn("release copy failed", zap.String("book_id", bookID), zap.Error(err))
	}
}

func (m *Manager) publish(ctx context.Context, key string, ev any, reqID string) {
	if err := m.events.Publish(ctx, m.exchange, key, ev, reqID); err != nil {
		log.WithDD(ctx, nil).Warn("publish event failed", zap.String("key", key), zap.Error(err))
	}
}
