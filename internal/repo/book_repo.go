package repo

import (
	"context"
	"errors"

	"github.com/tazhibayda/library-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
)

// ReserveCopy takes one copy of the book off the shelf. The decrement only applies while
// copies_available > 0, so the counter can never go negative.
func (s *Store) ReserveCopy(ctx context.Context, bookID string) (*domain.Book, error) {
	oid, err := objectID(bookID)
	if err != nil {
		return nil, err
	}
	b, err := s.Books.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "copies_available": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"copies_available": -1}},
	)
	if !errors.Is(err, domain.ErrNotFound) {
		return b, err
	}
	if _, err := s.Books.FindOne(ctx, bson.M{"_id": oid}); err != nil {
		return nil, err
	}
	return nil, domain.ErrNoCopies
}

// ReleaseCopy puts one copy back. Unknown books are ignored.
func (s *Store) ReleaseCopy(ctx context.Context, bookID string) error {
	oid, err := objectID(bookID)
	if err != nil {
		return nil
	}
	_, err = s.Books.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"copies_available": 1}},
	)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
