package repo

import (
	"context"
	"time"

	"github.com/tazhibayda/library-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
)

func (s *Store) ListBorrows(ctx context.Context, userID, bookID string) ([]domain.Borrow, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	if bookID != "" {
		filter["book_id"] = bookID
	}
	return s.Borrows.Find(ctx, filter)
}

// TransitionBorrow moves the borrow with id to status `to` in one atomic update.
// When from is non-nil the update only matches records currently in that status.
// returned_at follows the status: set on return, removed when reset to borrowed.
func (s *Store) TransitionBorrow(ctx context.Context, id string, from *domain.BorrowStatus, to domain.BorrowStatus, now time.Time) (*domain.Borrow, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": oid}
	if from != nil {
		filter["status"] = *from
	}
	update := bson.M{"$set": bson.M{"status": to}}
	if to == domain.StatusReturned {
		update["$set"] = bson.M{"status": to, "returned_at": now.UTC()}
	} else {
		update["$unset"] = bson.M{"returned_at": ""}
	}
	return s.Borrows.FindOneAndUpdate(ctx, filter, update)
}

func (s *Store) InsertBorrow(ctx context.Context, b *domain.Borrow) error {
	return s.Borrows.Insert(ctx, b)
}

func (s *Store) FindBorrow(ctx context.Context, id string) (*domain.Borrow, error) {
	return s.Borrows.FindByID(ctx, id)
}

func (s *Store) DeleteBorrow(ctx context.Context, id string) (*domain.Borrow, error) {
	return s.Borrows.FindOneAndDelete(ctx, id)
}
