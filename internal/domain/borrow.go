package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BorrowStatus string

const (
	StatusBorrowed BorrowStatus = "borrowed"
	StatusReturned BorrowStatus = "returned"
)

// LoanPeriod is the time between borrowing and the due date.
const LoanPeriod = 14 * 24 * time.Hour

func (s BorrowStatus) Valid() bool { return s == StatusBorrowed || s == StatusReturned }

// Borrow is a loan of one copy of a book. ReturnedAt is set iff Status is StatusReturned.
type Borrow struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"         json:"id"`
	BookID     string             `bson:"book_id"               json:"bookId"`
	UserID     string             `bson:"user_id"               json:"userId"`
	BorrowedAt time.Time          `bson:"borrowed_at"           json:"borrowedAt"`
	DueDate    time.Time          `bson:"due_date"              json:"dueDate"`
	ReturnedAt *time.Time         `bson:"returned_at,omitempty" json:"returnedAt,omitempty"`
	Status     BorrowStatus       `bson:"status"                json:"status"`
}

// NewBorrow builds a fresh loan starting at now.
func NewBorrow(bookID, userID string, now time.Time) *Borrow {
	now = now.UTC()
	return &Borrow{
		BookID:     bookID,
		UserID:     userID,
		BorrowedAt: now,
		DueDate:    now.Add(LoanPeriod),
		Status:     StatusBorrowed,
	}
}
