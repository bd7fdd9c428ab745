package queue

import "time"

type BorrowCreated struct {
	BorrowID string    `json:"borrow_id"`
	BookID   string    `json:"book_id"`
	UserID   string    `json:"user_id"`
	DueDate  time.Time `json:"due_date"`
}

type BorrowReturned struct {
	BorrowID   string    `json:"borrow_id"`
	BookID     string    `json:"book_id"`
	UserID     string    `json:"user_id"`
	ReturnedAt time.Time `json:"returned_at"`
}

// Envelope is what consumers decode: the routing key plus the raw event body.
type Envelope struct {
	Key       string
	Body      []byte
	MessageID string
	ReqID     string
}
