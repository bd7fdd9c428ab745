package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate key")
	ErrNoCopies        = errors.New("no copies available")
	ErrAlreadyReturned = errors.New("borrow record already returned")
)
