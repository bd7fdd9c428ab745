package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewBorrow(t *testing.T) {
	at := time.Date(2026, 1, 30, 23, 0, 0, 0, time.FixedZone("X", 3600))
	b := NewBorrow("b1", "u1", at)

	assert.Equal(t, StatusBorrowed, b.Status)
	assert.Equal(t, time.UTC, b.BorrowedAt.Location())
	assert.Equal(t, at.Add(14*24*time.Hour).UTC(), b.DueDate)
	assert.Nil(t, b.ReturnedAt)
	assert.True(t, b.ID.IsZero())
}

func TestBorrowStatus_Valid(t *testing.T) {
	assert.True(t, StatusBorrowed.Valid())
	assert.True(t, StatusReturned.Valid())
	assert.False(t, BorrowStatus("lost").Valid())
	assert.False(t, BorrowStatus("").Valid())
}

func TestUser_IsAdmin(t *testing.T) {
	var nilUser *User
	assert.False(t, nilUser.IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
}
