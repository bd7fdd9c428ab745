package http

import (
	"strings"
	"time"

	"github.com/tazhibayda/library-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
)

// Request bodies. Pointer ints tell "missing" apart from zero.

type bookInput struct {
	Title           string `json:"title"           binding:"required"`
	Author          string `json:"author"          binding:"required"`
	Genre           string `json:"genre"           binding:"required"`
	YearPublished   *int   `json:"yearPublished"   binding:"required"`
	CopiesAvailable *int   `json:"copiesAvailable" binding:"required,min=0"`
}

func (in *bookInput) book() *domain.Book {
	return &domain.Book{
		Title:           strings.TrimSpace(in.Title),
		Author:          strings.TrimSpace(in.Author),
		Genre:           strings.TrimSpace(in.Genre),
		YearPublished:   *in.YearPublished,
		CopiesAvailable: *in.CopiesAvailable,
	}
}

func (in *bookInput) set() bson.M {
	b := in.book()
	return bson.M{
		"title":            b.Title,
		"author":           b.Author,
		"genre":            b.Genre,
		"year_published":   b.YearPublished,
		"copies_available": b.CopiesAvailable,
	}
}

type profileInput struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName"  binding:"required"`
}

type userInput struct {
	GoogleID string       `json:"googleId" binding:"required"`
	Email    string       `json:"email"    binding:"required,email"`
	Username string       `json:"username" binding:"required"`
	Password string       `json:"password" binding:"required"`
	Name     string       `json:"name"`
	Role     domain.Role  `json:"role"     binding:"omitempty,oneof=user admin"`
	Profile  profileInput `json:"profile"`
}

func (in *userInput) displayName() string {
	if n := strings.TrimSpace(in.Name); n != "" {
		return n
	}
	return strings.TrimSpace(in.Profile.FirstName + " " + in.Profile.LastName)
}

func (in *userInput) profile() domain.Profile {
	return domain.Profile{
		FirstName: strings.TrimSpace(in.Profile.FirstName),
		LastName:  strings.TrimSpace(in.Profile.LastName),
	}
}

type reviewInput struct {
	Rating  *int   `json:"rating"  binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"required"`
}

type statusInput struct {
	Status domain.BorrowStatus `json:"status" binding:"required,oneof=borrowed returned"`
}

func now() time.Time { return time.Now().UTC() }
