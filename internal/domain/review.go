package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BookID     string             `bson:"book_id"       json:"bookId"`
	UserID     string             `bson:"user_id"       json:"userId"`
	Rating     int                `bson:"rating"        json:"rating"`
	Comment    string             `bson:"comment"       json:"comment"`
	ReviewDate time.Time          `bson:"review_date"   json:"reviewDate"`
}
