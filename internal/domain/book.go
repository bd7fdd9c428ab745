package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

type Book struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"    json:"id"`
	Title           string             `bson:"title"            json:"title"`
	Author          string             `bson:"author"           json:"author"`
	Genre           string             `bson:"genre"            json:"genre"`
	YearPublished   int                `bson:"year_published"   json:"yearPublished"`
	CopiesAvailable int                `bson:"copies_available" json:"copiesAvailable"` // never below 0
}
