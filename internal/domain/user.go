package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Profile struct {
	FirstName string `bson:"first_name" json:"firstName"`
	LastName  string `bson:"last_name"  json:"lastName"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"  json:"id"`
	GoogleID     string             `bson:"google_id"      json:"googleId"` // Google "sub"/userinfo id
	Email        string             `bson:"email"          json:"email"`
	Name         string             `bson:"name"           json:"name"`
	Username     string             `bson:"username"       json:"username,omitempty"`
	PasswordHash string             `bson:"password_hash"  json:"-"`
	Role         Role               `bson:"role"           json:"role"`
	Profile      Profile            `bson:"profile"        json:"profile"`
	CreatedAt    time.Time          `bson:"created_at"     json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at"     json:"updatedAt"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
