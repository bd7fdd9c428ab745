package repo

import (
	"context"
	"errors"
	"time"

	"github.com/tazhibayda/library-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colBooks   = "books"
	colUsers   = "users"
	colBorrows = "borrows"
	colReviews = "reviews"
)

type Store struct {
	Client *mongo.Client
	DB     *mongo.Database

	Books   *Collection[domain.Book]
	Users   *Collection[domain.User]
	Borrows *Collection[domain.Borrow]
	Reviews *Collection[domain.Review]
}

func NewStore(ctx context.Context, uri, dbname string) (*Store, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetRetryWrites(true).
		SetMaxPoolSize(50),
	)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return newStore(cli, cli.Database(dbname)), nil
}

func newStore(cli *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		Client: cli,
		DB:     db,
		Books: newCollection(db, colBooks, func(b *domain.Book, id primitive.ObjectID) { b.ID = id }),
		Users: newCollection(db, colUsers, func(u *domain.User, id primitive.ObjectID) { u.ID = id }),
		Borrows: newCollection(db, colBorrows, func(b *domain.Borrow, id primitive.ObjectID) {
			b.ID = id
		}),
		Reviews: newCollection(db, colReviews, func(r *domain.Review, id primitive.ObjectID) { r.ID = id }),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error { return s.Client.Disconnect(ctx) }

// EnsureIndexes creates the unique and lookup indexes every collection relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.DB.Collection(colUsers).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			// google_id is empty for admin-created users until they sign in
			Keys: bson.D{{Key: "google_id", Value: 1}},
			Options: options.Index().SetName("google_id").
				SetPartialFilterExpression(bson.M{"google_id": bson.M{"$gt": ""}}),
		},
	})
	if err != nil {
		return err
	}

	if _, err := s.DB.Collection(colBooks).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "author", Value: 1}},
		Options: options.Index().SetName("author"),
	}); err != nil {
		return err
	}

	_, err = s.DB.Collection(colBorrows).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "borrowed_at", Value: -1}},
			Options: options.Index().SetName("user_borrowed_desc"),
		},
		{
			Keys:    bson.D{{Key: "book_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("book_status"),
		},
	})
	if err != nil {
		return err
	}

	_, err = s.DB.Collection(colReviews).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "book_id", Value: 1}, {Key: "review_date", Value: -1}},
		Options: options.Index().SetName("book_review_desc"),
	})
	return err
}

func IsDup(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return false
}

// objectID parses a hex id; malformed ids can never match a document.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrNotFound
	}
	return oid, nil
}
