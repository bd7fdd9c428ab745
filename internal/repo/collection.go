package repo

import (
	"context"
	"errors"

	"github.com/tazhibayda/library-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// Collection is a typed view over one Mongo collection. All single-document writes rely on
// Mongo's per-document atomicity; nothing here spans more than one document.
type Collection[T any] struct {
	name  string
	col   *mongo.Collection
	setID func(*T, primitive.ObjectID)
}

func newCollection[T any](db *mongo.Database, name string, setID func(*T, primitive.ObjectID)) *Collection[T] {
	return &Collection[T]{name: name, col: db.Collection(name), setID: setID}
}

func (c *Collection[T]) span(ctx context.Context, op string) (ddtrace.Span, context.Context) {
	return tracer.StartSpanFromContext(ctx, "mongo."+c.name+"."+op,
		tracer.ServiceName("library-mongo"),
		tracer.Tag("collection", c.name),
	)
}

func (c *Collection[T]) Find(ctx context.Context, filter bson.M) ([]T, error) {
	sp, ctx := c.span(ctx, "find")
	defer sp.Finish()
	if filter == nil {
		filter = bson.M{}
	}
	cur, err := c.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]T, 0)
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, cur.Err()
}

func (c *Collection[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	sp, ctx := c.span(ctx, "find_one")
	defer sp.Finish()
	var v T
	err := c.col.FindOne(ctx, filter).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return &v, nil
}

func (c *Collection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return c.FindOne(ctx, bson.M{"_id": oid})
}

// Insert stores doc and writes the generated id back into it.
func (c *Collection[T]) Insert(ctx context.Context, doc *T) error {
	sp, ctx := c.span(ctx, "insert")
	defer sp.Finish()
	res, err := c.col.InsertOne(ctx, doc)
	if err != nil {
		sp.SetTag("error", err)
		if IsDup(err) {
			return errors.Join(domain.ErrDuplicate, err)
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok && c.setID != nil {
		c.setID(doc, oid)
	}
	return nil
}

// FindOneAndUpdate applies update to the first match and returns the post-update document.
func (c *Collection[T]) FindOneAndUpdate(ctx context.Context, filter, update bson.M) (*T, error) {
	sp, ctx := c.span(ctx, "find_one_and_update")
	defer sp.Finish()
	var v T
	err := c.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		sp.SetTag("error", err)
		if IsDup(err) {
			return nil, errors.Join(domain.ErrDuplicate, err)
		}
		return nil, err
	}
	return &v, nil
}

// UpdateByID sets the given fields on the document with id.
func (c *Collection[T]) UpdateByID(ctx context.Context, id string, set bson.M) (*T, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return c.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
}

// FindOneAndDelete removes the document with id and returns it as it was.
func (c *Collection[T]) FindOneAndDelete(ctx context.Context, id string) (*T, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	sp, ctx := c.span(ctx, "find_one_and_delete")
	defer sp.Finish()
	var v T
	err = c.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		sp.SetTag("error", err)
		return nil, err
	}
	return &v, nil
}
