package repo

import (
	"context"
	"strings"
	"time"

	"github.com/tazhibayda/library-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.Users.FindOne(ctx, bson.M{"email": normalizeEmail(email)})
}

// EnsureOAuthUser creates u if no user with u.Email exists and returns the stored record.
// Existing users are left untouched. The insert is a single upsert so two concurrent first
// sign-ins cannot both create a record; the loser of a unique-index race reads the winner.
func (s *Store) EnsureOAuthUser(ctx context.Context, u *domain.User) (*domain.User, bool, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.users.ensure_oauth",
		tracer.ServiceName("library-mongo"),
	)
	defer sp.Finish()

	now := time.Now().UTC()
	u.Email = normalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	res, err := s.DB.Collection(colUsers).UpdateOne(ctx,
		bson.M{"email": u.Email},
		bson.M{"$setOnInsert": bson.M{
			"google_id":     u.GoogleID,
			"email":         u.Email,
			"name":          u.Name,
			"username":      u.Username,
			"password_hash": "",
			"role":          u.Role,
			"profile":       u.Profile,
			"created_at":    now,
			"updated_at":    now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !IsDup(err) {
		sp.SetTag("error", err)
		return nil, false, err
	}
	created := err == nil && res.UpsertedCount > 0

	stored, err := s.FindUserByEmail(ctx, u.Email)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// SetRole changes the role of the user with email. Used by the promote command.
func (s *Store) SetRole(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	return s.Users.FindOneAndUpdate(ctx,
		bson.M{"email": normalizeEmail(email)},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
	)
}
