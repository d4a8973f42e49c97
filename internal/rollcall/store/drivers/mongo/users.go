package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDoc keeps the email as entered plus a lowercased key that carries
// the unique index.
type userDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	EmailKey  string    `bson:"email_key"`
	Role      string    `bson:"role"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type usersRepo struct {
	coll *mongo.Collection
	bind binder
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email_key", Value: emailKey(email)}})
}

func (r *usersRepo) findOne(ctx context.Context, filter bson.D) (domain.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(r.bind.apply(ctx), filter).Decode(&doc); err != nil {
		return domain.User{}, mapErr(err)
	}
	return doc.toDomain(), nil
}

func (r *usersRepo) ListUsers(ctx context.Context, role domain.Role, limit int) ([]domain.User, error) {
	ctx = r.bind.apply(ctx)
	filter := bson.D{}
	if role != "" {
		filter = bson.D{{Key: "role", Value: string(role)}}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(err)
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapErr(err)
	}

	out := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Role:      domain.Role(d.Role),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.coll.InsertOne(r.bind.apply(ctx), userDoc{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		EmailKey:  emailKey(u.Email),
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})
	return mapErr(err)
}

func (r *usersRepo) UpdateUserRole(ctx context.Context, id string, role domain.Role, at time.Time) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "role", Value: string(role)},
		{Key: "updated_at", Value: at},
	}}}
	res, err := r.coll.UpdateOne(r.bind.apply(ctx), bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
