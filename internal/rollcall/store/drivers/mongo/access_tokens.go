package mongo

import (
	"context"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type accessTokenDoc struct {
	ID         string     `bson:"_id"`
	ValueHash  string     `bson:"value_hash"`
	IssuedBy   string     `bson:"issued_by"`
	IssuedAt   time.Time  `bson:"issued_at"`
	ExpiresAt  time.Time  `bson:"expires_at"`
	UsedCount  int        `bson:"used_count"`
	MaxUses    int        `bson:"max_uses"`
	Active     bool       `bson:"active"`
	LastUsedAt *time.Time `bson:"last_used_at,omitempty"`
	LastUsedBy string     `bson:"last_used_by,omitempty"`
}

func (d accessTokenDoc) toDomain() domain.AccessToken {
	var lastUsedAt *time.Time
	if d.LastUsedAt != nil {
		t := d.LastUsedAt.UTC()
		lastUsedAt = &t
	}
	return domain.AccessToken{
		ID:         d.ID,
		ValueHash:  d.ValueHash,
		IssuedBy:   d.IssuedBy,
		IssuedAt:   d.IssuedAt.UTC(),
		ExpiresAt:  d.ExpiresAt.UTC(),
		UsedCount:  d.UsedCount,
		MaxUses:    d.MaxUses,
		Active:     d.Active,
		LastUsedAt: lastUsedAt,
		LastUsedBy: d.LastUsedBy,
	}
}

type accessTokensRepo struct {
	coll *mongo.Collection
	bind binder
}

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	_, err := r.coll.InsertOne(r.bind.apply(ctx), accessTokenDoc{
		ID:         t.ID,
		ValueHash:  t.ValueHash,
		IssuedBy:   t.IssuedBy,
		IssuedAt:   t.IssuedAt,
		ExpiresAt:  t.ExpiresAt,
		UsedCount:  t.UsedCount,
		MaxUses:    t.MaxUses,
		Active:     t.Active,
		LastUsedAt: t.LastUsedAt,
		LastUsedBy: t.LastUsedBy,
	})
	return mapErr(err)
}

func (r *accessTokensRepo) GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	return r.findOne(ctx, bson.D{{Key: "value_hash", Value: hash}})
}

func (r *accessTokensRepo) GetLatestAccessTokenByIssuer(ctx context.Context, issuedBy string) (domain.AccessToken, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "issued_at", Value: -1}, {Key: "_id", Value: -1}})
	return r.findOne(ctx, bson.D{{Key: "issued_by", Value: issuedBy}}, opts)
}

func (r *accessTokensRepo) findOne(ctx context.Context, filter bson.D, opts ...*options.FindOneOptions) (domain.AccessToken, error) {
	var doc accessTokenDoc
	if err := r.coll.FindOne(r.bind.apply(ctx), filter, opts...).Decode(&doc); err != nil {
		return domain.AccessToken{}, mapErr(err)
	}
	return doc.toDomain(), nil
}

func (r *accessTokensRepo) UpdateAccessTokenUsage(ctx context.Context, t domain.AccessToken, expectedUsedCount int) error {
	set := bson.D{
		{Key: "used_count", Value: t.UsedCount},
		{Key: "active", Value: t.Active},
	}
	if t.LastUsedAt != nil {
		set = append(set, bson.E{Key: "last_used_at", Value: *t.LastUsedAt})
	}
	if t.LastUsedBy != "" {
		set = append(set, bson.E{Key: "last_used_by", Value: t.LastUsedBy})
	}

	filter := bson.D{{Key: "_id", Value: t.ID}, {Key: "used_count", Value: expectedUsedCount}}
	res, err := r.coll.UpdateOne(r.bind.apply(ctx), filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *accessTokensRepo) DeleteAccessToken(ctx context.Context, id string, expectedUsedCount int) error {
	filter := bson.D{{Key: "_id", Value: id}, {Key: "used_count", Value: expectedUsedCount}}
	res, err := r.coll.DeleteOne(r.bind.apply(ctx), filter)
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *accessTokensRepo) DeleteExpiredAccessTokens(ctx context.Context, before time.Time) (int64, error) {
	filter := bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: before}}}}
	res, err := r.coll.DeleteMany(r.bind.apply(ctx), filter)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.DeletedCount, nil
}
