package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ApplyMigrations creates the collections' indexes. Creating an index also
// creates its collection, which must exist before a transaction writes to it
// on older servers. Re-running is harmless.
func (s *Store) ApplyMigrations() error {
	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		collectionAccessTokens: {
			{
				Keys:    bson.D{{Key: "value_hash", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("value_hash_unique"),
			},
			{
				Keys:    bson.D{{Key: "issued_by", Value: 1}, {Key: "issued_at", Value: -1}},
				Options: options.Index().SetName("issuer_latest"),
			},
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetName("expires_at"),
			},
		},
		collectionAttendance: {
			{
				Keys:    bson.D{{Key: "volunteer_id", Value: 1}, {Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("volunteer_history"),
			},
			{
				Keys:    bson.D{{Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("timestamp"),
			},
		},
		collectionUsers: {
			{
				Keys:    bson.D{{Key: "email_key", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("email_unique"),
			},
			{
				Keys:    bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("role_newest"),
			},
		},
	}

	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongodb create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
