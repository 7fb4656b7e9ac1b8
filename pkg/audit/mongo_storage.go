package audit

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultCollection holds the audit trail.
const DefaultCollection = "audit_events"

// MongoStorage appends events to a MongoDB collection.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage stores events in the named collection of db.
func NewMongoStorage(db *mongo.Database, collection string) *MongoStorage {
	if collection == "" {
		collection = DefaultCollection
	}
	return &MongoStorage{coll: db.Collection(collection)}
}

// EnsureIndexes creates the indexes Find relies on.
func (s *MongoStorage) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "action", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create audit indexes: %w", err)
	}
	return nil
}

func (s *MongoStorage) Store(ctx context.Context, e Event) error {
	if _, err := s.coll.InsertOne(ctx, e); err != nil {
		return errors.Join(ErrStorageNotAvailable, err)
	}
	return nil
}

// Find returns the newest events first.
func (s *MongoStorage) Find(ctx context.Context, f Filter) ([]Event, error) {
	cur, err := s.coll.Find(ctx, mongoFilter(f), mongoFindOptions(f))
	if err != nil {
		return nil, errors.Join(ErrStorageNotAvailable, err)
	}
	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode audit events: %w", err)
	}
	return events, nil
}

// Empty filter fields match everything.
func mongoFilter(f Filter) bson.M {
	q := bson.M{}
	if f.TenantID != "" {
		q["tenant_id"] = f.TenantID
	}
	if f.ActorID != "" {
		q["actor_id"] = f.ActorID
	}
	if f.Action != "" {
		q["action"] = f.Action
	}
	if !f.Since.IsZero() {
		q["created_at"] = bson.M{"$gte": f.Since}
	}
	return q
}

func mongoFindOptions(f Filter) *options.FindOptionsBuilder {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return opts
}
