package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const kvCollection = "client_kv"

// KVStore keeps one document per key, so a profile synced through MongoDB
// follows the user across devices.
type KVStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// Options for Open.
type Options struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Open connects to MongoDB, checks the deployment answers and makes sure
// the key-value collection is indexed.
func Open(ctx context.Context, o Options) (*KVStore, error) {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(o.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo kv connect: %w", err)
	}
	db := client.Database(o.Database)
	if err := client.Ping(ctx, nil); err == nil {
		err = ensureIndexes(ctx, db)
	} else {
		err = fmt.Errorf("mongo kv ping: %w", err)
	}
	if err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return NewKVStore(db), nil
}

func NewKVStore(db *mongo.Database) *KVStore {
	return newKVStore(db.Collection(kvCollection))
}

// Close disconnects the underlying client.
func (s *KVStore) Close(ctx context.Context) error {
	return s.coll.Database().Client().Disconnect(ctx)
}

func newKVStore(coll *mongo.Collection) *KVStore {
	return &KVStore{coll: coll, now: time.Now}
}

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var doc kvDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find %s: %w", key, err)
	}
	return doc.Value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	update := bson.M{"$set": bson.M{"value": value, "updated_at": s.now().UTC()}}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}}); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

func (s *KVStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

// ensureIndexes adds the updated_at index used to expire abandoned profiles.
func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(kvCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create kv index: %w", err)
	}
	return nil
}
