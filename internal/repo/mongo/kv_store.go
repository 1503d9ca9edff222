package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
)

var _ ports.KVStore = (*KVStore)(nil)

// kvDocument — одна запись: _id = ключ корзины.
type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// KVStore — хранилище корзины в коллекции MongoDB.
type KVStore struct {
	collection *mongo.Collection
}

func NewKVStore(db *mongo.Database, collection string) *KVStore {
	return &KVStore{collection: db.Collection(collection)}
}

// Connect — подключение с проверкой Ping. Возвращает базу и функцию отключения.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, func(context.Context) error, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), client.Disconnect, nil
}

func (s *KVStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var doc kvDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: mongo find failed: %w", domain.ErrStorageUnavailable, err)
	}
	return doc.Value, true, nil
}

func (s *KVStore) Save(ctx context.Context, key string, raw []byte) error {
	doc := kvDocument{Key: key, Value: raw, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, opts); err != nil {
		return fmt.Errorf("%w: mongo upsert failed: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("%w: mongo delete failed: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}
