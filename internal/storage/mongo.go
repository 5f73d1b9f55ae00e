package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/calenhart/lorecrawl/internal/types"
)

// MongoBackend stores records in MongoDB, one collection per entity kind.
type MongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewMongoBackend connects to MongoDB and verifies the server is reachable.
func NewMongoBackend(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoBackend, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoBackend{
		client: client,
		db:     client.Database(database),
		logger: logger.With("component", "mongo_storage"),
	}, nil
}

func (b *MongoBackend) Name() string { return "mongodb" }

func (b *MongoBackend) Save(ctx context.Context, collection string, rec Record) error {
	doc := rec.Doc()
	id, ok := docID(doc)
	if !ok {
		return &types.StorageError{Backend: "mongodb", Collection: collection,
			Err: fmt.Errorf("record without id")}
	}

	err := withRetry(func() error {
		opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		_, err := b.db.Collection(collection).ReplaceOne(opCtx,
			bson.M{"id": id}, doc, options.Replace().SetUpsert(true))
		return err
	})
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Collection: collection, Err: err}
	}

	b.mu.Lock()
	b.count++
	b.mu.Unlock()
	return nil
}

func (b *MongoBackend) SaveBatch(ctx context.Context, collection string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	models, err := replaceModels(recs)
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Collection: collection, Err: err}
	}

	err = withRetry(func() error {
		opCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
		_, err := b.db.Collection(collection).BulkWrite(opCtx, models,
			options.BulkWrite().SetOrdered(false))
		return err
	})
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Collection: collection, Err: err}
	}

	b.mu.Lock()
	b.count += len(recs)
	total := b.count
	b.mu.Unlock()
	b.logger.Debug("records saved", "collection", collection, "count", len(recs), "total", total)
	return nil
}

// replaceModels builds one upserting replace per record, keyed on the
// document id.
func replaceModels(recs []Record) ([]mongo.WriteModel, error) {
	models := make([]mongo.WriteModel, 0, len(recs))
	for _, rec := range recs {
		doc := rec.Doc()
		id, ok := docID(doc)
		if !ok {
			return nil, fmt.Errorf("record without id")
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"id": id}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	return models, nil
}

func (b *MongoBackend) Query(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	query := bson.M{}
	for k, v := range filter {
		query[k] = v
	}

	opCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cursor, err := b.db.Collection(collection).Find(opCtx, query,
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}).SetProjection(bson.M{"_id": 0}))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Collection: collection, Err: err}
	}

	var docs []map[string]any
	if err := cursor.All(opCtx, &docs); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Collection: collection, Err: err}
	}
	return docs, nil
}

func (b *MongoBackend) Close() error {
	b.mu.Lock()
	total := b.count
	b.mu.Unlock()
	b.logger.Info("mongodb storage closing", "total_records", total)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Disconnect(ctx)
}
