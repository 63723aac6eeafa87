package storage

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/reviewkart/reviewkart/internal/types"
)

const mongoBatchSize = 500

// MongoSink uploads review records to a MongoDB collection.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	replace    bool
	count      int
	logger     *slog.Logger
}

// MongoOption configures a MongoSink.
type MongoOption func(*MongoSink)

// WithReplace makes Upload clear the collection before inserting, so
// the collection always mirrors exactly one master dataset.
func WithReplace() MongoOption {
	return func(s *MongoSink) { s.replace = true }
}

// NewMongoSink connects to MongoDB and verifies the connection.
func NewMongoSink(ctx context.Context, uri, database, collection string, logger *slog.Logger, opts ...MongoOption) (*MongoSink, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: err}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: err}
	}

	s := &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_sink"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Info("mongodb connected", "database", database, "collection", collection)
	return s, nil
}

func (s *MongoSink) Name() string { return "mongodb" }

// Upload inserts records in batches. With WithReplace the collection
// is emptied first.
func (s *MongoSink) Upload(ctx context.Context, records []types.ReviewRecord) error {
	if s.replace {
		if _, err := s.collection.DeleteMany(ctx, bson.D{}); err != nil {
			return &types.StorageError{Backend: "mongodb", Err: err}
		}
		s.logger.Info("collection cleared before upload")
	}

	for start := 0; start < len(records); start += mongoBatchSize {
		end := start + mongoBatchSize
		if end > len(records) {
			end = len(records)
		}
		docs := make([]any, 0, end-start)
		for i := start; i < end; i++ {
			docs = append(docs, records[i])
		}
		if _, err := s.collection.InsertMany(ctx, docs); err != nil {
			return &types.StorageError{Backend: "mongodb", Err: err}
		}
		s.count += len(docs)
		s.logger.Debug("batch uploaded", "batch", len(docs), "total", s.count)
	}

	s.logger.Info("upload complete", "records", len(records))
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoSink) Close(ctx context.Context) error {
	s.logger.Info("mongodb sink closing", "total_uploaded", s.count)
	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Disconnect(closeCtx)
}
