package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/newsharvest/internal/types"
)

// MongoStore keeps one document per article href in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	saved      atomic.Int64
	now        func() time.Time
	logger     *slog.Logger
}

// NewMongoStore connects, pings, and ensures the unique href index.
func NewMongoStore(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "connect", Err: err}
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Op: "ping", Err: err}
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		now:        time.Now,
		logger:     logger.With("component", "mongo_storage"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "href", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("href_unique"),
		},
		{
			Keys:    bson.D{{Key: "source", Value: 1}, {Key: "publishedTime", Value: -1}, {Key: "totalLikes", Value: -1}},
			Options: options.Index().SetName("source_published_likes"),
		},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, models); err != nil {
		return &types.StorageError{Backend: s.Name(), Op: "create_index", Err: err}
	}
	return nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) Save(ctx context.Context, a *types.Article) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := bson.D{{Key: "href", Value: a.Href}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "source", Value: a.Source},
			{Key: "title", Value: a.Title},
			{Key: "categoryId", Value: a.CategoryID},
			{Key: "totalComments", Value: a.TotalComments},
			{Key: "totalLikes", Value: a.TotalLikes},
			{Key: "publishedTime", Value: a.PublishedTime},
			{Key: "updatedTime", Value: s.now().UTC()},
		}},
	}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// Two first-time upserts of the same href can race on the unique index;
		// the loser retries once as a plain update.
		if mongo.IsDuplicateKeyError(err) {
			_, err = s.collection.UpdateOne(ctx, filter, update)
		}
		if err != nil {
			return &types.StorageError{Backend: s.Name(), Op: "save", Err: err}
		}
	}

	n := s.saved.Add(1)
	s.logger.Debug("article upserted", "href", a.Href, "total", n)
	return nil
}

func (s *MongoStore) QueryTop(ctx context.Context, top, days int, source types.Source) ([]types.Article, error) {
	if top < 1 {
		return []types.Article{}, nil
	}

	filter := bson.D{{Key: "publishedTime", Value: bson.D{{Key: "$gte", Value: windowStart(s.now(), days).UTC()}}}}
	if source != "" {
		filter = append(filter, bson.E{Key: "source", Value: source})
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "totalLikes", Value: -1}, {Key: "href", Value: 1}}).
		SetLimit(int64(top))

	cur, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Op: "query_top", Err: err}
	}
	defer cur.Close(ctx)

	result := make([]types.Article, 0, top)
	if err := cur.All(ctx, &result); err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Op: "query_top", Err: err}
	}
	return result, nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb storage closing", "total_saved", s.saved.Load())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Store Fan-Out ---

// MultiStore saves to a primary store and any number of secondaries.
// Queries are answered by the primary only.
type MultiStore struct {
	primary     ArticleStore
	secondaries []Sink
	logger      *slog.Logger
}

// NewMultiStore creates a store that fans saves out to every backend.
func NewMultiStore(primary ArticleStore, secondaries []Sink, logger *slog.Logger) *MultiStore {
	return &MultiStore{
		primary:     primary,
		secondaries: secondaries,
		logger:      logger.With("component", "multi_storage"),
	}
}

func (s *MultiStore) Name() string { return "multi" }

// Save fails only when the primary fails. Secondary errors are logged.
func (s *MultiStore) Save(ctx context.Context, a *types.Article) error {
	if err := s.primary.Save(ctx, a); err != nil {
		return err
	}
	for _, backend := range s.secondaries {
		if err := backend.Save(ctx, a); err != nil {
			s.logger.Error("secondary save failed", "backend", backend.Name(), "href", a.Href, "error", err)
		}
	}
	return nil
}

func (s *MultiStore) QueryTop(ctx context.Context, top, days int, source types.Source) ([]types.Article, error) {
	return s.primary.QueryTop(ctx, top, days, source)
}

func (s *MultiStore) Close() error {
	var errs []error
	for _, backend := range append([]Sink{s.primary}, s.secondaries...) {
		if err := backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}
	return errors.Join(errs...)
}
