package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
	"wqd/internal/models"
	"wqd/internal/storage/interfaces"
	"wqd/internal/structures"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type MongoReadingStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ interfaces.ReadingStore = (*MongoReadingStore)(nil)

func NewMongoConnection(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

func NewMongoReadingStore(ctx context.Context, client *mongo.Client, conf structures.MongoConfig) (*MongoReadingStore, error) {
	collection := client.Database(conf.Database).Collection(conf.Collection)

	idxCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateOne(idxCtx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "source_id", Value: 1},
			{Key: "recorded_at", Value: -1},
			{Key: "_id", Value: -1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reading index: %w", err)
	}

	return &MongoReadingStore{client: client, collection: collection}, nil
}

func newestFirst() bson.D {
	return bson.D{{Key: "recorded_at", Value: -1}, {Key: "_id", Value: -1}}
}

// mongoDocument prepares r for insertion. BSON dates only keep milliseconds.
func mongoDocument(sourceID string, r models.Reading) models.Reading {
	r.SourceID = sourceID
	r.RecordedAt = r.RecordedAt.Truncate(time.Millisecond)
	if r.ID == "" {
		r.ID = newReadingID()
	}
	return r
}

func (m *MongoReadingStore) Append(ctx context.Context, sourceID string, r models.Reading) (models.Handle, error) {
	r = mongoDocument(sourceID, r)
	if _, err := m.collection.InsertOne(ctx, r); err != nil {
		return models.Handle{}, err
	}
	return models.Handle{ID: r.ID, SourceID: sourceID, RecordedAt: r.RecordedAt}, nil
}

func (m *MongoReadingStore) findOne(ctx context.Context, filter bson.D) (models.Reading, error) {
	var r models.Reading
	err := m.collection.FindOne(ctx, filter, options.FindOne().SetSort(newestFirst())).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Reading{}, models.ErrNotFound
	}
	return r, err
}

func (m *MongoReadingStore) Latest(ctx context.Context, sourceID string) (models.Reading, error) {
	return m.findOne(ctx, bson.D{{Key: "source_id", Value: sourceID}})
}

func (m *MongoReadingStore) LatestByField(ctx context.Context, sourceID string, field models.Field) (models.FieldValue, error) {
	r, err := m.findOne(ctx, bson.D{
		{Key: "source_id", Value: sourceID},
		{Key: string(field), Value: bson.D{{Key: "$exists", Value: true}}},
	})
	if err != nil {
		return models.FieldValue{}, err
	}
	v, ok := r.Value(field)
	if !ok {
		return models.FieldValue{}, models.ErrNotFound
	}
	return models.FieldValue{Field: field, Value: v, RecordedAt: r.RecordedAt}, nil
}

func (m *MongoReadingStore) History(ctx context.Context, sourceID string, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	opts := options.Find().SetSort(newestFirst()).SetLimit(int64(limit))
	cursor, err := m.collection.Find(ctx, bson.D{{Key: "source_id", Value: sourceID}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.Reading{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoReadingStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
