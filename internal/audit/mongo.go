package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	COLLECTION    = "order_status_audit"
	HISTORY_LIMIT = 100
)

type Storage struct {
	client   *mongo.Client
	database *mongo.Database
}

type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

func Connect(cfg Config) (*Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Storage{client: client, database: client.Database(cfg.Database)}, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "at", Value: 1}}},
		{Keys: bson.D{{Key: "restaurant_id", Value: 1}}},
	}
	if _, err := s.database.Collection(COLLECTION).Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create %s indexes: %w", COLLECTION, err)
	}
	return nil
}

type MongoRecorder struct {
	collection *mongo.Collection
}

func NewMongoRecorder(s *Storage) *MongoRecorder {
	return &MongoRecorder{collection: s.database.Collection(COLLECTION)}
}

// uuids are stored as their string form so the collection stays readable from the shell.
type document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	OrderID      string             `bson:"order_id"`
	RestaurantID string             `bson:"restaurant_id"`
	From         string             `bson:"from_status"`
	To           string             `bson:"to_status"`
	Actor        string             `bson:"actor"`
	At           time.Time          `bson:"at"`
}

func (r *MongoRecorder) Record(ctx context.Context, entry Entry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if entry.At.IsZero() {
		entry.At = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, document{
		ID:           primitive.NewObjectID(),
		OrderID:      entry.OrderID.String(),
		RestaurantID: entry.RestaurantID.String(),
		From:         entry.From,
		To:           entry.To,
		Actor:        entry.Actor,
		At:           entry.At.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to record status change: %w", err)
	}
	return nil
}

// History returns the transitions of one order, oldest first.
func (r *MongoRecorder) History(ctx context.Context, orderID uuid.UUID) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: 1}}).
		SetLimit(HISTORY_LIMIT)

	cursor, err := r.collection.Find(ctx, bson.M{"order_id": orderID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode status history: %w", err)
	}

	entries := make([]Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.toEntry())
	}
	return entries, nil
}

func (d document) toEntry() Entry {
	orderID, _ := uuid.Parse(d.OrderID)
	restaurantID, _ := uuid.Parse(d.RestaurantID)
	return Entry{
		OrderID:      orderID,
		RestaurantID: restaurantID,
		From:         d.From,
		To:           d.To,
		Actor:        d.Actor,
		At:           d.At,
	}
}
