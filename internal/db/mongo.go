package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TransfersCollection = "transfers"
	UsersCollection     = "users"
)

// ConnectMongoDB opens a client, verifies it with a ping and returns the
// named database. The caller owns the client and must Disconnect it.
func ConnectMongoDB(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	slog.Info("connected to mongodb", "database", dbName)
	return client.Database(dbName), nil
}

// EnsureIndexes creates the secondary indexes used by the repositories.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(TransfersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "expiration_date", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "upload_date", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create transfer indexes: %w", err)
	}

	_, err = database.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func Ping(ctx context.Context, database *mongo.Database) error {
	return database.Client().Ping(ctx, nil)
}
