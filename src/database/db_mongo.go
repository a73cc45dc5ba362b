package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB is the document database, set when the store is MongoDB.
var MongoDB *mongo.Database

// InitMongoDB connects to MongoDB, checks the connection and creates the indexes.
func InitMongoDB(config Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()

	clientOpts := options.Client().ApplyURI(config.StoreURL)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(config.MongoDatabase)
	if err := EnsureMongoIndexes(ctx, db); err != nil {
		return err
	}

	MongoDB = db

	logrus.WithField("database", config.MongoDatabase).Info("[database] MongoDB connection established")

	return nil
}

// EnsureMongoIndexes creates the indexes the order queries rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	orderIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "epochMilli", Value: 1}}},
	}
	if _, err := db.Collection("orders").Indexes().CreateMany(ctx, orderIndexes); err != nil {
		return fmt.Errorf("create orders indexes: %w", err)
	}

	if _, err := db.Collection("orders_log").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "orderId", Value: 1}, {Key: "createdAt", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create orders_log index: %w", err)
	}

	if _, err := db.Collection("subscribers").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "accountNo", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create subscribers index: %w", err)
	}

	return nil
}

// Close releases the open store connections.
func Close(ctx context.Context) {
	if MongoDB != nil {
		if err := MongoDB.Client().Disconnect(ctx); err != nil {
			logrus.WithError(err).Error("[database] failed to disconnect mongo")
		}
	}
	if MainDB != nil {
		if sqlDB, err := MainDB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logrus.WithError(err).Error("[database] failed to close MainDB")
			}
		}
	}
}
