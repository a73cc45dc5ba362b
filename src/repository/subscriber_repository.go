package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"ordersapi/src/database"
	"ordersapi/src/model"
)

// SubscriberRepository answers authorization lookups on the relational store.
type SubscriberRepository struct {
	db *gorm.DB
}

func NewSubscriberRepository() *SubscriberRepository {
	return &SubscriberRepository{db: database.MainDB}
}

func (r *SubscriberRepository) WithDB(db *gorm.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// IsValidSubscriber reports whether at least one subscriber holds accountNo.
func (r *SubscriberRepository) IsValidSubscriber(ctx context.Context, accountNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Subscriber{}).
		Where("account_no = ?", accountNo).
		Count(&count).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "SubscriberRepository",
			"op":         "IsValidSubscriber",
			"account_no": accountNo,
		}).WithError(err).Error("Failed to look up subscriber")

		return false, err
	}
	return count > 0, nil
}

// MongoSubscriberRepository answers authorization lookups on the subscribers collection.
type MongoSubscriberRepository struct {
	subscribers *mongo.Collection
}

func NewMongoSubscriberRepository() *MongoSubscriberRepository {
	return NewMongoSubscriberRepositoryWithDB(database.MongoDB)
}

func NewMongoSubscriberRepositoryWithDB(db *mongo.Database) *MongoSubscriberRepository {
	return &MongoSubscriberRepository{subscribers: db.Collection("subscribers")}
}

func (r *MongoSubscriberRepository) IsValidSubscriber(ctx context.Context, accountNo string) (bool, error) {
	count, err := r.subscribers.CountDocuments(ctx, bson.M{"accountNo": accountNo})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "MongoSubscriberRepository",
			"op":         "IsValidSubscriber",
			"account_no": accountNo,
		}).WithError(err).Error("Failed to look up subscriber")

		return false, err
	}
	return count > 0, nil
}
