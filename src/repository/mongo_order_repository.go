package repository

import (
	"context"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ordersapi/src/database"
	"ordersapi/src/events"
	"ordersapi/src/model"
)

const (
	ordersCollection    = "orders"
	ordersLogCollection = "orders_log"
)

// MongoOrderRepository stores orders and their audit log as MongoDB documents.
// The order write and the audit append are two independent operations, primary
// first; a failure in between leaves the order without its audit entry.
type MongoOrderRepository struct {
	orders *mongo.Collection
	logs   *mongo.Collection
	auditing
}

// NewMongoOrderRepository creates a repository on the configured MongoDB database.
func NewMongoOrderRepository() *MongoOrderRepository {
	logger.WithField("component", "MongoOrderRepository").
		Info("Creating new MongoOrderRepository with MongoDB")

	return NewMongoOrderRepositoryWithDB(database.MongoDB)
}

func NewMongoOrderRepositoryWithDB(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		orders:   db.Collection(ordersCollection),
		logs:     db.Collection(ordersLogCollection),
		auditing: defaultAuditing(),
	}
}

// WithPublisher mirrors written audit entries through p.
func (r *MongoOrderRepository) WithPublisher(p events.Publisher) *MongoOrderRepository {
	cp := *r
	cp.publisher = p
	return &cp
}

func (r *MongoOrderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	r.stampCreation(order)

	if _, err := r.orders.InsertOne(ctx, order); err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "MongoOrderRepository",
			"op":       "Create",
			"order_id": order.OrderID,
		}).WithError(err).Error("Failed to insert order")

		return nil, fmt.Errorf("insert order %s: %w", order.OrderID, err)
	}

	if err := r.appendLog(ctx, order, model.TransactionTypeAdd); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "MongoOrderRepository",
		"op":       "Create",
		"order_id": order.OrderID,
		"doc_id":   order.DocID,
	}).Info("Order created successfully")

	return order, nil
}

// FindByOrderID returns (nil, nil) if the order is not found.
func (r *MongoOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.orders.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "MongoOrderRepository",
			"op":       "FindByOrderID",
			"order_id": orderID,
		}).WithError(err).Error("Failed to fetch order by orderId")

		return nil, err
	}
	return &order, nil
}

func (r *MongoOrderRepository) Update(ctx context.Context, orderID string, fields model.PriceFields) (*model.Order, error) {
	order, err := r.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	now := r.now()
	res, err := r.orders.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: order.DocID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "openPrice", Value: fields.OpenPrice},
			{Key: "stopLossPrice", Value: fields.StopLossPrice},
			{Key: "takeProfitPrice", Value: fields.TakeProfitPrice},
			{Key: "orderSize", Value: fields.OrderSize},
			{Key: "updatedAt", Value: now},
		}}},
	)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}
	if res.MatchedCount == 0 {
		return nil, model.ErrOrderNotFound
	}

	order.OpenPrice = fields.OpenPrice
	order.StopLossPrice = fields.StopLossPrice
	order.TakeProfitPrice = fields.TakeProfitPrice
	order.OrderSize = fields.OrderSize
	order.UpdatedAt = &now

	if err := r.appendLog(ctx, order, model.TransactionTypeUpdate); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *MongoOrderRepository) Close(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := r.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	now := r.now()
	res, err := r.orders.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: order.DocID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "orderType", Value: model.OrderTypeClose},
			{Key: "updatedAt", Value: now},
		}}},
	)
	if err != nil {
		return nil, fmt.Errorf("close order %s: %w", orderID, err)
	}
	if res.MatchedCount == 0 {
		return nil, model.ErrOrderNotFound
	}

	order.OrderType = model.OrderTypeClose
	order.UpdatedAt = &now

	if err := r.appendLog(ctx, order, model.TransactionTypeUpdate); err != nil {
		return nil, err
	}
	return order, nil
}

// Delete removes the order permanently. No audit entry is written.
func (r *MongoOrderRepository) Delete(ctx context.Context, orderID string) error {
	res, err := r.orders.DeleteOne(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return fmt.Errorf("delete order %s: %w", orderID, err)
	}
	if res.DeletedCount == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

func (r *MongoOrderRepository) List(ctx context.Context, opts model.ListOptions) ([]model.Order, error) {
	filter := bson.M{}
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if opts.After != nil {
		filter = bson.M{"epochMilli": bson.M{"$gt": *opts.After}}
		findOpts.SetSort(bson.D{{Key: "epochMilli", Value: 1}, {Key: "orderId", Value: 1}})
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := r.orders.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]model.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

// FirstAfter returns (nil, nil) when no order was created after epochMilli.
func (r *MongoOrderRepository) FirstAfter(ctx context.Context, epochMilli int64) (*model.Order, error) {
	var order model.Order
	err := r.orders.FindOne(ctx,
		bson.M{"epochMilli": bson.M{"$gt": epochMilli}},
		options.FindOne().SetSort(bson.D{{Key: "epochMilli", Value: 1}, {Key: "orderId", Value: 1}}),
	).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *MongoOrderRepository) ListExcluding(ctx context.Context, orderIDs []string) ([]model.Order, error) {
	all, err := r.List(ctx, model.ListOptions{})
	if err != nil {
		return nil, err
	}
	return excludeOrders(all, orderIDs), nil
}

func (r *MongoOrderRepository) FindLogsByOrderID(ctx context.Context, orderID string) ([]model.OrderLog, error) {
	cursor, err := r.logs.Find(ctx,
		bson.M{"orderId": orderID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries of %s: %w", orderID, err)
	}

	logs := make([]model.OrderLog, 0)
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("decode audit entries: %w", err)
	}
	return logs, nil
}

// HighWaterMark returns the largest numeric orderId persisted, 0 when empty.
func (r *MongoOrderRepository) HighWaterMark(ctx context.Context) (int64, error) {
	var order model.Order
	err := r.orders.FindOne(ctx, bson.M{},
		options.FindOne().
			SetSort(bson.D{{Key: "orderId", Value: -1}}).
			SetProjection(bson.M{"orderId": 1}),
	).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}

	return highWaterFrom("MongoOrderRepository", order.OrderID), nil
}

func (r *MongoOrderRepository) appendLog(ctx context.Context, order *model.Order, transactionType string) error {
	entry := r.newLog(order, transactionType)
	if _, err := r.logs.InsertOne(ctx, entry); err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":             "MongoOrderRepository",
			"op":               "appendLog",
			"order_id":         order.OrderID,
			"transaction_type": transactionType,
		}).WithError(err).Error("Order written without audit entry")

		return fmt.Errorf("append %s audit entry for %s: %w", transactionType, order.OrderID, err)
	}

	r.publish(ctx, "MongoOrderRepository", entry)
	return nil
}
