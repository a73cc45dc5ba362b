package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ordersapi/src/database"
	"ordersapi/src/events"
	"ordersapi/src/model"
)

// OrderRepository handles read/write operations for orders and their audit log
// on the relational store. Every mutation and its audit entry share one transaction.
type OrderRepository struct {
	db *gorm.DB
	auditing
}

// NewOrderRepository creates a new repository instance using the main read/write database.
func NewOrderRepository() *OrderRepository {
	logger.WithField("component", "OrderRepository").
		Info("Creating new OrderRepository with MainDB")

	return &OrderRepository{
		db:       database.MainDB,
		auditing: defaultAuditing(),
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *OrderRepository) WithDB(db *gorm.DB) *OrderRepository {
	logger.WithField("component", "OrderRepository").
		Debug("Creating OrderRepository with custom DB instance")

	return &OrderRepository{db: db, auditing: r.auditing}
}

// WithPublisher mirrors committed audit entries through p.
func (r *OrderRepository) WithPublisher(p events.Publisher) *OrderRepository {
	cp := *r
	cp.publisher = p
	return &cp
}

// ---------------------------------------------------
// Order methods
// ---------------------------------------------------

// Create stamps the server-side creation fields, inserts the order and appends
// an ADD entry to the audit log. The order is updated in place.
func (r *OrderRepository) Create(
	ctx context.Context,
	order *model.Order,
) (*model.Order, error) {

	r.stampCreation(order)

	logger.WithFields(map[string]interface{}{
		"repo":       "OrderRepository",
		"op":         "Create",
		"order_id":   order.OrderID,
		"symbol":     order.Symbol,
		"order_type": order.OrderType,
	}).Debug("Creating new order")

	entry := r.newLog(order, model.TransactionTypeAdd)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "Create",
			"order_id": order.OrderID,
		}).WithError(err).Error("Failed to create order")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "Create",
		"order_id": order.OrderID,
		"doc_id":   order.DocID,
	}).Info("Order created successfully")

	r.publish(ctx, "OrderRepository", entry)

	return order, nil
}

// FindByOrderID fetches a single order by its orderId.
// Returns (nil, nil) if the order is not found.
func (r *OrderRepository) FindByOrderID(
	ctx context.Context,
	orderID string,
) (*model.Order, error) {

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "FindByOrderID",
		"order_id": orderID,
	}).Debug("Fetching order by orderId")

	order, err := findByOrderID(r.db.WithContext(ctx), orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo":     "OrderRepository",
				"op":       "FindByOrderID",
				"order_id": orderID,
			}).Info("Order not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "FindByOrderID",
			"order_id": orderID,
		}).WithError(err).Error("Failed to fetch order by orderId")

		return nil, err
	}

	return order, nil
}

// Update overwrites the price and size fields of an order, stamps updatedAt and
// appends an UPDATE entry carrying the new values.
func (r *OrderRepository) Update(
	ctx context.Context,
	orderID string,
	fields model.PriceFields,
) (*model.Order, error) {

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "Update",
		"order_id": orderID,
	}).Debug("Updating order prices")

	var (
		updated *model.Order
		entry   *model.OrderLog
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findByOrderID(tx, orderID)
		if err != nil {
			return err
		}

		now := r.now()
		if err := tx.Model(&model.Order{}).
			Where("doc_id = ?", order.DocID).
			Updates(map[string]interface{}{
				"open_price":        fields.OpenPrice,
				"stop_loss_price":   fields.StopLossPrice,
				"take_profit_price": fields.TakeProfitPrice,
				"order_size":        fields.OrderSize,
				"updated_at":        now,
			}).Error; err != nil {
			return err
		}

		order.OpenPrice = fields.OpenPrice
		order.StopLossPrice = fields.StopLossPrice
		order.TakeProfitPrice = fields.TakeProfitPrice
		order.OrderSize = fields.OrderSize
		order.UpdatedAt = &now

		updated = order
		entry = r.newLog(order, model.TransactionTypeUpdate)
		return tx.Create(entry).Error
	})

	return r.finishMutation(ctx, "Update", orderID, updated, entry, err)
}

// Close sets the order type to CLOSE, stamps updatedAt and appends an UPDATE
// entry with the pre-close fields and the terminal type. Closing an already
// closed order is allowed and logs again.
func (r *OrderRepository) Close(
	ctx context.Context,
	orderID string,
) (*model.Order, error) {

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "Close",
		"order_id": orderID,
	}).Debug("Closing order")

	var (
		closed *model.Order
		entry  *model.OrderLog
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findByOrderID(tx, orderID)
		if err != nil {
			return err
		}

		now := r.now()
		if err := tx.Model(&model.Order{}).
			Where("doc_id = ?", order.DocID).
			Updates(map[string]interface{}{
				"order_type": model.OrderTypeClose,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		order.OrderType = model.OrderTypeClose
		order.UpdatedAt = &now

		closed = order
		entry = r.newLog(order, model.TransactionTypeUpdate)
		return tx.Create(entry).Error
	})

	return r.finishMutation(ctx, "Close", orderID, closed, entry, err)
}

// Delete removes the order permanently. No audit entry is written.
func (r *OrderRepository) Delete(
	ctx context.Context,
	orderID string,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "Delete",
		"order_id": orderID,
	}).Debug("Deleting order")

	res := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&model.Order{})

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "Delete",
			"order_id": orderID,
		}).WithError(res.Error).Error("Failed to delete order")

		return res.Error
	}

	if res.RowsAffected == 0 {
		return model.ErrOrderNotFound
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       "Delete",
		"order_id": orderID,
	}).Info("Order deleted")

	return nil
}

// List returns orders newest first, or, when opts.After is set, the orders
// created after that epoch millisecond oldest first.
func (r *OrderRepository) List(
	ctx context.Context,
	opts model.ListOptions,
) ([]model.Order, error) {

	logger.WithFields(map[string]interface{}{
		"repo":  "OrderRepository",
		"op":    "List",
		"limit": opts.Limit,
		"after": opts.After,
	}).Debug("Listing orders")

	query := r.db.WithContext(ctx)
	if opts.After != nil {
		query = query.Where("epoch_milli > ?", *opts.After).Order("epoch_milli ASC, order_id ASC")
	} else {
		query = query.Order("created_at DESC")
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "OrderRepository",
			"op":   "List",
		}).WithError(err).Error("Failed to list orders")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "OrderRepository",
		"op":          "List",
		"rows_return": len(orders),
	}).Info("Orders listed")

	return orders, nil
}

// FirstAfter returns the first order created strictly after epochMilli.
// Returns (nil, nil) when there is none.
func (r *OrderRepository) FirstAfter(
	ctx context.Context,
	epochMilli int64,
) (*model.Order, error) {

	var order model.Order
	err := r.db.WithContext(ctx).
		Where("epoch_milli > ?", epochMilli).
		Order("epoch_milli ASC, order_id ASC").
		Take(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":        "OrderRepository",
			"op":          "FirstAfter",
			"epoch_milli": epochMilli,
		}).WithError(err).Error("Failed to fetch first order after timestamp")

		return nil, err
	}

	return &order, nil
}

// ListExcluding returns every order whose orderId is not in orderIDs, newest
// first. The filter runs in memory over a full scan.
func (r *OrderRepository) ListExcluding(
	ctx context.Context,
	orderIDs []string,
) ([]model.Order, error) {

	all, err := r.List(ctx, model.ListOptions{})
	if err != nil {
		return nil, err
	}
	return excludeOrders(all, orderIDs), nil
}

// FindLogsByOrderID returns the audit entries of an order, oldest first.
func (r *OrderRepository) FindLogsByOrderID(
	ctx context.Context,
	orderID string,
) ([]model.OrderLog, error) {

	var logs []model.OrderLog
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&logs).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       "FindLogsByOrderID",
			"order_id": orderID,
		}).WithError(err).Error("Failed to fetch audit entries")

		return nil, err
	}

	return logs, nil
}

// HighWaterMark returns the largest numeric orderId persisted, 0 when empty.
func (r *OrderRepository) HighWaterMark(ctx context.Context) (int64, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Order("LENGTH(order_id) DESC, order_id DESC").
		Limit(1).
		Pluck("order_id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	return highWaterFrom("OrderRepository", ids[0]), nil
}

func (r *OrderRepository) finishMutation(
	ctx context.Context,
	op string,
	orderID string,
	order *model.Order,
	entry *model.OrderLog,
	err error,
) (*model.Order, error) {

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo":     "OrderRepository",
				"op":       op,
				"order_id": orderID,
			}).Info("Order not found")

			return nil, model.ErrOrderNotFound
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "OrderRepository",
			"op":       op,
			"order_id": orderID,
		}).WithError(err).Error("Failed to mutate order")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "OrderRepository",
		"op":       op,
		"order_id": orderID,
	}).Info("Order mutated with audit entry")

	r.publish(ctx, "OrderRepository", entry)

	return order, nil
}

func findByOrderID(db *gorm.DB, orderID string) (*model.Order, error) {
	var order model.Order
	if err := db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
