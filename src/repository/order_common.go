package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"ordersapi/src/events"
	"ordersapi/src/model"
	"ordersapi/src/utils"
)

// auditing holds what both order stores need around a write: the server clock,
// the id source for documents and log entries, and the audit mirror.
type auditing struct {
	now       func() time.Time
	newID     func() string
	publisher events.Publisher
	epochs    *epochStamps
}

func defaultAuditing() auditing {
	return auditing{
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		publisher: events.NopPublisher{},
		epochs:    &epochStamps{},
	}
}

// epochStamps hands out strictly increasing creation milliseconds, so epochMilli
// works as a page cursor even when orders arrive within the same millisecond.
type epochStamps struct {
	mu   sync.Mutex
	last int64
}

func (e *epochStamps) next(ms int64) int64 {
	if e == nil {
		return ms
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if ms <= e.last {
		ms = e.last + 1
	}
	e.last = ms
	return ms
}

// stampCreation assigns the storage id and the server-side creation fields.
// createdAt is held at millisecond precision so every epoch field derives from it.
func (a auditing) stampCreation(order *model.Order) {
	epochMilli := a.epochs.next(a.now().UnixMilli())
	createdAt := time.UnixMilli(epochMilli).UTC()

	order.DocID = a.newID()
	order.CreatedAt = createdAt
	order.EpochSeconds = createdAt.Unix()
	order.EpochMilli = epochMilli
	order.CreatedAtLocal = utils.EpochToReadable(epochMilli)
	order.UpdatedAt = nil
}

func (a auditing) newLog(order *model.Order, transactionType string) *model.OrderLog {
	return model.NewOrderLog(a.newID(), order, transactionType, a.now())
}

// publish mirrors a committed audit entry. The entry is already durable, so a
// failure is logged and not returned.
func (a auditing) publish(ctx context.Context, repo string, entry *model.OrderLog) {
	if err := a.publisher.PublishOrderLog(ctx, entry); err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":             repo,
			"op":               "publish",
			"order_id":         entry.OrderID,
			"transaction_type": entry.TransactionType,
		}).WithError(err).Warn("Failed to mirror audit entry")
	}
}

// excludeOrders keeps the orders whose OrderID is not in orderIDs, preserving order.
func excludeOrders(orders []model.Order, orderIDs []string) []model.Order {
	skip := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		skip[id] = struct{}{}
	}

	results := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if _, ok := skip[o.OrderID]; !ok {
			results = append(results, o)
		}
	}
	return results
}

// highWaterFrom parses the largest stored orderId. A non-numeric id cannot seed
// the generator, so it is reported and treated as an empty store.
func highWaterFrom(repo, orderID string) int64 {
	v, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     repo,
			"op":       "HighWaterMark",
			"order_id": orderID,
		}).WithError(err).Warn("Largest orderId is not numeric, id generator starts from the clock")

		return 0
	}
	return v
}
