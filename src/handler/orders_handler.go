package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"ordersapi/src/auth"
	"ordersapi/src/model"
)

type orderCreator interface {
	Create(ctx context.Context, order *model.Order) (*model.Order, error)
}

type orderFinder interface {
	FindByOrderID(ctx context.Context, orderID string) (*model.Order, error)
}

type orderLister interface {
	List(ctx context.Context, opts model.ListOptions) ([]model.Order, error)
}

type orderTimestampFinder interface {
	orderLister
	FirstAfter(ctx context.Context, epochMilli int64) (*model.Order, error)
}

type orderUpdater interface {
	Update(ctx context.Context, orderID string, fields model.PriceFields) (*model.Order, error)
}

type orderCloser interface {
	Close(ctx context.Context, orderID string) (*model.Order, error)
}

type orderDeleter interface {
	Delete(ctx context.Context, orderID string) error
}

type orderExcluder interface {
	ListExcluding(ctx context.Context, orderIDs []string) ([]model.Order, error)
}

type orderLogFinder interface {
	FindLogsByOrderID(ctx context.Context, orderID string) ([]model.OrderLog, error)
}

// OrderStore is everything the order routes need from a backend.
type OrderStore interface {
	orderCreator
	orderFinder
	orderTimestampFinder
	orderUpdater
	orderCloser
	orderDeleter
	orderExcluder
	orderLogFinder
}

// IDGenerator issues orderIds for new orders.
type IDGenerator interface {
	NextID() string
}

// CreateOrderHandler validates the payload, assigns an orderId and stores the
// order. Nothing is written when validation fails.
func CreateOrderHandler(repo orderCreator, ids IDGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := decodeObject(w, r)
		if !ok {
			return
		}

		candidate := model.NewOrderCandidate(raw)
		if err := candidate.Validate(); err != nil {
			writeError(w, "CreateOrder", err)
			return
		}

		order := candidate.ToOrder()
		order.OrderID = ids.NextID()

		created, err := repo.Create(r.Context(), order)
		if err != nil {
			writeError(w, "CreateOrder", err)
			return
		}

		fields := map[string]interface{}{
			"handler":  "CreateOrder",
			"order_id": created.OrderID,
			"symbol":   created.Symbol,
		}
		if accountNo, ok := auth.GetAccountFromContext(r.Context()); ok {
			fields["account_no"] = accountNo
		}
		logger.WithFields(fields).Info("order opened")

		writeJSON(w, http.StatusCreated, envelope{
			Success: true,
			ID:      created.DocID,
			Data:    toView(created),
		})
	}
}

func GetOrderHandler(repo orderFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := repo.FindByOrderID(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			writeError(w, "GetOrder", err)
			return
		}
		if order == nil {
			writeError(w, "GetOrder", model.ErrOrderNotFound)
			return
		}

		writeSuccess(w, http.StatusOK, toView(order))
	}
}

// ListOrdersHandler lists orders newest first. With `after` (epoch
// milliseconds) it returns the orders created after it, oldest first.
func ListOrdersHandler(repo orderLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts model.ListOptions

		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			limit, err := strconv.Atoi(limitParam)
			if err != nil || limit <= 0 {
				writeFailure(w, http.StatusBadRequest, "invalid limit")
				return
			}
			opts.Limit = limit
		}

		if afterParam := r.URL.Query().Get("after"); afterParam != "" {
			after, err := strconv.ParseInt(afterParam, 10, 64)
			if err != nil {
				writeFailure(w, http.StatusBadRequest, "invalid after")
				return
			}
			opts.After = &after
		}

		orders, err := repo.List(r.Context(), opts)
		if err != nil {
			writeError(w, "ListOrders", err)
			return
		}

		writeSuccess(w, http.StatusOK, toViews(orders))
	}
}

// LatestTimestampHandler returns the first order created strictly after the
// `latestTimestamp` path value, or the newest defaultLimit orders without it.
func LatestTimestampHandler(repo orderTimestampFinder, defaultLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tsParam := chi.URLParam(r, "latestTimestamp")
		if tsParam == "" {
			orders, err := repo.List(r.Context(), model.ListOptions{Limit: defaultLimit})
			if err != nil {
				writeError(w, "LatestTimestamp", err)
				return
			}
			writeSuccess(w, http.StatusOK, toViews(orders))
			return
		}

		ts, err := strconv.ParseInt(tsParam, 10, 64)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid latestTimestamp")
			return
		}

		order, err := repo.FirstAfter(r.Context(), ts)
		if err != nil {
			writeError(w, "LatestTimestamp", err)
			return
		}

		views := make([]model.OrderView, 0, 1)
		if order != nil {
			views = append(views, toView(order))
		}
		writeSuccess(w, http.StatusOK, views)
	}
}

// UpdateOrderHandler overwrites the price and size fields of an order.
func UpdateOrderHandler(repo orderUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := decodeObject(w, r)
		if !ok {
			return
		}

		candidate := model.NewOrderCandidate(raw)
		if err := candidate.ValidateUpdate(); err != nil {
			writeError(w, "UpdateOrder", err)
			return
		}

		updated, err := repo.Update(r.Context(), chi.URLParam(r, "orderId"), candidate.Prices())
		if err != nil {
			writeError(w, "UpdateOrder", err)
			return
		}

		writeSuccess(w, http.StatusOK, toView(updated))
	}
}

func CloseOrderHandler(repo orderCloser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		closed, err := repo.Close(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			writeError(w, "CloseOrder", err)
			return
		}

		logger.WithFields(map[string]interface{}{
			"handler":  "CloseOrder",
			"order_id": closed.OrderID,
		}).Info("order closed")

		writeSuccess(w, http.StatusOK, toView(closed))
	}
}

func DeleteOrderHandler(repo orderDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		if err := repo.Delete(r.Context(), orderID); err != nil {
			writeError(w, "DeleteOrder", err)
			return
		}

		writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Order deleted"})
	}
}

// ExcludeOrdersHandler lists every order whose orderId is not in the `ids` array of the body.
func ExcludeOrdersHandler(repo orderExcluder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := decodeObject(w, r)
		if !ok {
			return
		}

		ids, ok := stringSlice(raw["ids"])
		if !ok {
			writeFailure(w, http.StatusBadRequest, "`ids` must be an array of document IDs")
			return
		}

		orders, err := repo.ListExcluding(r.Context(), ids)
		if err != nil {
			writeError(w, "ExcludeOrders", err)
			return
		}

		writeSuccess(w, http.StatusOK, toViews(orders))
	}
}

// OrderLogsHandler returns the audit trail of an order, oldest first. The
// trail outlives the order, so a deleted order still answers with its entries.
func OrderLogsHandler(repo orderLogFinder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := repo.FindLogsByOrderID(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			writeError(w, "OrderLogs", err)
			return
		}
		if logs == nil {
			logs = []model.OrderLog{}
		}

		writeSuccess(w, http.StatusOK, logs)
	}
}

func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || raw == nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return raw, true
}

// stringSlice reports whether v is a JSON array and returns its string
// elements. Other elements can never equal an orderId and are skipped.
func stringSlice(v interface{}) ([]string, bool) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, false
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}
