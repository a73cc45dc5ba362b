package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"ordersapi/src/model"
	"ordersapi/src/utils"
)

// envelope is the body of every JSON response of the orders API.
type envelope struct {
	Success bool        `json:"success"`
	ID      string      `json:"id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeError maps a domain error to its status code and failure body.
func writeError(w http.ResponseWriter, op string, err error) {
	status := statusForError(err)

	entry := logger.WithFields(map[string]interface{}{
		"handler": op,
		"status":  status,
	}).WithError(err)
	if status == http.StatusInternalServerError {
		entry.Error("request failed")
		writeFailure(w, status, "Internal Server Error")
		return
	}
	entry.Info("request rejected")

	writeFailure(w, status, err.Error())
}

func statusForError(err error) int {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrOrderNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func toView(o *model.Order) model.OrderView {
	return model.OrderView{
		DocID:           o.DocID,
		OrderID:         o.OrderID,
		Symbol:          o.Symbol,
		OrderType:       o.OrderType,
		OpenPrice:       o.OpenPrice,
		StopLossPrice:   o.StopLossPrice,
		TakeProfitPrice: o.TakeProfitPrice,
		OrderSize:       o.OrderSize,
		EpochSeconds:    o.EpochSeconds,
		EpochMilli:      o.EpochMilli,
		CreatedAt:       utils.ToReadableDate(&o.CreatedAt),
		UpdatedAt:       utils.ToReadableDate(o.UpdatedAt),
	}
}

func toViews(orders []model.Order) []model.OrderView {
	views := make([]model.OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, toView(&orders[i]))
	}
	return views
}
