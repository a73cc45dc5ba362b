package model

import "time"

// Transaction types recorded in the audit log.
const (
	TransactionTypeAdd    = "ADD"
	TransactionTypeUpdate = "UPDATE"
)

// OrderLog is an immutable audit entry appended on every create, update and close.
// It snapshots the order fields at the time of the operation.
type OrderLog struct {
	ID string `gorm:"primaryKey;size:36" bson:"_id" json:"id"`

	// Back-reference to the primary document
	DocID   string `gorm:"size:36;index" bson:"docId" json:"docId"`
	OrderID string `gorm:"size:32;index" bson:"orderId" json:"orderId"`

	Symbol          string  `gorm:"size:20" bson:"symbol" json:"symbol"`
	OrderType       string  `gorm:"size:30" bson:"orderType" json:"orderType"`
	OpenPrice       float64 `bson:"openPrice" json:"openPrice"`
	StopLossPrice   float64 `bson:"stopLossPrice" json:"stopLossPrice"`
	TakeProfitPrice float64 `bson:"takeProfitPrice" json:"takeProfitPrice"`
	OrderSize       float64 `bson:"orderSize" json:"orderSize"`

	TransactionType string    `gorm:"size:10;not null" bson:"transactionType" json:"transactionType"` // ADD | UPDATE
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
}

// TableName allows you to control the exact table name for the audit log.
func (OrderLog) TableName() string {
	return "orders_log"
}

// NewOrderLog snapshots the given order into an audit entry.
func NewOrderLog(id string, order *Order, transactionType string, at time.Time) *OrderLog {
	return &OrderLog{
		ID:              id,
		DocID:           order.DocID,
		OrderID:         order.OrderID,
		Symbol:          order.Symbol,
		OrderType:       order.OrderType,
		OpenPrice:       order.OpenPrice,
		StopLossPrice:   order.StopLossPrice,
		TakeProfitPrice: order.TakeProfitPrice,
		OrderSize:       order.OrderSize,
		TransactionType: transactionType,
		CreatedAt:       at,
	}
}
