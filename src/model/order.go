package model

import "time"

// OrderTypeClose is the terminal order type written by the close operation.
const OrderTypeClose = "CLOSE"

// Order is the live document of a trading order.
// DocID is the storage identifier; OrderID is the identifier exposed to API callers.
type Order struct {
	DocID           string     `gorm:"primaryKey;size:36;column:doc_id" bson:"_id" json:"docId"`
	OrderID         string     `gorm:"size:32;not null;uniqueIndex" bson:"orderId" json:"orderId"`
	Symbol          string     `gorm:"size:20;not null" bson:"symbol" json:"symbol"`
	OrderType       string     `gorm:"size:30;not null" bson:"orderType" json:"orderType"`
	OpenPrice       float64    `bson:"openPrice" json:"openPrice"`
	StopLossPrice   float64    `bson:"stopLossPrice" json:"stopLossPrice"`
	TakeProfitPrice float64    `bson:"takeProfitPrice" json:"takeProfitPrice"`
	OrderSize       float64    `bson:"orderSize" json:"orderSize"`
	EpochSeconds    int64      `gorm:"index" bson:"epochSeconds" json:"epochSeconds"`
	EpochMilli      int64      `gorm:"index" bson:"epochMilli" json:"epochMilli"`
	CreatedAtLocal  string     `gorm:"size:19" bson:"createdAtLocal" json:"createdAtLocal"`
	CreatedAt       time.Time  `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt       *time.Time `gorm:"autoUpdateTime:false" bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// TableName allows you to control the exact table name for orders.
func (Order) TableName() string {
	return "orders"
}

// OrderView is the API representation of an order, with timestamps rendered
// in the display timezone.
type OrderView struct {
	DocID           string  `json:"docId"`
	OrderID         string  `json:"orderId"`
	Symbol          string  `json:"symbol"`
	OrderType       string  `json:"orderType"`
	OpenPrice       float64 `json:"openPrice"`
	StopLossPrice   float64 `json:"stopLossPrice"`
	TakeProfitPrice float64 `json:"takeProfitPrice"`
	OrderSize       float64 `json:"orderSize"`
	EpochSeconds    int64   `json:"epochSeconds"`
	EpochMilli      int64   `json:"epochMilli"`
	CreatedAt       *string `json:"createdAt"`
	UpdatedAt       *string `json:"updatedAt"`
}

// PriceFields are the mutable numeric fields of an order.
type PriceFields struct {
	OpenPrice       float64
	StopLossPrice   float64
	TakeProfitPrice float64
	OrderSize       float64
}

// ListOptions drives the listing queries.
// When After is set, orders with EpochMilli > *After are returned oldest first;
// otherwise orders are returned newest first. Limit <= 0 means no cap.
type ListOptions struct {
	Limit int
	After *int64
}
