package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Symbols is the allow-list of tradable symbols. Entries mapped to false are
// recognized but currently disabled.
var Symbols = map[string]bool{
	"XAUUSD": true,
	"EURUSD": true,
	"AUDJPY": false,
}

// OpenOrderTypes is the allow-list of order types accepted on creation.
var OpenOrderTypes = map[string]bool{
	"OP_BUY":        false,
	"OP_BUY_STOP":   true,
	"OP_BUY_LIMIT":  true,
	"OP_SELL":       false,
	"OP_SELL_STOP":  true,
	"OP_SELL_LIMIT": true,
}

// UpdateOrderTypes is the allow-list of order types accepted on update.
var UpdateOrderTypes = map[string]bool{
	"OP_CLOSE": true,
}

// OrderCandidate is a normalized, not yet validated, order payload.
// Numeric fields are nil when absent and NaN when supplied but not numeric.
type OrderCandidate struct {
	OrderID         string
	Symbol          string
	OrderType       string
	OpenPrice       *float64
	StopLossPrice   *float64
	TakeProfitPrice *float64
	OrderSize       *float64
}

// NewOrderCandidate coerces a raw JSON payload into a candidate.
// String numbers are parsed as decimals; anything unparsable becomes NaN.
func NewOrderCandidate(raw map[string]interface{}) *OrderCandidate {
	return &OrderCandidate{
		OrderID:         stringField(raw, "orderId"),
		Symbol:          stringField(raw, "symbol"),
		OrderType:       stringField(raw, "orderType"),
		OpenPrice:       numericField(raw, "openPrice"),
		StopLossPrice:   numericField(raw, "stopLossPrice"),
		TakeProfitPrice: numericField(raw, "takeProfitPrice"),
		OrderSize:       numericField(raw, "orderSize"),
	}
}

// Validate runs the creation checks: required fields, numeric fields and both
// allow-lists.
func (c *OrderCandidate) Validate() error {
	if c.Symbol == "" {
		return newValidationError("symbol", "symbol is required")
	}
	if c.OrderType == "" {
		return newValidationError("orderType", "orderType is required")
	}
	if err := c.validateNumbers(); err != nil {
		return err
	}
	if !Symbols[c.Symbol] {
		return newValidationError("symbol", fmt.Sprintf("Unable to Open Order for %s", c.Symbol))
	}
	if !OpenOrderTypes[c.OrderType] {
		return newValidationError("orderType", fmt.Sprintf("Unable to Open Order for order type : %s", c.OrderType))
	}
	return nil
}

// ValidateUpdate runs the update checks. The symbol is not re-validated and
// orderType is only checked when present.
func (c *OrderCandidate) ValidateUpdate() error {
	if err := c.validateNumbers(); err != nil {
		return err
	}
	if c.OrderType != "" && !UpdateOrderTypes[c.OrderType] {
		return newValidationError("orderType", fmt.Sprintf("Unable to Update Order for order type : %s", c.OrderType))
	}
	return nil
}

// Prices returns the numeric fields. Only call after a successful validation.
func (c *OrderCandidate) Prices() PriceFields {
	return PriceFields{
		OpenPrice:       *c.OpenPrice,
		StopLossPrice:   *c.StopLossPrice,
		TakeProfitPrice: *c.TakeProfitPrice,
		OrderSize:       *c.OrderSize,
	}
}

// ToOrder builds the order document from a validated candidate.
func (c *OrderCandidate) ToOrder() *Order {
	p := c.Prices()
	return &Order{
		OrderID:         c.OrderID,
		Symbol:          c.Symbol,
		OrderType:       c.OrderType,
		OpenPrice:       p.OpenPrice,
		StopLossPrice:   p.StopLossPrice,
		TakeProfitPrice: p.TakeProfitPrice,
		OrderSize:       p.OrderSize,
	}
}

func (c *OrderCandidate) validateNumbers() error {
	fields := []struct {
		name  string
		value *float64
	}{
		{"openPrice", c.OpenPrice},
		{"stopLossPrice", c.StopLossPrice},
		{"takeProfitPrice", c.TakeProfitPrice},
		{"orderSize", c.OrderSize},
	}
	for _, f := range fields {
		if f.value == nil || math.IsNaN(*f.value) || math.IsInf(*f.value, 0) {
			return newValidationError(f.name, fmt.Sprintf("%s must be a valid number", f.name))
		}
	}
	return nil
}

func stringField(raw map[string]interface{}, key string) string {
	s, _ := raw[key].(string)
	return strings.TrimSpace(s)
}

func numericField(raw map[string]interface{}, key string) *float64 {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			f = math.NaN()
		} else {
			f = d.InexactFloat64()
		}
	default:
		f = math.NaN()
	}
	return &f
}
