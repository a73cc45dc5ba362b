package ordersctl

import (
	"context"
	"encoding/json"
	"io"

	"github.com/sirupsen/logrus"

	"ordersapi/src/client"
)

// OrdersCtl runs one orders API call and prints its result as indented JSON.
type OrdersCtl struct {
	Client *client.Client
	Out    io.Writer
	Log    *logrus.Entry
}

func New(out io.Writer) *OrdersCtl {
	return &OrdersCtl{
		Client: client.NewClient(client.GetConfig()),
		Out:    out,
		Log:    logrus.WithField("cmd", "orders"),
	}
}

func (o *OrdersCtl) List(ctx context.Context, limit int, after *int64) error {
	views, err := o.Client.ListOrders(ctx, limit, after)
	if err != nil {
		return err
	}
	return o.print(views)
}

func (o *OrdersCtl) Get(ctx context.Context, orderID string) error {
	view, err := o.Client.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	return o.print(view)
}

// Create opens an order. Numeric values are sent as strings and parsed by the server.
func (o *OrdersCtl) Create(ctx context.Context, symbol, orderType, openPrice, stopLoss, takeProfit, size string) error {
	view, err := o.Client.CreateOrder(ctx, map[string]interface{}{
		"symbol":          symbol,
		"orderType":       orderType,
		"openPrice":       openPrice,
		"stopLossPrice":   stopLoss,
		"takeProfitPrice": takeProfit,
		"orderSize":       size,
	})
	if err != nil {
		return err
	}
	o.Log.WithField("order_id", view.OrderID).Info("order opened")
	return o.print(view)
}

func (o *OrdersCtl) Close(ctx context.Context, orderID string) error {
	view, err := o.Client.CloseOrder(ctx, orderID)
	if err != nil {
		return err
	}
	return o.print(view)
}

func (o *OrdersCtl) Delete(ctx context.Context, orderID string) error {
	if err := o.Client.DeleteOrder(ctx, orderID); err != nil {
		return err
	}
	o.Log.WithField("order_id", orderID).Info("order deleted")
	return nil
}

func (o *OrdersCtl) Exclude(ctx context.Context, orderIDs []string) error {
	views, err := o.Client.ExcludeOrders(ctx, orderIDs)
	if err != nil {
		return err
	}
	return o.print(views)
}

func (o *OrdersCtl) Logs(ctx context.Context, orderID string) error {
	logs, err := o.Client.OrderLogs(ctx, orderID)
	if err != nil {
		return err
	}
	return o.print(logs)
}

func (o *OrdersCtl) print(v interface{}) error {
	enc := json.NewEncoder(o.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
