// Package client is a REST client for the orders API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"ordersapi/src/handler"
	"ordersapi/src/model"
)

const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 300 * time.Millisecond
	defaultRetryMaxBackoff = 3 * time.Second
)

type apiResponse struct {
	Success bool            `json:"success"`
	ID      string          `json:"id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// APIError is a failure envelope returned by the orders API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("orders api: %d %s", e.Status, e.Message)
}

type Client struct {
	http *resty.Client
}

// isRetryableResp retries reads on transport errors and transient statuses.
// Writes are never retried.
func isRetryableResp(r *resty.Response, err error) bool {
	if r != nil && r.Request != nil && r.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}

	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func NewClient(cfg Config) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp).
		SetHeader("Accept", "application/json")

	if cfg.AccountNo != "" {
		httpClient.SetHeader(handler.AccountHeader, cfg.AccountNo)
	}

	return &Client{http: httpClient}
}

// CreateOrder opens an order and returns it with its assigned orderId.
func (c *Client) CreateOrder(ctx context.Context, payload map[string]interface{}) (*model.OrderView, error) {
	var view model.OrderView
	req := c.request(ctx).SetBody(payload)
	if _, err := c.do(req, http.MethodPost, "/orders", &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*model.OrderView, error) {
	var view model.OrderView
	req := c.request(ctx).SetPathParam("orderId", orderID)
	if _, err := c.do(req, http.MethodGet, "/orders/{orderId}", &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// ListOrders lists orders; limit <= 0 and a nil after are omitted.
func (c *Client) ListOrders(ctx context.Context, limit int, after *int64) ([]model.OrderView, error) {
	params := map[string]string{}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	if after != nil {
		params["after"] = strconv.FormatInt(*after, 10)
	}

	var views []model.OrderView
	req := c.request(ctx).SetQueryParams(params)
	if _, err := c.do(req, http.MethodGet, "/orders", &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (c *Client) CloseOrder(ctx context.Context, orderID string) (*model.OrderView, error) {
	var view model.OrderView
	req := c.request(ctx).SetPathParam("orderId", orderID)
	if _, err := c.do(req, http.MethodGet, "/orders/close/{orderId}", &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	req := c.request(ctx).SetPathParam("orderId", orderID)
	_, err := c.do(req, http.MethodDelete, "/orders/{orderId}", nil)
	return err
}

func (c *Client) ExcludeOrders(ctx context.Context, orderIDs []string) ([]model.OrderView, error) {
	if orderIDs == nil {
		orderIDs = []string{}
	}

	var views []model.OrderView
	req := c.request(ctx).SetBody(map[string][]string{"ids": orderIDs})
	if _, err := c.do(req, http.MethodPost, "/orders/exclude", &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (c *Client) OrderLogs(ctx context.Context, orderID string) ([]model.OrderLog, error) {
	var logs []model.OrderLog
	req := c.request(ctx).SetPathParam("orderId", orderID)
	if _, err := c.do(req, http.MethodGet, "/orders/{orderId}/logs", &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// request starts a call whose response lands in the API envelope.
func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

func (c *Client) do(req *resty.Request, method, path string, out interface{}) (*apiResponse, error) {
	var envelope apiResponse
	req.SetResult(&envelope).SetError(&envelope)

	resp, err := req.Execute(method, path)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"client": "orders",
			"method": method,
			"path":   path,
		}).WithError(err).Error("request failed")

		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.IsError() || !envelope.Success {
		return nil, &APIError{Status: resp.StatusCode(), Message: envelope.Message}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return &envelope, nil
}
