package ordersctl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ordersapi/src/client"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCtl(t *testing.T, h http.HandlerFunc) (*OrdersCtl, *bytes.Buffer) {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	var out bytes.Buffer
	return &OrdersCtl{
		Client: client.NewClient(client.Config{BaseURL: server.URL, Timeout: 5 * time.Second}),
		Out:    &out,
		Log:    logrus.WithField("cmd", "orders"),
	}, &out
}

func TestCreate_SendsStringNumbers(t *testing.T) {
	ctl, out := newTestCtl(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "1900.5", body["openPrice"])
		assert.Equal(t, "OP_BUY_STOP", body["orderType"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"id":"1","data":{"orderId":"1","symbol":"XAUUSD"}}`))
	})

	require.NoError(t, ctl.Create(context.Background(), "XAUUSD", "OP_BUY_STOP", "1900.5", "1890", "1920", "0.1"))
	assert.Contains(t, out.String(), `"orderId": "1"`)
}

func TestDelete_PropagatesNotFound(t *testing.T) {
	ctl, out := newTestCtl(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"Order not found"}`))
	})

	err := ctl.Delete(context.Background(), "missing")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Empty(t, out.String())
}
