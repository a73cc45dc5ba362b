package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"ordersapi/src/model"
)

const streamWriteTimeout = 10 * time.Second

// AuditSubscriber hands out live feeds of committed audit entries.
type AuditSubscriber interface {
	Subscribe() (<-chan model.OrderLog, func())
}

// OrderStreamHandler upgrades to a websocket and pushes every audit entry
// committed from then on as a JSON text frame. The optional `orderId` query
// parameter restricts the feed to one order.
func OrderStreamHandler(hub AuditSubscriber) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		orderID := r.URL.Query().Get("orderId")

		entries, cancel := hub.Subscribe()
		defer cancel()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Warn("order stream upgrade failed")
			return
		}
		defer conn.Close()

		// Reads only detect the client going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case entry, ok := <-entries:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
						time.Now().Add(streamWriteTimeout))
					return
				}
				if orderID != "" && entry.OrderID != orderID {
					continue
				}

				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := conn.WriteJSON(entry); err != nil {
					logger.WithError(err).Info("order stream client dropped")
					return
				}
			}
		}
	}
}
