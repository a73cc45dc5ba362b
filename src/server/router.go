package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ordersapi/src/handler"
)

// Dependencies are the collaborators the routes dispatch to.
type Dependencies struct {
	Orders      handler.OrderStore
	IDs         handler.IDGenerator
	Subscribers handler.SubscriberChecker // nil disables /subscribers and the gate
	Stream      handler.AuditSubscriber   // nil disables /orders/stream
	Config      handler.Config
	Now         func() time.Time
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/", handler.HelloHandler())
	r.Get("/healthcheck", handler.HealthcheckHandler())
	r.Get("/epoch", handler.EpochHandler(deps.Now))

	if deps.Subscribers != nil {
		r.Get("/subscribers/{accountNo}", handler.SubscriberHandler(deps.Subscribers))
	}

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", handler.ListOrdersHandler(deps.Orders))
		r.Get("/latestTimestamp", handler.LatestTimestampHandler(deps.Orders, deps.Config.DefaultLatestLimit))
		r.Get("/latestTimestamp/{latestTimestamp}", handler.LatestTimestampHandler(deps.Orders, deps.Config.DefaultLatestLimit))
		r.Post("/exclude", handler.ExcludeOrdersHandler(deps.Orders))
		r.Get("/{orderId}", handler.GetOrderHandler(deps.Orders))
		r.Get("/{orderId}/logs", handler.OrderLogsHandler(deps.Orders))
		if deps.Stream != nil {
			r.Get("/stream", handler.OrderStreamHandler(deps.Stream))
		}

		// Mutating routes
		r.Group(func(r chi.Router) {
			if deps.Config.SubscriberCheck && deps.Subscribers != nil {
				r.Use(handler.RequireSubscriber(deps.Subscribers))
			}

			r.Post("/", handler.CreateOrderHandler(deps.Orders, deps.IDs))
			r.Put("/{orderId}", handler.UpdateOrderHandler(deps.Orders))
			r.Delete("/{orderId}", handler.DeleteOrderHandler(deps.Orders))
			r.Get("/close/{orderId}", handler.CloseOrderHandler(deps.Orders))
		})
	})

	return r
}
