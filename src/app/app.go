// Package app assembles the orders service from its configured store.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"ordersapi/src/database"
	"ordersapi/src/events"
	"ordersapi/src/handler"
	"ordersapi/src/repository"
	"ordersapi/src/server"
	"ordersapi/src/sequence"
)

// OrderStore is a handler.OrderStore that can also report its largest orderId.
type OrderStore interface {
	handler.OrderStore
	HighWaterMark(ctx context.Context) (int64, error)
}

type App struct {
	Driver      string
	Orders      OrderStore
	Subscribers handler.SubscriberChecker
	IDs         *sequence.EpochGenerator
	Hub         *events.Hub
	Publisher   events.Publisher
}

const streamBuffer = 64

// New opens the store selected by STORE_URL and builds the repositories on it.
func New(ctx context.Context) (*App, error) {
	driver, err := database.Init()
	if err != nil {
		return nil, err
	}

	hub := events.NewHub(streamBuffer)
	publisher := events.Multi(events.NewPublisher(), hub)

	a := &App{Driver: driver, Hub: hub, Publisher: publisher}
	switch driver {
	case database.DriverMongo:
		a.Orders = repository.NewMongoOrderRepository().WithPublisher(publisher)
		a.Subscribers = repository.NewMongoSubscriberRepository()
	default:
		a.Orders = repository.NewOrderRepository().WithPublisher(publisher)
		a.Subscribers = repository.NewSubscriberRepository()
	}

	if err := a.seedIDs(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	return a, nil
}

func (a *App) seedIDs(ctx context.Context) error {
	highWater, err := a.Orders.HighWaterMark(ctx)
	if err != nil {
		return fmt.Errorf("read orderId high-water mark: %w", err)
	}
	a.IDs = sequence.NewEpochGenerator(highWater, nil)

	logger.WithFields(map[string]interface{}{
		"driver":     a.Driver,
		"high_water": highWater,
	}).Info("order id generator seeded")

	return nil
}

// Router returns the HTTP surface bound to this app.
func (a *App) Router(cfg handler.Config) http.Handler {
	return server.NewRouter(server.Dependencies{
		Orders:      a.Orders,
		IDs:         a.IDs,
		Subscribers: a.Subscribers,
		Stream:      a.Hub,
		Config:      cfg,
		Now:         time.Now,
	})
}

// Close releases the publisher and the store connections.
func (a *App) Close(ctx context.Context) {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			logger.WithError(err).Warn("failed to close audit publisher")
		}
	}
	database.Close(ctx)
}
