package main

import (
	"context"
	"fmt"
	"os"
	"time"

	logger "github.com/sirupsen/logrus"

	"ordersapi/src/app"
	"ordersapi/src/database"
	"ordersapi/src/handler"
	"ordersapi/src/server"
)

var APP_NAME = os.Getenv("APP_NAME")

func main() {
	dbConfig := database.GetConfig()
	app.SetupLogger(dbConfig.LogLevel, dbConfig.LogFormat)
	defer handlePanic()

	ctx := context.Background()
	orders, err := app.New(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer orders.Close(ctx)

	cfg := server.GetConfig()
	server.StartServer(cfg.Port, orders.Router(handler.GetConfig()), cfg.ShutdownTimeout)
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		//nolint
		time.Sleep(time.Second * 5)
	}
}
