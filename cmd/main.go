package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ordersapi/cmd/dailyid"
	"ordersapi/cmd/ordersctl"
	"ordersapi/src/app"
	"ordersapi/src/database"
	"ordersapi/src/handler"
	"ordersapi/src/server"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "Orders CMD"
	cliApp.Usage = "The orders API command line interface"
	cliApp.Version = Version
	cliApp.Before = func(_ *cli.Context) error {
		config := database.GetConfig()
		app.SetupLogger(config.LogLevel, config.LogFormat)
		return nil
	}

	cliApp.Commands = []cli.Command{
		serveCMD,
		migrateCMD,
		dailyIDCMD,
		ordersCMD,
	}

	if err := cliApp.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var dailyIDConfig = dailyid.GetConfig()

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the orders API",
		Action:      serveAction,
		Description: `Open the store selected by STORE_URL and serve the HTTP API on PORT`,
	}
	migrateCMD = cli.Command{
		Name:        "migrate",
		Usage:       "prepare the store schema",
		Action:      migrateAction,
		Description: `Run schema and data migrations (relational stores) or create indexes (MongoDB), then exit`,
	}
	dailyIDCMD = cli.Command{
		Name:   "daily-id",
		Usage:  "issue ddmmyyyy_NNN identifiers",
		Action: dailyIDAction,
		Flags: []cli.Flag{
			cli.IntFlag{Name: "count, n", Usage: "identifiers to print", Value: dailyIDConfig.Count},
			cli.BoolFlag{Name: "follow, f", Usage: "keep issuing identifiers, resetting at midnight"},
			cli.DurationFlag{Name: "every", Usage: "interval between identifiers with --follow", Value: dailyIDConfig.Every},
		},
		Description: `Print identifiers from the daily sequence in the Asia/Jakarta calendar`,
	}
	ordersCMD = cli.Command{
		Name:  "orders",
		Usage: "call a running orders API (ORDERS_API_URL)",
		Subcommands: []cli.Command{
			{
				Name:   "list",
				Usage:  "list orders",
				Action: ordersListAction,
				Flags: []cli.Flag{
					cli.IntFlag{Name: "limit", Usage: "maximum number of orders"},
					cli.Int64Flag{Name: "after", Usage: "only orders created after this epoch millisecond"},
				},
			},
			{Name: "get", Usage: "fetch one order", ArgsUsage: "<orderId>", Action: ordersGetAction},
			{
				Name:   "create",
				Usage:  "open an order",
				Action: ordersCreateAction,
				Flags: []cli.Flag{
					cli.StringFlag{Name: "symbol"},
					cli.StringFlag{Name: "type", Usage: "open order type, e.g. OP_BUY_STOP"},
					cli.StringFlag{Name: "open"},
					cli.StringFlag{Name: "sl"},
					cli.StringFlag{Name: "tp"},
					cli.StringFlag{Name: "size"},
				},
			},
			{Name: "close", Usage: "close an order", ArgsUsage: "<orderId>", Action: ordersCloseAction},
			{Name: "delete", Usage: "delete an order", ArgsUsage: "<orderId>", Action: ordersDeleteAction},
			{Name: "exclude", Usage: "list orders except the given ones", ArgsUsage: "[orderId...]", Action: ordersExcludeAction},
			{Name: "logs", Usage: "show the audit trail of an order", ArgsUsage: "<orderId>", Action: ordersLogsAction},
		},
	}
)

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting orders API CMD")

	ctx := context.Background()
	orders, err := app.New(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to connect to database")
		return err
	}
	defer orders.Close(ctx)

	cfg := server.GetConfig()
	server.StartServer(cfg.Port, orders.Router(handler.GetConfig()), cfg.ShutdownTimeout)
	return nil
}

func migrateAction(_ *cli.Context) error {
	logrus.Info("Starting migrate CMD")

	driver, err := database.Init()
	if err != nil {
		logrus.WithError(err).Error("Failed to migrate store")
		return err
	}
	defer database.Close(context.Background())

	logrus.WithField("driver", driver).Info("Store is up to date")
	return nil
}

func dailyIDAction(c *cli.Context) error {
	d := dailyid.New(os.Stdout, c.Int("count"))
	if !c.Bool("follow") {
		return d.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return d.Follow(ctx, c.Duration("every"))
}

func ordersListAction(c *cli.Context) error {
	var after *int64
	if c.IsSet("after") {
		v := c.Int64("after")
		after = &v
	}
	return ordersctl.New(os.Stdout).List(context.Background(), c.Int("limit"), after)
}

func ordersGetAction(c *cli.Context) error {
	orderID, err := orderIDArg(c)
	if err != nil {
		return err
	}
	return ordersctl.New(os.Stdout).Get(context.Background(), orderID)
}

func ordersCreateAction(c *cli.Context) error {
	return ordersctl.New(os.Stdout).Create(context.Background(),
		c.String("symbol"), c.String("type"),
		c.String("open"), c.String("sl"), c.String("tp"), c.String("size"),
	)
}

func ordersCloseAction(c *cli.Context) error {
	orderID, err := orderIDArg(c)
	if err != nil {
		return err
	}
	return ordersctl.New(os.Stdout).Close(context.Background(), orderID)
}

func ordersDeleteAction(c *cli.Context) error {
	orderID, err := orderIDArg(c)
	if err != nil {
		return err
	}
	return ordersctl.New(os.Stdout).Delete(context.Background(), orderID)
}

func ordersExcludeAction(c *cli.Context) error {
	return ordersctl.New(os.Stdout).Exclude(context.Background(), []string(c.Args()))
}

func ordersLogsAction(c *cli.Context) error {
	orderID, err := orderIDArg(c)
	if err != nil {
		return err
	}
	return ordersctl.New(os.Stdout).Logs(context.Background(), orderID)
}

func orderIDArg(c *cli.Context) (string, error) {
	orderID := c.Args().First()
	if orderID == "" {
		return "", errors.New("orderId argument is required")
	}
	return orderID, nil
}
