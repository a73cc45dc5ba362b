package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ordersapi/src/database/migrations"
	"ordersapi/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store backends selected by the scheme of STORE_URL.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// MainDB is the relational connection, set when the store is postgres or sqlite.
var MainDB *gorm.DB

// DriverFor maps a store URL to its backend.
func DriverFor(storeURL string) (string, error) {
	switch {
	case strings.HasPrefix(storeURL, "postgres://"), strings.HasPrefix(storeURL, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(storeURL, "mongodb://"), strings.HasPrefix(storeURL, "mongodb+srv://"):
		return DriverMongo, nil
	case strings.HasPrefix(storeURL, "sqlite://"):
		return DriverSQLite, nil
	case storeURL == "":
		return "", errors.New("STORE_URL is empty")
	default:
		return "", fmt.Errorf("unsupported store url scheme in %q", redact(storeURL))
	}
}

// Init opens the configured store and prepares its schema.
// It returns the selected driver.
func Init() (string, error) {
	config := GetConfig()

	driver, err := DriverFor(config.StoreURL)
	if err != nil {
		return "", err
	}

	switch driver {
	case DriverMongo:
		return driver, InitMongoDB(config)
	default:
		return driver, InitMainDB(config, driver)
	}
}

// InitMainDB initializes the relational (read/write) database connection and runs migrations.
func InitMainDB(config Config, driver string) error {
	var dialector gorm.Dialector
	if driver == DriverSQLite {
		dialector = sqlite.Open(strings.TrimPrefix(config.StoreURL, "sqlite://"))
	} else {
		dialector = postgres.Open(config.StoreURL)
	}

	db, err := gorm.Open(dialector,
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from GORM: %w", err)
	}
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(1 * time.Hour)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	// Assign to the global variable only after a successful connection.
	MainDB = db

	logrus.WithField("driver", driver).Info("[database] MainDB connection established")

	if err := Migrate(MainDB); err != nil {
		return err
	}

	logrus.Info("[database] MainDB migrations completed")

	return nil
}

// Migrate creates or updates the order schema and runs the data migrations.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Order{},
		&model.OrderLog{},
		&model.Subscriber{},
		&migrations.DataMigration{},
	); err != nil {
		return fmt.Errorf("failed to run migrations on MainDB: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("failed to run data migrations on MainDB: %w", err)
	}

	return nil
}

func redact(storeURL string) string {
	if i := strings.Index(storeURL, "@"); i >= 0 {
		if j := strings.Index(storeURL, "://"); j >= 0 && j < i {
			return storeURL[:j+3] + "***" + storeURL[i:]
		}
	}
	return storeURL
}
