package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"ordersapi/src/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu      sync.Mutex
	entries []model.OrderLog
	err     error
}

func (p *recordingPublisher) PublishOrderLog(_ context.Context, entry *model.OrderLog) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, *entry)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func newSQLiteRepo(t *testing.T) (*OrderRepository, *gorm.DB, *recordingPublisher) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Order{}, &model.OrderLog{}, &model.Subscriber{}))

	pub := &recordingPublisher{}
	repo := &OrderRepository{db: db, auditing: defaultAuditing()}
	repo.now = steppingClock(time.Date(2025, 5, 5, 11, 0, 0, 0, time.UTC))
	repo = repo.WithPublisher(pub)

	return repo, db, pub
}

func newOrder(orderID, symbol, orderType string) *model.Order {
	return &model.Order{
		OrderID:         orderID,
		Symbol:          symbol,
		OrderType:       orderType,
		OpenPrice:       2300.5,
		StopLossPrice:   2290,
		TakeProfitPrice: 2320,
		OrderSize:       0.1,
	}
}

func TestOrderRepository_CreateWritesAddEntry(t *testing.T) {
	repo, db, pub := newSQLiteRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, newOrder("1746442975000", "XAUUSD", "OP_BUY_STOP"))
	require.NoError(t, err)
	require.NotEmpty(t, created.DocID)
	assert.Equal(t, "2025-05-05 18:00:01", created.CreatedAtLocal)
	assert.Equal(t, created.CreatedAt.Unix(), created.EpochSeconds)
	assert.Equal(t, created.CreatedAt.UnixMilli(), created.EpochMilli)
	assert.Nil(t, created.UpdatedAt)

	got, err := repo.FindByOrderID(ctx, "1746442975000")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.DocID, got.DocID)
	assert.Equal(t, "XAUUSD", got.Symbol)
	assert.Equal(t, 2300.5, got.OpenPrice)

	var logs []model.OrderLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.TransactionTypeAdd, logs[0].TransactionType)
	assert.Equal(t, created.DocID, logs[0].DocID)
	assert.Equal(t, "OP_BUY_STOP", logs[0].OrderType)

	require.Len(t, pub.entries, 1)
	assert.Equal(t, logs[0].ID, pub.entries[0].ID)
}

func TestOrderRepository_CreateDuplicateOrderIDRollsBack(t *testing.T) {
	repo, db, _ := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, newOrder("1", "XAUUSD", "OP_BUY_STOP"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newOrder("1", "EURUSD", "OP_SELL_LIMIT"))
	require.Error(t, err)

	var logCount int64
	require.NoError(t, db.Model(&model.OrderLog{}).Count(&logCount).Error)
	assert.Equal(t, int64(1), logCount)
}

func TestOrderRepository_FindByOrderIDMissing(t *testing.T) {
	repo, _, _ := newSQLiteRepo(t)

	got, err := repo.FindByOrderID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestOrderRepository_Update(t *testing.T) {
	repo, _, pub := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, newOrder("100", "XAUUSD", "OP_BUY_STOP"))
	require.NoError(t, err)

	updated, err := repo.Update(ctx, "100", model.PriceFields{
		OpenPrice: 2310, StopLossPrice: 2300, TakeProfitPrice: 2330, OrderSize: 0.2,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, "OP_BUY_STOP", updated.OrderType)

	got, err := repo.FindByOrderID(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, 2310.0, got.OpenPrice)
	assert.Equal(t, 0.2, got.OrderSize)
	require.NotNil(t, got.UpdatedAt)

	logs, err := repo.FindLogsByOrderID(ctx, "100")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.TransactionTypeAdd, logs[0].TransactionType)
	assert.Equal(t, model.TransactionTypeUpdate, logs[1].TransactionType)
	assert.Equal(t, 2310.0, logs[1].OpenPrice)
	assert.Equal(t, 2330.0, logs[1].TakeProfitPrice)

	assert.Len(t, pub.entries, 2)
}

func TestOrderRepository_UpdateMissing(t *testing.T) {
	repo, db, pub := newSQLiteRepo(t)

	_, err := repo.Update(context.Background(), "missing", model.PriceFields{OpenPrice: 1})
	assert.ErrorIs(t, err, model.ErrOrderNotFound)

	var logCount int64
	require.NoError(t, db.Model(&model.OrderLog{}).Count(&logCount).Error)
	assert.Zero(t, logCount)
	assert.Empty(t, pub.entries)
}

func TestOrderRepository_CloseTwiceLogsTwice(t *testing.T) {
	repo, _, _ := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, newOrder("200", "EURUSD", "OP_SELL_LIMIT"))
	require.NoError(t, err)

	closed, err := repo.Close(ctx, "200")
	require.NoError(t, err)
	assert.Equal(t, model.OrderTypeClose, closed.OrderType)
	assert.Equal(t, 2300.5, closed.OpenPrice)

	_, err = repo.Close(ctx, "200")
	require.NoError(t, err)

	logs, err := repo.FindLogsByOrderID(ctx, "200")
	require.NoError(t, err)
	require.Len(t, logs, 3)
	for _, entry := range logs[1:] {
		assert.Equal(t, model.TransactionTypeUpdate, entry.TransactionType)
		assert.Equal(t, model.OrderTypeClose, entry.OrderType)
		assert.Equal(t, 2300.5, entry.OpenPrice)
	}

	_, err = repo.Close(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestOrderRepository_DeleteKeepsAuditLog(t *testing.T) {
	repo, _, _ := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, newOrder("300", "XAUUSD", "OP_BUY_LIMIT"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "300"))

	got, err := repo.FindByOrderID(ctx, "300")
	require.NoError(t, err)
	assert.Nil(t, got)

	logs, err := repo.FindLogsByOrderID(ctx, "300")
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	assert.ErrorIs(t, repo.Delete(ctx, "300"), model.ErrOrderNotFound)
}

func TestOrderRepository_ListAndCursor(t *testing.T) {
	repo, _, _ := newSQLiteRepo(t)
	ctx := context.Background()

	var created []*model.Order
	for _, id := range []string{"1", "2", "3"} {
		o, err := repo.Create(ctx, newOrder(id, "XAUUSD", "OP_BUY_STOP"))
		require.NoError(t, err)
		created = append(created, o)
	}

	all, err := repo.List(ctx, model.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"3", "2", "1"}, orderIDs(all))

	limited, err := repo.List(ctx, model.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2"}, orderIDs(limited))

	after := created[0].EpochMilli
	newer, err := repo.List(ctx, model.ListOptions{After: &after})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, orderIDs(newer))

	first, err := repo.FirstAfter(ctx, after)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "2", first.OrderID)

	none, err := repo.FirstAfter(ctx, created[2].EpochMilli)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestOrderRepository_CursorWithinOneMillisecond(t *testing.T) {
	repo, _, _ := newSQLiteRepo(t)
	fixed := time.Date(2025, 5, 5, 11, 2, 55, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		o, err := repo.Create(ctx, newOrder(id, "XAUUSD", "OP_BUY_STOP"))
		require.NoError(t, err)
		assert.Equal(t, o.CreatedAt.UnixMilli(), o.EpochMilli)
		assert.Equal(t, "2025-05-05 18:02:55", o.CreatedAtLocal)
	}

	cursor := fixed.UnixMilli() - 1
	var seen []string
	for i := 0; i < 5; i++ {
		page, err := repo.List(ctx, model.ListOptions{Limit: 1, After: &cursor})
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		seen = append(seen, page[0].OrderID)
		cursor = page[0].EpochMilli
	}
	assert.Equal(t, []string{"1", "2", "3"}, seen)

	cursor = fixed.UnixMilli() - 1
	var polled []string
	for {
		next, err := repo.FirstAfter(ctx, cursor)
		require.NoError(t, err)
		if next == nil {
			break
		}
		polled = append(polled, next.OrderID)
		cursor = next.EpochMilli
	}
	assert.Equal(t, []string{"1", "2", "3"}, polled)
}

func TestOrderRepository_ListExcluding(t *testing.T) {
	repo, _, _ := newSQLiteRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := repo.Create(ctx, newOrder(id, "EURUSD", "OP_SELL_STOP"))
		require.NoError(t, err)
	}

	rest, err := repo.ListExcluding(ctx, []string{"b", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, orderIDs(rest))

	everything, err := repo.ListExcluding(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, everything, 3)

	nothing, err := repo.ListExcluding(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.NotNil(t, nothing)
	assert.Empty(t, nothing)
}

func TestOrderRepository_HighWaterMark(t *testing.T) {
	repo, _, _ := newSQLiteRepo(t)
	ctx := context.Background()

	hw, err := repo.HighWaterMark(ctx)
	require.NoError(t, err)
	assert.Zero(t, hw)

	for _, id := range []string{"1746442975000", "999", "1746442975007"} {
		_, err := repo.Create(ctx, newOrder(id, "XAUUSD", "OP_BUY_STOP"))
		require.NoError(t, err)
	}

	hw, err = repo.HighWaterMark(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1746442975007), hw)
}

func TestOrderRepository_HighWaterMarkWarnsOnCorruptID(t *testing.T) {
	repo, _, _ := newSQLiteRepo(t)
	ctx := context.Background()
	hook := test.NewGlobal()
	defer hook.Reset()

	for _, id := range []string{"1746442975000", "not-a-number-order"} {
		_, err := repo.Create(ctx, newOrder(id, "XAUUSD", "OP_BUY_STOP"))
		require.NoError(t, err)
	}

	hw, err := repo.HighWaterMark(ctx)
	require.NoError(t, err)
	assert.Zero(t, hw)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "Largest orderId is not numeric, id generator starts from the clock" {
			warned = true
			assert.Equal(t, "not-a-number-order", entry.Data["order_id"])
		}
	}
	assert.True(t, warned)
}

func TestOrderRepository_PublishFailureDoesNotFailWrite(t *testing.T) {
	repo, _, pub := newSQLiteRepo(t)
	pub.err = errors.New("broker down")
	hook := test.NewGlobal()
	defer hook.Reset()

	_, err := repo.Create(context.Background(), newOrder("400", "XAUUSD", "OP_BUY_STOP"))
	require.NoError(t, err)
	assert.Len(t, pub.entries, 1)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "Failed to mirror audit entry" {
			warned = true
			assert.Equal(t, "400", entry.Data["order_id"])
		}
	}
	assert.True(t, warned)
}

func TestOrderRepositoryQueries(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := (&OrderRepository{auditing: defaultAuditing()}).WithDB(mockDB)
	ctx := context.Background()

	columns := []string{"doc_id", "order_id", "symbol", "order_type", "open_price", "epoch_milli"}

	t.Run("find by order id", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE order_id = $1 ORDER BY "orders"."doc_id" LIMIT $2`)).
			WithArgs("1746442975000", 1).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("doc-1", "1746442975000", "XAUUSD", "OP_BUY_STOP", 2300.5, int64(1746442975000)))

		got, err := repo.FindByOrderID(ctx, "1746442975000")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "doc-1", got.DocID)
	})

	t.Run("lists newest first", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" ORDER BY created_at DESC`)).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("doc-2", "2", "EURUSD", "OP_SELL_LIMIT", 1.08, int64(2)).
				AddRow("doc-1", "1", "XAUUSD", "OP_BUY_STOP", 2300.5, int64(1)))

		orders, err := repo.List(ctx, model.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"2", "1"}, orderIDs(orders))
	})

	t.Run("lists after cursor with limit", func(t *testing.T) {
		after := int64(1746442975000)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE epoch_milli > $1 ORDER BY epoch_milli ASC, order_id ASC LIMIT $2`)).
			WithArgs(after, 1).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("doc-3", "3", "XAUUSD", "OP_BUY_LIMIT", 2301.0, after+1))

		orders, err := repo.List(ctx, model.ListOptions{After: &after, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"3"}, orderIDs(orders))
	})

	t.Run("delete of unknown order", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "orders" WHERE order_id = $1`)).
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := repo.Delete(ctx, "missing")
		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE order_id = $1`)).
			WillReturnError(errors.New("connection reset"))

		got, err := repo.FindByOrderID(ctx, "x")
		require.Error(t, err)
		assert.Nil(t, got)
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func orderIDs(orders []model.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.OrderID)
	}
	return ids
}
