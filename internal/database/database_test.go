package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"go.uber.org/goleak"

	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

func newMockPool(t *testing.T, warn time.Duration) (*Pool, sqlmock.Sqlmock, *test.Hook) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	base, hook := test.NewNullLogger()
	return New(sqlx.NewDb(db, "postgres"), logger.FromLogrus(base, "database-test"), warn), mock, hook
}

func TestPool_Exec_RowCount(t *testing.T) {
	pool, mock, _ := newMockPool(t, time.Second)

	mock.ExpectExec("DELETE FROM user_exercise_library").
		WithArgs(int64(3), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := pool.Exec(context.Background(), `DELETE FROM user_exercise_library WHERE id = $1 AND user_id = $2`, int64(3), int64(42))
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if n != 1 {
		t.Errorf("rowCount = %d, want 1", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPool_ErrorMapping(t *testing.T) {
	pool, mock, _ := newMockPool(t, time.Second)
	ctx := context.Background()

	mock.ExpectQuery("SELECT").WillReturnError(sql.ErrNoRows)
	var id int64
	if err := pool.Get(ctx, &id, "SELECT id FROM users WHERE id = $1", 1); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Get() error = %v, want sql.ErrNoRows", err)
	}

	mock.ExpectExec("INSERT").WillReturnError(&pq.Error{Code: "23505", Constraint: "user_exercise_library_user_name_key"})
	if _, err := pool.Exec(ctx, "INSERT INTO user_exercise_library (user_id, name) VALUES ($1, $2)", 1, "x"); !apperrors.IsConflict(err) {
		t.Errorf("Exec() error = %v, want conflict", err)
	}

	mock.ExpectExec("UPDATE").WillReturnError(errors.New("connection refused"))
	_, err := pool.Exec(ctx, "UPDATE users SET role = $1", "user")
	if !errors.Is(err, apperrors.ErrDatabase) {
		t.Errorf("Exec() error = %v, want ErrDatabase", err)
	}
}

func TestWithTx_Commit(t *testing.T) {
	pool, mock, _ := newMockPool(t, time.Second)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO resist_training_program").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := pool.WithTx(context.Background(), func(tx Queryer) error {
		_, err := tx.Exec(context.Background(), "INSERT INTO resist_training_program (user_id) VALUES ($1)", 1)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWithTx_RollbackOnError(t *testing.T) {
	pool, mock, _ := newMockPool(t, time.Second)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := pool.WithTx(context.Background(), func(tx Queryer) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	pool, mock, _ := newMockPool(t, time.Second)

	mock.ExpectBegin()
	mock.ExpectRollback()

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = pool.WithTx(context.Background(), func(tx Queryer) error { panic("bad") })
	}()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClient_WatchdogLogsLongCheckout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pool, mock, hook := newMockPool(t, 20*time.Millisecond)
	defer pool.Close()
	mock.ExpectExec("SELECT pg_sleep").WillReturnResult(sqlmock.NewResult(0, 0))

	client, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := client.Exec(context.Background(), "SELECT pg_sleep(1)"); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e := hook.LastEntry(); e != nil && e.Level == logrus.WarnLevel {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatal("expected watchdog warning")
	}
	if entry.Data["last_query"] != "SELECT pg_sleep(1)" {
		t.Errorf("last_query = %v", entry.Data["last_query"])
	}

	client.Release()
	client.Release()
}

func TestClient_ReleaseBeforeThreshold(t *testing.T) {
	pool, _, hook := newMockPool(t, 50*time.Millisecond)

	client, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	client.Release()
	time.Sleep(80 * time.Millisecond)

	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			t.Errorf("unexpected warning after release: %s", e.Message)
		}
	}
}

func TestWatch_FatalAfterConsecutiveFailures(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pool, mock, _ := newMockPool(t, time.Second)
	defer pool.Close()
	for i := 0; i < fatalPingFailures; i++ {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	}

	fatal := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		pool.Watch(context.Background(), 5*time.Millisecond, func(err error) { fatal <- err })
		close(done)
	}()

	select {
	case err := <-fatal:
		if err == nil {
			t.Error("onFatal called with nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onFatal was not called")
	}
	<-done
}

func TestWatch_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pool, _, _ := newMockPool(t, time.Second)
	defer pool.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.Watch(ctx, time.Hour, func(error) { t.Error("unexpected fatal") })
		close(done)
	}()
	cancel()
	<-done
}
