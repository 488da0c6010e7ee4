package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	"github.com/higher-endeavors/endeavors/internal/app/domain/settings"
	"github.com/higher-endeavors/endeavors/internal/app/domain/training"
	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
	"github.com/higher-endeavors/endeavors/internal/config"
	"github.com/higher-endeavors/endeavors/internal/database"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
	"github.com/higher-endeavors/endeavors/internal/platform/migrations"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

var programCols = []string{
	"program_id", "user_id", "program_name", "periodization_type_id", "phase_id", "tier_continuum_id",
	"template_category_id", "notes", "start_date", "created_at", "updated_at",
}

var exerciseCols = []string{
	"program_exercises_id", "program_id", "exercise_source", "exercise_library_id", "user_exercise_library_id",
	"exercise_name", "pairing", "exercise_order", "sets", "reps", "load", "load_unit", "tempo", "rest_seconds",
	"notes", "actual_sets",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	base, _ := test.NewNullLogger()
	pool := database.New(sqlx.NewDb(db, "postgres"), logger.FromLogrus(base, "store-test"), time.Minute)
	return New(pool), mock
}

var connectionCols = []string{
	"connection_id", "user_id", "provider", "provider_user_id", "access_token", "refresh_token",
	"token_expires_at", "scopes", "is_active", "last_sync_at", "created_at", "updated_at",
}

var userCols = []string{
	"id", "email", "name", "role", "auth_provider", "auth_subject", "stripe_customer_id", "created_at", "updated_at",
}

// nonNullArray matches a bound text[] argument that is not SQL NULL.
type nonNullArray struct{}

func (nonNullArray) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, "{")
}

func exerciseRow(id, programID int64, name string, order int) *sqlmock.Rows {
	return sqlmock.NewRows(exerciseCols).AddRow(
		id, programID, "library", nil, nil, name, "", order, 3, 10, nil, "kg", "", 90, "", []byte("[]"),
	)
}

func TestCreateProgram_RollsBackWhenAnExerciseFails(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO resist_training_program").
		WillReturnRows(sqlmock.NewRows(programCols).AddRow(int64(9), int64(42), "Block A", nil, nil, nil, nil, "", nil, now, now))
	mock.ExpectQuery("INSERT INTO resist_training_program_exercises").
		WillReturnRows(exerciseRow(100, 9, "Back Squat", 1))
	mock.ExpectQuery("INSERT INTO resist_training_program_exercises").
		WillReturnError(errors.New("violates check constraint"))
	mock.ExpectRollback()

	np := training.NewProgram{
		Name: "Block A",
		Exercises: []training.NewExercise{
			{Name: "Back Squat", Source: "library", LoadUnit: "kg", Order: 1},
			{Name: "Deadlift", Source: "library", LoadUnit: "st", Order: 2},
		},
	}
	_, err := store.CreateProgram(context.Background(), 42, np)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert exercise 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProgram_Commits(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO resist_training_program").
		WillReturnRows(sqlmock.NewRows(programCols).AddRow(int64(9), int64(42), "Block A", nil, nil, nil, nil, "", nil, now, now))
	mock.ExpectQuery("INSERT INTO resist_training_program_exercises").
		WillReturnRows(exerciseRow(100, 9, "Back Squat", 1))
	mock.ExpectCommit()

	prog, err := store.CreateProgram(context.Background(), 42, training.NewProgram{
		Name:      "Block A",
		Exercises: []training.NewExercise{{Name: "Back Squat", Source: "library", LoadUnit: "kg", Order: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), prog.ID)
	require.Len(t, prog.Exercises, 1)
	assert.Equal(t, "Back Squat", prog.Exercises[0].Name)
	assert.Empty(t, prog.Exercises[0].ActualSets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProgram_DecodesAggregatedExercises(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	agg := `[{"program_exercises_id":100,"program_id":9,"exercise_source":"library","exercise_name":"Back Squat",
		"pairing":"A1","exercise_order":1,"sets":3,"reps":5,"load":100.5,"load_unit":"kg","tempo":"","rest_seconds":120,
		"notes":"","actual_sets":[{"set":1,"reps":5,"completed":true}]}]`
	cols := append(append([]string{}, programCols...), "exercises")
	mock.ExpectQuery("FROM resist_training_program p").
		WithArgs(int64(9), int64(42)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(9), int64(42), "Block A", nil, nil, nil, nil, "", nil, now, now, []byte(agg)))

	prog, err := store.GetProgram(context.Background(), 42, 9)
	require.NoError(t, err)
	require.Len(t, prog.Exercises, 1)
	ex := prog.Exercises[0]
	assert.Equal(t, "A1", ex.Pairing)
	require.NotNil(t, ex.Load)
	assert.InDelta(t, 100.5, *ex.Load, 1e-9)
	require.Len(t, ex.ActualSets, 1)
	assert.True(t, ex.ActualSets[0].Completed)
}

func TestGetProgram_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	cols := append(append([]string{}, programCols...), "exercises")
	mock.ExpectQuery("FROM resist_training_program p").WillReturnRows(sqlmock.NewRows(cols))

	_, err := store.GetProgram(context.Background(), 42, 9)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func TestDeleteProgram_OtherUsersProgramIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM resist_training_program_exercises").
		WithArgs(int64(9), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM resist_training_program WHERE").
		WithArgs(int64(9), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.DeleteProgram(context.Background(), 7, 9)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProgram_DeletesExercisesThenProgram(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM resist_training_program_exercises").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("DELETE FROM resist_training_program WHERE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteProgram(context.Background(), 42, 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserExercise_DuplicateSkipsInsert(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(42), "goblet squat").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := store.CreateUserExercise(context.Background(), 42, "  goblet squat ")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	var ce *apperrors.ConflictError
	assert.True(t, errors.As(err, &ce))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserExercise_UniqueViolationIsConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO user_exercise_library").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "user_exercise_library_user_name_key"})
	mock.ExpectRollback()

	_, err := store.CreateUserExercise(context.Background(), 42, "Goblet Squat")
	var ce *apperrors.ConflictError
	assert.True(t, errors.As(err, &ce), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSessionResults_UnknownExerciseWritesNothing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(42)))
	mock.ExpectQuery("SELECT program_exercises_id").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"program_exercises_id"}).AddRow(int64(100)).AddRow(int64(101)))
	mock.ExpectRollback()

	results := []training.SessionResult{
		{ProgramExercisesID: 100, ActualSets: training.ActualSets{{Set: 1, Reps: 5}}},
		{ProgramExercisesID: 555, ActualSets: training.ActualSets{{Set: 1, Reps: 5}}},
	}
	err := store.RecordSessionResults(context.Background(), 42, 9, results)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSessionResults_OtherOwnerIsForbidden(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(1)))
	mock.ExpectRollback()

	err := store.RecordSessionResults(context.Background(), 42, 9, nil)
	assert.True(t, apperrors.IsOwnershipError(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSessionResults_UpdatesEachExercise(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(42)))
	mock.ExpectQuery("SELECT program_exercises_id").
		WillReturnRows(sqlmock.NewRows([]string{"program_exercises_id"}).AddRow(int64(100)))
	mock.ExpectExec("UPDATE resist_training_program_exercises").
		WithArgs(`[{"set":1,"reps":5,"completed":true}]`, int64(100), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE resist_training_program SET updated_at").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.RecordSessionResults(context.Background(), 42, 9, []training.SessionResult{
		{ProgramExercisesID: 100, ActualSets: training.ActualSets{{Set: 1, Reps: 5, Completed: true}}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEnumeration_UnknownKind(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.ListEnumeration(context.Background(), "users; DROP TABLE users")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpsertActivities_CountsRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO device_activities").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO device_activities").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	n, err := store.UpsertActivities(context.Background(), []device.Activity{
		{ConnectionID: 1, UserID: 42, Provider: device.ProviderStrava, ExternalID: "a1", StartTime: time.Now()},
		{ConnectionID: 1, UserID: 42, Provider: device.ProviderStrava, ExternalID: "a2", StartTime: time.Now()},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateConnection_ReportsChange(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE device_connections").
		WithArgs(int64(42), device.ProviderGarmin).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := store.DeactivateConnection(context.Background(), 42, device.ProviderGarmin)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSaveConnection_NilScopesBindEmptyArray(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE device_connections").
		WithArgs(int64(42), device.ProviderGarmin).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO device_connections").
		WithArgs(int64(42), device.ProviderGarmin, "g-1", "sealed-access", "sealed-refresh", nil, nonNullArray{}).
		WillReturnRows(sqlmock.NewRows(connectionCols).AddRow(
			int64(5), int64(42), device.ProviderGarmin, "g-1", "sealed-access", "sealed-refresh",
			nil, "{}", true, nil, now, now))
	mock.ExpectCommit()

	c, err := store.SaveConnection(context.Background(), device.Connection{
		UserID:         42,
		Provider:       device.ProviderGarmin,
		ProviderUserID: "g-1",
		AccessToken:    "sealed-access",
		RefreshToken:   "sealed-refresh",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.ID)
	assert.True(t, c.Active)
	assert.Empty(t, c.Scopes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveConnection_FailedInsertRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE device_connections").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO device_connections").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := store.SaveConnection(context.Background(), device.Connection{
		UserID: 42, Provider: device.ProviderStrava, Scopes: pq.StringArray{"activity:read_all"},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveConnection_AfterDeactivateIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("FROM device_connections").
		WithArgs(int64(42), device.ProviderStrava).
		WillReturnRows(sqlmock.NewRows(connectionCols).AddRow(
			int64(3), int64(42), device.ProviderStrava, "s-9", "a", "r", nil, "{read}", true, nil, now, now))
	mock.ExpectExec("UPDATE device_connections").
		WithArgs(int64(42), device.ProviderStrava).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM device_connections").
		WithArgs(int64(42), device.ProviderStrava).
		WillReturnRows(sqlmock.NewRows(connectionCols))

	ctx := context.Background()
	c, err := store.GetActiveConnection(ctx, 42, device.ProviderStrava)
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, []string(c.Scopes))

	changed, err := store.DeactivateConnection(ctx, 42, device.ProviderStrava)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = store.GetActiveConnection(ctx, 42, device.ProviderStrava)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSettings_UpdatesOnConflict(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	us := settings.Defaults(42)
	us.WeightUnit = "lb"
	mock.ExpectQuery(`INSERT INTO user_settings .* ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs(int64(42), "lb", "cm", "km", "UTC", true, false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"user_id", "weight_unit", "length_unit", "distance_unit", "timezone",
			"email_notifications", "push_notifications", "pillar_settings", "updated_at",
		}).AddRow(int64(42), "lb", "cm", "km", "UTC", true, false, []byte("{}"), now))

	out, err := store.UpsertSettings(context.Background(), us)
	require.NoError(t, err)
	assert.Equal(t, "lb", out.WeightUnit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCheckout_PromotesOnlyUnsetRole(t *testing.T) {
	tests := []struct {
		name    string
		promote bool
		role    string
	}{
		{"subscription", true, user.RoleUser},
		{"payment", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			now := time.Now()

			mock.ExpectQuery(`UPDATE users .*COALESCE\(NULLIF\(role, ''\), 'user'\)`).
				WithArgs(int64(42), "cus_1", tt.promote).
				WillReturnRows(sqlmock.NewRows(userCols).AddRow(
					int64(42), "a@example.com", "", tt.role, "email", "", "cus_1", now, now))

			u, err := store.ApplyCheckout(context.Background(), 42, "cus_1", tt.promote)
			require.NoError(t, err)
			assert.Equal(t, tt.role, u.Role)
			require.NotNil(t, u.StripeCustomerID)
			assert.Equal(t, "cus_1", *u.StripeCustomerID)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestApplyCheckout_UnknownUser(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("UPDATE users").WillReturnRows(sqlmock.NewRows(userCols))

	_, err := store.ApplyCheckout(context.Background(), 7, "cus_1", true)
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := database.Open(ctx, config.DatabaseConfig{URL: dsn, MaxOpenConns: 4}, logger.Discard())
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, migrations.Apply(ctx, pool.DB().DB))

	store := New(pool)
	email := "it-" + time.Now().Format("20060102150405.000000") + "@example.com"
	u, err := store.UpsertIdentity(ctx, user.Identity{Provider: "email", Email: email}, false)
	require.NoError(t, err)
	assert.Equal(t, user.RoleNone, u.Role)

	u, err = store.ApplyCheckout(ctx, u.ID, "cus_test", true)
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, u.Role)

	np := training.NewProgram{
		Name: "Integration",
		Exercises: []training.NewExercise{
			{Name: "Back Squat", Source: "library", LoadUnit: "kg", Order: 2, Sets: 3, Reps: 5},
			{Name: "Deadlift", Source: "library", LoadUnit: "kg", Order: 1, Sets: 1, Reps: 5},
		},
	}
	prog, err := store.CreateProgram(ctx, u.ID, np)
	require.NoError(t, err)

	got, err := store.GetProgram(ctx, u.ID, prog.ID)
	require.NoError(t, err)
	require.Len(t, got.Exercises, 2)
	assert.Equal(t, "Deadlift", got.Exercises[0].Name)

	err = store.RecordSessionResults(ctx, u.ID, prog.ID, []training.SessionResult{
		{ProgramExercisesID: got.Exercises[0].ID, ActualSets: training.ActualSets{{Set: 1, Reps: 5, Completed: true}}},
	})
	require.NoError(t, err)

	_, err = store.CreateUserExercise(ctx, u.ID, "Goblet Squat")
	require.NoError(t, err)
	_, err = store.CreateUserExercise(ctx, u.ID, "goblet squat")
	assert.True(t, apperrors.IsConflict(err))

	require.NoError(t, store.DeleteProgram(ctx, u.ID, prog.ID))
	assert.True(t, apperrors.IsNotFound(store.DeleteProgram(ctx, u.ID, prog.ID)))
}
