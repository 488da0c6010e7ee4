package postgres

import (
	"database/sql"
	"errors"

	"github.com/higher-endeavors/endeavors/internal/app/storage"
	"github.com/higher-endeavors/endeavors/internal/database"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	pool *database.Pool
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.ProgramStore = (*Store)(nil)
var _ storage.ExerciseStore = (*Store)(nil)
var _ storage.ReferenceStore = (*Store)(nil)
var _ storage.LiftStore = (*Store)(nil)
var _ storage.SettingsStore = (*Store)(nil)
var _ storage.BodyCompositionStore = (*Store)(nil)
var _ storage.DeviceStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)
var _ storage.BillingEventStore = (*Store)(nil)

// New creates a Store on the given pool.
func New(pool *database.Pool) *Store {
	return &Store{pool: pool}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
