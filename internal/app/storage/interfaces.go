package storage

import (
	"context"
	"time"

	"github.com/higher-endeavors/endeavors/internal/app/domain/audit"
	"github.com/higher-endeavors/endeavors/internal/app/domain/bodycomp"
	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	"github.com/higher-endeavors/endeavors/internal/app/domain/lifts"
	"github.com/higher-endeavors/endeavors/internal/app/domain/settings"
	"github.com/higher-endeavors/endeavors/internal/app/domain/training"
	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
)

// UserStore persists users.
type UserStore interface {
	// UpsertIdentity creates the user on first sign-in or refreshes the
	// provider linkage. promoteAdmin sets the admin role; otherwise an
	// existing role is kept and new users start with no role.
	UpsertIdentity(ctx context.Context, id user.Identity, promoteAdmin bool) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	// ApplyCheckout stores the payment customer id and, when promote is set,
	// gives an unset role the user role.
	ApplyCheckout(ctx context.Context, userID int64, customerID string, promote bool) (user.User, error)
}

// SessionStore persists login sessions by token hash.
type SessionStore interface {
	CreateSession(ctx context.Context, s user.Session) error
	GetSession(ctx context.Context, tokenHash string) (user.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// ProgramStore persists resistance training programs and their exercises.
type ProgramStore interface {
	CreateProgram(ctx context.Context, userID int64, p training.NewProgram) (training.Program, error)
	ListPrograms(ctx context.Context, userID int64) ([]training.Program, error)
	GetProgram(ctx context.Context, userID, programID int64) (training.Program, error)
	DeleteProgram(ctx context.Context, userID, programID int64) error
	RecordSessionResults(ctx context.Context, userID, programID int64, results []training.SessionResult) error
}

// ExerciseStore persists the exercise catalog and user exercise libraries.
type ExerciseStore interface {
	SearchCatalog(ctx context.Context, f training.CatalogFilter) ([]training.CatalogEntry, error)
	ListUserExercises(ctx context.Context, userID int64) ([]training.UserExercise, error)
	CreateUserExercise(ctx context.Context, userID int64, name string) (training.UserExercise, error)
	DeleteUserExercise(ctx context.Context, userID, id int64) error
}

// ReferenceStore reads the small program classification tables.
type ReferenceStore interface {
	ListEnumeration(ctx context.Context, kind string) ([]training.Enumeration, error)
	CreateTemplateCategory(ctx context.Context, name string) (training.Enumeration, error)
	DeleteTemplateCategory(ctx context.Context, id int64) error
}

// LiftStore persists reference lifts and structural balance attempts.
type LiftStore interface {
	ListReferenceLifts(ctx context.Context) ([]lifts.ReferenceLift, error)
	GetReferenceLift(ctx context.Context, id int64) (lifts.ReferenceLift, error)
	ListBalancedLifts(ctx context.Context, userID int64) ([]lifts.BalancedLift, error)
	CreateBalancedLift(ctx context.Context, userID int64, n lifts.NewBalancedLift) (lifts.BalancedLift, error)
}

// SettingsStore persists one settings row per user.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID int64) (settings.UserSettings, error)
	UpsertSettings(ctx context.Context, s settings.UserSettings) (settings.UserSettings, error)
}

// BodyCompositionStore persists body composition entries.
type BodyCompositionStore interface {
	ListBodyComposition(ctx context.Context, userID int64, limit int) ([]bodycomp.Entry, error)
	CreateBodyComposition(ctx context.Context, userID int64, n bodycomp.NewEntry) (bodycomp.Entry, error)
	DeleteBodyComposition(ctx context.Context, userID, id int64) error
}

// DeviceStore persists provider connections and mirrored activities.
type DeviceStore interface {
	// SaveConnection deactivates any active connection for the same user and
	// provider and inserts c as the active one.
	SaveConnection(ctx context.Context, c device.Connection) (device.Connection, error)
	GetActiveConnection(ctx context.Context, userID int64, provider string) (device.Connection, error)
	FindActiveConnectionByProviderUser(ctx context.Context, provider, providerUserID string) (device.Connection, error)
	ListConnections(ctx context.Context, userID int64) ([]device.Connection, error)
	ListActiveConnections(ctx context.Context, provider string) ([]device.Connection, error)
	UpdateConnectionTokens(ctx context.Context, id int64, access, refresh string, expiresAt *time.Time) error
	MarkSynced(ctx context.Context, id int64, at time.Time) error
	// DeactivateConnection clears tokens and marks the active connection
	// inactive. It reports whether a row changed.
	DeactivateConnection(ctx context.Context, userID int64, provider string) (bool, error)
	UpsertActivities(ctx context.Context, acts []device.Activity) (int, error)
	ListActivities(ctx context.Context, userID int64, f device.ActivityFilter) ([]device.Activity, error)
}

// AuditStore persists the audit trail.
type AuditStore interface {
	AppendAudit(ctx context.Context, e audit.Entry) error
	ListAudit(ctx context.Context, limit int) ([]audit.Entry, error)
}

// BillingEventStore records processed payment webhook events.
type BillingEventStore interface {
	EventProcessed(ctx context.Context, eventID string) (bool, error)
	RecordEvent(ctx context.Context, eventID, eventType string) error
}
