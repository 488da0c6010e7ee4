package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/higher-endeavors/endeavors/internal/app/domain/audit"
	"github.com/higher-endeavors/endeavors/internal/app/domain/bodycomp"
	"github.com/higher-endeavors/endeavors/internal/app/domain/device"
	"github.com/higher-endeavors/endeavors/internal/app/domain/lifts"
	"github.com/higher-endeavors/endeavors/internal/app/domain/settings"
	"github.com/higher-endeavors/endeavors/internal/app/domain/training"
	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
	"github.com/higher-endeavors/endeavors/internal/app/storage"
	apperrors "github.com/higher-endeavors/endeavors/internal/errors"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	users         map[int64]user.User
	sessions      map[string]user.Session
	programs      map[int64]training.Program
	catalog       []training.CatalogEntry
	userExercises map[int64]training.UserExercise
	enumerations  map[string][]training.Enumeration
	references    []lifts.ReferenceLift
	balanced      []lifts.BalancedLift
	settings      map[int64]settings.UserSettings
	bodyComp      map[int64]bodycomp.Entry
	connections   map[int64]device.Connection
	activities    map[string]device.Activity
	auditLog      []audit.Entry
	billingEvents map[string]string
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

// New creates a store holding the same reference rows the migrations seed.
func New() *Store {
	s := &Store{
		nextID:        1,
		users:         make(map[int64]user.User),
		sessions:      make(map[string]user.Session),
		programs:      make(map[int64]training.Program),
		userExercises: make(map[int64]training.UserExercise),
		enumerations:  make(map[string][]training.Enumeration),
		settings:      make(map[int64]settings.UserSettings),
		bodyComp:      make(map[int64]bodycomp.Entry),
		connections:   make(map[int64]device.Connection),
		activities:    make(map[string]device.Activity),
		billingEvents: make(map[string]string),
	}

	seed := map[string][]string{
		training.EnumPeriodizationTypes: {"Block", "Linear", "Undulating", "Reverse"},
		training.EnumPhases:             {"Accumulation", "Intensification", "Realization", "Deload"},
		training.EnumTierContinuum:      {"Foundational", "Intermediate", "Advanced", "Elite"},
		training.EnumTemplateCategories: {},
	}
	for kind, names := range seed {
		rows := make([]training.Enumeration, 0, len(names))
		for i, n := range names {
			rows = append(rows, training.Enumeration{ID: int64(i + 1), Name: n})
		}
		s.enumerations[kind] = rows
	}

	for i, r := range []struct {
		name string
		load float64
	}{
		{"Back Squat", 100}, {"Deadlift", 120}, {"Front Squat", 85}, {"Bench Press", 75},
		{"Close-Grip Bench Press", 68}, {"Overhead Press", 45}, {"Weighted Chin-Up", 65}, {"Power Clean", 55},
	} {
		s.references = append(s.references, lifts.ReferenceLift{ID: int64(i + 1), Name: r.name, ReferenceLoad: r.load})
	}
	return s
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

// AddCatalogEntry seeds the shared exercise catalog.
func (s *Store) AddCatalogEntry(e training.CatalogEntry) training.CatalogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.nextIDLocked()
	}
	s.catalog = append(s.catalog, e)
	return e
}

// UserStore implementation ----------------------------------------------------

func (s *Store) UpsertIdentity(_ context.Context, id user.Identity, promoteAdmin bool) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := user.NormalizeEmail(id.Email)
	now := time.Now().UTC()
	for uid, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			if id.Name != "" {
				u.Name = id.Name
			}
			if promoteAdmin {
				u.Role = user.RoleAdmin
			}
			u.AuthProvider = id.Provider
			if id.Subject != "" {
				u.AuthSubject = id.Subject
			}
			u.UpdatedAt = now
			s.users[uid] = u
			return u, nil
		}
	}

	u := user.User{
		ID:           s.nextIDLocked(),
		Email:        email,
		Name:         id.Name,
		AuthProvider: id.Provider,
		AuthSubject:  id.Subject,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if promoteAdmin {
		u.Role = user.RoleAdmin
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, apperrors.NewNotFoundError("user", idString(id))
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = user.NormalizeEmail(email)
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, apperrors.NewNotFoundError("user", email)
}

func (s *Store) ApplyCheckout(_ context.Context, userID int64, customerID string, promote bool) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return user.User{}, apperrors.NewNotFoundError("user", idString(userID))
	}
	cid := customerID
	u.StripeCustomerID = &cid
	if promote && u.Role == user.RoleNone {
		u.Role = user.RoleUser
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return u, nil
}

// SetRole is a test helper for seeding roles directly.
func (s *Store) SetRole(userID int64, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.Role = role
		s.users[userID] = u
	}
}

// SessionStore implementation -------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess user.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	s.sessions[sess.TokenHash] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, tokenHash string) (user.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[tokenHash]
	if !ok || !sess.ExpiresAt.After(time.Now()) {
		return user.Session{}, apperrors.NewNotFoundError("session", "")
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, sess := range s.sessions {
		if !sess.ExpiresAt.After(before) {
			delete(s.sessions, hash)
			n++
		}
	}
	return n, nil
}

// ProgramStore implementation -------------------------------------------------

func (s *Store) CreateProgram(_ context.Context, userID int64, np training.NewProgram) (training.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	prog := training.Program{
		ID:                  s.nextIDLocked(),
		UserID:              userID,
		Name:                np.Name,
		PeriodizationTypeID: np.PeriodizationTypeID,
		PhaseID:             np.PhaseID,
		TierContinuumID:     np.TierContinuumID,
		TemplateCategoryID:  np.TemplateCategoryID,
		Notes:               np.Notes,
		StartDate:           np.StartDate,
		CreatedAt:           now,
		UpdatedAt:           now,
		Exercises:           make([]training.Exercise, 0, len(np.Exercises)),
	}
	for _, e := range np.Exercises {
		prog.Exercises = append(prog.Exercises, training.Exercise{
			ID:                    s.nextIDLocked(),
			ProgramID:             prog.ID,
			Source:                e.Source,
			ExerciseLibraryID:     e.ExerciseLibraryID,
			UserExerciseLibraryID: e.UserExerciseLibraryID,
			Name:                  e.Name,
			Pairing:               e.Pairing,
			Order:                 e.Order,
			Sets:                  e.Sets,
			Reps:                  e.Reps,
			Load:                  e.Load,
			LoadUnit:              e.LoadUnit,
			Tempo:                 e.Tempo,
			RestSeconds:           e.RestSeconds,
			Notes:                 e.Notes,
			ActualSets:            training.ActualSets{},
		})
	}

	s.programs[prog.ID] = prog
	return cloneProgram(prog), nil
}

func (s *Store) ListPrograms(_ context.Context, userID int64) ([]training.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []training.Program{}
	for _, p := range s.programs {
		if p.UserID == userID {
			result = append(result, cloneProgram(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (s *Store) GetProgram(_ context.Context, userID, programID int64) (training.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.programs[programID]
	if !ok || p.UserID != userID {
		return training.Program{}, apperrors.NewNotFoundError("program", idString(programID))
	}
	return cloneProgram(p), nil
}

func (s *Store) DeleteProgram(_ context.Context, userID, programID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[programID]
	if !ok || p.UserID != userID {
		return apperrors.NewNotFoundError("program", idString(programID))
	}
	delete(s.programs, programID)
	return nil
}

func (s *Store) RecordSessionResults(_ context.Context, userID, programID int64, results []training.SessionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.programs[programID]
	if !ok {
		return apperrors.NewNotFoundError("program", idString(programID))
	}
	if err := apperrors.EnsureOwnership(p.UserID, userID, "program", idString(programID)); err != nil {
		return err
	}

	index := make(map[int64]int, len(p.Exercises))
	for i, e := range p.Exercises {
		index[e.ID] = i
	}
	for _, r := range results {
		if _, ok := index[r.ProgramExercisesID]; !ok {
			return apperrors.NewNotFoundError("program exercise", idString(r.ProgramExercisesID))
		}
	}

	p = cloneProgram(p)
	for _, r := range results {
		p.Exercises[index[r.ProgramExercisesID]].ActualSets = append(training.ActualSets{}, r.ActualSets...)
	}
	p.UpdatedAt = time.Now().UTC()
	s.programs[programID] = p
	return nil
}

// ExerciseStore implementation ------------------------------------------------

func (s *Store) SearchCatalog(_ context.Context, f training.CatalogFilter) ([]training.CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := strings.ToLower(strings.TrimSpace(f.Name))
	result := []training.CatalogEntry{}
	for _, e := range s.catalog {
		if name != "" && !strings.Contains(strings.ToLower(e.Name), name) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (s *Store) ListUserExercises(_ context.Context, userID int64) ([]training.UserExercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []training.UserExercise{}
	for _, e := range s.userExercises {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

func (s *Store) CreateUserExercise(_ context.Context, userID int64, name string) (training.UserExercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	for _, e := range s.userExercises {
		if e.UserID == userID && strings.EqualFold(e.Name, name) {
			return training.UserExercise{}, apperrors.NewConflictError("user exercise", name, "already exists")
		}
	}
	ex := training.UserExercise{ID: s.nextIDLocked(), UserID: userID, Name: name, CreatedAt: time.Now().UTC()}
	s.userExercises[ex.ID] = ex
	return ex, nil
}

func (s *Store) DeleteUserExercise(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.userExercises[id]
	if !ok || ex.UserID != userID {
		return apperrors.NewNotFoundError("user exercise", idString(id))
	}
	delete(s.userExercises, id)
	return nil
}

// ReferenceStore implementation -----------------------------------------------

func (s *Store) ListEnumeration(_ context.Context, kind string) ([]training.Enumeration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.enumerations[kind]
	if !ok {
		return nil, apperrors.NewNotFoundError("enumeration", kind)
	}
	return append([]training.Enumeration{}, rows...), nil
}

func (s *Store) CreateTemplateCategory(_ context.Context, name string) (training.Enumeration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	rows := s.enumerations[training.EnumTemplateCategories]
	var maxID int64
	for _, r := range rows {
		if r.Name == name {
			return training.Enumeration{}, apperrors.NewConflictError("template category", name, "already exists")
		}
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	e := training.Enumeration{ID: maxID + 1, Name: name}
	s.enumerations[training.EnumTemplateCategories] = append(rows, e)
	return e, nil
}

func (s *Store) DeleteTemplateCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.enumerations[training.EnumTemplateCategories]
	for i, r := range rows {
		if r.ID == id {
			s.enumerations[training.EnumTemplateCategories] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return apperrors.NewNotFoundError("template category", idString(id))
}

// LiftStore implementation ----------------------------------------------------

func (s *Store) ListReferenceLifts(_ context.Context) ([]lifts.ReferenceLift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := append([]lifts.ReferenceLift{}, s.references...)
	sort.SliceStable(result, func(i, j int) bool { return result[i].ReferenceLoad > result[j].ReferenceLoad })
	return result, nil
}

func (s *Store) GetReferenceLift(_ context.Context, id int64) (lifts.ReferenceLift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.referenceLocked(id)
}

func (s *Store) referenceLocked(id int64) (lifts.ReferenceLift, error) {
	for _, r := range s.references {
		if r.ID == id {
			return r, nil
		}
	}
	return lifts.ReferenceLift{}, apperrors.NewNotFoundError("reference lift", idString(id))
}

func (s *Store) ListBalancedLifts(_ context.Context, userID int64) ([]lifts.BalancedLift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []lifts.BalancedLift{}
	for _, b := range s.balanced {
		if b.UserID == userID {
			result = append(result, b)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) CreateBalancedLift(_ context.Context, userID int64, n lifts.NewBalancedLift) (lifts.BalancedLift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.referenceLocked(n.ReferenceLiftID)
	if err != nil {
		return lifts.BalancedLift{}, err
	}
	created := time.Now().UTC().Truncate(24 * time.Hour)
	if n.Date != nil {
		created = n.Date.UTC()
	}
	b := lifts.BalancedLift{
		ID:              s.nextIDLocked(),
		UserID:          userID,
		ReferenceLiftID: ref.ID,
		ReferenceName:   ref.Name,
		Load:            n.Load,
		LoadUnit:        n.LoadUnit,
		Reps:            n.Reps,
		CreatedAt:       created,
	}
	s.balanced = append(s.balanced, b)
	return b, nil
}

// SettingsStore implementation ------------------------------------------------

func (s *Store) GetSettings(_ context.Context, userID int64) (settings.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	us, ok := s.settings[userID]
	if !ok {
		return settings.UserSettings{}, apperrors.NewNotFoundError("user settings", "")
	}
	return us, nil
}

func (s *Store) UpsertSettings(_ context.Context, us settings.UserSettings) (settings.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	us.UpdatedAt = time.Now().UTC()
	s.settings[us.UserID] = us
	return us, nil
}

// BodyCompositionStore implementation -----------------------------------------

func (s *Store) ListBodyComposition(_ context.Context, userID int64, limit int) ([]bodycomp.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []bodycomp.Entry{}
	for _, e := range s.bodyComp {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID > result[j].ID
		}
		return result[i].Date.After(result[j].Date)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateBodyComposition(_ context.Context, userID int64, n bodycomp.NewEntry) (bodycomp.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	date := now.Truncate(24 * time.Hour)
	if n.Date != nil {
		date = n.Date.UTC()
	}
	circ := bodycomp.Circumferences{}
	for k, v := range n.Circumferences {
		circ[k] = v
	}
	e := bodycomp.Entry{
		ID:             s.nextIDLocked(),
		UserID:         userID,
		Date:           date,
		Weight:         n.Weight,
		WeightUnit:     n.WeightUnit,
		BodyFatPct:     n.BodyFatPct,
		Method:         n.Method,
		Circumferences: circ,
		Notes:          n.Notes,
		CreatedAt:      now,
	}
	s.bodyComp[e.ID] = e
	return e, nil
}

func (s *Store) DeleteBodyComposition(_ context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.bodyComp[id]
	if !ok || e.UserID != userID {
		return apperrors.NewNotFoundError("body composition entry", idString(id))
	}
	delete(s.bodyComp, id)
	return nil
}

// DeviceStore implementation --------------------------------------------------

func (s *Store) SaveConnection(_ context.Context, c device.Connection) (device.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for id, existing := range s.connections {
		if existing.UserID == c.UserID && existing.Provider == c.Provider && existing.Active {
			existing.Active = false
			existing.AccessToken = ""
			existing.RefreshToken = ""
			existing.UpdatedAt = now
			s.connections[id] = existing
		}
	}

	c.ID = s.nextIDLocked()
	c.Active = true
	c.CreatedAt = now
	c.UpdatedAt = now
	c.Scopes = append([]string(nil), c.Scopes...)
	s.connections[c.ID] = c
	return c, nil
}

func (s *Store) GetActiveConnection(_ context.Context, userID int64, provider string) (device.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.connections {
		if c.UserID == userID && c.Provider == provider && c.Active {
			return c, nil
		}
	}
	return device.Connection{}, apperrors.NewNotFoundError(provider+" connection", "")
}

func (s *Store) FindActiveConnectionByProviderUser(_ context.Context, provider, providerUserID string) (device.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.connections {
		if c.Provider == provider && c.ProviderUserID == providerUserID && c.Active {
			return c, nil
		}
	}
	return device.Connection{}, apperrors.NewNotFoundError(provider+" connection", providerUserID)
}

func (s *Store) ListConnections(_ context.Context, userID int64) ([]device.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []device.Connection{}
	for _, c := range s.connections {
		if c.UserID == userID && c.Active {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Provider < result[j].Provider })
	return result, nil
}

func (s *Store) ListActiveConnections(_ context.Context, provider string) ([]device.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []device.Connection{}
	for _, c := range s.connections {
		if c.Provider == provider && c.Active {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) UpdateConnectionTokens(_ context.Context, id int64, access, refresh string, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.connections[id]
	if !ok || !c.Active {
		return apperrors.NewNotFoundError("connection", idString(id))
	}
	c.AccessToken = access
	c.RefreshToken = refresh
	c.TokenExpiresAt = expiresAt
	c.UpdatedAt = time.Now().UTC()
	s.connections[id] = c
	return nil
}

func (s *Store) MarkSynced(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.connections[id]; ok {
		t := at
		c.LastSyncAt = &t
		s.connections[id] = c
	}
	return nil
}

func (s *Store) DeactivateConnection(_ context.Context, userID int64, provider string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for id, c := range s.connections {
		if c.UserID == userID && c.Provider == provider && c.Active {
			c.Active = false
			c.AccessToken = ""
			c.RefreshToken = ""
			c.TokenExpiresAt = nil
			c.UpdatedAt = time.Now().UTC()
			s.connections[id] = c
			changed = true
		}
	}
	return changed, nil
}

func (s *Store) UpsertActivities(_ context.Context, acts []device.Activity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range acts {
		key := a.Provider + "/" + a.ExternalID
		if existing, ok := s.activities[key]; ok {
			a.ID = existing.ID
		} else {
			a.ID = s.nextIDLocked()
		}
		a.SyncedAt = time.Now().UTC()
		s.activities[key] = a
	}
	return len(acts), nil
}

func (s *Store) ListActivities(_ context.Context, userID int64, f device.ActivityFilter) ([]device.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []device.Activity{}
	for _, a := range s.activities {
		if a.UserID != userID {
			continue
		}
		if f.Provider != "" && a.Provider != f.Provider {
			continue
		}
		if f.Since != nil && a.StartTime.Before(*f.Since) {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.After(result[j].StartTime) })
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

// AuditStore implementation ---------------------------------------------------

func (s *Store) AppendAudit(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextIDLocked()
	s.auditLog = append(s.auditLog, e)
	return nil
}

func (s *Store) ListAudit(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]audit.Entry, 0, len(s.auditLog))
	for i := len(s.auditLog) - 1; i >= 0; i-- {
		result = append(result, s.auditLog[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// BillingEventStore implementation --------------------------------------------

func (s *Store) EventProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.billingEvents[eventID]
	return ok, nil
}

func (s *Store) RecordEvent(_ context.Context, eventID, eventType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.billingEvents[eventID]; !ok {
		s.billingEvents[eventID] = eventType
	}
	return nil
}

func cloneProgram(p training.Program) training.Program {
	exercises := make([]training.Exercise, len(p.Exercises))
	for i, e := range p.Exercises {
		e.ActualSets = append(training.ActualSets{}, e.ActualSets...)
		exercises[i] = e
	}
	p.Exercises = exercises
	return p
}
