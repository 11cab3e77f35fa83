// Package memory keeps every collection in process memory. Data does not
// survive a restart.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"firesafety/internal/models"
	"firesafety/internal/repository"
)

// Store implements every repository interface on maps guarded by one lock.
// All reads return copies so callers never alias stored records.
type Store struct {
	mu sync.RWMutex

	users          map[int64]*models.User
	modules        map[int64]*models.GameModule
	progress       []models.ProgressRecord
	achievements   map[int64]*models.Achievement
	awards         map[int64]map[int64]time.Time
	sessions       map[string]models.Session
	nextUserID     int64
	nextModuleID   int64
	nextProgressID int64
	nextAchID      int64

	now func() time.Time
}

var (
	_ repository.Users        = (*Store)(nil)
	_ repository.Modules      = (*Store)(nil)
	_ repository.Progress     = (*Store)(nil)
	_ repository.Achievements = (*Store)(nil)
	_ repository.Sessions     = (*Store)(nil)
)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:          make(map[int64]*models.User),
		modules:        make(map[int64]*models.GameModule),
		achievements:   make(map[int64]*models.Achievement),
		awards:         make(map[int64]map[int64]time.Time),
		sessions:       make(map[string]models.Session),
		nextUserID:     1,
		nextModuleID:   1,
		nextProgressID: 1,
		nextAchID:      1,
		now:            time.Now,
	}
}

// Repositories exposes the store through the repository bundle
func (s *Store) Repositories() repository.Store {
	return repository.Store{
		Users:        s,
		Modules:      s,
		Progress:     s,
		Achievements: s,
		Sessions:     s,
	}
}

// CreateUser inserts a new user. The first user becomes admin unless the
// input decides explicitly.
func (s *Store) CreateUser(_ context.Context, input models.NewUserInput) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, input.Username) {
			return nil, repository.ErrDuplicate
		}
	}

	isAdmin := len(s.users) == 0
	if input.IsAdmin != nil {
		isAdmin = *input.IsAdmin
	}

	now := s.now()
	user := &models.User{
		ID:           s.nextUserID,
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		IsAdmin:      isAdmin,
		IsModerator:  input.IsModerator,
		Level:        1,
		Progress:     models.NewUserProgress(now),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.nextUserID++
	s.users[user.ID] = user

	return user.Clone(), nil
}

// GetUserByID returns the user or nil
func (s *Store) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id].Clone(), nil
}

// GetUserByUsername returns the user with a case-insensitive name match or nil
func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u.Clone(), nil
		}
	}
	return nil, nil
}

// GetAllUsers returns users ordered by id
func (s *Store) GetAllUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// CountUsers returns the number of users
func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// UpdateUserStats runs fn on a copy and swaps it in under the write lock,
// so a read-modify-write never interleaves with another writer.
func (s *Store) UpdateUserStats(_ context.Context, id int64, fn func(u *models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1
	next.UpdatedAt = s.now()
	s.users[id] = next

	return next.Clone(), nil
}

// RecordAttempt appends the record and swaps in the updated user under one
// write lock
func (s *Store) RecordAttempt(_ context.Context, r *models.ProgressRecord, fn func(u *models.User) error) (*models.ProgressRecord, *models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[r.UserID]
	if !ok {
		return nil, nil, nil
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, nil, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1
	next.UpdatedAt = s.now()

	rec := copyRecord(*r)
	rec.ID = s.nextProgressID
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = s.now()
	}
	s.nextProgressID++
	s.progress = append(s.progress, rec)
	s.users[next.ID] = next

	out := copyRecord(rec)
	return &out, next.Clone(), nil
}

// GrantAchievements writes the new awards and the credited user together
func (s *Store) GrantAchievements(_ context.Context, userID int64, achievementIDs []int64, earnedAt time.Time, fn func(u *models.User, granted []int64) error) ([]int64, *models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[userID]
	if !ok {
		return nil, nil, nil
	}
	held := s.awards[userID]
	var granted []int64
	for _, id := range achievementIDs {
		if _, exists := held[id]; exists || slices.Contains(granted, id) {
			continue
		}
		granted = append(granted, id)
	}
	if len(granted) == 0 {
		return nil, nil, nil
	}

	next := current.Clone()
	if err := fn(next, granted); err != nil {
		return nil, nil, err
	}
	next.ID = current.ID
	next.Version = current.Version + 1
	next.UpdatedAt = s.now()

	if held == nil {
		held = make(map[int64]time.Time)
		s.awards[userID] = held
	}
	for _, id := range granted {
		held[id] = earnedAt
	}
	s.users[userID] = next

	return granted, next.Clone(), nil
}

// RestoreUser writes a user with its existing id, used by backup import
func (s *Store) RestoreUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u.Clone()
	if u.ID >= s.nextUserID {
		s.nextUserID = u.ID + 1
	}
	return nil
}

// CreateModule assigns an id and timestamps
func (s *Store) CreateModule(_ context.Context, m *models.GameModule) (*models.GameModule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stored := m.Clone()
	stored.ID = s.nextModuleID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.nextModuleID++
	s.modules[stored.ID] = stored

	return stored.Clone(), nil
}

// GetModuleByID returns the module or nil
func (s *Store) GetModuleByID(_ context.Context, id int64) (*models.GameModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modules[id].Clone(), nil
}

// GetAllModules returns modules ordered by id
func (s *Store) GetAllModules(_ context.Context) ([]models.GameModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	modules := make([]models.GameModule, 0, len(s.modules))
	for _, m := range s.modules {
		modules = append(modules, *m.Clone())
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].ID < modules[j].ID })
	return modules, nil
}

// UpdateModule merges changes through fn and refreshes UpdatedAt
func (s *Store) UpdateModule(_ context.Context, id int64, fn func(m *models.GameModule) error) (*models.GameModule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.modules[id]
	if !ok {
		return nil, nil
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = s.now()
	s.modules[id] = next

	return next.Clone(), nil
}

// DeleteModule removes the module. Progress records keep their own snapshot.
func (s *Store) DeleteModule(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[id]; !ok {
		return false, nil
	}
	delete(s.modules, id)
	return true, nil
}

// RestoreModule writes a module with its existing id
func (s *Store) RestoreModule(_ context.Context, m *models.GameModule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[m.ID] = m.Clone()
	if m.ID >= s.nextModuleID {
		s.nextModuleID = m.ID + 1
	}
	return nil
}

// AppendProgress stores a new attempt record
func (s *Store) AppendProgress(_ context.Context, r *models.ProgressRecord) (*models.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := copyRecord(*r)
	rec.ID = s.nextProgressID
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = s.now()
	}
	s.nextProgressID++
	s.progress = append(s.progress, rec)

	out := copyRecord(rec)
	return &out, nil
}

// GetUserProgress returns a user's records oldest first
func (s *Store) GetUserProgress(_ context.Context, userID int64) ([]models.ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []models.ProgressRecord
	for _, r := range s.progress {
		if r.UserID == userID {
			records = append(records, copyRecord(r))
		}
	}
	return records, nil
}

// CountCompleted counts a user's completed attempts
func (s *Store) CountCompleted(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.progress {
		if r.UserID == userID && r.Completed {
			n++
		}
	}
	return n, nil
}

// RestoreProgress writes a record with its existing id
func (s *Store) RestoreProgress(_ context.Context, r *models.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, copyRecord(*r))
	if r.ID >= s.nextProgressID {
		s.nextProgressID = r.ID + 1
	}
	return nil
}

// CreateAchievement adds a catalog entry
func (s *Store) CreateAchievement(_ context.Context, a *models.Achievement) (*models.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *a
	stored.ID = s.nextAchID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	s.nextAchID++
	s.achievements[stored.ID] = &stored

	out := stored
	return &out, nil
}

// GetAchievementByID returns the achievement or nil
func (s *Store) GetAchievementByID(_ context.Context, id int64) (*models.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.achievements[id]
	if !ok {
		return nil, nil
	}
	out := *a
	return &out, nil
}

// GetAllAchievements returns the catalog ordered by id
func (s *Store) GetAllAchievements(_ context.Context) ([]models.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]models.Achievement, 0, len(s.achievements))
	for _, a := range s.achievements {
		list = append(list, *a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// AwardAchievement records the pair once
func (s *Store) AwardAchievement(_ context.Context, userID, achievementID int64, earnedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUser, ok := s.awards[userID]
	if !ok {
		byUser = make(map[int64]time.Time)
		s.awards[userID] = byUser
	}
	if _, exists := byUser[achievementID]; exists {
		return false, nil
	}
	byUser[achievementID] = earnedAt
	return true, nil
}

// GetUserAchievements returns a user's awards ordered by award time
func (s *Store) GetUserAchievements(_ context.Context, userID int64) ([]models.UserAchievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.UserAchievement
	for achID, at := range s.awards[userID] {
		list = append(list, models.UserAchievement{UserID: userID, AchievementID: achID, EarnedAt: at})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].EarnedAt.Equal(list[j].EarnedAt) {
			return list[i].AchievementID < list[j].AchievementID
		}
		return list[i].EarnedAt.Before(list[j].EarnedAt)
	})
	return list, nil
}

// RestoreAchievement writes a catalog entry with its existing id
func (s *Store) RestoreAchievement(_ context.Context, a *models.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *a
	s.achievements[a.ID] = &stored
	if a.ID >= s.nextAchID {
		s.nextAchID = a.ID + 1
	}
	return nil
}

// CreateSession stores a session
func (s *Store) CreateSession(_ context.Context, sessionID string, userID int64, expiresAt time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}
	s.sessions[sessionID] = session
	return &session, nil
}

// GetSession returns the session or nil
func (s *Store) GetSession(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// DeleteSession removes a session
func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// DeleteExpiredSessions removes all expired sessions
func (s *Store) DeleteExpiredSessions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
	return nil
}

func copyRecord(r models.ProgressRecord) models.ProgressRecord {
	if r.ModuleID != nil {
		id := *r.ModuleID
		r.ModuleID = &id
	}
	return r
}
