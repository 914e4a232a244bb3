package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arzan03/SecureDrop/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemorySessionStore keeps sessions in process memory. It backs the
// "memory" storage mode used for local runs and tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.TransferSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]models.TransferSession)}
}

func (m *MemorySessionStore) Create(_ context.Context, session *models.TransferSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.Code]; ok {
		return ErrCodeTaken
	}
	m.sessions[session.Code] = *session
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, code string) (*models.TransferSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemorySessionStore) Exists(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[code]
	return ok, nil
}

func (m *MemorySessionStore) ClaimDownload(_ context.Context, code string, now time.Time) (*models.TransferSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[code]
	if !ok || s.Downloaded || s.ExpirationDate.Before(now) {
		return nil, ErrClaimConflict
	}
	s.Downloaded = true
	s.DownloadedAt = now
	s.DownloadCount++
	m.sessions[code] = s
	return &s, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[code]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, code)
	return nil
}

func (m *MemorySessionStore) ListExpired(_ context.Context, t time.Time, limit int) ([]*models.TransferSession, error) {
	out := m.filter(func(s *models.TransferSession) bool { return s.ExpirationDate.Before(t) })
	sort.Slice(out, func(i, j int) bool { return out[i].ExpirationDate.Before(out[j].ExpirationDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemorySessionStore) ListByOwner(_ context.Context, ownerID string) ([]*models.TransferSession, error) {
	out := m.filter(func(s *models.TransferSession) bool { return s.OwnerID == ownerID })
	sortNewestFirst(out)
	return out, nil
}

func (m *MemorySessionStore) List(_ context.Context) ([]*models.TransferSession, error) {
	out := m.filter(func(*models.TransferSession) bool { return true })
	sortNewestFirst(out)
	return out, nil
}

func (m *MemorySessionStore) filter(keep func(*models.TransferSession) bool) []*models.TransferSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*models.TransferSession{}
	for _, s := range m.sessions {
		s := s
		if keep(&s) {
			out = append(out, &s)
		}
	}
	return out
}

func sortNewestFirst(sessions []*models.TransferSession) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UploadDate.After(sessions[j].UploadDate)
	})
}

// MemoryUserStore keeps users in process memory.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[primitive.ObjectID]models.User)}
}

func (m *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[objID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryUserStore) List(_ context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		u := u
		out = append(out, &u)
	}
	return out, nil
}
