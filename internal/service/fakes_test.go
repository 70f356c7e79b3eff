package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ledger-gateway/internal/domain"
	"github.com/spec-kit/ledger-gateway/internal/ledger"
	apperrors "github.com/spec-kit/ledger-gateway/pkg/util/errorutil"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	fail  error
	calls int
}

func newMemUsers(users ...*domain.User) *memUsers {
	m := &memUsers{byID: make(map[string]*domain.User)}
	for _, u := range users {
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailTaken
		}
		if u.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	m.byID[user.ID] = &clone
	return nil
}

func (m *memUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	clone := *user
	m.byID[user.ID] = &clone
	return nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.ID == id })
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Username == username })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memUsers) ListByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, u := range m.byID {
		if u.Role == role {
			clone := *u
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memUsers) ListUsernamesByPrefix(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, u := range m.byID {
		if strings.HasPrefix(u.Username, prefix) {
			out = append(out, u.Username)
		}
	}
	return out, nil
}

func (m *memUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail != nil {
		return nil, m.fail
	}
	for _, u := range m.byID {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// fakeContract records calls and answers from fixed envelopes or errors.
type fakeContract struct {
	evaluated []string
	submitted []string
	lastArgs  ledger.Message

	env   ledger.Envelope
	err   error
	pages [][]byte
}

func (f *fakeContract) Evaluate(_ context.Context, function string, args ledger.Message) (ledger.Envelope, error) {
	f.evaluated = append(f.evaluated, function)
	f.lastArgs = args
	return f.env, f.err
}

func (f *fakeContract) Submit(_ context.Context, function string, args ledger.Message) (ledger.Envelope, error) {
	f.submitted = append(f.submitted, function)
	f.lastArgs = args
	return f.env, f.err
}

func (f *fakeContract) ReadAllPaged(_ context.Context, function string, _ int) ([][]byte, error) {
	f.evaluated = append(f.evaluated, function)
	return f.pages, f.err
}

func successOf(msg ledger.Message) ledger.Envelope {
	encoded, err := ledger.Encode(msg)
	if err != nil {
		panic(err)
	}
	return ledger.Success{Message: encoded}
}

func domainErr(err error) *apperrors.DomainError {
	return apperrors.ToDomainError(err)
}

func zapNop() *zap.Logger { return zap.NewNop() }
