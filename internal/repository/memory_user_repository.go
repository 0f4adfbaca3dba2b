package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/spec-kit/identity-service/internal/domain"
	apperrors "github.com/spec-kit/identity-service/pkg/util/errorutil"
)

// MemoryUserRepository keeps users in process memory. Emails are unique and
// ids are assigned sequentially from 1.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  []*domain.User
}

// NewMemoryUserRepository returns an empty in-memory store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{nextID: 1}
}

var _ UserRepository = (*MemoryUserRepository)(nil)

func (r *MemoryUserRepository) Create(_ context.Context, name, email, passwordHash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return nil, apperrors.NewUserNotCreated()
		}
	}
	user := &domain.User{ID: r.nextID, Name: name, Email: email, PasswordHash: passwordHash, Active: true}
	r.nextID++
	r.users = append(r.users, user)

	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string, activeOnly bool) (*domain.User, error) {
	predicate := Predicate{"email": email}
	if activeOnly {
		predicate["is_active"] = true
	}
	return r.FindBy(ctx, predicate)
}

func (r *MemoryUserRepository) FindBy(_ context.Context, predicate Predicate) (*domain.User, error) {
	if _, _, err := buildWhere(predicate); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if matches(u, predicate) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperrors.NewUserNotFound()
}

// SetActive flips the active flag of the user with the given email.
func (r *MemoryUserRepository) SetActive(email string, active bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			u.Active = active
			return true
		}
	}
	return false
}

func matches(u *domain.User, predicate Predicate) bool {
	for column, want := range predicate {
		var have any
		switch column {
		case "user_id":
			have = u.ID
		case "name":
			have = u.Name
		case "email":
			have = u.Email
		case "is_active":
			have = u.Active
		}
		if fmt.Sprint(have) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
