package repository

import (
	"context"
	"sync"
	"time"

	"anoa.com/yogaschool/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type memoryUserRepository struct {
	mu      sync.RWMutex
	users   map[string]*entity.User
	byEmail map[string]string
	order   []string
}

// NewMemoryUserRepository keeps users in process memory. It backs STORE_DRIVER=memory and the tests.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		users:   make(map[string]*entity.User),
		byEmail: make(map[string]string),
	}
}

func (r *memoryUserRepository) Register(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return gorm.ErrDuplicatedKey
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, exists := r.users[user.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.Role = entity.RoleForOrdinal(int64(len(r.users)))

	stored := *user
	r.users[user.ID] = &stored
	r.byEmail[user.Email] = user.ID
	r.order = append(r.order, user.ID)
	return nil
}

func (r *memoryUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryUserRepository) FindByIDs(ctx context.Context, ids []string) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*entity.User, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		u, ok := r.users[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		clone := *u
		users = append(users, &clone)
	}
	return users, nil
}

func (r *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *r.users[id]
	return &clone, nil
}

func (r *memoryUserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	return r.filter(func(*entity.User) bool { return true }), nil
}

func (r *memoryUserRepository) FindAllExceptRole(ctx context.Context, role string) ([]*entity.User, error) {
	return r.filter(func(u *entity.User) bool { return u.Role != role }), nil
}

func (r *memoryUserRepository) filter(keep func(*entity.User) bool) []*entity.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*entity.User, 0, len(r.order))
	for _, id := range r.order {
		if u := r.users[id]; keep(u) {
			clone := *u
			users = append(users, &clone)
		}
	}
	return users
}

func (r *memoryUserRepository) Update(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if current.Email != user.Email {
		if _, taken := r.byEmail[user.Email]; taken {
			return gorm.ErrDuplicatedKey
		}
		delete(r.byEmail, current.Email)
		r.byEmail[user.Email] = user.ID
	}

	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *memoryUserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	delete(r.byEmail, u.Email)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
