package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chiremba/chiremba-api/internal/user/entity"
)

// MemoryRepo is a process-local store used for development (STORE_DRIVER=memory) and tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	users map[string]*entity.User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]*entity.User)}
}

func (r *MemoryRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	r.users[u.ID] = clone(u)
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) List(_ context.Context, role entity.Role) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		if role == "" || u.Role == role {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) CountByRole(_ context.Context, role entity.Role) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, u := range r.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) ResetToPending(_ context.Context, id, token string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = nil
	u.Status = entity.StatusPending
	u.PasswordResetToken = &token
	u.PasswordResetExpires = &expires
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepo) ConsumeResetToken(_ context.Context, token, passwordHash string, now time.Time) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.PasswordResetToken == nil || *u.PasswordResetToken != token {
			continue
		}
		if u.PasswordResetExpires == nil || !u.PasswordResetExpires.After(now) {
			return nil, ErrNotFound
		}
		u.PasswordHash = &passwordHash
		u.Status = entity.StatusActive
		u.PasswordResetToken = nil
		u.PasswordResetExpires = nil
		u.UpdatedAt = time.Now().UTC()
		return clone(u), nil
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) UpdateRole(_ context.Context, id string, role entity.Role) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if role != entity.RoleAdmin && r.lastAdmin(u) {
		return nil, ErrLastAdmin
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	return clone(u), nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	if r.lastAdmin(u) {
		return ErrLastAdmin
	}
	delete(r.users, id)
	return nil
}

// lastAdmin reports whether u is the only admin. Callers hold r.mu.
func (r *MemoryRepo) lastAdmin(u *entity.User) bool {
	if u.Role != entity.RoleAdmin {
		return false
	}
	for _, o := range r.users {
		if o.ID != u.ID && o.Role == entity.RoleAdmin {
			return false
		}
	}
	return true
}

func clone(u *entity.User) *entity.User {
	c := *u
	if u.PasswordHash != nil {
		h := *u.PasswordHash
		c.PasswordHash = &h
	}
	if u.PasswordResetToken != nil {
		t := *u.PasswordResetToken
		c.PasswordResetToken = &t
	}
	if u.PasswordResetExpires != nil {
		e := *u.PasswordResetExpires
		c.PasswordResetExpires = &e
	}
	return &c
}
