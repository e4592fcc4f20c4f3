package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/chiremba/chiremba-api/internal/auth"
	"github.com/chiremba/chiremba-api/internal/mail"
	"github.com/chiremba/chiremba-api/internal/user/entity"
	"github.com/chiremba/chiremba-api/pkg/utilities"
)

// Store is the account persistence contract implemented by the repo package.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context, role entity.Role) ([]*entity.User, error)
	CountByRole(ctx context.Context, role entity.Role) (int, error)
	ResetToPending(ctx context.Context, id, token string, expires time.Time) error
	// ConsumeResetToken activates the account holding token if it has not expired at now.
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*entity.User, error)
	UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.User, error)
	Delete(ctx context.Context, id string) error
}

// Session is returned by register and login.
type Session struct {
	Token string      `json:"token"`
	User  entity.View `json:"user"`
}

// UserService orchestrates authentication and account lifecycle flows.
type UserService struct {
	store    Store
	hasher   PasswordHasher
	tokens   *auth.TokenService
	mailer   mail.Sender
	logger   *zap.SugaredLogger
	validate *validator.Validate
	now      func() time.Time
}

func NewUserService(store Store, tokens *auth.TokenService, mailer mail.Sender, hasher PasswordHasher, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		mailer:   mailer,
		logger:   logger,
		validate: newValidator(),
		now:      time.Now,
	}
}

// WithClock returns a copy of s that reads time from now.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	c := *s
	c.now = now
	return &c
}

// Register creates an active `user` account and signs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}
	hash, _, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := s.newUser(in.Email, in.Name, entity.RoleUser)
	u.PasswordHash = &hash
	u.Status = entity.StatusActive
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Infow("user registered", "user_id", u.ID)
	return s.session(u)
}

// Login checks credentials. Pending accounts are rejected before the password is compared.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.CanLogin() {
		return nil, ErrAccountNotActive
	}
	if !s.hasher.Verify(*u.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *UserService) Me(ctx context.Context, id string) (*entity.View, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := u.ToView()
	return &v, nil
}

// List returns all accounts, or only those with role when it is non-empty.
func (s *UserService) List(ctx context.Context, role entity.Role) ([]entity.View, error) {
	users, err := s.store.List(ctx, role)
	if err != nil {
		return nil, err
	}
	out := make([]entity.View, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToView())
	}
	return out, nil
}

// CreateAccount invites a staff or admin member. The account starts pending with a
// persisted setup token; a failed email is logged and the account is kept.
func (s *UserService) CreateAccount(ctx context.Context, role entity.Role, in CreateAccountInput) (*entity.View, error) {
	if role != entity.RoleStaff && role != entity.RoleAdmin {
		return nil, ErrInvalidRole
	}
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}
	u := s.newUser(in.Email, in.Name, role)
	token, exp, err := s.tokens.IssueSetup(u)
	if err != nil {
		return nil, err
	}
	u.PasswordResetToken = &token
	u.PasswordResetExpires = &exp
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Infow("account invited", "user_id", u.ID, "role", role)

	kind := mail.KindStaffInvite
	if role == entity.RoleAdmin {
		kind = mail.KindAdminInvite
	}
	s.notify(ctx, kind, u, token)
	v := u.ToView()
	return &v, nil
}

// SetupPassword sets the password of the account holding token and activates it.
func (s *UserService) SetupPassword(ctx context.Context, in SetupPasswordInput) error {
	if err := validateStruct(s.validate, in); err != nil {
		return err
	}
	if _, err := s.tokens.VerifySetup(in.Token); err != nil {
		s.logger.Debugw("setup token rejected", "err", err)
		return ErrInvalidOrExpiredToken
	}
	hash, _, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u, err := s.store.ConsumeResetToken(ctx, in.Token, hash, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}
	s.logger.Infow("password set", "user_id", u.ID)
	return nil
}

// ResetAccount clears the password, returns the account to pending and mails a new
// setup link. Each call rotates the token, so earlier links stop working. An admin
// can only be reset while another active admin remains.
func (s *UserService) ResetAccount(ctx context.Context, id string) error {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardLastActiveAdmin(ctx, u); err != nil {
		return err
	}
	token, exp, err := s.tokens.IssueSetup(u)
	if err != nil {
		return err
	}
	if err := s.store.ResetToPending(ctx, u.ID, token, exp); err != nil {
		return err
	}
	s.logger.Infow("account reset", "user_id", u.ID)
	s.notify(ctx, mail.KindReset, u, token)
	return nil
}

func (s *UserService) ChangeRole(ctx context.Context, id string, role entity.Role) (*entity.View, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guardLastAdmin(ctx, u, role); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("role changed", "user_id", id, "from", u.Role, "to", role)
	v := updated.ToView()
	return &v, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guardLastAdmin(ctx, u, ""); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("user deleted", "user_id", id)
	return nil
}

// guardLastAdmin rejects giving target the role next (empty for deletion) when
// target is the only admin left.
func (s *UserService) guardLastAdmin(ctx context.Context, target *entity.User, next entity.Role) error {
	if target.Role != entity.RoleAdmin || next == entity.RoleAdmin {
		return nil
	}
	n, err := s.store.CountByRole(ctx, entity.RoleAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// guardLastActiveAdmin rejects locking target out when no other admin could still sign in.
func (s *UserService) guardLastActiveAdmin(ctx context.Context, target *entity.User) error {
	if target.Role != entity.RoleAdmin {
		return nil
	}
	admins, err := s.store.List(ctx, entity.RoleAdmin)
	if err != nil {
		return err
	}
	for _, a := range admins {
		if a.ID != target.ID && a.Status == entity.StatusActive {
			return nil
		}
	}
	return ErrLastAdmin
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.store.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrDuplicateEmail
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *UserService) newUser(email, name string, role entity.Role) *entity.User {
	now := s.now().UTC()
	return &entity.User{
		ID:        utilities.NewSnowflakeID(),
		Email:     email,
		Name:      name,
		Role:      role,
		Status:    entity.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *UserService) session(u *entity.User) (*Session, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u.ToView()}, nil
}

func (s *UserService) notify(ctx context.Context, kind mail.Kind, u *entity.User, token string) {
	n := mail.Notice{Kind: kind, To: u.Email, Name: u.Name, Token: token, TTL: s.tokens.SetupTTL()}
	if err := s.mailer.Send(ctx, n); err != nil {
		s.logger.Errorw("setup email failed", "user_id", u.ID, "err", err)
	}
}
