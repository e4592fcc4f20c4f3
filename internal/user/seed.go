package user

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/chiremba/chiremba-api/internal/user/entity"
)

// SeedConfig names the default accounts created when no admin exists.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
	StaffEmail    string
	StaffPassword string
	StaffName     string
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// SeedConfigFromEnv reads INIT_ADMIN_* and INIT_STAFF_*. Setting
// INIT_STAFF_EMAIL=- disables the staff account.
func SeedConfigFromEnv() SeedConfig {
	cfg := SeedConfig{
		AdminEmail:    envOr("INIT_ADMIN_EMAIL", "admin@chiremba.com"),
		AdminPassword: envOr("INIT_ADMIN_PASSWORD", "admin123"),
		AdminName:     envOr("INIT_ADMIN_NAME", "Admin User"),
		StaffEmail:    envOr("INIT_STAFF_EMAIL", "staff@chiremba.com"),
		StaffPassword: envOr("INIT_STAFF_PASSWORD", "staff123"),
		StaffName:     envOr("INIT_STAFF_NAME", "Staff User"),
	}
	if cfg.StaffEmail == "-" {
		cfg.StaffEmail = ""
	}
	return cfg
}

// SeedDefaults creates an active admin, plus a staff account when configured,
// if the store has no admin yet. It reports whether anything was created.
func (s *UserService) SeedDefaults(ctx context.Context, cfg SeedConfig) (bool, error) {
	n, err := s.store.CountByRole(ctx, entity.RoleAdmin)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := s.seedAccount(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName, entity.RoleAdmin); err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	if cfg.StaffEmail != "" {
		err := s.seedAccount(ctx, cfg.StaffEmail, cfg.StaffPassword, cfg.StaffName, entity.RoleStaff)
		if err != nil && !errors.Is(err, ErrDuplicateEmail) {
			return true, fmt.Errorf("seed staff: %w", err)
		}
	}
	s.logger.Infow("default accounts seeded", "admin", cfg.AdminEmail, "staff", cfg.StaffEmail)
	return true, nil
}

func (s *UserService) seedAccount(ctx context.Context, email, password, name string, role entity.Role) error {
	email = normalizeEmail(email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return err
	}
	hash, _, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u := s.newUser(email, name, role)
	u.PasswordHash = &hash
	u.Status = entity.StatusActive
	return s.store.Create(ctx, u)
}
