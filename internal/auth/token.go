package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chiremba/chiremba-api/internal/user/entity"
	"github.com/chiremba/chiremba-api/pkg/utilities"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrInvalidToken)
)

// Kind separates bearer session tokens from one-shot password setup tokens.
type Kind string

const (
	KindSession Kind = "session"
	KindSetup   Kind = "setup"
)

// Claims is the JWT payload. Setup tokens carry no role.
type Claims struct {
	UserID string      `json:"id"`
	Email  string      `json:"email"`
	Role   entity.Role `json:"role,omitempty"`
	Kind   Kind        `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens.
type TokenService struct {
	secret     []byte
	issuer     string
	sessionTTL time.Duration
	setupTTL   time.Duration
	now        func() time.Time
}

func NewTokenService(cfg Config) *TokenService {
	return &TokenService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		sessionTTL: cfg.SessionTTL,
		setupTTL:   cfg.SetupTTL,
		now:        time.Now,
	}
}

// WithClock returns a copy of s reading time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	c := *s
	c.now = now
	return &c
}

// SetupTTL is the lifetime of password setup tokens.
func (s *TokenService) SetupTTL() time.Duration { return s.setupTTL }

// Issue signs a session token for u.
func (s *TokenService) Issue(u *entity.User) (string, error) {
	tok, _, err := s.sign(u.ID, u.Email, u.Role, KindSession, s.sessionTTL)
	return tok, err
}

// IssueSetup signs a password setup token for u and returns its expiry.
// Every call yields a distinct token, so rotating invalidates earlier ones.
func (s *TokenService) IssueSetup(u *entity.User) (string, time.Time, error) {
	return s.sign(u.ID, u.Email, "", KindSetup, s.setupTTL)
}

func (s *TokenService) sign(id, email string, role entity.Role, kind Kind, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID: id,
		Email:  email,
		Role:   role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id,
			ID:        utilities.NewKSUID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks a session token.
func (s *TokenService) Verify(token string) (*Claims, error) {
	return s.verify(token, KindSession)
}

// VerifySetup checks the signature and kind of a setup token. Whether it is still
// the one persisted on the account is decided by the store.
func (s *TokenService) VerifySetup(token string) (*Claims, error) {
	return s.verify(token, KindSetup)
}

func (s *TokenService) verify(token string, kind Kind) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: unexpected token kind %q", ErrInvalidToken, claims.Kind)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
