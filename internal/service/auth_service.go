package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sitepulse/api/internal/config"
	"sitepulse/api/internal/ids"
	"sitepulse/api/internal/models"
	"sitepulse/api/internal/repository"
	"sitepulse/api/internal/security"
)

var (
	// ErrInvalidCredentials is the single answer for both an unknown email
	// and a wrong password, so login responses never reveal which
	// accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnauthenticated    = errors.New("invalid or expired session")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLength = 8

// ValidationError marks malformed or missing input detected before any
// store access.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// UserStore is the slice of the credential store the auth flows need.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	ExistsByCompany(ctx context.Context, company string) (bool, error)
}

// SessionStore persists issued sessions and supports revocation.
type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	FindByTokenHash(ctx context.Context, tokenHash []byte) (models.Session, error)
	RevokeByTokenHash(ctx context.Context, tokenHash []byte) error
	RevokeByID(ctx context.Context, userID string, sessionID string) error
	RevokeAllByUser(ctx context.Context, userID string) error
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewAuthService(users UserStore, sessions SessionStore, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}
}

type RegisterInput struct {
	FullName string
	Email    string
	Company  string
	Password string
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.Company = strings.TrimSpace(input.Company)

	if input.FullName == "" || input.Email == "" || input.Company == "" || input.Password == "" {
		return AuthResult{}, validationErrorf("full name, email, company and password are required")
	}
	if !emailPattern.MatchString(input.Email) {
		return AuthResult{}, validationErrorf("invalid email address")
	}
	if len(input.Password) < minPasswordLength {
		return AuthResult{}, validationErrorf("password must be at least %d characters", minPasswordLength)
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return AuthResult{}, err
	}

	// Business policy, not a security control: the first account of a
	// company runs it. Re-evaluated on every registration; concurrent
	// first registrants may both land admin.
	exists, err := s.users.ExistsByCompany(ctx, input.Company)
	if err != nil {
		return AuthResult{}, err
	}
	role := models.UserRoleMember
	if !exists {
		role = models.UserRoleAdmin
	}

	passwordHash, err := security.HashPasswordWithParams(input.Password, security.Argon2Params{
		Time:    s.cfg.Auth.PasswordTime,
		Memory:  s.cfg.Auth.PasswordMemory,
		Threads: s.cfg.Auth.PasswordThreads,
	})
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        input.Email,
		FullName:     input.FullName,
		Company:      input.Company,
		Role:         role,
		PasswordHash: passwordHash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, err
	}

	result, err := s.createSession(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("company", user.Company).
		Str("role", string(user.Role)).
		Msg("user registered")

	return result, nil
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		return AuthResult{}, validationErrorf("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if !security.VerifyPassword(input.Password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	result, err := s.createSession(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")

	return result, nil
}

func (s *AuthService) createSession(ctx context.Context, user models.User) (AuthResult, error) {
	sessionID := ids.New()

	token, _, err := security.MintToken(
		s.cfg.Auth.TokenSecret,
		user.ID,
		sessionID,
		string(user.Role),
		user.Company,
		s.cfg.Auth.TokenTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	issuedAt := time.Now()
	session := models.Session{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: security.HashToken(token),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.cfg.Auth.TokenTTL),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

// Authenticate resolves a bearer token to its user. Every failure short of
// a vanished user row collapses to ErrUnauthenticated; a valid token whose
// user has since been deleted surfaces repository.ErrUserNotFound.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, *security.Claims, error) {
	claims, err := security.ParseToken(token, s.cfg.Auth.TokenSecret)
	if err != nil {
		return models.User{}, nil, ErrUnauthenticated
	}

	tokenHash := security.HashToken(token)
	session, err := s.sessions.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.User{}, nil, ErrUnauthenticated
		}
		return models.User{}, nil, err
	}

	if session.UserID != claims.UserID {
		return models.User{}, nil, ErrUnauthenticated
	}

	if !session.Live(time.Now()) {
		// Stale row; revoke it on the way out so the table stays honest
		// between cleanup runs.
		if err := s.sessions.RevokeByTokenHash(ctx, tokenHash); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("revoke stale session failed")
		}
		return models.User{}, nil, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return models.User{}, nil, err
	}

	return user, claims, nil
}

// Logout revokes the session behind the presented token. Idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.RevokeByTokenHash(ctx, security.HashToken(token))
}
