package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"sitepulse/api/internal/config"
	"sitepulse/api/internal/models"
	"sitepulse/api/internal/repository"
	"sitepulse/api/internal/service"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (m *memUserStore) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *memUserStore) ExistsByCompany(_ context.Context, company string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Company == company {
			return true, nil
		}
	}
	return false, nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func (m *memSessionStore) Create(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessionStore) FindByTokenHash(_ context.Context, tokenHash []byte) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		if bytes.Equal(session.TokenHash, tokenHash) {
			return session, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (m *memSessionStore) RevokeByTokenHash(_ context.Context, tokenHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		if bytes.Equal(session.TokenHash, tokenHash) {
			session.Revoked = true
			m.sessions[id] = session
		}
	}
	return nil
}

func (m *memSessionStore) RevokeAllByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		if session.UserID == userID {
			session.Revoked = true
			m.sessions[id] = session
		}
	}
	return nil
}

func (m *memSessionStore) RevokeByID(_ context.Context, userID string, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if ok && session.UserID == userID {
		session.Revoked = true
		m.sessions[sessionID] = session
	}
	return nil
}

func (m *memSessionStore) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			out = append(out, session)
		}
	}
	return out, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Auth: config.AuthConfig{
			TokenSecret:     "handler-test-secret",
			TokenTTL:        24 * time.Hour,
			PasswordTime:    1,
			PasswordMemory:  8 * 1024,
			PasswordThreads: 1,
		},
	}

	users := &memUserStore{users: make(map[string]models.User)}
	sessions := &memSessionStore{sessions: make(map[string]models.Session)}
	auth := service.NewAuthService(users, sessions, cfg, zerolog.Nop())

	h := HandlerSet{
		log:         zerolog.Nop(),
		cfg:         cfg,
		authService: auth,
		users:       users,
		sessions:    sessions,
	}

	engine := gin.New()
	h.Mount(engine.Group("/api"))
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

type authEnvelope struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		FullName string `json:"fullName"`
		Company  string `json:"company"`
		Role     string `json:"role"`
	} `json:"user"`
}

func register(t *testing.T, engine *gin.Engine, fullName, email, company string) authEnvelope {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"fullName": fullName,
		"email":    email,
		"company":  company,
		"password": "longenough1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp authEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func TestRegisterEndpoint(t *testing.T) {
	engine := newTestRouter(t)

	ann := register(t, engine, "Ann", "a@x.com", "Acme")
	require.Equal(t, "admin", ann.User.Role)
	require.Equal(t, "a@x.com", ann.User.Email)

	bob := register(t, engine, "Bob", "b@x.com", "Acme")
	require.Equal(t, "member", bob.User.Role)
}

func TestRegisterEndpointValidation(t *testing.T) {
	engine := newTestRouter(t)

	cases := []gin.H{
		{"email": "a@x.com", "company": "Acme", "password": "longenough1"},
		{"fullName": "Ann", "company": "Acme", "password": "longenough1"},
		{"fullName": "Ann", "email": "not-an-email", "company": "Acme", "password": "longenough1"},
		{"fullName": "Ann", "email": "a@x.com", "company": "Acme", "password": "short"},
	}

	for i, body := range cases {
		rec := doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", "", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "case %d: %s", i, rec.Body.String())
		require.Contains(t, rec.Body.String(), "validation_error")
		// Binding internals stay out of the response body.
		require.NotContains(t, rec.Body.String(), "registerRequest")
		require.NotContains(t, rec.Body.String(), "Error:Field")
	}
}

func TestRegisterEndpointConflict(t *testing.T) {
	engine := newTestRouter(t)
	register(t, engine, "Ann", "a@x.com", "Acme")

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"fullName": "Imposter",
		"email":    "a@x.com",
		"company":  "Acme",
		"password": "longenough9",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "email_taken")
}

func TestLoginEndpoint(t *testing.T) {
	engine := newTestRouter(t)
	register(t, engine, "Ann", "a@x.com", "Acme")

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "a@x.com",
		"password": "longenough1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp authEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	me := doJSON(t, engine, http.MethodGet, "/api/v1/auth/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	require.Contains(t, me.Body.String(), "a@x.com")
}

func TestLoginEndpointGenericError(t *testing.T) {
	engine := newTestRouter(t)
	register(t, engine, "Ann", "a@x.com", "Acme")

	wrongPassword := doJSON(t, engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "a@x.com",
		"password": "wrongpassword1",
	})
	unknownEmail := doJSON(t, engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "nobody@x.com",
		"password": "longenough1",
	})

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	// Byte-identical bodies: no account enumeration signal.
	require.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	require.Contains(t, wrongPassword.Body.String(), "invalid email or password")
}

func TestMeRequiresToken(t *testing.T) {
	engine := newTestRouter(t)

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, engine, http.MethodGet, "/api/v1/auth/me", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	engine := newTestRouter(t)
	ann := register(t, engine, "Ann", "a@x.com", "Acme")

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/auth/logout", ann.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The revoked token is dead even though its signature is intact.
	me := doJSON(t, engine, http.MethodGet, "/api/v1/auth/me", ann.Token, nil)
	require.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestSessionEndpoints(t *testing.T) {
	engine := newTestRouter(t)
	register(t, engine, "Ann", "a@x.com", "Acme")

	login := doJSON(t, engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "a@x.com",
		"password": "longenough1",
	})
	require.Equal(t, http.StatusOK, login.Code)
	var current authEnvelope
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &current))

	list := doJSON(t, engine, http.MethodGet, "/api/v1/auth/sessions", current.Token, nil)
	require.Equal(t, http.StatusOK, list.Code)

	var listResp struct {
		Sessions []struct {
			ID      string `json:"id"`
			Current bool   `json:"current"`
		} `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listResp))
	require.Len(t, listResp.Sessions, 2)

	var currentID, otherID string
	for _, s := range listResp.Sessions {
		if s.Current {
			currentID = s.ID
		} else {
			otherID = s.ID
		}
	}
	require.NotEmpty(t, currentID)
	require.NotEmpty(t, otherID)

	// Revoking the current session via this endpoint is refused.
	rec := doJSON(t, engine, http.MethodDelete, "/api/v1/auth/sessions/"+currentID, current.Token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, engine, http.MethodDelete, "/api/v1/auth/sessions/"+otherID, current.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
