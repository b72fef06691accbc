package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/socdesk/socdesk/internal/auth"
	"github.com/socdesk/socdesk/internal/shared"
	_ "github.com/socdesk/socdesk/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]string
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newAuthRouter(t *testing.T, repo *stubRepo) (http.Handler, *shared.TokenStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	tokens := shared.NewTokenStore(redisClient, "secret", time.Hour)
	handler := auth.NewHandler(nil, auth.NewService(repo, tokens, nil), 0)
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r, tokens
}

func activeUser(t *testing.T) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: "8c1e", Email: "user@test.local", PasswordHash: string(hashed), IsActive: true}
}

func TestLoginIssuesBearerToken(t *testing.T) {
	repo := &stubRepo{user: activeUser(t), sessions: map[string]string{}}
	router, tokens := newAuthRouter(t, repo)

	body := `{"email":"user@test.local","password":"correctpass"}`
	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var out auth.TokenResponse
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Token == "" || out.TokenType != "Bearer" {
		t.Fatalf("unexpected token response: %+v", out)
	}
	sess, err := tokens.Lookup(context.Background(), out.Token)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if sess.UserID != "8c1e" {
		t.Fatalf("expected user 8c1e, got %s", sess.UserID)
	}
	if repo.sessions[auth.SessionID(out.Token)] != "8c1e" {
		t.Fatalf("session row not recorded")
	}

	logout := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	logout.Header.Set("Authorization", "Bearer "+out.Token)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, logout)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if _, err := tokens.Lookup(context.Background(), out.Token); err != shared.ErrSessionExpired {
		t.Fatalf("expected revoked token, got %v", err)
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("session row not removed")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	user := activeUser(t)
	router, _ := newAuthRouter(t, &stubRepo{user: user, sessions: map[string]string{}})

	cases := map[string]int{
		`{"email":"user@test.local","password":"wrongpass"}`:   http.StatusUnauthorized,
		`{"email":"other@test.local","password":"correctpass"}`: http.StatusUnauthorized,
		`{"email":"not-an-email","password":"correctpass"}`:     http.StatusUnprocessableEntity,
		`{"email":"user@test.local"`:                            http.StatusBadRequest,
	}
	for body, want := range cases {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
		if res.Code != want {
			t.Fatalf("%s: expected %d, got %d", body, want, res.Code)
		}
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := activeUser(t)
	user.IsActive = false
	router, _ := newAuthRouter(t, &stubRepo{user: user, sessions: map[string]string{}})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"user@test.local","password":"correctpass"}`)))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}
