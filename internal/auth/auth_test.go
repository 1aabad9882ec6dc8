package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Danveyd/NewCatroid/internal/store"
)

func newTestService() *Service {
	s := NewService(store.NewMemory(), "test-secret")
	s.bcryptCost = bcrypt.MinCost
	return s
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	reg, err := s.Register(ctx, "ada@example.com", "correct horse", "Ada")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "Ada", reg.User.DisplayName)

	_, err = s.Register(ctx, "ada@example.com", "another one", "Ada 2")
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := s.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = s.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	userID, err := s.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, userID)

	u, err := s.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)

	_, err = s.GetUser(ctx, "user_missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestValidateToken(t *testing.T) {
	s := newTestService()
	good, err := s.issueToken("user_1")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := *s
		later.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
		_, err := later.ValidateToken(good)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewService(store.NewMemory(), "other-secret")
		_, err := other.ValidateToken(good)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user_1"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = s.ValidateToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString(s.jwtSecret)
		require.NoError(t, err)
		_, err = s.ValidateToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestMiddleware(t *testing.T) {
	s := newTestService()
	token, err := s.issueToken("user_1")
	require.NoError(t, err)

	var seen string
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer", "Bearer " + token, "", http.StatusOK},
		{"query token", "", "?token=" + token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"bad scheme", "Basic abc", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/scenes"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "user_1", seen)
			} else {
				assert.Empty(t, seen)
			}
		})
	}
}

func TestHandlers(t *testing.T) {
	s := newTestService()
	h := NewHandler(s)

	post := func(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec
	}

	rec := post(h.Register, `{"email":"a@b.c","password":"short","displayName":"A"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(h.Register, `{"email":"a@b.c","password":"long enough","displayName":"A"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result AuthResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.NotEmpty(t, result.Token)

	rec = post(h.Register, `{"email":"a@b.c","password":"long enough","displayName":"A"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(h.Login, `{"email":"a@b.c","password":"long enough"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(h.Login, `{"email":"a@b.c","password":"wrong password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(h.Login, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(WithUserID(req.Context(), result.User.ID))
	me := httptest.NewRecorder()
	h.Me(me, req)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"displayName":"A"`)
}

func TestRoutesValidateAccounts(t *testing.T) {
	s := newTestService()
	public := mux.NewRouter()
	authed := public.PathPrefix("/api").Subrouter()
	authed.Use(s.AuthMiddleware)
	NewHandler(s).Routes(public, authed)

	do := func(method, path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		public.ServeHTTP(rec, req)
		return rec
	}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad email", `{"email":"not-an-email","password":"long enough","displayName":"A"}`, "invalid email"},
		{"blank name", `{"email":"a@b.c","password":"long enough","displayName":"   "}`, "displayName must be"},
		{"long name", `{"email":"a@b.c","password":"long enough","displayName":"` + strings.Repeat("x", maxDisplayNameLen+1) + `"}`, "displayName must be"},
		{"missing password", `{"email":"a@b.c","displayName":"A"}`, "email and password are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(http.MethodPost, "/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}

	rec := do(http.MethodPost, "/auth/register", `{"email":" Ada@Example.COM ","password":"long enough","displayName":" Ada "}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	// Emails are matched case-insensitively.
	rec = do(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"long enough"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result AuthResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.Equal(t, "Ada", result.User.DisplayName)

	assert.Equal(t, http.StatusMethodNotAllowed, do(http.MethodGet, "/auth/login", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/me", "", "").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/me", "", result.Token).Code)
}
