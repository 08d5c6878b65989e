package gin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exceedlab/blogd/config"
	"github.com/exceedlab/blogd/internal/auth"
	"github.com/exceedlab/blogd/internal/blacklist"
	"github.com/exceedlab/blogd/internal/testutil"
	"github.com/exceedlab/blogd/internal/token"
	"github.com/exceedlab/blogd/services"
)

type apiFixture struct {
	router   *gin.Engine
	tokens   *token.Service
	sessions *services.SessionService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.ServerConfig{
		CookieSameSite: "lax",
		CookieSecure:   false,
	}

	repo := testutil.NewMemoryUserRepository()
	tokens := token.NewService([]byte("test-secret"), "blogd-test", time.Hour, 14*24*time.Hour)
	bl := blacklist.NewMemoryStore(time.Hour)
	t.Cleanup(func() { bl.Close() })

	hasher := auth.NewBcryptPasswordHasher(4)
	sessions := services.NewSessionService(repo, tokens, bl, hasher)
	users := services.NewUserService(repo, hasher)

	require.NoError(t, users.Register(context.Background(), "alice", "alice@example.com", "Alice", "correct-pw"))

	router := gin.New()
	router.Use(Authenticate(tokens, bl))
	NewUserAPI(sessions, users, cfg).RegisterRoutes(router)

	return &apiFixture{router: router, tokens: tokens, sessions: sessions}
}

func (f *apiFixture) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func cookieByName(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginHandler(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("Success", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/users/login", `{"userId":"alice","password":"correct-pw"}`)
		assert.Equal(t, http.StatusOK, w.Code)

		access := cookieByName(w, AccessTokenCookie)
		require.NotNil(t, access, "accessToken cookie must be set")
		assert.True(t, access.HttpOnly)
		assert.Equal(t, "/", access.Path)
		assert.Equal(t, int(time.Hour.Seconds()), access.MaxAge)
		assert.True(t, f.tokens.Validate(access.Value))

		refresh := cookieByName(w, RefreshTokenCookie)
		require.NotNil(t, refresh, "refreshToken cookie must be set")
		assert.True(t, refresh.HttpOnly)
		assert.Equal(t, int((14 * 24 * time.Hour).Seconds()), refresh.MaxAge)

		assert.Contains(t, w.Body.String(), `"userId":"alice"`)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/users/login", `{"userId":"alice","password":"wrong-pw"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Result().Cookies(), "no cookies on failed login")
	})

	t.Run("UnknownUserSameResponse", func(t *testing.T) {
		wrongPw := f.do(http.MethodPost, "/api/users/login", `{"userId":"alice","password":"wrong-pw"}`)
		unknown := f.do(http.MethodPost, "/api/users/login", `{"userId":"mallory","password":"wrong-pw"}`)
		assert.Equal(t, wrongPw.Code, unknown.Code)
		assert.Equal(t, wrongPw.Body.String(), unknown.Body.String(),
			"response must not reveal whether the user exists")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/users/login", `{"userId":"alice"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRegisterHandler(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/api/users/register",
		`{"userId":"bob","email":"bob@example.com","nickname":"Bob","password":"pw123"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	t.Run("Duplicate", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/users/register",
			`{"userId":"bob","email":"bob@example.com","nickname":"Bob","password":"pw123"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestProtectedRoute(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("NoToken", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/users/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/users/me", "",
			&http.Cookie{Name: AccessTokenCookie, Value: "not-a-token"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("CookieToken", func(t *testing.T) {
		login := f.do(http.MethodPost, "/api/users/login", `{"userId":"alice","password":"correct-pw"}`)
		access := cookieByName(login, AccessTokenCookie)
		require.NotNil(t, access)

		w := f.do(http.MethodGet, "/api/users/me", "", access)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"userId":"alice"`)
	})

	t.Run("BearerHeaderFallback", func(t *testing.T) {
		pair, err := f.sessions.Login(context.Background(), "alice", "correct-pw")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestLogoutThenAccess(t *testing.T) {
	f := newAPIFixture(t)

	login := f.do(http.MethodPost, "/api/users/login", `{"userId":"alice","password":"correct-pw"}`)
	access := cookieByName(login, AccessTokenCookie)
	require.NotNil(t, access)

	// Token works on a protected route.
	w := f.do(http.MethodGet, "/api/users/me", "", access)
	require.Equal(t, http.StatusOK, w.Code)

	// Logout blacklists it and clears the cookies.
	w = f.do(http.MethodPost, "/api/users/logout", "", access)
	assert.Equal(t, http.StatusOK, w.Code)
	cleared := cookieByName(w, AccessTokenCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0, "access cookie must be cleared")

	// The same, unexpired token is now rejected before any handler runs.
	w = f.do(http.MethodGet, "/api/users/me", "", access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutWithoutToken(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/api/users/logout", "")
	assert.Equal(t, http.StatusOK, w.Code, "absent token is already logged out")
}

func TestRefreshHandler(t *testing.T) {
	f := newAPIFixture(t)

	login := f.do(http.MethodPost, "/api/users/login", `{"userId":"alice","password":"correct-pw"}`)
	refresh := cookieByName(login, RefreshTokenCookie)
	require.NotNil(t, refresh)

	t.Run("RotatesPair", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/users/refresh", "", refresh)
		assert.Equal(t, http.StatusOK, w.Code)

		rotated := cookieByName(w, RefreshTokenCookie)
		require.NotNil(t, rotated)
		assert.NotEqual(t, refresh.Value, rotated.Value)
		assert.NotNil(t, cookieByName(w, AccessTokenCookie))
	})

	t.Run("OldTokenSingleUse", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/users/refresh", "", refresh)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("MissingCookie", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/users/refresh", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("GarbageCookie", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/users/refresh", "",
			&http.Cookie{Name: RefreshTokenCookie, Value: "garbage"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
