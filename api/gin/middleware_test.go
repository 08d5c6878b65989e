package gin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exceedlab/blogd/internal/blacklist"
	"github.com/exceedlab/blogd/internal/token"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *token.Service, *blacklist.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := token.NewService([]byte("test-secret"), "blogd-test", time.Hour, time.Hour)
	bl := blacklist.NewMemoryStore(time.Hour)
	t.Cleanup(func() { bl.Close() })

	router := gin.New()
	router.Use(Authenticate(tokens, bl))

	// A public route reports the attached identity, a protected one demands it.
	router.GET("/public", func(c *gin.Context) {
		userID, _ := AuthenticatedUserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID})
	})
	router.GET("/protected", RequireAuth(), func(c *gin.Context) {
		userID, _ := AuthenticatedUserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID})
	})

	return router, tokens, bl
}

func get(router *gin.Engine, path string, cookie *http.Cookie, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthenticateAttachesIdentity(t *testing.T) {
	router, tokens, _ := newAuthRouter(t)

	access, err := tokens.IssueAccessToken("alice")
	require.NoError(t, err)

	t.Run("FromCookie", func(t *testing.T) {
		w := get(router, "/protected", &http.Cookie{Name: AccessTokenCookie, Value: access}, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"userId":"alice"`)
	})

	t.Run("FromBearerHeader", func(t *testing.T) {
		w := get(router, "/protected", nil, access)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("CookieWinsOverHeader", func(t *testing.T) {
		other, err := tokens.IssueAccessToken("bob")
		require.NoError(t, err)
		w := get(router, "/public", &http.Cookie{Name: AccessTokenCookie, Value: access}, other)
		assert.Contains(t, w.Body.String(), `"userId":"alice"`)
	})
}

func TestAuthenticateProceedsUnauthenticated(t *testing.T) {
	router, _, _ := newAuthRouter(t)

	t.Run("NoTokenPublicRoute", func(t *testing.T) {
		w := get(router, "/public", nil, "")
		assert.Equal(t, http.StatusOK, w.Code, "public routes stay reachable without a token")
	})

	t.Run("InvalidTokenPublicRoute", func(t *testing.T) {
		w := get(router, "/public", &http.Cookie{Name: AccessTokenCookie, Value: "garbage"}, "")
		assert.Equal(t, http.StatusOK, w.Code, "an invalid token does not hard-fail public routes")
		assert.Contains(t, w.Body.String(), `"userId":""`)
	})

	t.Run("NoTokenProtectedRoute", func(t *testing.T) {
		w := get(router, "/protected", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "route-level policy rejects before the handler")
	})

	t.Run("InvalidTokenProtectedRoute", func(t *testing.T) {
		w := get(router, "/protected", &http.Cookie{Name: AccessTokenCookie, Value: "garbage"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthenticateRejectsBlacklisted(t *testing.T) {
	router, tokens, bl := newAuthRouter(t)

	access, err := tokens.IssueAccessToken("alice")
	require.NoError(t, err)
	expiry, err := tokens.Expiry(access)
	require.NoError(t, err)
	require.NoError(t, bl.Add(context.Background(), access, expiry))

	// A revoked token is rejected even on routes that allow anonymous access.
	w := get(router, "/public", &http.Cookie{Name: AccessTokenCookie, Value: access}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(router, "/protected", &http.Cookie{Name: AccessTokenCookie, Value: access}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
