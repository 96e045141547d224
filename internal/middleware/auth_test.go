package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-service/pkg/config"
	"catalog-service/pkg/jwtutil"
	"catalog-service/prometheus"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "middleware_test"}})
	os.Exit(m.Run())
}

func newAuthContext(t *testing.T, header string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("logger", zap.NewNop())
	return c, rec
}

func okHandler(called *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*called = true
		return c.NoContent(http.StatusOK)
	}
}

func testJWT() *jwtutil.JWTUtil {
	return jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})
}

func TestAuthMiddleware_AcceptsValidToken(t *testing.T) {
	jwt := testJWT()
	token, err := jwt.GenerateToken("ops@example.com", 42, "admin")
	require.NoError(t, err)

	var called bool
	c, _ := newAuthContext(t, "Bearer "+token)
	require.NoError(t, AuthMiddleware(jwt)(okHandler(&called))(c))

	require.True(t, called)
	id, ok := GetUserIDFromContext(c)
	require.True(t, ok)
	require.Equal(t, uint(42), id)
	require.Equal(t, "admin", c.Get("user_role"))
	require.Equal(t, "ops@example.com", c.Get("email"))
}

func TestAuthMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	jwt := testJWT()
	token, err := jwt.GenerateToken("ops@example.com", 42, "admin")
	require.NoError(t, err)

	var called bool
	c, _ := newAuthContext(t, "bearer "+token)
	require.NoError(t, AuthMiddleware(jwt)(okHandler(&called))(c))
	require.True(t, called)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	var called bool
	c, rec := newAuthContext(t, "")
	require.NoError(t, AuthMiddleware(testJWT())(okHandler(&called))(c))

	require.False(t, called)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "missing authorization token")
}

func TestAuthMiddleware_RejectsNonBearerHeader(t *testing.T) {
	var called bool
	c, rec := newAuthContext(t, "Basic dXNlcjpwYXNz")
	require.NoError(t, AuthMiddleware(testJWT())(okHandler(&called))(c))

	require.False(t, called)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "expected Bearer token")
}

func TestAuthMiddleware_RejectsTokenSignedWithOtherKey(t *testing.T) {
	other := jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "some-other-key", ExpirationHours: 1})
	token, err := other.GenerateToken("ops@example.com", 42, "admin")
	require.NoError(t, err)

	var called bool
	c, rec := newAuthContext(t, "Bearer "+token)
	require.NoError(t, AuthMiddleware(testJWT())(okHandler(&called))(c))

	require.False(t, called)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestRequireRoles(t *testing.T) {
	var called bool
	c, _ := newAuthContext(t, "")
	c.Set("user_role", "admin")
	require.NoError(t, RequireRoles("admin", "ops")(okHandler(&called))(c))
	require.True(t, called)

	called = false
	c, rec := newAuthContext(t, "")
	c.Set("user_role", "viewer")
	require.NoError(t, RequireRoles("admin", "ops")(okHandler(&called))(c))
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "insufficient permissions")

	called = false
	c, rec = newAuthContext(t, "")
	require.NoError(t, RequireRoles("admin")(okHandler(&called))(c))
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
