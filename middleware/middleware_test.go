package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"civicdesk/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(CtxSubject), "role": c.GetString(CtxRole)})
	})
	r.GET("/orgs/:orgID", handlers...)
	return r
}

func do(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func token(t *testing.T, subject, role, org string) string {
	t.Helper()
	tok, err := utils.GenerateToken(subject, role, org, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestJWTAuthMiddleware(t *testing.T) {
	strict := newRouter(JWTAuthMiddleware(false))
	assert.Equal(t, http.StatusUnauthorized, do(strict, "/orgs/o", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(strict, "/orgs/o", "garbage").Code)

	w := do(strict, "/orgs/o", token(t, "citizen-1", utils.RoleCitizen, ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subject":"citizen-1"`)

	optional := newRouter(JWTAuthMiddleware(true))
	assert.Equal(t, http.StatusOK, do(optional, "/orgs/o", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(optional, "/orgs/o", "garbage").Code)
}

func TestJWTAuthMiddleware_ExpiredToken(t *testing.T) {
	expired, err := utils.GenerateToken("citizen-1", utils.RoleCitizen, "", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(newRouter(JWTAuthMiddleware(false)), "/orgs/o", expired).Code)
}

func TestRequireRoles(t *testing.T) {
	r := newRouter(JWTAuthMiddleware(false), RequireRoles(utils.RoleAgent, utils.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, do(r, "/orgs/o", token(t, "c", utils.RoleCitizen, "")).Code)
	assert.Equal(t, http.StatusOK, do(r, "/orgs/o", token(t, "a", utils.RoleAdmin, "")).Code)
}

func TestRequireOrganizationScope(t *testing.T) {
	r := newRouter(JWTAuthMiddleware(false), RequireOrganizationScope())

	assert.Equal(t, http.StatusOK, do(r, "/orgs/mairie-01", token(t, "ag", utils.RoleAgent, "mairie-01")).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/orgs/mairie-02", token(t, "ag", utils.RoleAgent, "mairie-01")).Code)
	assert.Equal(t, http.StatusOK, do(r, "/orgs/mairie-02", token(t, "ad", utils.RoleAdmin, "")).Code)
}

func TestRateLimit(t *testing.T) {
	r := newRouter(rateLimit(newRateLimiterStore(2)))

	assert.Equal(t, http.StatusOK, do(r, "/orgs/o", "").Code)
	assert.Equal(t, http.StatusOK, do(r, "/orgs/o", "").Code)
	w := do(r, "/orgs/o", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"retryable":true`)
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	r := newRouter(RequestLogger(zap.NewNop()))
	w := do(r, "/orgs/o", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
