package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abduss/cloudbin/internal/metrics"
	"github.com/abduss/cloudbin/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, limit int) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	service, _, _ := newTestService()
	limiter := ratelimit.New(context.Background(), limit, time.Hour)
	t.Cleanup(limiter.Stop)

	r := gin.New()
	RegisterRoutes(r.Group("/api"), service, limiter)
	r.GET("/protected", SessionMiddleware(service), func(c *gin.Context) {
		session, _ := CurrentSession(c)
		c.JSON(http.StatusOK, gin.H{"storageId": session.StorageID})
	})
	return r, service
}

func postAuth(r *gin.Engine, csrf string, body map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/auth", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if csrf != "" {
		req.Header.Set(CSRFHeader, csrf)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "cloudbin_session" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestCreateLoginVerifyFlow(t *testing.T) {
	r, _ := newTestRouter(t, 10)
	creds := map[string]string{"action": "create", "storageId": "alice", "password": "secret1", "deviceFingerprint": "dev-1"}

	created := postAuth(r, "create", creds)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	cookie := sessionCookie(t, created)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	var createdBody map[string]any
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &createdBody))
	assert.Equal(t, "alice", createdBody["storageId"])
	assert.NotEmpty(t, createdBody["createdAt"])

	creds["action"] = "login"
	loggedIn := postAuth(r, "login", creds)
	require.Equal(t, http.StatusOK, loggedIn.Code)
	cookie = sessionCookie(t, loggedIn)

	verified := postAuth(r, "verify", map[string]string{"action": "verify", "deviceFingerprint": "dev-1"}, cookie)
	require.Equal(t, http.StatusOK, verified.Code)
	assert.Contains(t, verified.Body.String(), `"valid":true`)

	foreign := postAuth(r, "verify", map[string]string{"action": "verify", "deviceFingerprint": "dev-2"}, cookie)
	assert.Equal(t, http.StatusUnauthorized, foreign.Code)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alice")
}

func TestAuthStatusCodes(t *testing.T) {
	r, _ := newTestRouter(t, 10)
	creds := map[string]string{"action": "create", "storageId": "bob", "password": "secret1"}
	require.Equal(t, http.StatusCreated, postAuth(r, "create", creds).Code)

	assert.Equal(t, http.StatusConflict, postAuth(r, "create", creds).Code)
	assert.Equal(t, http.StatusBadRequest, postAuth(r, "create", map[string]string{"action": "create", "storageId": "x", "password": "secret1"}).Code)
	assert.Equal(t, http.StatusUnauthorized, postAuth(r, "login", map[string]string{"action": "login", "storageId": "bob", "password": "nope-nope"}).Code)
	assert.Equal(t, http.StatusBadRequest, postAuth(r, "explode", map[string]string{"action": "explode"}).Code)
	assert.Equal(t, http.StatusForbidden, postAuth(r, "", creds).Code)
	assert.Equal(t, http.StatusForbidden, postAuth(r, "login", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, postAuth(r, "verify", map[string]string{"action": "verify"}).Code)
}

func TestLogoutExpiresCookie(t *testing.T) {
	r, _ := newTestRouter(t, 10)

	rr := postAuth(r, "logout", map[string]string{"action": "logout"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"loggedOut":true`)
	cookie := sessionCookie(t, rr)
	assert.Equal(t, "", cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
}

func TestAuthRateLimited(t *testing.T) {
	r, _ := newTestRouter(t, 2)
	creds := map[string]string{"action": "login", "storageId": "carol", "password": "secret1", "deviceFingerprint": "dev"}

	assert.Equal(t, http.StatusUnauthorized, postAuth(r, "login", creds).Code)
	assert.Equal(t, http.StatusUnauthorized, postAuth(r, "login", creds).Code)
	assert.Equal(t, http.StatusTooManyRequests, postAuth(r, "login", creds).Code)

	creds["deviceFingerprint"] = "other-device"
	assert.Equal(t, http.StatusUnauthorized, postAuth(r, "login", creds).Code)
}

func TestSessionMiddlewareRejectsMissingCookie(t *testing.T) {
	r, _ := newTestRouter(t, 10)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthRejectsOversizedBody(t *testing.T) {
	r, _ := newTestRouter(t, 10)

	rr := postAuth(r, "create", map[string]string{
		"action":    "create",
		"storageId": "alice",
		"password":  strings.Repeat("p", maxAuthBodyBytes),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}
