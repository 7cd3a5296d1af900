package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/abduss/cloudbin/internal/logger"
	"github.com/abduss/cloudbin/internal/metrics"
	"github.com/abduss/cloudbin/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	actionCreate = "create"
	actionLogin  = "login"
	actionVerify = "verify"
	actionLogout = "logout"

	maxAuthBodyBytes = 16 << 10
)

// RegisterRoutes mounts POST /auth on router.
func RegisterRoutes(router *gin.RouterGroup, service *Service, limiter *ratelimit.Limiter) {
	handler := &httpHandler{service: service, limiter: limiter}
	router.POST("/auth", handler.dispatch)
}

type httpHandler struct {
	service *Service
	limiter *ratelimit.Limiter
}

type authRequest struct {
	Action            string `json:"action"`
	StorageID         string `json:"storageId"`
	Password          string `json:"password"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

func (h *httpHandler) dispatch(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAuthBodyBytes)

	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.ObserveAuth("unknown", metrics.Outcome(http.StatusRequestEntityTooLarge))
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	switch req.Action {
	case actionCreate, actionLogin, actionVerify, actionLogout:
	default:
		metrics.ObserveAuth("unknown", "bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}

	if c.GetHeader(CSRFHeader) != req.Action {
		metrics.ObserveAuth(req.Action, "forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid CSRF token"})
		return
	}

	switch req.Action {
	case actionCreate:
		h.create(c, req)
	case actionLogin:
		h.login(c, req)
	case actionVerify:
		h.verify(c, req)
	case actionLogout:
		h.logout(c)
	}
}

func (h *httpHandler) create(c *gin.Context, req authRequest) {
	if !h.allow(c, req) {
		return
	}

	result, err := h.service.Create(c.Request.Context(), credentials(req))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStorageID), errors.Is(err, ErrInvalidPassword):
			h.fail(c, actionCreate, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrStorageTaken):
			h.fail(c, actionCreate, http.StatusConflict, "storage id already exists")
		default:
			h.internal(c, actionCreate, err)
		}
		return
	}

	h.setSession(c, result)
	metrics.ObserveAuth(actionCreate, "ok")
	c.JSON(http.StatusCreated, gin.H{
		"storageId": result.StorageID,
		"createdAt": result.CreatedAt.UTC(),
	})
}

func (h *httpHandler) login(c *gin.Context, req authRequest) {
	if !h.allow(c, req) {
		return
	}

	result, err := h.service.Login(c.Request.Context(), credentials(req))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.fail(c, actionLogin, http.StatusUnauthorized, "invalid storage id or password")
			return
		}
		h.internal(c, actionLogin, err)
		return
	}

	h.setSession(c, result)
	metrics.ObserveAuth(actionLogin, "ok")
	c.JSON(http.StatusOK, gin.H{"storageId": result.StorageID})
}

func (h *httpHandler) verify(c *gin.Context, req authRequest) {
	token, _ := c.Cookie(h.service.cfg.CookieName)
	session, err := h.service.Verify(token, req.DeviceFingerprint)
	if err != nil {
		h.fail(c, actionVerify, http.StatusUnauthorized, "invalid or expired session")
		return
	}

	metrics.ObserveAuth(actionVerify, "ok")
	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"storageId": session.StorageID,
		"expiresAt": session.ExpiresAt.UTC(),
	})
}

func (h *httpHandler) logout(c *gin.Context) {
	cfg := h.service.cfg
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cfg.CookieName, "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, true)
	metrics.ObserveAuth(actionLogout, "ok")
	c.JSON(http.StatusOK, gin.H{"loggedOut": true})
}

func (h *httpHandler) allow(c *gin.Context, req authRequest) bool {
	if h.limiter == nil {
		return true
	}
	if h.limiter.Allow(c.ClientIP() + "|" + req.DeviceFingerprint) {
		return true
	}
	metrics.ObserveAuth(req.Action, "rate_limited")
	h.limiter.Reject(c, "auth")
	return false
}

func (h *httpHandler) setSession(c *gin.Context, result Result) {
	cfg := h.service.cfg
	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = int(cfg.SessionTTL.Seconds())
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cfg.CookieName, result.Token, maxAge, "/", cfg.CookieDomain, cfg.CookieSecure, true)
}

func (h *httpHandler) fail(c *gin.Context, action string, status int, message string) {
	metrics.ObserveAuth(action, metrics.Outcome(status))
	c.JSON(status, gin.H{"error": message})
}

func (h *httpHandler) internal(c *gin.Context, action string, err error) {
	logger.FromContext(c).Error("auth action failed", zap.String("action", action), zap.Error(err))
	metrics.ObserveAuth(action, "error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func credentials(req authRequest) Credentials {
	return Credentials{
		StorageID:   req.StorageID,
		Password:    req.Password,
		Fingerprint: req.DeviceFingerprint,
	}
}
