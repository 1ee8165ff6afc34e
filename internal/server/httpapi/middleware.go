package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/plantapi/internal/common"
	"github.com/dmitrijs2005/plantapi/internal/logging"
	"github.com/dmitrijs2005/plantapi/internal/server/models"
	"github.com/gin-gonic/gin"
)

const identityKey = "plantapi.identity"

type identityCtxKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the identity attached by the end-user
// middleware, if any.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(*models.Identity)
	return id, ok && id != nil
}

func identity(c *gin.Context) (*models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*models.Identity)
	return id, ok && id != nil
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, common.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(common.BearerPrefix):])
	return token, token != ""
}

// RequestLogger logs one line per request. Matched routes are logged by
// template so path parameters such as reset tokens never reach the log.
func RequestLogger(logger logging.Logger, m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		m.observe(c.Request.Method, route, status, latency)

		path := route
		if path == "" {
			path = c.Request.URL.Path
		}
		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// Authenticate guards end-user routes. Every rejection looks the same to the
// caller; a ledger or store outage is a 500.
func Authenticate(a Authenticator, m *Metrics, logger logging.Logger, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(common.AuthorizationHeaderName))
		if !ok {
			m.auth(domainUser, outcomeMissing)
			abortJSON(c, http.StatusUnauthorized, msgAuthFailed)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		id, err := a.Authenticate(ctx, token)
		cancel()

		if err != nil {
			switch {
			case errors.Is(err, common.ErrStoreUnavailable):
				m.auth(domainUser, outcomeError)
				logger.Error(c.Request.Context(), "authentication store unavailable", "error", err.Error())
				abortJSON(c, http.StatusInternalServerError, msgServerError)
			case errors.Is(err, common.ErrTokenBlacklisted):
				m.auth(domainUser, outcomeRevoked)
				abortJSON(c, http.StatusUnauthorized, msgAuthFailed)
			default:
				m.auth(domainUser, outcomeInvalid)
				logger.Debug(c.Request.Context(), "authentication rejected", "error", err.Error())
				abortJSON(c, http.StatusUnauthorized, msgAuthFailed)
			}
			return
		}

		m.auth(domainUser, outcomeOK)
		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// serviceAuth guards a service trust domain: any failure is a 403.
func serviceAuth(domain string, verify func(token string) error, m *Metrics, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(common.AuthorizationHeaderName))
		if !ok {
			m.auth(domain, outcomeMissing)
			abortJSON(c, http.StatusForbidden, msgAccessDenied)
			return
		}
		if err := verify(token); err != nil {
			outcome := outcomeInvalid
			if errors.Is(err, common.ErrForbidden) {
				outcome = outcomeForbidden
			}
			m.auth(domain, outcome)
			logger.Debug(c.Request.Context(), "service authentication rejected", "domain", domain, "error", err.Error())
			abortJSON(c, http.StatusForbidden, msgAccessDenied)
			return
		}
		m.auth(domain, outcomeOK)
		c.Next()
	}
}

func AuthenticateSync(a Authenticator, m *Metrics, logger logging.Logger) gin.HandlerFunc {
	return serviceAuth(domainSync, a.AuthenticateSync, m, logger)
}

func AuthenticateChatbot(a Authenticator, m *Metrics, logger logging.Logger) gin.HandlerFunc {
	return serviceAuth(domainChatbot, a.AuthenticateChatbot, m, logger)
}

// RequireRole must run after Authenticate.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		id, ok := identity(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, msgAuthFailed)
			return
		}
		if _, ok := allowed[id.Role]; !ok {
			abortJSON(c, http.StatusForbidden, msgAccessDenied)
			return
		}
		c.Next()
	}
}
