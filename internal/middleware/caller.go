package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"nvrgate/internal/models"
	"nvrgate/internal/service"
)

const callerKey = "caller"

type CallerResolver interface {
	Resolve(ctx context.Context, creds service.Credentials) (models.Caller, error)
}

// Caller resolves the request's credentials and stores the result for handlers. A
// request whose credential does not resolve is rejected here.
func Caller(resolver CallerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds service.Credentials
		// Read the raw value; c.Cookie would unescape the '+' of standard base64.
		if cookie, err := c.Request.Cookie(service.SessionCookieName); err == nil {
			creds.SessionCookie = cookie.Value
		}
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			creds.BearerToken = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}

		caller, err := resolver.Resolve(c.Request.Context(), creds)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// CurrentCaller returns the resolved caller, or an anonymous one without permissions.
func CurrentCaller(c *gin.Context) models.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(models.Caller); ok {
			return caller
		}
	}
	return models.Caller{}
}
