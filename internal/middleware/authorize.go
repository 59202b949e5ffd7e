package middleware

import (
	"github.com/gin-gonic/gin"

	"nvrgate/internal/errs"
)

// RequireUser rejects callers that did not resolve to a user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentCaller(c).User == nil {
			AbortWithError(c, errs.New(errs.Unauthenticated, "must be logged in"))
			return
		}
		c.Next()
	}
}
