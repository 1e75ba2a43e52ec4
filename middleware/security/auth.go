package security

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatgate/logger"
	"chatgate/service/storage"
	"chatgate/tools/errs"
	toolsec "chatgate/tools/security"
)

// Context key for the authenticated principal's username.
const CtxUsernameKey = "principal"

// Middleware gates REST routes the same way the websocket handshake
// is gated: verify the token, then require its jti to still be the
// current binding for the account.
func Middleware(jwtOpts toolsec.Options, sso storage.SsoStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := toolsec.TokenFromHeader(c.Request.Header)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenMissing)
			return
		}
		id, err := toolsec.Verify(jwtOpts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}
		current, err := sso.IsCurrent(c.Request.Context(), id.Username, id.JTI)
		if err != nil {
			logger.Warnf("[auth] sso check failed for %s: %v", id.Username, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenSuperseded)
			return
		}
		if !current {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenSuperseded)
			return
		}

		c.Set(CtxUsernameKey, id.Username)
		c.Next()
	}
}

// Username reads the principal set by Middleware.
func Username(c *gin.Context) string {
	v, _ := c.Get(CtxUsernameKey)
	s, _ := v.(string)
	return s
}
