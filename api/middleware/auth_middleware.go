// api/middleware/auth_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/whoopclone/backend/internal/auth"
	"github.com/whoopclone/backend/internal/logger"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "userId"
	ContextClaims = "claims"
)

var (
	ErrAuthHeaderMissing = errors.New("authorization header required")
	ErrAuthHeaderFormat  = errors.New("authorization header format must be Bearer {token}")
	customLog            = logger.NewLogger()
)

// TokenValidator is satisfied by *auth.TokenService.
type TokenValidator interface {
	Validate(token string) auth.Result
}

// AuthMiddleware rejects requests without a valid Bearer token and stores
// the token subject and claims in the context.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, ErrAuthHeaderMissing, ErrAuthHeaderMissing.Error())
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, ErrAuthHeaderFormat, ErrAuthHeaderFormat.Error())
			return
		}

		res := tokens.Validate(strings.TrimSpace(parts[1]))
		if !res.Valid() {
			customLog.Printf("AuthMiddleware: Token validation failed: %v", res.Err)
			errMsg := "Invalid token"
			switch {
			case errors.Is(res.Err, auth.ErrTokenMalformed):
				errMsg = res.Err.Error()
			case errors.Is(res.Err, auth.ErrTokenExpired):
				errMsg = res.Err.Error()
			}
			abortUnauthorized(c, res.Err, errMsg)
			return
		}

		sub, err := res.Claims.GetSubject()
		if err != nil || sub == "" {
			abortUnauthorized(c, auth.ErrTokenClaimsInvalid, "Invalid token")
			return
		}

		customLog.Debugf("AuthMiddleware: Token validated successfully for UserID: %s", sub)
		c.Set(ContextUserID, sub)
		c.Set(ContextClaims, res.Claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, err error, msg string) {
	_ = c.Error(err)
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
