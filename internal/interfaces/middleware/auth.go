package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kkkppp/p2proto/pkg/auth"
	"github.com/kkkppp/p2proto/pkg/constants"
	"github.com/kkkppp/p2proto/pkg/errors"
)

// RequireAuth is a middleware that validates JWT tokens
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from Authorization header
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			abortUnauthorized(c, "No authorization token provided")
			return
		}

		// Extract token (format: "Bearer <token>")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0]+" " != constants.BearerPrefix {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		tokenString := parts[1]
		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		// Set user session in context
		c.Set(constants.ContextKeyUser, claims.User)
		c.Set(constants.ContextKeyToken, tokenString)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, reason string) {
	err := errors.NewUnauthorizedError(reason)
	c.AbortWithStatusJSON(err.HTTPStatus(), gin.H{
		constants.ResponseError: err.Error(),
		constants.FieldMessage:  reason,
		constants.FieldCode:     err.Code(),
		constants.ResponseData:  nil,
	})
}
