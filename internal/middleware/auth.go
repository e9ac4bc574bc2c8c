package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/yourorg/index-compare/internal/utils"
)

// SubjectKey is the gin context key holding the authenticated token subject
const SubjectKey = "subject"

// JWTAuth creates middleware validating HS256 bearer tokens signed with secret.
// An empty secret disables authentication.
func JWTAuth(secret string, logger *zap.Logger) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.AbortWithError(c, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			logger.Debug("Invalid token", zap.Error(err))
			utils.AbortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}
