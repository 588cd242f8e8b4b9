package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/stake-plus/crisistruth/src/api/data"
)

const (
	ctxUser = "user"
	ctxRole = "role"

	tokenTTL = 24 * time.Hour
)

func issueJWT(email, role string, secret []byte) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  email,
		"role": role,
		"exp":  time.Now().Add(tokenTTL).Unix(),
	})
	return tok.SignedString(secret)
}

// OptionalJWT records the caller's identity when a valid bearer token is
// present. Requests without one pass through anonymously; a malformed or
// expired token is rejected.
func OptionalJWT(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.Next()
			return
		}
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "bad authorization header"})
			return
		}
		tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) { return secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "invalid token"})
			return
		}
		claims, _ := tok.Claims.(jwt.MapClaims)
		sub, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		c.Set(ctxUser, sub)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// RequireJWT rejects anonymous requests. It must run after OptionalJWT.
func RequireJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxUser) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"err": "authentication required"})
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != data.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"err": "admin access required"})
			return
		}
		c.Next()
	}
}
