package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextSubject is the gin context key holding the token subject
const ContextSubject = "subject"

// ParseToken validates an HS256 token and returns its subject
func ParseToken(tokenStr string, secret []byte) (string, error) {
	tkn, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims, ok := tkn.Claims.(jwt.MapClaims); ok && tkn.Valid {
		sub, _ := claims["sub"].(string)
		if sub == "" {
			return "", errors.New("token has no subject")
		}
		return sub, nil
	}
	return "", errors.New("invalid token")
}

// Auth rejects requests without a valid bearer token. Browsers cannot set headers
// on websocket upgrades, so a token query parameter is accepted as well.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		tokenStr := ""
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			tokenStr = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		} else if q := c.Query("token"); q != "" {
			tokenStr = q
		}
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}

		sub, err := ParseToken(tokenStr, key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		c.Set(ContextSubject, sub)
		c.Next()
	}
}
