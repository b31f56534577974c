package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hpdav/cityflow-backend-go/pkg/response"
)

const subjectKey = "subject"

// Subject returns the subject of the validated bearer token, or "".
func Subject(c *gin.Context) string {
	return c.GetString(subjectKey)
}

// JWTAuth requires an HS256 bearer token signed with secret. An empty
// secret disables the check.
func JWTAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.Header("WWW-Authenticate", `Bearer realm="cityflow"`)
			response.Error(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		var claims jwt.RegisteredClaims
		_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			_ = c.Error(err)
			c.Header("WWW-Authenticate", `Bearer realm="cityflow", error="invalid_token"`)
			response.Error(c, http.StatusUnauthorized, "invalid bearer token")
			return
		}

		c.Set(subjectKey, claims.Subject)
		c.Next()
	}
}
