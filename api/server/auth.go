package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/fundlock/fundlock/api/service"
	"github.com/fundlock/fundlock/funding"
)

type platformClaims struct {
	Address string `json:"address"`
	Admin   bool   `json:"admin"`
	jwt.RegisteredClaims
}

// auth validates the bearer token and resolves the caller identity into
// the request context. It authenticates only; role authorization happens
// inside the funding engine against the campaign's stakeholder bindings.
func auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims := &platformClaims{}
		token, err := jwt.ParseWithClaims(
			strings.TrimPrefix(header, "Bearer "),
			claims,
			func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			},
		)
		if err != nil || !token.Valid || claims.Address == "" {
			abortUnauthorized(c, "invalid bearer token")
			return
		}

		c.Set(service.CallerKey, funding.Caller{
			Address: claims.Address,
			Admin:   claims.Admin,
		})
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": http.StatusUnauthorized,
		"msg":  msg,
	})
}
