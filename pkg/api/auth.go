package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/codeready-toolchain/gateway/pkg/coaching"
	"github.com/codeready-toolchain/gateway/pkg/execute"
)

// callerContextKey is the gin context key the auth middleware stores the
// resolved caller under.
const callerContextKey = "gateway.caller"

// AuthClaims is the bearer token's claim set, per spec §6.1: every request
// carries (tenant_id, user_id, roles).
type AuthClaims struct {
	TenantID string   `json:"tenant_id"`
	UserID   string   `json:"user_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// Authenticator validates the bearer token on every request.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator builds an Authenticator over an HMAC secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Middleware validates the Authorization header and stores the resolved
// caller in the gin context for handlers to read.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": errorDetail{
				Code:    "Unauthorized",
				Message: "missing bearer token",
			}})
			return
		}

		claims := &AuthClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !parsed.Valid || claims.TenantID == "" || claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": errorDetail{
				Code:    "Unauthorized",
				Message: "invalid bearer token",
			}})
			return
		}

		c.Set(callerContextKey, *claims)
		c.Next()
	}
}

func callerFrom(c *gin.Context) AuthClaims {
	v, _ := c.Get(callerContextKey)
	claims, _ := v.(AuthClaims)
	return claims
}

func executeCaller(c *gin.Context) execute.Caller {
	claims := callerFrom(c)
	return execute.Caller{TenantID: claims.TenantID, UserID: claims.UserID}
}

func coachingCaller(c *gin.Context) coaching.Caller {
	claims := callerFrom(c)
	return coaching.Caller{TenantID: claims.TenantID, UserID: claims.UserID}
}
