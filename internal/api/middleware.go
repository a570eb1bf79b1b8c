package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/observability"
	"jobtrack/internal/models"
)

const actorContextKey = "actor"

// actorClaims is the token payload the auth layer issues. Token issuance
// itself lives outside this service.
type actorClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// authMiddleware resolves the bearer token into the acting user.
func authMiddleware(secret, issuer string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "Missing bearer token"},
			})
			return
		}

		claims := &actorClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(secret), nil
		}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			log.Debug("token rejected", map[string]interface{}{"error": err})
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "Invalid or expired token"},
			})
			return
		}

		actor := models.User{
			ID:    claims.Subject,
			Name:  claims.Name,
			Email: claims.Email,
			Role:  models.Role(claims.Role),
		}
		if actor.ID == "" || !actor.Role.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "Token carries no usable identity"},
			})
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) models.User {
	actor, _ := c.Get(actorContextKey)
	user, _ := actor.(models.User)
	return user
}

// observeMiddleware records one operation per route through the OTel meter.
func observeMiddleware(obs *observability.Observability) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		operation := c.FullPath()
		if operation == "" {
			operation = "unmatched"
		}
		outcome := "success"
		if c.Writer.Status() >= 400 {
			outcome = "error"
		}
		obs.RecordOperation(c.Request.Context(), operation, outcome)
		obs.RecordOperationDuration(c.Request.Context(), operation, time.Since(start))
	}
}
