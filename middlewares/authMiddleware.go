package middlewares

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/Ad-it-ya-pa-til/cityvoice/models"
)

// AuthMiddleware verifies the bearer token and stores the caller identity
// (user_id, role) in the request context. Everything downstream trusts this
// pair; no handler re-verifies credentials.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			c.Abort()
			return
		}

		// Extracting token from "Bearer <token>" format
		tokenString := authHeader
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = authHeader[7:]
		}

		jwtSecret := os.Getenv("JWT_SECRET")
		if jwtSecret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})

		if err != nil || !token.Valid {
			log.Debug().Err(err).Msg("token validation failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}
		c.Set("user_id", userID)

		role := models.RoleUser
		if r, ok := claims["role"].(string); ok && models.UserRole(r).Valid() {
			role = models.UserRole(r)
		}
		c.Set("role", string(role))

		c.Next()
	}
}

// CallerIdentity pulls (user_id, role) out of the gin context.
func CallerIdentity(c *gin.Context) (string, models.UserRole) {
	userID, _ := c.Get("user_id")
	id, _ := userID.(string)

	roleVal, _ := c.Get("role")
	role, _ := roleVal.(string)
	if !models.UserRole(role).Valid() {
		return id, models.RoleUser
	}
	return id, models.UserRole(role)
}

// RequireRole rejects callers whose role is not in the allowed set. Must run
// after AuthMiddleware.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role := CallerIdentity(c)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		c.Abort()
	}
}
