package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/workplacebuddy/shurly/pkg/shurly/models"
)

// ContextKeyUser is the key for the authenticated user in gin context
const ContextKeyUser = "current_user"

// AuthMiddleware validates bearer tokens and sets the authenticated user in
// the context.
//
// The user is re-read from storage on every request and the stored session ID
// must equal the one embedded in the token; a rotated session therefore
// invalidates all previously issued tokens immediately.
func AuthMiddleware(db *gorm.DB, tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			unauthorized(c)
			return
		}

		claims, err := tokens.Verify(parts[1])
		if err != nil {
			unauthorized(c)
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			unauthorized(c)
			return
		}
		sessionID, err := claims.SessionID()
		if err != nil {
			unauthorized(c)
			return
		}

		// deleted users drop out here, the default scope skips them
		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not load user"})
				return
			}
			unauthorized(c)
			return
		}

		if user.SessionID != sessionID {
			unauthorized(c)
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// RequireAdmin checks that the authenticated user has the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			unauthorized(c)
			return
		}

		if !user.Role.Allows(models.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		c.Next()
	}
}

// CurrentUser returns the authenticated user from the gin context
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, exists := c.Get(ContextKeyUser)
	if !exists {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}
