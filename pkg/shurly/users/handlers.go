package users

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/workplacebuddy/shurly/pkg/shurly/audit"
	"github.com/workplacebuddy/shurly/pkg/shurly/auth"
	"github.com/workplacebuddy/shurly/pkg/shurly/models"
)

// Handler handles user management requests
type Handler struct {
	db     *gorm.DB
	tokens *auth.Tokens
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB, tokens *auth.Tokens) *Handler {
	return &Handler{db: db, tokens: tokens}
}

// CreateUserRequest represents the request to create a user.
// Password is optional; when absent one is generated and returned once.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
	Role     string `json:"role" binding:"required"`
}

// ChangePasswordRequest represents the request to change a password.
// The new password is optional; when absent one is generated.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	Password        string `json:"password"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID        uuid.UUID   `json:"id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`

	// Password is only set right after generating one
	Password string `json:"password,omitempty"`
}

func toResponse(user models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// List returns all live users
func (h *Handler) List(c *gin.Context) {
	var found []models.User
	if err := h.db.Order("created_at DESC").Find(&found).Error; err != nil {
		respondError(c, err)
		return
	}

	responses := make([]UserResponse, 0, len(found))
	for _, user := range found {
		responses = append(responses, toResponse(user))
	}
	c.JSON(http.StatusOK, responses)
}

// Single returns one user; the literal "me" resolves to the current user
// and does not require the admin role
func (h *Handler) Single(c *gin.Context) {
	actor, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.target(c, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(user))
}

// Create registers a new user. Usernames of soft-deleted users stay
// reserved; the uniqueness constraint covers deleted rows.
func (h *Handler) Create(c *gin.Context) {
	actor, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.Role(req.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be admin or manager"})
		return
	}

	password := req.Password
	generated := password == ""
	if generated {
		var err error
		password, err = auth.GeneratePassword()
		if err != nil {
			respondError(c, err)
			return
		}
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		respondError(c, err)
		return
	}

	user := models.User{
		SessionID:      uuid.New(),
		Username:       req.Username,
		HashedPassword: hashedPassword,
		Role:           role,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return audit.Record(tx, actor, c.ClientIP(), audit.CreateUser(&user))
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		}
		respondError(c, err)
		return
	}

	response := toResponse(user)
	if generated {
		// the only moment the password is known to anybody
		response.Password = password
	}
	c.JSON(http.StatusCreated, response)
}

// ChangePassword re-hashes the password and rotates the session ID, which
// invalidates every outstanding token of that user. A fresh token for the
// new session is returned.
func (h *Handler) ChangePassword(c *gin.Context) {
	actor, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.target(c, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	if !auth.CheckPassword(req.CurrentPassword, user.HashedPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid password"})
		return
	}

	password := req.Password
	if password == "" {
		password, err = auth.GeneratePassword()
		if err != nil {
			respondError(c, err)
			return
		}
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		respondError(c, err)
		return
	}

	user.SessionID = uuid.New()
	user.HashedPassword = hashedPassword

	err = h.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"session_id":      user.SessionID,
			"hashed_password": user.HashedPassword,
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		return audit.Record(tx, actor, c.ClientIP(), audit.ChangePassword(&user))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, auth.TokenResponse{
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokens.TTL().Seconds()),
		AccessToken: token,
	})
}

// Delete soft-deletes a user. The session ID is rotated as well so tokens
// issued before the deletion die immediately; the username stays reserved.
func (h *Handler) Delete(c *gin.Context) {
	actor, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := fetch(h.db, c.Param("user"))
	if err != nil {
		respondError(c, err)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("session_id", uuid.New()).Error; err != nil {
			return err
		}
		if err := tx.Delete(&user).Error; err != nil {
			return err
		}
		return audit.Record(tx, actor, c.ClientIP(), audit.DeleteUser(&user))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers user management routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", auth.RequireAdmin(), h.List)
	rg.POST("", auth.RequireAdmin(), h.Create)
	rg.GET("/:user", h.Single)
	rg.PUT("/:user/password", h.ChangePassword)
	rg.DELETE("/:user", auth.RequireAdmin(), h.Delete)
}

// target resolves the :user path parameter; "me" maps to the acting user,
// anything else requires the admin role
func (h *Handler) target(c *gin.Context, actor models.User) (models.User, error) {
	param := c.Param("user")
	if param == "me" {
		return actor, nil
	}

	if !actor.Role.Allows(models.RoleAdmin) {
		return models.User{}, models.ErrForbidden
	}
	return fetch(h.db, param)
}

func fetch(tx *gorm.DB, param string) (models.User, error) {
	id, err := uuid.Parse(param)
	if err != nil {
		return models.User{}, models.ErrNotFound
	}

	var user models.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, models.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func respondError(c *gin.Context, err error) {
	status := models.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("users: %v", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
