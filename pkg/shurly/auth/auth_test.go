package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/workplacebuddy/shurly/pkg/shurly/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username, password string, role models.Role) models.User {
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := models.User{
		SessionID:      uuid.New(),
		Username:       username,
		HashedPassword: hash,
		Role:           role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func testTokens() *Tokens {
	return NewTokens([]byte("test-secret"), time.Hour)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("Expected argon2id hash, got %q", hash)
	}
	if !CheckPassword("correct horse battery staple", hash) {
		t.Error("Expected correct password to verify")
	}
	if CheckPassword("wrong password", hash) {
		t.Error("Expected wrong password to fail")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	first, _ := HashPassword("same password")
	second, _ := HashPassword("same password")
	if first == second {
		t.Error("Expected distinct hashes for the same password")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	if CheckPassword("anything", "not-a-hash") {
		t.Error("Expected malformed hash to fail verification")
	}
	if CheckPassword("anything", "") {
		t.Error("Expected empty hash to fail verification")
	}
}

func TestGeneratePassword(t *testing.T) {
	first, err := GeneratePassword()
	if err != nil {
		t.Fatalf("GeneratePassword returned error: %v", err)
	}
	second, _ := GeneratePassword()

	if first == second {
		t.Error("Expected distinct generated passwords")
	}
	if len(first) < 20 {
		t.Errorf("Expected a long password, got %d characters", len(first))
	}
}

func TestIssueAndVerifyToken(t *testing.T) {
	db := setupTestDB(t)
	tokens := testTokens()
	user := createTestUser(t, db, "alice", "password123", models.RoleAdmin)

	token, err := tokens.Issue(user)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("UserID returned error: %v", err)
	}
	if userID != user.ID {
		t.Errorf("Expected user ID %s, got %s", user.ID, userID)
	}

	sessionID, err := claims.SessionID()
	if err != nil {
		t.Fatalf("SessionID returned error: %v", err)
	}
	if sessionID != user.SessionID {
		t.Errorf("Expected session ID %s, got %s", user.SessionID, sessionID)
	}

	if claims.Role != string(models.RoleAdmin) {
		t.Errorf("Expected role admin, got %s", claims.Role)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice", "password123", models.RoleAdmin)

	token, err := testTokens().Issue(user)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	other := NewTokens([]byte("other-secret"), time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Error("Expected verification with another secret to fail")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice", "password123", models.RoleAdmin)

	expired := NewTokens([]byte("test-secret"), -time.Minute)
	token, err := expired.Issue(user)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := testTokens().Verify(token); err == nil {
		t.Error("Expected expired token to fail verification")
	}
}

func setupTokenRouter(db *gorm.DB, tokens *Tokens) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, tokens)
	r.POST("/api/users/token", handler.Token)
	return r
}

func requestToken(t *testing.T, router *gin.Engine, username, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(LoginRequest{Username: username, Password: password})
	req, _ := http.NewRequest("POST", "/api/users/token", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestTokenEndpoint(t *testing.T) {
	db := setupTestDB(t)
	tokens := testTokens()
	router := setupTokenRouter(db, tokens)
	createTestUser(t, db, "alice", "password123", models.RoleManager)

	resp := requestToken(t, router, "alice", "password123")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response TokenResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.TokenType != "Bearer" {
		t.Errorf("Expected token type Bearer, got %s", response.TokenType)
	}
	if response.ExpiresIn != 3600 {
		t.Errorf("Expected expires_in 3600, got %d", response.ExpiresIn)
	}
	if _, err := tokens.Verify(response.AccessToken); err != nil {
		t.Errorf("Expected issued token to verify: %v", err)
	}
}

func TestTokenEndpointRejectsBadCredentials(t *testing.T) {
	db := setupTestDB(t)
	router := setupTokenRouter(db, testTokens())
	createTestUser(t, db, "alice", "password123", models.RoleManager)

	// unknown users and wrong passwords are indistinguishable
	for name, creds := range map[string][2]string{
		"wrong password": {"alice", "nope"},
		"unknown user":   {"bob", "password123"},
	} {
		resp := requestToken(t, router, creds[0], creds[1])
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected status 401, got %d", name, resp.Code)
		}
		var body map[string]string
		json.Unmarshal(resp.Body.Bytes(), &body)
		if body["error"] != "Invalid username or password" {
			t.Errorf("%s: unexpected error message %q", name, body["error"])
		}
	}
}

func TestTokenEndpointRejectsDeletedUser(t *testing.T) {
	db := setupTestDB(t)
	router := setupTokenRouter(db, testTokens())
	user := createTestUser(t, db, "alice", "password123", models.RoleManager)

	if err := db.Delete(&user).Error; err != nil {
		t.Fatalf("Failed to delete test user: %v", err)
	}

	resp := requestToken(t, router, "alice", "password123")
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func setupProtectedRouter(db *gorm.DB, tokens *Tokens) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	protected := r.Group("/api", AuthMiddleware(db, tokens))
	protected.GET("/whoami", func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})
	protected.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func authedRequest(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	db := setupTestDB(t)
	tokens := testTokens()
	router := setupProtectedRouter(db, tokens)
	user := createTestUser(t, db, "alice", "password123", models.RoleManager)

	token, _ := tokens.Issue(user)

	resp := authedRequest(router, "/api/whoami", token)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body map[string]string
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body["username"] != "alice" {
		t.Errorf("Expected username alice, got %s", body["username"])
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	db := setupTestDB(t)
	router := setupProtectedRouter(db, testTokens())

	resp := authedRequest(router, "/api/whoami", "")
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestAuthMiddlewareRejectsRotatedSession(t *testing.T) {
	db := setupTestDB(t)
	tokens := testTokens()
	router := setupProtectedRouter(db, tokens)
	user := createTestUser(t, db, "alice", "password123", models.RoleManager)

	token, _ := tokens.Issue(user)

	// rotating the session ID invalidates every outstanding token
	if err := db.Model(&user).Update("session_id", uuid.New()).Error; err != nil {
		t.Fatalf("Failed to rotate session: %v", err)
	}

	resp := authedRequest(router, "/api/whoami", token)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 after session rotation, got %d", resp.Code)
	}
}

func TestAuthMiddlewareRejectsDeletedUser(t *testing.T) {
	db := setupTestDB(t)
	tokens := testTokens()
	router := setupProtectedRouter(db, tokens)
	user := createTestUser(t, db, "alice", "password123", models.RoleManager)

	token, _ := tokens.Issue(user)
	if err := db.Delete(&user).Error; err != nil {
		t.Fatalf("Failed to delete test user: %v", err)
	}

	resp := authedRequest(router, "/api/whoami", token)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for deleted user, got %d", resp.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	db := setupTestDB(t)
	tokens := testTokens()
	router := setupProtectedRouter(db, tokens)

	admin := createTestUser(t, db, "alice", "password123", models.RoleAdmin)
	manager := createTestUser(t, db, "bob", "password123", models.RoleManager)

	adminToken, _ := tokens.Issue(admin)
	if resp := authedRequest(router, "/api/admin", adminToken); resp.Code != http.StatusOK {
		t.Errorf("Expected status 200 for admin, got %d", resp.Code)
	}

	managerToken, _ := tokens.Issue(manager)
	if resp := authedRequest(router, "/api/admin", managerToken); resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for manager, got %d", resp.Code)
	}
}

func TestEnsureInitialUser(t *testing.T) {
	db := setupTestDB(t)

	if err := EnsureInitialUser(db, "root", "password123"); err != nil {
		t.Fatalf("EnsureInitialUser returned error: %v", err)
	}

	var user models.User
	if err := db.First(&user, "username = ?", "root").Error; err != nil {
		t.Fatalf("Expected initial user to exist: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("Expected initial user to be admin, got %s", user.Role)
	}
	if !CheckPassword("password123", user.HashedPassword) {
		t.Error("Expected configured password to verify")
	}

	// the creation is recorded on the audit trail
	var entries int64
	db.Model(&models.AuditTrailEntry{}).Where("type = ?", models.AuditCreateUser).Count(&entries)
	if entries != 1 {
		t.Errorf("Expected 1 create-user audit entry, got %d", entries)
	}

	// a second run must not create another user
	if err := EnsureInitialUser(db, "root", "password123"); err != nil {
		t.Fatalf("EnsureInitialUser returned error on second run: %v", err)
	}
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 user, got %d", count)
	}
}

func TestEnsureInitialUserGeneratesCredentials(t *testing.T) {
	db := setupTestDB(t)

	if err := EnsureInitialUser(db, "", ""); err != nil {
		t.Fatalf("EnsureInitialUser returned error: %v", err)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 user, got %d", count)
	}
}
