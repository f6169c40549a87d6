package services

import (
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/coopserve/corebanking/internal/middleware"
)

// AuthService issues teller sessions. Every session carries the branch and
// that branch's current business date; the posting workflows consume this
// opaquely.
type AuthService struct {
	db        *sql.DB
	redis     *redis.Client
	validator *ValidationHelper
}

func NewAuthService(db *sql.DB, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		redis:     redisClient,
		validator: NewValidationHelper(),
	}
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse represents the authentication response
type LoginResponse struct {
	Token        string    `json:"token"`
	UserID       string    `json:"user_id"`
	FullName     string    `json:"full_name"`
	Branch       string    `json:"branch"`
	BusinessDate time.Time `json:"business_date"`
}

// Login authenticates a teller and opens a session
// @Summary Teller login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		RespondError(w, err)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var userID int
	var fullName, branchID, passwordHash string
	var isActive bool
	err := s.db.QueryRowContext(r.Context(), `
		SELECT id, full_name, branch_id, password_hash, is_active
		FROM users WHERE username = $1`, req.Username).
		Scan(&userID, &fullName, &branchID, &passwordHash, &isActive)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !isActive) {
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}
	if err != nil {
		log.Printf("[AUTH] user lookup failed: %v", err)
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	if !verifyPassword(req.Password, passwordHash) {
		log.Printf("[AUTH] failed login for %s", req.Username)
		SendErrorResponse(w, "Invalid credentials", http.StatusUnauthorized, nil)
		return
	}

	var businessDate time.Time
	err = s.db.QueryRowContext(r.Context(),
		`SELECT business_date FROM branches WHERE branch_id = $1`, branchID).Scan(&businessDate)
	if err != nil {
		log.Printf("[AUTH] branch lookup failed for %s: %v", branchID, err)
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	expiryHours := viper.GetInt("jwt.expiry_hours")
	if expiryHours == 0 {
		expiryHours = 12
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"branch":  branchID,
		"exp":     time.Now().Add(time.Duration(expiryHours) * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(viper.GetString("jwt.secret_key")))
	if err != nil {
		log.Printf("[AUTH] token signing failed: %v", err)
		SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	session := middleware.Session{
		UserID:       fmt.Sprintf("%d", userID),
		Branch:       branchID,
		BusinessDate: businessDate,
	}
	payload, _ := json.Marshal(session)
	if s.redis != nil {
		if err := s.redis.Set(r.Context(), "session:"+signed, payload,
			time.Duration(expiryHours)*time.Hour).Err(); err != nil {
			log.Printf("[AUTH] session store failed: %v", err)
			SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
			return
		}
	}

	log.Printf("[AUTH] %s logged in on branch %s", req.Username, branchID)
	SendJSON(w, http.StatusOK, LoginResponse{
		Token:        signed,
		UserID:       session.UserID,
		FullName:     fullName,
		Branch:       branchID,
		BusinessDate: businessDate,
	})
}

// Logout destroys the session
// @Summary Teller logout
// @Tags auth
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" && s.redis != nil {
		s.redis.Del(r.Context(), "session:"+parts[1])
	}
	SendJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// GetSession returns the current session
// @Summary Current session
// @Tags auth
// @Produce json
// @Success 200 {object} middleware.Session
// @Failure 401 {object} ErrorResponse
// @Router /auth/session [get]
func (s *AuthService) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	SendJSON(w, http.StatusOK, session)
}

// verifyPassword checks a password against an encoded argon2id hash of the
// form base64(salt)$base64(hash).
func verifyPassword(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)

	got := argon2.IDKey([]byte(password), salt,
		viper.GetUint32("argon2.time"),
		viper.GetUint32("argon2.memory"),
		uint8(viper.GetUint32("argon2.threads")),
		uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
