package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

// Session is the actor context every posting runs under: who is posting,
// which branch partitions the data, and the branch's current business date.
type Session struct {
	UserID       string    `json:"user_id"`
	Branch       string    `json:"branch"`
	BusinessDate time.Time `json:"business_date"`
}

type contextKey string

const sessionKey contextKey = "session"

var sessionStore *redis.Client

// InitAuthMiddleware wires the Redis client used for session lookups.
func InitAuthMiddleware(redisClient *redis.Client) {
	sessionStore = redisClient
}

// AuthMiddleware validates the bearer token and loads the session from
// Redis into the request context. Absence of either is a 401.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		token := parts[1]
		if err := validateToken(token); err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		session, err := lookupSession(r.Context(), token)
		if err != nil {
			http.Error(w, "Session expired", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey).(*Session)
	return session, ok
}

func validateToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenUnverifiable
	}
	return nil
}

func lookupSession(ctx context.Context, token string) (*Session, error) {
	if sessionStore == nil {
		return nil, redis.Nil
	}
	raw, err := sessionStore.Get(ctx, "session:"+token).Result()
	if err != nil {
		return nil, err
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, err
	}
	return &session, nil
}
