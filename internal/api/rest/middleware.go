package rest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auctionhouse/auction-marketplace-backend/internal/infrastructure/cache"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	roleKey   contextKey = "role"
)

// RoleAdmin marks moderation privileges in the token's role claim
const RoleAdmin = "admin"

// UserID extracts the authenticated user from the request context
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// Role extracts the caller's role claim, empty when the token carried none
func Role(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// APIMetrics records request outcomes
type APIMetrics interface {
	RecordAPIRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// loggingMiddleware logs every request with its outcome and latency, and
// records it on the request metrics.
func loggingMiddleware(logger *zap.Logger, metrics APIMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		if metrics != nil {
			metrics.RecordAPIRequest(r.Context(), r.Method, r.URL.Path, rec.status, elapsed)
		}
		logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

// recoveryMiddleware recovers from panics and returns 500 errors
func recoveryMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
					zap.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"An internal error occurred"}}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates the bearer token and stores the caller's user ID
// in the request context.
func authMiddleware(secret string, logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
				Code:    "UNAUTHORIZED",
				Message: "Missing or malformed authorization header",
			}})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			logger.Debug("token validation failed", zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
				Code:    "UNAUTHORIZED",
				Message: "Invalid or expired token",
			}})
			return
		}

		sub, err := claims.GetSubject()
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
				Code:    "UNAUTHORIZED",
				Message: "Token has no subject",
			}})
			return
		}
		userID, err := uuid.Parse(sub)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{
				Code:    "UNAUTHORIZED",
				Message: "Token subject is not a valid user ID",
			}})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		if role, ok := claims["role"].(string); ok {
			ctx = context.WithValue(ctx, roleKey, role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimitMiddleware throttles requests per caller using the sliding-window
// limiter. Authenticated callers are keyed by user ID, anonymous ones by IP.
// When the shared limiter is unreachable the per-process fallback takes
// over, and with no fallback the request passes: bids must not be blocked
// by Redis downtime.
func rateLimitMiddleware(limiter, fallback cache.RateLimiter, limit int, window time.Duration, logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		allowed, err := limiter.Allow(r.Context(), key, limit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			if fallback == nil {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err = fallback.Allow(r.Context(), key, limit, window)
			if err != nil || allowed {
				next.ServeHTTP(w, r)
				return
			}
		}
		if !allowed {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: ErrorDetail{
				Code:    "RATE_LIMITED",
				Message: "Too many requests",
			}})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if id, ok := UserID(r.Context()); ok {
		return "user:" + id.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
