// file: internal/middleware/auth.go
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"badgehub/internal/config"
	"badgehub/internal/contextutils"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Permission names gating the write endpoints. Read endpoints are
// public: hosted verification requires anonymous document fetches.
const (
	PermissionCreateBadge = "createbadge"
	PermissionIssueBadge  = "issuebadge"
)

// badgeClaims are the JWT claims carried by caller tokens.
type badgeClaims struct {
	UserID      int64    `json:"user_id"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// AuthMiddleware authenticates callers from HMAC-signed bearer tokens
// and exposes their permissions on the request context.
type AuthMiddleware struct {
	secret []byte
	logger *zap.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(cfg *config.AuthConfig, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(cfg.JWTSecret),
		logger: logger,
	}
}

// RequirePermission rejects requests whose token lacks the permission.
func (am *AuthMiddleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := am.authenticate(r)
			if err != nil {
				am.logger.Warn("authentication failed",
					zap.String("request_id", contextutils.GetRequestID(r.Context())),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				am.writeAuthError(w, r, "Authentication required", http.StatusUnauthorized)
				return
			}

			if !hasPermission(claims.Permissions, permission) {
				am.logger.Warn("permission denied",
					zap.String("request_id", contextutils.GetRequestID(r.Context())),
					zap.Int64("user_id", claims.UserID),
					zap.String("required_permission", permission),
				)
				am.writeAuthError(w, r, "Insufficient permissions", http.StatusForbidden)
				return
			}

			ctx := contextutils.WithUserID(r.Context(), claims.UserID)
			ctx = contextutils.WithPermissions(ctx, claims.Permissions)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate parses and verifies the bearer token.
func (am *AuthMiddleware) authenticate(r *http.Request) (*badgeClaims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fmt.Errorf("malformed authorization header")
	}

	claims := &badgeClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return am.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	return claims, nil
}

func (am *AuthMiddleware) writeAuthError(w http.ResponseWriter, r *http.Request, message string, status int) {
	errType := "UNAUTHORIZED"
	if status == http.StatusForbidden {
		errType = "FORBIDDEN"
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
		"request_id": contextutils.GetRequestID(r.Context()),
	})
}

func hasPermission(perms []string, want string) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}
