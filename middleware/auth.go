package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ljimmex/NexArenav2-sub001/models"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const userContextKey contextKey = "user"

const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"

	tokenTTL = 24 * time.Hour
)

var (
	ErrMissingToken = errors.New("authorization token is missing")
	ErrInvalidToken = errors.New("authorization token is invalid")
)

// GenerateToken issues a signed HS256 token carrying the user's id and role.
func GenerateToken(secret string, user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		jwtClaimUserID: user.ID,
		jwtClaimRole:   string(user.Role),
		"iat":          now.Unix(),
		"exp":          now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies the bearer token and stores its claims in the request
// context for GetUserIDFromContext / GetUserRoleFromContext.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseToken(secret, r)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize allows the request through only when the authenticated user holds
// one of the given roles. Must be mounted after Authenticate.
func Authorize(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := GetUserRoleFromContext(r.Context())
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

func parseToken(secret string, r *http.Request) (jwt.MapClaims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == header {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return 0, errors.New("user claims not found in context")
	}
	idClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing %q claim in token", jwtClaimUserID)
	}
	// JSON numbers decode as float64.
	idFloat, ok := idClaim.(float64)
	if !ok || idFloat != float64(int(idFloat)) {
		return 0, fmt.Errorf("invalid %q claim: %v", jwtClaimUserID, idClaim)
	}
	id := int(idFloat)
	if id <= 0 {
		return 0, fmt.Errorf("invalid user id in %q claim: %d", jwtClaimUserID, id)
	}
	return id, nil
}

func GetUserRoleFromContext(ctx context.Context) (models.UserRole, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return "", errors.New("user claims not found in context")
	}
	roleStr, ok := claims[jwtClaimRole].(string)
	if !ok {
		return "", fmt.Errorf("missing or invalid %q claim in token", jwtClaimRole)
	}
	role := models.UserRole(roleStr)
	switch role {
	case models.RoleAdmin, models.RoleOrganizer, models.RolePlayer:
		return role, nil
	default:
		return "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
}
