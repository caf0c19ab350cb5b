package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/club-coordinator/models"
	"github.com/Dosada05/club-coordinator/services"
	"github.com/golang-jwt/jwt/v4"
)

// Имена claims, в которых бэкенд кладёт id пользователя и роль.
var (
	userIDClaims = []string{"user_id", "idUsuario", "nameid", "sub"}
	roleClaims   = []string{"role", "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"}
)

// headerUserID - id пользователя из профиля SPA, если его нет в токене.
// Читается только когда подпись токенов не проверяется. Роль берётся только из токена.
const headerUserID = "X-User-ID"

var ErrNoClaims = errors.New("user claims not found in context or invalid type")

func GetTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return 0, ErrNoClaims
	}
	raw, name := firstClaim(claims, userIDClaims)
	if raw == nil {
		return 0, fmt.Errorf("missing user id claim in token")
	}
	return parseUserID(raw, name)
}

func parseUserID(raw interface{}, name string) (int, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid '%s' claim: %q", name, v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: expected number or string, got %T", name, raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 {
		return 0, fmt.Errorf("invalid user ID value in '%s' claim: %v", name, raw)
	}
	return int(f), nil
}

func GetUserRoleFromContext(ctx context.Context) (models.UserRole, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return "", ErrNoClaims
	}
	raw, name := firstClaim(claims, roleClaims)
	if raw == nil {
		return "", fmt.Errorf("missing role claim in token")
	}

	// Роль может прийти массивом, берём первую известную.
	var candidates []string
	switch v := raw.(type) {
	case string:
		candidates = []string{v}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	default:
		return "", fmt.Errorf("invalid type for '%s' claim: got %T", name, raw)
	}
	for _, c := range candidates {
		if role := models.UserRole(strings.ToUpper(strings.TrimSpace(c))); role.Valid() {
			return role, nil
		}
	}
	return "", fmt.Errorf("invalid role value in claim: %v", raw)
}

func firstClaim(claims jwt.MapClaims, names []string) (interface{}, string) {
	for _, name := range names {
		if v, ok := claims[name]; ok && v != nil {
			return v, name
		}
	}
	return nil, ""
}

// SessionFromRequest собирает сессию для сервисов из claims токена.
func SessionFromRequest(r *http.Request) services.Session {
	ctx := r.Context()
	sess := services.Session{Token: GetTokenFromContext(ctx)}

	if id, err := GetUserIDFromContext(ctx); err == nil {
		sess.UserID = strconv.Itoa(id)
	} else if !tokensVerified(ctx) {
		sess.UserID = strings.TrimSpace(r.Header.Get(headerUserID))
	}

	if role, err := GetUserRoleFromContext(ctx); err == nil {
		sess.Role = role
	}
	return sess
}

func tokensVerified(ctx context.Context) bool {
	verified, _ := ctx.Value(verifiedContextKey).(bool)
	return verified
}
