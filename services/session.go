package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Dosada05/club-coordinator/backend"
	"github.com/Dosada05/club-coordinator/models"
)

// SessionContext - данные текущего пользователя, передаются в сервисы явно.
type SessionContext interface {
	CurrentUserID() string
	CurrentRole() models.UserRole
	AuthToken() string
}

// Session - простая реализация SessionContext.
type Session struct {
	UserID string
	Role   models.UserRole
	Token  string
}

func (s Session) CurrentUserID() string        { return s.UserID }
func (s Session) CurrentRole() models.UserRole { return s.Role }
func (s Session) AuthToken() string            { return s.Token }

// sessionUserID требует, чтобы id пользователя был задан и был конечным положительным числом.
func sessionUserID(sess SessionContext) (int, error) {
	if sess == nil {
		return 0, ErrAuthenticationFailed
	}
	raw := strings.TrimSpace(sess.CurrentUserID())
	if raw == "" {
		return 0, fmt.Errorf("%w: user id is missing", ErrAuthenticationFailed)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: user id %q is not a number", ErrAuthenticationFailed, raw)
	}
	id := int(f)
	if float64(id) != f || id <= 0 {
		return 0, fmt.Errorf("%w: invalid user id %q", ErrAuthenticationFailed, raw)
	}
	return id, nil
}

// withSession прокидывает токен пользователя в запросы к бэкенду.
func withSession(ctx context.Context, sess SessionContext) context.Context {
	if sess == nil {
		return ctx
	}
	return backend.WithToken(ctx, sess.AuthToken())
}
