package backend

import "context"

type tokenKey struct{}

// WithToken кладёт bearer-токен пользователя в контекст запроса к бэкенду.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
