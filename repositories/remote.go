package repositories

import (
	"context"
	"net/http"

	"github.com/Dosada05/club-coordinator/backend"
)

// Backend - транспорт к удалённому REST API. Реализуется *backend.Client.
type Backend interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Put(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string) error
}

// isAbsent сообщает, что бэкенд ответил "ничего нет": 204, 404 или 2xx без читаемого тела.
func isAbsent(err error) bool {
	status := backend.StatusOf(err)
	if status == http.StatusNotFound {
		return true
	}
	return status >= 200 && status < 300
}
