package backend

import (
	"errors"
	"fmt"
)

// APIError описывает любой неуспешный ответ бэкенда.
// Status == 0 означает, что ответа не было (сеть, CORS, отмена).
type APIError struct {
	Status  int
	Body    []byte
	Message string
	Err     error
}

func (e *APIError) Error() string {
	switch {
	case e.Status == 0:
		return fmt.Sprintf("backend unreachable: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("backend responded %d: %v", e.Status, e.Err)
	case e.Message != "":
		return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("backend responded %d", e.Status)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{
		Status:  status,
		Body:    body,
		Message: ServerMessage(body),
	}
}

// StatusOf возвращает HTTP-статус из ошибки бэкенда, либо 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
