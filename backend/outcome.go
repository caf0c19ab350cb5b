package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeNetwork
	OutcomeUnauthorized
	OutcomeForbidden
	OutcomeNotFound
	OutcomeConflict
	OutcomeServer
	OutcomeClient
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNetwork:
		return "network"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeConflict:
		return "conflict"
	case OutcomeServer:
		return "server"
	default:
		return "client"
	}
}

type Outcome struct {
	Kind    OutcomeKind
	Status  int
	Message string
}

func (o Outcome) Success() bool {
	return o.Kind == OutcomeSuccess
}

// ClassifyHTTPOutcome решает, считать ли ответ успехом.
// Любой 2xx - успех независимо от тела (в том числе 204 и тело, которое не парсится).
// Статус 0 - отсутствие ответа. Всё остальное - ошибка.
func ClassifyHTTPOutcome(status int, body []byte) Outcome {
	out := Outcome{Status: status}
	switch {
	case status >= 200 && status < 300:
		out.Kind = OutcomeSuccess
		return out
	case status <= 0:
		out.Kind = OutcomeNetwork
	case status == http.StatusUnauthorized:
		out.Kind = OutcomeUnauthorized
	case status == http.StatusForbidden:
		out.Kind = OutcomeForbidden
	case status == http.StatusNotFound:
		out.Kind = OutcomeNotFound
	case status == http.StatusConflict:
		out.Kind = OutcomeConflict
	case status >= 500:
		out.Kind = OutcomeServer
	default:
		out.Kind = OutcomeClient
	}
	out.Message = ServerMessage(body)
	return out
}

// Classify применяет ClassifyHTTPOutcome к ошибке транспорта.
func Classify(err error) Outcome {
	if err == nil {
		return Outcome{Kind: OutcomeSuccess, Status: http.StatusOK}
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ClassifyHTTPOutcome(apiErr.Status, apiErr.Body)
	}
	return Outcome{Kind: OutcomeNetwork}
}

// Settle гасит ошибки, за которыми на самом деле стоит 2xx.
func Settle(err error) error {
	if err == nil || Classify(err).Success() {
		return nil
	}
	return err
}

// ServerMessage достаёт текст ошибки, который прислал сервер: message, title или строку.
func ServerMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"message", "title"} {
			if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return strings.TrimSpace(s)
	}

	if body[0] == '<' || body[0] == '{' || body[0] == '[' {
		return ""
	}
	return string(body)
}
