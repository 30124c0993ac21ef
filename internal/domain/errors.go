package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind классифицирует ошибку для маппинга в HTTP-статус.
type ErrorKind string

const (
	KindUnauthorized       ErrorKind = "unauthorized"        // нет/невалидная сессия
	KindNotFound           ErrorKind = "not_found"           // отсутствует или чужой ресурс (не различаем)
	KindBadRequest         ErrorKind = "bad_request"         // невалидные поля запроса
	KindPreconditionFailed ErrorKind = "precondition_failed" // профиль пользователя не настроен
	KindInternal           ErrorKind = "internal"            // всё остальное
)

// Error — типизированная ошибка доменного слоя.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func BadRequest(msg string) *Error   { return &Error{Kind: KindBadRequest, Message: msg} }

func PreconditionFailed(msg string) *Error {
	return &Error{Kind: KindPreconditionFailed, Message: msg}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// UpstreamError — ошибка сервиса ингестии/запросов.
// Статус и сообщение апстрима пробрасываются клиенту как есть.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream: %s (HTTP %d)", e.Message, e.Status)
}

// HTTPStatus переводит ошибку в HTTP-код согласно таксономии.
// Forbidden намеренно сложен в NotFound, чтобы не раскрывать существование
// чужих ресурсов.
func HTTPStatus(err error) int {
	var uerr *UpstreamError
	if errors.As(err, &uerr) {
		return uerr.Status
	}

	var derr *Error
	if errors.As(err, &derr) {
		switch derr.Kind {
		case KindUnauthorized:
			return http.StatusUnauthorized
		case KindNotFound:
			return http.StatusNotFound
		case KindBadRequest, KindPreconditionFailed:
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// UserMessage — текст, который можно показать клиенту.
// Внутренние детали (обёрнутые причины) наружу не уходят.
func UserMessage(err error) string {
	var uerr *UpstreamError
	if errors.As(err, &uerr) {
		return uerr.Message
	}
	var derr *Error
	if errors.As(err, &derr) && derr.Kind != KindInternal {
		return derr.Message
	}
	return "Internal server error"
}
