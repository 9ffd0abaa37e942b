// Package connectorerr - таксономия ошибок обмена с биржей. Все ошибки
// торгового и публичного API оборачиваются в *Error, чтобы Коннектор
// мог единообразно решать, стоит ли повторять запрос (см. pkg/retry).
package connectorerr

import (
	"fmt"
	"strings"
)

// Kind классифицирует причину ошибки запроса к бирже.
type Kind int

const (
	// KindTransport - сетевая ошибка, таймаут, недоступность биржи.
	KindTransport Kind = iota
	// KindExchange - биржа ответила success=false с описанием ошибки.
	KindExchange
	// KindDecode - тело ответа не удалось разобрать (неожиданный формат).
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindExchange:
		return "exchange"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error - ошибка одного запроса к бирже (публичный или торговый API).
type Error struct {
	Kind     Kind
	Method   string // имя метода API: "ticker", "Trade", "CancelOrder", ...
	Message  string
	Original error
}

func (e *Error) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Method, e.Kind, e.Message, e.Original)
	}
	return fmt.Sprintf("%s (%s): %s", e.Method, e.Kind, e.Message)
}

// Unwrap поддерживает errors.Is/errors.As относительно исходной ошибки.
func (e *Error) Unwrap() error {
	return e.Original
}

// Retryable сообщает pkg/retry, стоит ли повторять запрос. Ошибки
// декодирования не повторяются - сломанный контракт API не исправится
// сам по себе при повторной попытке. Биржевые ответы "no orders"/"no
// trades" - не ошибка, а семантически пустой результат: повтор не
// изменит его, поэтому тоже не retryable.
func (e *Error) Retryable() bool {
	if e.Kind == KindDecode {
		return false
	}
	if e.Kind == KindExchange && isEmptyResultMessage(e.Message) {
		return false
	}
	return true
}

// IsEmptyResult сообщает, является ли err семантически пустым
// результатом биржи ("no orders"/"no trades"), а не настоящей ошибкой.
func IsEmptyResult(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindExchange && isEmptyResultMessage(e.Message)
}

func isEmptyResultMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "no orders") || strings.Contains(msg, "no trades")
}

// Transport оборачивает сетевую/транспортную ошибку.
func Transport(method string, err error) *Error {
	return &Error{Kind: KindTransport, Method: method, Message: "request failed", Original: err}
}

// Exchange оборачивает ошибку, вернувшуюся от самой биржи (success=false).
func Exchange(method, message string) *Error {
	return &Error{Kind: KindExchange, Method: method, Message: message}
}

// Decode оборачивает ошибку разбора тела ответа.
func Decode(method string, err error) *Error {
	return &Error{Kind: KindDecode, Method: method, Message: "cannot decode response", Original: err}
}
