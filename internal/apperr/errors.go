// Package apperr holds the typed errors services return to the HTTP layer.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindConflict
	KindConsistency
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindConsistency:
		return "consistency"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
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

// Is: aynı Kind ve mesaja sahip sentinel hatalarla eşleşir
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// Retryable: tam geri alınmış tutarlılık/eşzamanlılık hataları tekrar denenebilir
func (e *Error) Retryable() bool {
	return e.Kind == KindConsistency
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Consistency: yazma zincirindeki bir adım başarısız oldu ve tüm işlem geri alındı
func Consistency(msg string, err error) error {
	return &Error{Kind: KindConsistency, Message: msg, Err: err}
}

// KindOf: zincirdeki ilk *Error'un türü, yoksa KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ToFiber: servis hatasını HTTP durum koduna çevirir
func ToFiber(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	switch e.Kind {
	case KindNotFound:
		return fiber.NewError(fiber.StatusNotFound, e.Message)
	case KindInvalidInput:
		return fiber.NewError(fiber.StatusBadRequest, e.Message)
	case KindConflict:
		return fiber.NewError(fiber.StatusConflict, e.Message)
	case KindConsistency:
		return fiber.NewError(fiber.StatusServiceUnavailable, e.Message+", lütfen tekrar deneyin")
	case KindForbidden:
		return fiber.NewError(fiber.StatusForbidden, e.Message)
	default:
		return err
	}
}
