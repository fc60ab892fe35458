package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct: istek gövdesini doğrular, hatayı 400 fiber.Error olarak döner
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fiber.NewError(fiber.StatusBadRequest, strings.Join(msgs, "; "))
}

// ParseBody: BodyParser + Struct
func ParseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
	}
	return Struct(out)
}

func fieldMessage(fe validator.FieldError) string {
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s zorunlu", field)
	case "email":
		return fmt.Sprintf("%s geçerli bir email olmalı", field)
	case "min":
		return fmt.Sprintf("%s en az %s olmalı", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s en fazla %s olmalı", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s şunlardan biri olmalı: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s %s'dan büyük olmalı", field, fe.Param())
	default:
		return fmt.Sprintf("%s geçersiz", field)
	}
}

func toSnake(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && prev >= 'a' && prev <= 'z' {
				b.WriteByte('_')
			}
			prev = r
			r += 'a' - 'A'
		} else {
			prev = r
		}
		b.WriteRune(r)
	}
	return b.String()
}
