package validation

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	WorkItem string `validate:"required"`
	Email    string `validate:"omitempty,email"`
	Status   string `validate:"omitempty,oneof=pending paid cancelled"`
}

func TestStruct(t *testing.T) {
	require.NoError(t, Struct(sampleRequest{WorkItem: "Kazı"}))

	err := Struct(sampleRequest{Email: "yanlış", Status: "open"})
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
	assert.Contains(t, fe.Message, "work_item zorunlu")
	assert.Contains(t, fe.Message, "email geçerli bir email olmalı")
	assert.Contains(t, fe.Message, "status şunlardan biri olmalı")
}

func TestToSnake(t *testing.T) {
	assert.Equal(t, "stock_id", toSnake("StockID"))
	assert.Equal(t, "payment_date", toSnake("PaymentDate"))
}
