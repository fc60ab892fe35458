package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = &Error{Kind: KindConflict, Message: "Yetersiz stok"}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("stok çıkışı: %w", NotFound("Stok bulunamadı"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("düz hata")))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestSentinelMatch(t *testing.T) {
	err := fmt.Errorf("out: %w", Conflict("Yetersiz stok"))
	assert.ErrorIs(t, err, errSentinel)
	assert.NotErrorIs(t, Conflict("başka"), errSentinel)
}

func TestToFiberStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{NotFound("x"), fiber.StatusNotFound},
		{InvalidInput("x"), fiber.StatusBadRequest},
		{Conflict("x"), fiber.StatusConflict},
		{Consistency("x", errors.New("db")), fiber.StatusServiceUnavailable},
		{Forbidden("x"), fiber.StatusForbidden},
	}
	for _, tc := range cases {
		var fe *fiber.Error
		require.ErrorAs(t, ToFiber(tc.err), &fe)
		assert.Equal(t, tc.code, fe.Code)
	}

	plain := errors.New("plain")
	assert.Equal(t, plain, ToFiber(plain))
	assert.Nil(t, ToFiber(nil))
}

func TestConsistencyRetryable(t *testing.T) {
	var e *Error
	require.ErrorAs(t, Consistency("kayıt yazılamadı", errors.New("disk")), &e)
	assert.True(t, e.Retryable())
	assert.Contains(t, e.Error(), "disk")
}
