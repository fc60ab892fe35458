package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FarukBas12/servistakip-sub001/internal/config"
	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer   abc", "abc", true},
		{"", "", false},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
	}
	for _, tc := range cases {
		got, err := bearerToken(tc.header)
		if !tc.ok {
			assert.Error(t, err, tc.header)
			continue
		}
		require.NoError(t, err, tc.header)
		assert.Equal(t, tc.want, got)
	}
}

func TestMiddlewareChain(t *testing.T) {
	cfg := &config.Config{JWTSecret: testSecret}
	app := fiber.New()
	app.Get("/admin", JWTMiddleware(cfg), RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		actor, err := CurrentUser(c)
		if err != nil {
			return err
		}
		return c.SendString(actor.Name)
	})

	send := func(user *models.User) *http.Response {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if user != nil {
			tok, err := GenerateToken(cfg.JWTSecret, user)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusUnauthorized, send(nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, send(&models.User{ID: 2, Name: "Ali", Role: models.RoleTechnician}).StatusCode)
	assert.Equal(t, http.StatusOK, send(&models.User{ID: 1, Name: "Yönetici", Role: models.RoleAdmin}).StatusCode)
}
