package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/FarukBas12/servistakip-sub001/internal/config"
	"github.com/FarukBas12/servistakip-sub001/internal/database/dbtest"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		DatabaseDriver: "sqlite",
		JWTSecret:      strings.Repeat("k", 32),
		CORSOrigins:    "http://localhost:5173",
		UploadDir:      t.TempDir(),
	}
	return server.New(cfg, dbtest.New(t))
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	code, body := call(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, code, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func bootstrap(t *testing.T, app *fiber.App) (adminToken, techToken string) {
	t.Helper()
	code, _ := call(t, app, http.MethodPost, "/api/auth/register-admin", "", map[string]string{
		"name": "Yönetici", "email": "admin@example.com", "password": "gizli-sifre",
	})
	require.Equal(t, http.StatusCreated, code)
	adminToken = login(t, app, "admin@example.com", "gizli-sifre")

	code, body := call(t, app, http.MethodPost, "/api/admin/users", adminToken, map[string]any{
		"name": "Teknisyen Ali", "email": "ali@example.com", "password": "teknisyen1", "role": "technician",
	})
	require.Equal(t, http.StatusCreated, code, body)
	techToken = login(t, app, "ali@example.com", "teknisyen1")
	return adminToken, techToken
}

func TestRegisterAdminOnlyOnce(t *testing.T) {
	app := newApp(t)
	bootstrap(t, app)

	code, body := call(t, app, http.MethodPost, "/api/auth/register-admin", "", map[string]string{
		"name": "İkinci", "email": "iki@example.com", "password": "gizli-sifre",
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.NotEmpty(t, body["error"])
}

func TestRegisterAdminConcurrentRequestsCreateOne(t *testing.T) {
	db := dbtest.New(t)
	app := server.New(&config.Config{
		DatabaseDriver: "sqlite",
		JWTSecret:      strings.Repeat("k", 32),
		CORSOrigins:    "http://localhost:5173",
		UploadDir:      t.TempDir(),
	}, db)

	const n = 4
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, _ := json.Marshal(map[string]string{
				"name": "Yönetici", "email": "admin" + strconv.Itoa(i) + "@example.com", "password": "gizli-sifre",
			})
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register-admin", bytes.NewReader(b))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				return
			}
			resp.Body.Close()
			codes[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusForbidden, code)
		}
	}
	assert.Equal(t, 1, created)

	var admins int64
	require.NoError(t, db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error)
	assert.Equal(t, int64(1), admins)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	app := newApp(t)
	bootstrap(t, app)

	code, body := call(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@example.com", "password": "yanlis-sifre"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Email veya şifre hatalı", body["error"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newApp(t)

	code, body := call(t, app, http.MethodGet, "/api/stocks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.NotEmpty(t, body["error"])

	code, _ = call(t, app, http.MethodGet, "/api/stocks", "bozuk-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestTechnicianCannotReachAdminRoutes(t *testing.T) {
	app := newApp(t)
	_, tech := bootstrap(t, app)

	for _, path := range []string{"/api/subcontractors", "/api/projects", "/api/admin/users", "/api/audit-logs"} {
		code, _ := call(t, app, http.MethodGet, path, tech, nil)
		assert.Equal(t, http.StatusForbidden, code, path)
	}

	code, _ := call(t, app, http.MethodGet, "/api/tasks/pool", tech, nil)
	assert.Equal(t, http.StatusOK, code)
	code, body := call(t, app, http.MethodGet, "/api/auth/me", tech, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "technician", body["role"])
}

func TestStockOverdrawReturnsConflict(t *testing.T) {
	app := newApp(t)
	admin, tech := bootstrap(t, app)

	code, item := call(t, app, http.MethodPost, "/api/stocks", admin, map[string]any{
		"name": "Sigorta 16A", "unit": "adet", "quantity": "3", "critical_level": "5",
	})
	require.Equal(t, http.StatusCreated, code, item)
	id := int(item["id"].(float64))
	path := "/api/stocks/" + strconv.Itoa(id) + "/transactions"

	code, _ = call(t, app, http.MethodPost, path, tech, map[string]any{"type": "out", "quantity": "2"})
	assert.Equal(t, http.StatusCreated, code)

	code, body := call(t, app, http.MethodPost, path, tech, map[string]any{"type": "out", "quantity": "2"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Yetersiz stok", body["error"])

	// sabit path /:id ile çakışmamalı
	code, _ = call(t, app, http.MethodGet, "/api/stocks/low", tech, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestDashboardSummary(t *testing.T) {
	app := newApp(t)
	admin, _ := bootstrap(t, app)

	code, body := call(t, app, http.MethodPost, "/api/tasks", admin, map[string]any{"title": "Kombi arızası", "address": "Kadıköy"})
	require.Equal(t, http.StatusCreated, code, body)

	code, body = call(t, app, http.MethodGet, "/api/dashboard/summary", admin, nil)
	require.Equal(t, http.StatusOK, code)
	tasks := body["tasks"].(map[string]any)
	assert.Equal(t, float64(1), tasks["pending"])
	assert.Equal(t, float64(1), tasks["unassigned"])
}

func TestChangePassword(t *testing.T) {
	app := newApp(t)
	_, tech := bootstrap(t, app)

	code, _ := call(t, app, http.MethodPut, "/api/auth/password", tech, map[string]string{"current_password": "yanlis", "new_password": "yeni-sifre-1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, app, http.MethodPut, "/api/auth/password", tech, map[string]string{"current_password": "teknisyen1", "new_password": "yeni-sifre-1"})
	require.Equal(t, http.StatusNoContent, code)

	login(t, app, "ali@example.com", "yeni-sifre-1")
	code, _ = call(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ali@example.com", "password": "teknisyen1"})
	assert.Equal(t, http.StatusUnauthorized, code)
}
