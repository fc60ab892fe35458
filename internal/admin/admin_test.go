package admin_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/FarukBas12/servistakip-sub001/internal/admin"
	"github.com/FarukBas12/servistakip-sub001/internal/auth"
	"github.com/FarukBas12/servistakip-sub001/internal/database/dbtest"
	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const adminID uint = 1

func newApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := dbtest.New(t)
	require.NoError(t, db.Create(&models.User{ID: adminID, Name: "Yönetici", Email: "admin@example.com", PasswordHash: "x", Role: models.RoleAdmin, Active: true}).Error)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, adminID)
		c.Locals(auth.CtxUserRoleKey, models.RoleAdmin)
		c.Locals(auth.CtxUserNameKey, "Yönetici")
		return c.Next()
	})
	app.Post("/users", admin.CreateUserHandler(db))
	app.Get("/users", admin.ListUsersHandler(db))
	app.Put("/users/:id", admin.UpdateUserHandler(db))
	app.Delete("/users/:id", admin.DeleteUserHandler(db))
	app.Post("/regions", admin.CreateRegionHandler(db))
	app.Delete("/regions/:id", admin.DeleteRegionHandler(db))
	app.Post("/suppliers", admin.CreateSupplierHandler(db))
	app.Delete("/suppliers/:id", admin.DeleteSupplierHandler(db))
	app.Post("/price-list", admin.CreatePriceListItemHandler(db))
	app.Get("/price-list", admin.ListPriceListHandler(db))
	app.Put("/price-list/:id", admin.UpdatePriceListItemHandler(db))
	app.Delete("/price-list/:id", admin.DeletePriceListItemHandler(db))
	return app, db
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func path(prefix string, id uint) string { return prefix + "/" + strconv.FormatUint(uint64(id), 10) }

func TestCreateUserHashesPasswordAndRejectsDuplicateEmail(t *testing.T) {
	app, db := newApp(t)

	body := map[string]any{"name": "Ali", "email": "Ali@Example.com", "password": "teknisyen1", "role": "technician"}
	resp, raw := do(t, app, http.MethodPost, "/users", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	assert.NotContains(t, string(raw), "teknisyen1")

	var u models.User
	require.NoError(t, db.Where("email = ?", "ali@example.com").First(&u).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("teknisyen1")))
	assert.Equal(t, models.RoleTechnician, u.Role)

	resp, _ = do(t, app, http.MethodPost, "/users", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	body["email"] = "veli@example.com"
	body["role"] = "patron"
	resp, _ = do(t, app, http.MethodPost, "/users", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var logs int64
	db.Model(&models.AuditLog{}).Where("entity_type = ?", "user").Count(&logs)
	assert.Equal(t, int64(1), logs)
}

func TestUpdateUserCanDeactivate(t *testing.T) {
	app, db := newApp(t)
	u := models.User{Name: "Ali", Email: "ali@example.com", PasswordHash: "x", Role: models.RoleTechnician, Active: true}
	require.NoError(t, db.Create(&u).Error)

	resp, raw := do(t, app, http.MethodPut, path("/users", u.ID), map[string]any{"active": false, "phone": "0555"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var got models.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.False(t, got.Active)
	assert.Equal(t, "0555", got.Phone)

	resp, _ = do(t, app, http.MethodPut, path("/users", u.ID), map[string]any{"password": "kisa"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteUser(t *testing.T) {
	app, db := newApp(t)

	resp, _ := do(t, app, http.MethodDelete, path("/users", adminID), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	u := models.User{Name: "Ali", Email: "ali@example.com", PasswordHash: "x", Role: models.RoleTechnician, Active: true}
	require.NoError(t, db.Create(&u).Error)
	tk := models.Task{Title: "Arıza", Status: models.TaskPending, AssignedTo: &u.ID}
	require.NoError(t, db.Create(&tk).Error)
	require.NoError(t, db.Create(&models.TaskAssignment{TaskID: tk.ID, UserID: u.ID}).Error)

	resp, _ = do(t, app, http.MethodDelete, path("/users", u.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var n int64
	db.Model(&models.TaskAssignment{}).Where("user_id = ?", u.ID).Count(&n)
	assert.Zero(t, n)
	var got models.Task
	require.NoError(t, db.First(&got, tk.ID).Error)
	assert.Nil(t, got.AssignedTo)
}

func TestDeleteRegionDetachesReferences(t *testing.T) {
	app, db := newApp(t)

	resp, raw := do(t, app, http.MethodPost, "/regions", map[string]any{"name": "Anadolu Yakası"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var region admin.RegionResponse
	require.NoError(t, json.Unmarshal(raw, &region))

	resp, _ = do(t, app, http.MethodPost, "/regions", map[string]any{"name": "Anadolu Yakası"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	tk := models.Task{Title: "Bakım", Status: models.TaskPending, RegionID: &region.ID}
	require.NoError(t, db.Create(&tk).Error)

	resp, _ = do(t, app, http.MethodDelete, path("/regions", region.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var got models.Task
	require.NoError(t, db.First(&got, tk.ID).Error)
	assert.Nil(t, got.RegionID)
}

func TestDeleteSupplierDetachesStocks(t *testing.T) {
	app, db := newApp(t)

	resp, raw := do(t, app, http.MethodPost, "/suppliers", map[string]any{"name": "Elektrik Market", "email": "satis@example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var sup models.Supplier
	require.NoError(t, json.Unmarshal(raw, &sup))

	resp, _ = do(t, app, http.MethodPost, "/suppliers", map[string]any{"name": "Eksik", "email": "mail-degil"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	item := models.Stock{Name: "Kablo", Unit: "m", SupplierID: &sup.ID}
	require.NoError(t, db.Create(&item).Error)

	resp, _ = do(t, app, http.MethodDelete, path("/suppliers", sup.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var got models.Stock
	require.NoError(t, db.First(&got, item.ID).Error)
	assert.Nil(t, got.SupplierID)
}

func TestPriceList(t *testing.T) {
	app, db := newApp(t)

	resp, raw := do(t, app, http.MethodPost, "/price-list", map[string]any{"work_item": "Duvar boyası", "unit": "m2", "unit_price": "45.555"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var item models.PriceListItem
	require.NoError(t, json.Unmarshal(raw, &item))
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("45.56")))

	resp, _ = do(t, app, http.MethodPost, "/price-list", map[string]any{"work_item": "Sıva", "unit": "m2", "unit_price": "-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, app, http.MethodPut, path("/price-list", item.ID), map[string]any{"work_item": "Duvar boyası", "unit": "m2", "unit_price": "50", "active": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, raw = do(t, app, http.MethodGet, "/price-list?active=true", nil)
	var active []models.PriceListItem
	require.NoError(t, json.Unmarshal(raw, &active))
	assert.Empty(t, active)

	sub := models.Subcontractor{Name: "Usta"}
	require.NoError(t, db.Create(&sub).Error)
	pay := models.Payment{SubcontractorID: sub.ID, Title: "Hakediş", Status: models.PaymentPending, TotalAmount: decimal.NewFromInt(50)}
	require.NoError(t, db.Create(&pay).Error)
	require.NoError(t, db.Create(&models.PaymentItem{PaymentID: pay.ID, PriceListItemID: &item.ID, WorkItem: "Duvar boyası", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50), TotalPrice: decimal.NewFromInt(50)}).Error)

	resp, _ = do(t, app, http.MethodDelete, path("/price-list", item.ID), nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
