package admin

import (
	"strings"

	"github.com/FarukBas12/servistakip-sub001/internal/auth"
	"github.com/FarukBas12/servistakip-sub001/internal/models"
	"github.com/FarukBas12/servistakip-sub001/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Role      models.UserRole `json:"role"`
	RegionID  *uint           `json:"region_id"`
	Active    bool            `json:"active"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type CreateUserRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Phone    string          `json:"phone" validate:"max=30"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"required,oneof=admin technician"`
	RegionID *uint           `json:"region_id"`
}

type UpdateUserRequest struct {
	Name     *string          `json:"name"`
	Phone    *string          `json:"phone"`
	Password *string          `json:"password"`
	Role     *models.UserRole `json:"role"`
	RegionID *uint            `json:"region_id"`
	Active   *bool            `json:"active"`
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		RegionID:  u.RegionID,
		Active:    u.Active,
		CreatedAt: u.CreatedAt.Format(timeLayout),
		UpdatedAt: u.UpdatedAt.Format(timeLayout),
	}
}

func regionExists(db *gorm.DB, id *uint) bool {
	if id == nil {
		return true
	}
	var count int64
	db.Model(&models.Region{}).Where("id = ?", *id).Count(&count)
	return count > 0
}

// ----------------------------------------
// KULLANICI (yönetici / teknisyen) CRUD
// ----------------------------------------

func CreateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := validation.ParseBody(c, &body); err != nil {
			return err
		}
		body.Email = strings.ToLower(strings.TrimSpace(body.Email))

		var exist int64
		db.Model(&models.User{}).Where("email = ?", body.Email).Count(&exist)
		if exist > 0 {
			return fiber.NewError(fiber.StatusConflict, "Bu email zaten kayıtlı")
		}
		if !regionExists(db, body.RegionID) {
			return fiber.NewError(fiber.StatusBadRequest, "Bölge bulunamadı")
		}

		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        body.Email,
			Phone:        strings.TrimSpace(body.Phone),
			PasswordHash: hash,
			Role:         body.Role,
			RegionID:     body.RegionID,
			Active:       true,
		}
		if err := db.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı oluşturulamadı")
		}

		record(db, c, "user", user.ID, models.AuditActionCreate, "Kullanıcı oluşturuldu: "+user.Email, nil, toUserResponse(user))
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// GET /api/admin/users?role=technician
func ListUsersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.User{})
		if role := c.Query("role"); role != "" {
			q = q.Where("role = ?", role)
		}
		if rid := c.QueryInt("region_id", 0); rid > 0 {
			q = q.Where("region_id = ?", rid)
		}

		var users []models.User
		if err := q.Order("name ASC").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar listelenemedi")
		}

		res := make([]UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, toUserResponse(u))
		}
		return c.JSON(res)
	}
}

func UpdateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kullanıcı bulunamadı")
		}
		before := toUserResponse(user)

		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "İsim boş olamaz")
			}
			user.Name = name
		}
		if body.Phone != nil {
			user.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Role != nil {
			if !body.Role.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz rol")
			}
			user.Role = *body.Role
		}
		if body.RegionID != nil {
			if !regionExists(db, body.RegionID) {
				return fiber.NewError(fiber.StatusBadRequest, "Bölge bulunamadı")
			}
			user.RegionID = body.RegionID
		}
		if body.Password != nil {
			if len(*body.Password) < 8 {
				return fiber.NewError(fiber.StatusBadRequest, "Şifre en az 8 karakter olmalı")
			}
			hash, err := auth.HashPassword(*body.Password)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
			}
			user.PasswordHash = hash
		}
		if body.Active != nil {
			user.Active = *body.Active
		}

		// Save, Active=false değerini de yazar (default:true kolonunda Create'ten farklı)
		if err := db.Save(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı güncellenemedi")
		}

		record(db, c, "user", user.ID, models.AuditActionUpdate, "Kullanıcı güncellendi: "+user.Email, before, toUserResponse(user))
		return c.JSON(toUserResponse(user))
	}
}

// Kullanıcı ve görev atamaları birlikte silinir
func DeleteUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		actor, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		if actor.ID == id {
			return fiber.NewError(fiber.StatusBadRequest, "Kendi hesabınızı silemezsiniz")
		}

		var user models.User
		if err := db.First(&user, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kullanıcı bulunamadı")
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Task{}).Where("assigned_to = ?", id).Update("assigned_to", nil).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
				return err
			}
			return tx.Delete(&user).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı silinemedi")
		}

		record(db, c, "user", id, models.AuditActionDelete, "Kullanıcı silindi: "+user.Email, toUserResponse(user), nil)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
