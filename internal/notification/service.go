package notification

import (
	"context"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

func (s *Service) Notify(ctx context.Context, userID uint, title, message, link string) error {
	n := models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Link:    link,
	}
	return s.DB.WithContext(ctx).Create(&n).Error
}

func (s *Service) ListForUser(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var list []models.Notification
	err := q.Order("created_at DESC, id DESC").Limit(100).Find(&list).Error
	return list, err
}

func (s *Service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkRead: başka kullanıcının bildirimi NotFound döner
func (s *Service) MarkRead(ctx context.Context, id, userID uint) error {
	now := time.Now()
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Bildirim bulunamadı")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	now := time.Now()
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}
