package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/FarukBas12/servistakip-sub001/internal/apperr"
	"github.com/FarukBas12/servistakip-sub001/internal/auth"
	"github.com/FarukBas12/servistakip-sub001/internal/models"

	"gorm.io/gorm"
)

// Notifier: atama bildirimi gönderici. Hataları atamayı bozmaz.
type Notifier interface {
	Notify(ctx context.Context, userID uint, title, message, link string) error
}

type Service struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewService(db *gorm.DB, n Notifier) *Service {
	return &Service{DB: db, Notifier: n}
}

type CreateInput struct {
	Title       string
	Description string
	Address     string
	DueDate     *time.Time
	RegionID    *uint
	AssigneeIDs []uint
	CreatedBy   uint
}

type UpdateInput struct {
	Title       string
	Description string
	Address     string
	DueDate     *time.Time
	RegionID    *uint
}

type Filter struct {
	Status     models.TaskStatus
	RegionID   *uint
	AssigneeID *uint
}

// izin verilen ileri geçişler; geri dönüş yalnızca Cancel ile
var nextStatus = map[models.TaskStatus]models.TaskStatus{
	models.TaskPending:    models.TaskInProgress,
	models.TaskInProgress: models.TaskCompleted,
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.InvalidInput("Görev başlığı zorunlu")
	}
	t := models.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Address:     strings.TrimSpace(in.Address),
		Status:      models.TaskPending,
		DueDate:     in.DueDate,
		RegionID:    in.RegionID,
		CreatedBy:   in.CreatedBy,
	}
	if err := s.DB.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, fmt.Errorf("görev oluşturulamadı: %w", err)
	}
	if len(in.AssigneeIDs) > 0 {
		return s.Assign(ctx, t.ID, in.AssigneeIDs, in.CreatedBy)
	}
	return s.Get(ctx, t.ID)
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.InvalidInput("Görev başlığı zorunlu")
	}
	res := s.DB.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id).Updates(map[string]any{
		"title":       strings.TrimSpace(in.Title),
		"description": strings.TrimSpace(in.Description),
		"address":     strings.TrimSpace(in.Address),
		"due_date":    in.DueDate,
		"region_id":   in.RegionID,
	})
	if res.Error != nil {
		return nil, fmt.Errorf("görev güncellenemedi: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Görev bulunamadı")
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
			return fmt.Errorf("atamalar silinemedi: %w", err)
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskLog{}).Error; err != nil {
			return fmt.Errorf("görev geçmişi silinemedi: %w", err)
		}
		res := tx.Delete(&models.Task{}, id)
		if res.Error != nil {
			return fmt.Errorf("görev silinemedi: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Görev bulunamadı")
		}
		return nil
	})
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	err := s.DB.WithContext(ctx).
		Preload("Region").
		Preload("Assignments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Assignments.User").
		First(&t, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Görev bulunamadı")
		}
		return nil, err
	}
	return &t, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]models.Task, error) {
	q := s.DB.WithContext(ctx).Model(&models.Task{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.RegionID != nil {
		q = q.Where("region_id = ?", *f.RegionID)
	}
	if f.AssigneeID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM task_assignments a WHERE a.task_id = tasks.id AND a.user_id = ?)", *f.AssigneeID)
	}
	return s.find(q)
}

// Pool: atanmamış bekleyen görevler
func (s *Service) Pool(ctx context.Context) ([]models.Task, error) {
	q := s.DB.WithContext(ctx).Model(&models.Task{}).
		Where("status = ?", models.TaskPending).
		Where("NOT EXISTS (SELECT 1 FROM task_assignments a WHERE a.task_id = tasks.id)")
	return s.find(q)
}

func (s *Service) ForUser(ctx context.Context, userID uint) ([]models.Task, error) {
	return s.List(ctx, Filter{AssigneeID: &userID})
}

func (s *Service) find(q *gorm.DB) ([]models.Task, error) {
	var list []models.Task
	err := q.Preload("Region").
		Preload("Assignments").
		Preload("Assignments.User").
		Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, id DESC").
		Find(&list).Error
	return list, err
}

// Assign: atama kümesini tamamen değiştirir (hepsini sil, hepsini ekle).
// Commit sonrası yalnızca yeni eklenen kullanıcılara bildirim gider.
func (s *Service) Assign(ctx context.Context, taskID uint, userIDs []uint, actorID uint) (*models.Task, error) {
	ids := dedupe(userIDs)

	var t models.Task
	var added []uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&t, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Görev bulunamadı")
			}
			return err
		}

		if len(ids) > 0 {
			var count int64
			if err := tx.Model(&models.User{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
				return err
			}
			if int(count) != len(ids) {
				return apperr.InvalidInput("Atanan kullanıcılardan bazıları bulunamadı")
			}
		}

		var current []uint
		if err := tx.Model(&models.TaskAssignment{}).Where("task_id = ?", taskID).Pluck("user_id", &current).Error; err != nil {
			return err
		}
		had := make(map[uint]bool, len(current))
		for _, id := range current {
			had[id] = true
		}

		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskAssignment{}).Error; err != nil {
			return fmt.Errorf("atamalar silinemedi: %w", err)
		}

		rows := make([]models.TaskAssignment, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, models.TaskAssignment{TaskID: taskID, UserID: id})
			if !had[id] {
				added = append(added, id)
			}
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("atamalar kaydedilemedi: %w", err)
			}
		}

		var first *uint
		if len(ids) > 0 {
			first = &ids[0]
		}
		return tx.Model(&models.Task{}).Where("id = ?", taskID).Update("assigned_to", first).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyAssigned(ctx, &t, added)
	log.Printf("Görev #%d atandı: %v (işlemi yapan #%d)", taskID, ids, actorID)
	return s.Get(ctx, taskID)
}

func (s *Service) notifyAssigned(ctx context.Context, t *models.Task, userIDs []uint) {
	if s.Notifier == nil {
		return
	}
	link := fmt.Sprintf("/tasks/%d", t.ID)
	for _, uid := range userIDs {
		if err := s.Notifier.Notify(ctx, uid, "Yeni görev atandı", t.Title, link); err != nil {
			log.Printf("[WARN] Görev bildirimi gönderilemedi (görev #%d, kullanıcı #%d): %v", t.ID, uid, err)
		}
	}
}

// Claim: teknisyen havuzdaki görevi üzerine alır
func (s *Service) Claim(ctx context.Context, taskID, userID uint) (*models.Task, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ? AND assigned_to IS NULL", taskID, models.TaskPending).
			Where("NOT EXISTS (SELECT 1 FROM task_assignments a WHERE a.task_id = tasks.id)").
			Update("assigned_to", userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperr.NotFound("Görev bulunamadı")
			}
			return apperr.Conflict("Görev havuzda değil")
		}
		return tx.Create(&models.TaskAssignment{TaskID: taskID, UserID: userID}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, taskID)
}

// UpdateStatus: pending → in_progress → completed. Aynı durum no-op.
func (s *Service) UpdateStatus(ctx context.Context, taskID uint, actor auth.Actor, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, apperr.InvalidInput("Geçersiz görev durumu: %s", status)
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Task
		if err := tx.First(&t, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Görev bulunamadı")
			}
			return err
		}
		if err := checkAssigned(tx, taskID, actor); err != nil {
			return err
		}
		if t.Status == status {
			return nil
		}
		if nextStatus[t.Status] != status {
			return apperr.InvalidInput("%s durumundan %s durumuna geçilemez", t.Status, status)
		}
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", taskID, t.Status).
			Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("Görev durumu başka bir işlemle değişti")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, taskID)
}

// Cancel: görevi havuza iade eder. Atamaların silinmesi, durumun pending'e
// dönmesi ve TaskLog kaydı tek transaction'dadır.
func (s *Service) Cancel(ctx context.Context, taskID uint, actor auth.Actor, reason string) (*models.Task, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.InvalidInput("İptal nedeni zorunlu")
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Task{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("Görev bulunamadı")
		}
		if err := checkAssigned(tx, taskID, actor); err != nil {
			return err
		}

		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskAssignment{}).Error; err != nil {
			return fmt.Errorf("atamalar silinemedi: %w", err)
		}
		if err := tx.Model(&models.Task{}).Where("id = ?", taskID).Updates(map[string]any{
			"status":      models.TaskPending,
			"assigned_to": nil,
		}).Error; err != nil {
			return fmt.Errorf("görev durumu güncellenemedi: %w", err)
		}
		entry := models.TaskLog{
			TaskID:      taskID,
			UserID:      actor.ID,
			Action:      models.TaskLogCancelled,
			Description: reason,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("görev geçmişi yazılamadı: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Görev #%d havuza iade edildi (kullanıcı #%d)", taskID, actor.ID)
	return s.Get(ctx, taskID)
}

func (s *Service) Logs(ctx context.Context, taskID uint) ([]models.TaskLog, error) {
	if _, err := s.Get(ctx, taskID); err != nil {
		return nil, err
	}
	var logs []models.TaskLog
	err := s.DB.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at DESC, id DESC").Find(&logs).Error
	return logs, err
}

// teknisyen yalnızca kendisine atanmış görevde işlem yapabilir
func checkAssigned(tx *gorm.DB, taskID uint, actor auth.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	var count int64
	if err := tx.Model(&models.TaskAssignment{}).Where("task_id = ? AND user_id = ?", taskID, actor.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.Forbidden("Bu görev size atanmamış")
	}
	return nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
