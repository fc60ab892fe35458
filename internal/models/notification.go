package models

import "time"

type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	Title     string     `gorm:"size:150;not null" json:"title"`
	Message   string     `gorm:"size:500" json:"message"`
	Link      string     `gorm:"size:255" json:"link"` // istemci tarafı yönlendirme (ör: /tasks/12)
	IsRead    bool       `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}
