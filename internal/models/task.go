package models

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskInProgress || s == TaskCompleted
}

type TaskLogAction string

const (
	TaskLogCancelled TaskLogAction = "cancelled"
)

type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Address     string     `gorm:"size:500" json:"address"`
	Status      TaskStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	DueDate     *time.Time `gorm:"index" json:"due_date"`
	RegionID    *uint      `gorm:"index" json:"region_id"`
	Region      *Region    `json:"region,omitempty"`

	// Eski tek-atama kolonu; yalnızca geriye dönük okuma için tutulur.
	// Yetkili kaynak task_assignments tablosudur.
	AssignedTo *uint `gorm:"index" json:"assigned_to"`

	CreatedBy   uint             `json:"created_by"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"assignments,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// AssigneeIDs: atanmış kullanıcı ID'leri
func (t Task) AssigneeIDs() []uint {
	ids := make([]uint, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.UserID)
	}
	return ids
}

type TaskAssignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;uniqueIndex:idx_task_assignment_pair" json:"task_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_task_assignment_pair" json:"user_id"`
	User      *User     `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskLog: iptal / havuza iade geçmişi (append-only)
type TaskLog struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	TaskID      uint          `gorm:"index;not null" json:"task_id"`
	UserID      uint          `gorm:"index" json:"user_id"`
	Action      TaskLogAction `gorm:"size:30;not null" json:"action"`
	Description string        `gorm:"size:500" json:"description"`
	CreatedAt   time.Time     `json:"created_at"`
}
