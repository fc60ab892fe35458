package models

import "time"

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleTechnician UserRole = "technician"
)

func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleTechnician
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RegionID     *uint     `gorm:"index" json:"region_id"`
	Region       *Region   `json:"region,omitempty"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Phone        string    `gorm:"size:30" json:"phone"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         UserRole  `gorm:"size:20;not null;index" json:"role"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
