package models

import "time"

type SchemaMigration struct {
	Version   string    `gorm:"primaryKey;size:100"`
	Name      string    `gorm:"size:200;not null"`
	AppliedAt time.Time `gorm:"not null"`
}
