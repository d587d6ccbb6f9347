package models

import "time"

// Admin maps to the `admins` table. Admins listed in configuration are
// super admins and are never stored here.
type Admin struct {
	UserID  string    `gorm:"column:user_id;primaryKey;size:64" json:"user_id"`
	AddedBy string    `gorm:"column:added_by;size:64" json:"added_by"`
	AddedAt time.Time `gorm:"column:added_at" json:"added_at"`
}

func (Admin) TableName() string {
	return "admins"
}
