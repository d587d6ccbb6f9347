package models

import "time"

// Plan content types.
const (
	PlanDocument = "document"
	PlanPhoto    = "photo"
)

// Plan maps to the `plans` table. A training plan file uploaded by an admin
// for one user and course. At most one plan per user and course is Main;
// that is the one the user receives from "view program".
type Plan struct {
	ID          string     `gorm:"column:id;primaryKey;size:64" json:"plan_id"`
	UserID      string     `gorm:"column:user_id;size:64;index" json:"user_id"`
	Course      string     `gorm:"column:course_type;size:64" json:"course_type"`
	Title       string     `gorm:"column:title;size:255" json:"title"`
	FileID      string     `gorm:"column:file_id;size:255" json:"content"`
	ContentType string     `gorm:"column:content_type;size:32" json:"content_type"`
	FileName    string     `gorm:"column:file_name;size:255" json:"filename,omitempty"`
	Main        bool       `gorm:"column:main;default:false" json:"main"`
	UploadedBy  string     `gorm:"column:uploaded_by;size:64" json:"uploaded_by"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	SentAt      *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
}

func (Plan) TableName() string {
	return "plans"
}
