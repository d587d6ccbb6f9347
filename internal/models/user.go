package models

import "time"

// User maps to the `users` table and to the "users" map of the JSON store.
// Primary key is the Telegram chat ID stored as string.
type User struct {
	ID                     string            `gorm:"column:id;primaryKey;size:64" json:"user_id"`
	Name                   string            `gorm:"column:name;size:255" json:"name"`
	Username               string            `gorm:"column:username;size:255" json:"username"`
	Step                   string            `gorm:"column:step;size:64;default:'none'" json:"step"`
	CourseSelected         string            `gorm:"column:course_selected;size:64;default:'none'" json:"course_selected"`
	PendingCourse          string            `gorm:"column:pending_course;size:64" json:"pending_course,omitempty"`
	PendingCoupon          string            `gorm:"column:pending_coupon;size:64" json:"pending_coupon,omitempty"`
	CourseEverSelected     bool              `gorm:"column:course_ever_selected;default:false" json:"course_ever_selected"`
	PaymentStatus          string            `gorm:"column:payment_status;size:32;default:'none'" json:"payment_status"`
	PaymentAttempts        int               `gorm:"column:payment_attempts;default:0" json:"payment_attempts"`
	QuestionnaireStep      int               `gorm:"column:questionnaire_current_step;default:0" json:"questionnaire_current_step"`
	QuestionnaireCompleted bool              `gorm:"column:questionnaire_completed;default:false" json:"questionnaire_completed"`
	Answers                map[string]string `gorm:"column:answers;type:text;serializer:json" json:"answers,omitempty"`
	MessageCount           int               `gorm:"column:message_count;default:0" json:"message_count"`
	LastMessageTime        int64             `gorm:"column:last_message_time;default:0" json:"last_message_time"`
	LastInteraction        time.Time         `gorm:"column:last_interaction" json:"last_interaction"`
	RemindedAt             *time.Time        `gorm:"column:reminded_at" json:"reminded_at,omitempty"`
	CreatedAt              time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt              time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Conversation steps stored in User.Step for free-text routing.
const (
	StepNone       = "none"
	StepCouponCode = "coupon_code"
	// StepPlanUpload is followed by the id of the user the admin is
	// uploading a plan for.
	StepPlanUpload = "plan_upload:"
)
