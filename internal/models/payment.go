package models

import "time"

// Payment statuses of a submitted receipt.
const (
	PaymentPending  = "pending_approval"
	PaymentApproved = "approved"
	PaymentRejected = "rejected"
)

// Payment maps to the `payments` table. One row per submitted receipt.
type Payment struct {
	ID            string     `gorm:"column:id;primaryKey;size:64" json:"payment_id"`
	UserID        string     `gorm:"column:user_id;size:64;index" json:"user_id"`
	Course        string     `gorm:"column:course_type;size:64" json:"course_type"`
	Price         int        `gorm:"column:price" json:"price"`
	Coupon        string     `gorm:"column:coupon;size:64" json:"coupon,omitempty"`
	Discount      int        `gorm:"column:discount;default:0" json:"discount"`
	ReceiptFileID string     `gorm:"column:receipt_file_id;size:255" json:"receipt_file_id"`
	Status        string     `gorm:"column:status;size:32;index" json:"status"`
	ReviewedBy    string     `gorm:"column:reviewed_by;size:64" json:"reviewed_by,omitempty"`
	Reason        string     `gorm:"column:reason;type:text" json:"reason,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"timestamp"`
	ReviewedAt    *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}
