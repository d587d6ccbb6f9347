package models

import "time"

// Coupon maps to the `coupons` table.
type Coupon struct {
	Code            string    `gorm:"column:code;primaryKey;size:64" json:"code"`
	DiscountPercent int       `gorm:"column:discount_percent" json:"discount_percent"`
	Active          bool      `gorm:"column:active" json:"active"`
	Description     string    `gorm:"column:description;size:255" json:"description"`
	UsageCount      int       `gorm:"column:usage_count;default:0" json:"usage_count"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Coupon) TableName() string {
	return "coupons"
}
