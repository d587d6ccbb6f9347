package export

import (
	"strconv"

	"coachbot/internal/course"
	"coachbot/internal/models"
)

// Payments builds the payments sheet, one row per submitted receipt.
func Payments(payments []models.Payment) Table {
	t := Table{
		Name: "Payments",
		Headers: []string{
			"Payment ID",
			"User ID",
			"Course",
			"Price",
			"Coupon",
			"Discount",
			"Status",
			"Submitted",
			"Reviewed",
			"Reviewed By",
			"Reason",
		},
	}
	for _, p := range payments {
		reviewed := ""
		if p.ReviewedAt != nil {
			reviewed = formatTime(*p.ReviewedAt)
		}
		t.Rows = append(t.Rows, []string{
			p.ID,
			p.UserID,
			course.Label(course.Code(p.Course)),
			strconv.Itoa(p.Price),
			p.Coupon,
			strconv.Itoa(p.Discount),
			p.Status,
			formatTime(p.CreatedAt),
			reviewed,
			p.ReviewedBy,
			p.Reason,
		})
	}
	return t
}
