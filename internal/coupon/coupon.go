package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"coachbot/internal/models"
)

var (
	ErrInvalid  = errors.New("coupon invalid")
	ErrInactive = errors.New("coupon inactive")
)

// Normalize upper-cases and trims a user-entered code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Defaults are seeded into an empty store.
func Defaults() []models.Coupon {
	now := time.Now()
	return []models.Coupon{
		{Code: "WELCOME10", DiscountPercent: 10, Active: true, Description: "خوش‌آمدگویی 10%", CreatedAt: now},
		{Code: "STUDENT20", DiscountPercent: 20, Active: true, Description: "تخفیف دانشجویی 20%", CreatedAt: now},
		{Code: "VIP50", DiscountPercent: 50, Active: false, Description: "تخفیف ویژه 50%", CreatedAt: now},
	}
}

// New builds a coupon from admin input.
func New(code string, percent int, description string) (models.Coupon, error) {
	code = Normalize(code)
	if code == "" || len(code) > 32 {
		return models.Coupon{}, fmt.Errorf("%w: bad code", ErrInvalid)
	}
	if percent < 1 || percent > 100 {
		return models.Coupon{}, fmt.Errorf("%w: percent must be in [1,100]", ErrInvalid)
	}
	return models.Coupon{
		Code:            code,
		DiscountPercent: percent,
		Active:          true,
		Description:     description,
		CreatedAt:       time.Now(),
	}, nil
}

// Check verifies that c can be used.
func Check(c *models.Coupon) error {
	if c == nil {
		return ErrInvalid
	}
	if !c.Active {
		return ErrInactive
	}
	if c.DiscountPercent < 1 || c.DiscountPercent > 100 {
		return ErrInvalid
	}
	return nil
}

// Apply returns the discounted price and the discount amount, in toman.
func Apply(price int, c *models.Coupon) (final, discount int) {
	if Check(c) != nil {
		return price, 0
	}
	discount = price * c.DiscountPercent / 100
	return price - discount, discount
}
