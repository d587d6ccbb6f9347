package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"coachbot/internal/coupon"
	"coachbot/internal/models"
	"coachbot/internal/repository"
)

// MigrateAndSeed ensures required tables exist and inserts the default coupons.
func MigrateAndSeed(db *gorm.DB) error {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := SeedDefaults(context.Background(), repository.NewGormStore(db)); err != nil {
		return fmt.Errorf("seed defaults failed: %w", err)
	}
	return nil
}

func allModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Payment{},
		&models.Admin{},
		&models.Coupon{},
		&models.Plan{},
	}
}

// SeedDefaults inserts the default coupons that are missing. Existing rows
// keep their admin-edited state.
func SeedDefaults(ctx context.Context, store repository.CouponStore) error {
	for _, c := range coupon.Defaults() {
		_, err := store.GetCoupon(ctx, c.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		c := c
		if err := store.PutCoupon(ctx, &c); err != nil {
			return fmt.Errorf("seed coupon %s: %w", c.Code, err)
		}
	}
	return nil
}
