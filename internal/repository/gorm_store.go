package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"coachbot/internal/models"
)

// GormStore handles all database operations on the relational backend.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ── Users ─────────────────────────────────────────────────────────────

// GetUser finds a user by Telegram chat ID.
func (r *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// PutUser inserts or fully updates a user row.
func (r *GormStore) PutUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// ListUsers returns all users, newest first.
func (r *GormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	return users, err
}

// ── Payments ──────────────────────────────────────────────────────────

// CreatePayment creates a new payment report.
func (r *GormStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// GetPayment returns a payment by ID.
func (r *GormStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

// UpdatePayment saves every column of an existing payment.
func (r *GormStore) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", payment.ID).
		Select("*").Omit("created_at").Updates(payment)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetPayment(ctx, payment.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListPayments returns payments filtered by status, oldest first.
func (r *GormStore) ListPayments(ctx context.Context, status string) ([]models.Payment, error) {
	var payments []models.Payment
	db := r.db.WithContext(ctx).Model(&models.Payment{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Order("created_at ASC").Find(&payments).Error
	return payments, err
}

// CommitPayment saves the user and the payment in one transaction.
func (r *GormStore) CommitPayment(ctx context.Context, user *models.User, payment *models.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(user).Error; err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		if err := tx.Save(payment).Error; err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		return nil
	})
}

// ── Admins ────────────────────────────────────────────────────────────

// IsAdmin checks whether a stored admin row exists.
func (r *GormStore) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Admin{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

// AddAdmin inserts an admin, keeping the original row when already present.
func (r *GormStore) AddAdmin(ctx context.Context, admin *models.Admin) error {
	if admin.AddedAt.IsZero() {
		admin.AddedAt = time.Now()
	}
	return r.db.WithContext(ctx).Where(models.Admin{UserID: admin.UserID}).FirstOrCreate(admin).Error
}

// RemoveAdmin deletes a stored admin.
func (r *GormStore) RemoveAdmin(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Admin{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAdmins returns stored admins.
func (r *GormStore) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	var admins []models.Admin
	err := r.db.WithContext(ctx).Order("added_at ASC").Find(&admins).Error
	return admins, err
}

// ── Coupons ───────────────────────────────────────────────────────────

// GetCoupon finds a coupon by code.
func (r *GormStore) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// PutCoupon inserts or updates a coupon.
func (r *GormStore) PutCoupon(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

// ListCoupons returns all coupons by code.
func (r *GormStore) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := r.db.WithContext(ctx).Order("code ASC").Find(&coupons).Error
	return coupons, err
}

// ── Plans ─────────────────────────────────────────────────────────────

// GetPlan finds a plan by ID.
func (r *GormStore) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// PutPlan inserts or updates a plan.
func (r *GormStore) PutPlan(ctx context.Context, plan *models.Plan) error {
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Save(plan).Error
}

// DeletePlan removes a plan.
func (r *GormStore) DeletePlan(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Plan{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPlans returns the plans of one user, oldest first.
func (r *GormStore) ListPlans(ctx context.Context, userID string) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&plans).Error
	return plans, err
}

// Close releases the connection pool.
func (r *GormStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
