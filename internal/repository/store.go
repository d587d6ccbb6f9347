package repository

import (
	"context"
	"errors"

	"coachbot/internal/models"
)

// ErrNotFound is returned when a keyed lookup has no row.
var ErrNotFound = errors.New("record not found")

// UserStore persists user records keyed by chat ID.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	PutUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// PaymentStore persists submitted receipts.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	UpdatePayment(ctx context.Context, payment *models.Payment) error
	// ListPayments returns payments with the given status (all when empty),
	// oldest first.
	ListPayments(ctx context.Context, status string) ([]models.Payment, error)
	// CommitPayment upserts the user and the payment in one write.
	CommitPayment(ctx context.Context, user *models.User, payment *models.Payment) error
}

// AdminStore persists admins added at runtime.
type AdminStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	AddAdmin(ctx context.Context, admin *models.Admin) error
	RemoveAdmin(ctx context.Context, userID string) error
	ListAdmins(ctx context.Context) ([]models.Admin, error)
}

// CouponStore persists discount codes.
type CouponStore interface {
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	PutCoupon(ctx context.Context, coupon *models.Coupon) error
	ListCoupons(ctx context.Context) ([]models.Coupon, error)
}

// PlanStore persists training plan files uploaded for users.
type PlanStore interface {
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	PutPlan(ctx context.Context, plan *models.Plan) error
	DeletePlan(ctx context.Context, id string) error
	// ListPlans returns the plans of one user, oldest first.
	ListPlans(ctx context.Context, userID string) ([]models.Plan, error)
}

// Store bundles every persistence concern of the bot.
type Store interface {
	UserStore
	PaymentStore
	AdminStore
	CouponStore
	PlanStore
	Close() error
}

func cloneUser(u models.User) models.User {
	if u.Answers != nil {
		answers := make(map[string]string, len(u.Answers))
		for k, v := range u.Answers {
			answers[k] = v
		}
		u.Answers = answers
	}
	if u.RemindedAt != nil {
		t := *u.RemindedAt
		u.RemindedAt = &t
	}
	return u
}

func clonePayment(p models.Payment) models.Payment {
	if p.ReviewedAt != nil {
		t := *p.ReviewedAt
		p.ReviewedAt = &t
	}
	return p
}

func clonePlan(p models.Plan) models.Plan {
	if p.SentAt != nil {
		t := *p.SentAt
		p.SentAt = &t
	}
	return p
}
