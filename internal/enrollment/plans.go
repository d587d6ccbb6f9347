package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"coachbot/internal/course"
	"coachbot/internal/models"
	"coachbot/internal/pkg/utils"
)

var (
	ErrNoCourse    = errors.New("user has no course")
	ErrNoPlan      = errors.New("no plan uploaded")
	ErrInvalidPlan = errors.New("plan file is missing")
)

const defaultPlanTitle = "برنامه تمرینی"

// PlanUpload describes a plan file sent by an admin.
type PlanUpload struct {
	UserID      string
	Title       string
	FileID      string
	ContentType string
	FileName    string
	UploadedBy  string
}

// AddPlan stores a plan for the user's current course. The first plan of a
// course becomes its main plan.
func (s *Service) AddPlan(ctx context.Context, up PlanUpload) (*models.Plan, error) {
	if strings.TrimSpace(up.FileID) == "" {
		return nil, ErrInvalidPlan
	}
	unlock := s.locks.Lock(up.UserID)
	defer unlock()

	u, err := s.load(ctx, up.UserID)
	if err != nil {
		return nil, err
	}
	code, err := course.Parse(u.CourseSelected)
	if err != nil || code == course.None {
		return nil, ErrNoCourse
	}

	existing, err := s.store.ListPlans(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	hasMain := false
	for _, p := range existing {
		if p.Course == string(code) && p.Main {
			hasMain = true
			break
		}
	}

	title := strings.TrimSpace(up.Title)
	if title == "" {
		title = defaultPlanTitle
	}
	contentType := up.ContentType
	if contentType != models.PlanPhoto {
		contentType = models.PlanDocument
	}
	plan := &models.Plan{
		ID:          utils.GeneratePlanID(),
		UserID:      u.ID,
		Course:      string(code),
		Title:       title,
		FileID:      up.FileID,
		ContentType: contentType,
		FileName:    up.FileName,
		Main:        !hasMain,
		UploadedBy:  up.UploadedBy,
		CreatedAt:   s.now(),
	}
	if err := s.store.PutPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}
	s.logger.Info("Plan uploaded",
		zap.String("user_id", u.ID),
		zap.String("plan_id", plan.ID),
		zap.String("course", plan.Course),
		zap.String("by", up.UploadedBy),
	)
	return plan, nil
}

// Plans returns the plans of one user, oldest first.
func (s *Service) Plans(ctx context.Context, userID string) ([]models.Plan, error) {
	return s.store.ListPlans(ctx, userID)
}

// Plan returns one plan by id.
func (s *Service) Plan(ctx context.Context, id string) (*models.Plan, error) {
	return s.store.GetPlan(ctx, id)
}

// SetMainPlan marks the plan as the main plan of its user and course and
// clears the flag on the others.
func (s *Service) SetMainPlan(ctx context.Context, planID string) (*models.Plan, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(plan.UserID)
	defer unlock()

	plans, err := s.store.ListPlans(ctx, plan.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	for i := range plans {
		p := &plans[i]
		if p.Course != plan.Course {
			continue
		}
		want := p.ID == plan.ID
		if p.Main == want {
			continue
		}
		p.Main = want
		if err := s.store.PutPlan(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to save plan: %w", err)
		}
	}
	plan.Main = true
	return plan, nil
}

// DeletePlan removes a plan. When it was the main plan, the newest
// remaining plan of the course takes over.
func (s *Service) DeletePlan(ctx context.Context, planID string) (*models.Plan, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(plan.UserID)
	defer unlock()

	if err := s.store.DeletePlan(ctx, planID); err != nil {
		return nil, err
	}
	if !plan.Main {
		return plan, nil
	}
	plans, err := s.store.ListPlans(ctx, plan.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	for i := len(plans) - 1; i >= 0; i-- {
		if plans[i].Course == plan.Course {
			plans[i].Main = true
			if err := s.store.PutPlan(ctx, &plans[i]); err != nil {
				return nil, fmt.Errorf("failed to save plan: %w", err)
			}
			break
		}
	}
	return plan, nil
}

// MainPlan returns the main plan of the user's current course.
func (s *Service) MainPlan(ctx context.Context, userID string) (*models.Plan, error) {
	u, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	plans, err := s.store.ListPlans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	var latest *models.Plan
	for i := range plans {
		p := &plans[i]
		if p.Course != u.CourseSelected {
			continue
		}
		if p.Main {
			return p, nil
		}
		latest = p
	}
	if latest == nil {
		return nil, ErrNoPlan
	}
	return latest, nil
}

// MarkPlanSent records the delivery time of a plan.
func (s *Service) MarkPlanSent(ctx context.Context, planID string) (*models.Plan, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	plan.SentAt = &now
	if err := s.store.PutPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}
	return plan, nil
}

// ReadyUsers returns users whose questionnaire is complete, the ones an
// admin prepares plans for.
func (s *Service) ReadyUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.User
	for _, u := range users {
		if u.QuestionnaireCompleted && u.PaymentStatus == models.PaymentApproved {
			out = append(out, u)
		}
	}
	return out, nil
}

