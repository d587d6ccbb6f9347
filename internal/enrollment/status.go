package enrollment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"coachbot/internal/course"
	"coachbot/internal/models"
	"coachbot/internal/repository"
	"coachbot/internal/status"
)

// RecordOf converts a stored user into the resolver's typed record.
// Unknown enum values are reported as status.ErrRecordCorrupt.
func RecordOf(u *models.User) (status.Record, error) {
	code, err := course.Parse(u.CourseSelected)
	if err != nil {
		return status.Record{}, fmt.Errorf("%w: %v", status.ErrRecordCorrupt, err)
	}
	payment, err := status.ParsePayment(u.PaymentStatus)
	if err != nil {
		return status.Record{}, err
	}
	return status.Record{
		UserID:             u.ID,
		Course:             code,
		Payment:            payment,
		Step:               u.QuestionnaireStep,
		Completed:          u.QuestionnaireCompleted,
		PaymentAttempts:    u.PaymentAttempts,
		CourseEverSelected: u.CourseEverSelected,
		LastInteraction:    u.LastInteraction,
	}, nil
}

// ResolveUser resolves a stored user. Corrupt records yield
// status.ErrStoreUnavailable.
func ResolveUser(u *models.User) (status.Result, error) {
	rec, err := RecordOf(u)
	if err != nil {
		return status.Result{}, fmt.Errorf("%w: %w", status.ErrStoreUnavailable, err)
	}
	return status.ResolveChecked(rec)
}

// Status looks the user up and resolves its conversation status. A user
// never seen before is NEW_USER, not an error.
func (s *Service) Status(ctx context.Context, id string) (status.Result, *models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return status.Resolve(status.Record{UserID: id, Course: course.None, Payment: status.PaymentNone}), nil, nil
	}
	if err != nil {
		return status.Result{}, nil, fmt.Errorf("%w: %w", status.ErrStoreUnavailable, err)
	}

	res, err := ResolveUser(u)
	if err != nil {
		s.logger.Error("Corrupt user record", zap.String("user_id", id), zap.Error(err))
		return status.Result{}, u, err
	}
	if res.Violations != 0 {
		s.logger.Warn("User record violates invariants",
			zap.String("user_id", id),
			zap.Strings("violations", res.Violations.Names()),
			zap.String("resolved", string(res.Tag)),
		)
	}
	return res, u, nil
}

// Stats are the counters shown in the admin panel.
type Stats struct {
	TotalUsers             int                 `json:"total_users"`
	ByTag                  map[status.Tag]int  `json:"by_tag"`
	ByCourse               map[course.Code]int `json:"by_course"`
	PaymentsPending        int                 `json:"payments_pending"`
	PaymentsApproved       int                 `json:"payments_approved"`
	PaymentsRejected       int                 `json:"payments_rejected"`
	QuestionnaireCompleted int                 `json:"questionnaire_completed"`
	Revenue                int                 `json:"revenue"`
	CorruptRecords         int                 `json:"corrupt_records"`
}

// Stats aggregates users and payments.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return Stats{}, err
	}
	payments, err := s.store.ListPayments(ctx, "")
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		TotalUsers: len(users),
		ByTag:      make(map[status.Tag]int),
		ByCourse:   make(map[course.Code]int),
	}
	for i := range users {
		res, err := ResolveUser(&users[i])
		if err != nil {
			st.CorruptRecords++
			continue
		}
		st.ByTag[res.Tag]++
		if users[i].QuestionnaireCompleted {
			st.QuestionnaireCompleted++
		}
	}
	for _, p := range payments {
		switch p.Status {
		case models.PaymentPending:
			st.PaymentsPending++
		case models.PaymentApproved:
			st.PaymentsApproved++
			st.Revenue += p.Price
			st.ByCourse[course.Code(p.Course)]++
		case models.PaymentRejected:
			st.PaymentsRejected++
		}
	}
	return st, nil
}
