// Package enrollment applies the user-facing events (course choice, receipt
// submission, admin review, questionnaire answers) to stored user records
// and resolves the resulting conversation status.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"coachbot/internal/coupon"
	"coachbot/internal/course"
	"coachbot/internal/models"
	"coachbot/internal/pkg/utils"
	"coachbot/internal/questionnaire"
	"coachbot/internal/repository"
	"coachbot/internal/status"
)

var (
	ErrNoPendingCourse    = errors.New("no course chosen for payment")
	ErrAlreadyPending     = errors.New("a payment is already awaiting approval")
	ErrNotPending         = errors.New("payment is not awaiting approval")
	ErrNotInQuestionnaire = errors.New("questionnaire is not in progress")
	ErrUnknownUser        = errors.New("unknown user")
)

// FloodLimit is the number of messages a user may send per minute.
const FloodLimit = 30

const floodWindow = 60 // seconds

// Quote is the price of the course a user is about to pay for.
type Quote struct {
	Course   course.Course
	Coupon   string
	Price    int
	Discount int
	Final    int
}

// AnswerResult describes the questionnaire position after an answer.
type AnswerResult struct {
	Step int
	Done bool
	User *models.User
}

// Service owns every mutation of user and payment records.
type Service struct {
	store  repository.Store
	logger *zap.Logger
	locks  *keyedMutex
	now    func() time.Time
}

func NewService(store repository.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		locks:  newKeyedMutex(),
		now:    time.Now,
	}
}

func newUser(id string) *models.User {
	return &models.User{
		ID:             id,
		Step:           models.StepNone,
		CourseSelected: string(course.None),
		PaymentStatus:  string(status.PaymentNone),
	}
}

func (s *Service) load(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", status.ErrStoreUnavailable, err)
	}
	return u, nil
}

// Touch creates the user on first contact, refreshes profile fields and the
// interaction time, and counts the message for the flood guard.
func (s *Service) Touch(ctx context.Context, id, name, username string) (*models.User, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	u, err := s.store.GetUser(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		u = newUser(id)
		s.logger.Info("New user", zap.String("user_id", id))
	case err != nil:
		return nil, fmt.Errorf("%w: %w", status.ErrStoreUnavailable, err)
	}

	if name != "" {
		u.Name = name
	}
	if username != "" {
		u.Username = username
	}

	now := s.now()
	if now.Unix()-u.LastMessageTime > floodWindow {
		u.MessageCount = 1
	} else {
		u.MessageCount++
	}
	u.LastMessageTime = now.Unix()
	u.LastInteraction = now
	u.RemindedAt = nil

	if err := s.store.PutUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return u, nil
}

// Flooded reports whether u exceeded the per-minute message budget.
func Flooded(u *models.User) bool {
	return u != nil && u.MessageCount > FloodLimit
}

// SetStep stores the free-text routing step of the user.
func (s *Service) SetStep(ctx context.Context, id, step string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	u, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if u.Step == step {
		return nil
	}
	u.Step = step
	return s.store.PutUser(ctx, u)
}

// ChooseCourse records the course the user intends to pay for. It clears
// any coupon attached to a previous choice.
func (s *Service) ChooseCourse(ctx context.Context, id string, code course.Code) (Quote, error) {
	c, ok := course.Lookup(code)
	if !ok {
		return Quote{}, fmt.Errorf("unknown course %q", code)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	u, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	u.PendingCourse = string(c.Code)
	u.PendingCoupon = ""
	u.CourseEverSelected = true
	u.Step = models.StepNone
	if err := s.store.PutUser(ctx, u); err != nil {
		return Quote{}, fmt.Errorf("failed to save course choice: %w", err)
	}
	return Quote{Course: c, Price: c.Price, Final: c.Price}, nil
}

// ApplyCoupon attaches code to the pending course choice.
func (s *Service) ApplyCoupon(ctx context.Context, id, code string) (Quote, error) {
	code = coupon.Normalize(code)

	unlock := s.locks.Lock(id)
	defer unlock()

	u, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	c, ok := course.Lookup(course.Code(u.PendingCourse))
	if !ok {
		return Quote{}, ErrNoPendingCourse
	}

	cp, err := s.store.GetCoupon(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return Quote{}, fmt.Errorf("%w: %s", coupon.ErrInvalid, code)
	}
	if err != nil {
		return Quote{}, err
	}
	if err := coupon.Check(cp); err != nil {
		return Quote{}, err
	}

	u.PendingCoupon = cp.Code
	u.Step = models.StepNone
	if err := s.store.PutUser(ctx, u); err != nil {
		return Quote{}, fmt.Errorf("failed to save coupon: %w", err)
	}

	final, discount := coupon.Apply(c.Price, cp)
	return Quote{Course: c, Coupon: cp.Code, Price: c.Price, Discount: discount, Final: final}, nil
}

// PendingQuote prices the pending course choice of the user, coupon included.
func (s *Service) PendingQuote(ctx context.Context, id string) (Quote, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	return s.quote(ctx, u)
}

func (s *Service) quote(ctx context.Context, u *models.User) (Quote, error) {
	c, ok := course.Lookup(course.Code(u.PendingCourse))
	if !ok {
		return Quote{}, ErrNoPendingCourse
	}
	q := Quote{Course: c, Price: c.Price, Final: c.Price}
	if u.PendingCoupon == "" {
		return q, nil
	}
	cp, err := s.store.GetCoupon(ctx, u.PendingCoupon)
	if err != nil || coupon.Check(cp) != nil {
		// coupon was removed or disabled since it was applied
		s.logger.Info("Dropping stale coupon", zap.String("user_id", u.ID), zap.String("coupon", u.PendingCoupon))
		return q, nil
	}
	q.Coupon = cp.Code
	q.Final, q.Discount = coupon.Apply(c.Price, cp)
	return q, nil
}

// SubmitReceipt records a receipt for the pending course choice and moves
// the user to pending_approval. The questionnaire of any earlier course is
// reset.
func (s *Service) SubmitReceipt(ctx context.Context, id, fileID string) (*models.Payment, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	u, err := s.load(ctx, id)
	if errors.Is(err, ErrUnknownUser) {
		return nil, ErrNoPendingCourse
	}
	if err != nil {
		return nil, err
	}
	if u.PaymentStatus == models.PaymentPending {
		return nil, ErrAlreadyPending
	}
	q, err := s.quote(ctx, u)
	if err != nil {
		return nil, err
	}

	now := s.now()
	payment := &models.Payment{
		ID:            utils.GeneratePaymentID(),
		UserID:        u.ID,
		Course:        string(q.Course.Code),
		Price:         q.Final,
		Coupon:        q.Coupon,
		Discount:      q.Discount,
		ReceiptFileID: fileID,
		Status:        models.PaymentPending,
		CreatedAt:     now,
	}

	u.CourseSelected = string(q.Course.Code)
	u.CourseEverSelected = true
	u.PaymentStatus = models.PaymentPending
	u.PaymentAttempts++
	u.PendingCourse = ""
	u.PendingCoupon = ""
	u.Step = models.StepNone
	resetQuestionnaire(u)

	if err := s.store.CommitPayment(ctx, u, payment); err != nil {
		return nil, fmt.Errorf("failed to save receipt: %w", err)
	}
	s.logger.Info("Receipt submitted",
		zap.String("user_id", u.ID),
		zap.String("payment_id", payment.ID),
		zap.String("course", payment.Course),
		zap.Int("price", payment.Price),
	)
	return payment, nil
}

func resetQuestionnaire(u *models.User) {
	u.QuestionnaireStep = 0
	u.QuestionnaireCompleted = false
	u.Answers = nil
	u.RemindedAt = nil
}

// review loads a pending payment and its user under the user's lock.
func (s *Service) review(ctx context.Context, paymentID string, fn func(u *models.User, p *models.Payment)) (*models.Payment, *models.User, error) {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}

	unlock := s.locks.Lock(p.UserID)
	defer unlock()

	// re-read under the lock; another admin may have reviewed it meanwhile
	p, err = s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if p.Status != models.PaymentPending {
		return p, nil, ErrNotPending
	}
	u, err := s.load(ctx, p.UserID)
	if err != nil {
		return p, nil, err
	}
	if u.PaymentStatus != models.PaymentPending {
		return p, u, ErrNotPending
	}

	fn(u, p)
	if err := s.store.CommitPayment(ctx, u, p); err != nil {
		return nil, nil, fmt.Errorf("failed to save review: %w", err)
	}
	return p, u, nil
}

// Approve accepts a pending payment and opens the questionnaire at step 1.
func (s *Service) Approve(ctx context.Context, paymentID, adminID string) (*models.Payment, *models.User, error) {
	now := s.now()
	p, u, err := s.review(ctx, paymentID, func(u *models.User, p *models.Payment) {
		p.Status = models.PaymentApproved
		p.ReviewedBy = adminID
		p.ReviewedAt = &now

		u.PaymentStatus = models.PaymentApproved
		u.CourseSelected = p.Course
		resetQuestionnaire(u)
		u.QuestionnaireStep = 1
	})
	if err != nil {
		return p, u, err
	}

	if p.Coupon != "" {
		s.countCouponUse(ctx, p.Coupon)
	}
	s.logger.Info("Payment approved",
		zap.String("payment_id", p.ID),
		zap.String("user_id", p.UserID),
		zap.String("admin_id", adminID),
	)
	return p, u, nil
}

func (s *Service) countCouponUse(ctx context.Context, code string) {
	cp, err := s.store.GetCoupon(ctx, code)
	if err != nil {
		s.logger.Warn("Coupon lookup failed", zap.String("coupon", code), zap.Error(err))
		return
	}
	cp.UsageCount++
	if err := s.store.PutCoupon(ctx, cp); err != nil {
		s.logger.Warn("Failed to count coupon use", zap.String("coupon", code), zap.Error(err))
	}
}

// Reject declines a pending payment. The user stays rejected until a new
// receipt is submitted.
func (s *Service) Reject(ctx context.Context, paymentID, adminID, reason string) (*models.Payment, *models.User, error) {
	now := s.now()
	p, u, err := s.review(ctx, paymentID, func(u *models.User, p *models.Payment) {
		p.Status = models.PaymentRejected
		p.ReviewedBy = adminID
		p.ReviewedAt = &now
		p.Reason = reason

		u.PaymentStatus = models.PaymentRejected
	})
	if err != nil {
		return p, u, err
	}
	s.logger.Info("Payment rejected",
		zap.String("payment_id", p.ID),
		zap.String("user_id", p.UserID),
		zap.String("admin_id", adminID),
	)
	return p, u, nil
}

// CurrentStep returns the question the user should answer next.
func CurrentStep(u *models.User) int {
	if u.QuestionnaireStep < 1 {
		return 1
	}
	return u.QuestionnaireStep
}

// Answer validates and records the answer for the current step and
// advances the cursor. Answering the last applicable question completes
// the questionnaire.
func (s *Service) Answer(ctx context.Context, id, answer string) (AnswerResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	u, err := s.load(ctx, id)
	if errors.Is(err, ErrUnknownUser) {
		return AnswerResult{}, ErrNotInQuestionnaire
	}
	if err != nil {
		return AnswerResult{}, err
	}
	if u.PaymentStatus != models.PaymentApproved || u.QuestionnaireCompleted {
		return AnswerResult{}, ErrNotInQuestionnaire
	}

	step := CurrentStep(u)
	answer = questionnaire.Normalize(step, answer)
	if err := questionnaire.Validate(step, answer); err != nil {
		return AnswerResult{Step: step, User: u}, err
	}

	if u.Answers == nil {
		u.Answers = make(map[string]string)
	}
	u.Answers[strconv.Itoa(step)] = answer

	next, done := questionnaire.Next(step, u.Answers)
	for skipped := step + 1; skipped < next; skipped++ {
		delete(u.Answers, strconv.Itoa(skipped))
	}
	if done {
		u.QuestionnaireStep = questionnaire.TotalSteps
		u.QuestionnaireCompleted = true
	} else {
		u.QuestionnaireStep = next
	}

	if err := s.store.PutUser(ctx, u); err != nil {
		return AnswerResult{}, fmt.Errorf("failed to save answer: %w", err)
	}
	if done {
		s.logger.Info("Questionnaire completed", zap.String("user_id", id))
	}
	return AnswerResult{Step: u.QuestionnaireStep, Done: done, User: u}, nil
}

// ResetQuestionnaire clears the questionnaire so it restarts from the first
// question. Payment and course are untouched.
func (s *Service) ResetQuestionnaire(ctx context.Context, id string) (*models.User, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.PaymentStatus != models.PaymentApproved {
		return nil, ErrNotInQuestionnaire
	}
	resetQuestionnaire(u)
	if err := s.store.PutUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to reset questionnaire: %w", err)
	}
	return u, nil
}

// MarkReminded records that an idle reminder was sent to the user.
func (s *Service) MarkReminded(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	u, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	now := s.now()
	u.RemindedAt = &now
	return s.store.PutUser(ctx, u)
}

// User returns the stored user.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	return s.load(ctx, id)
}

// Users returns every stored user.
func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// Payments returns payments with the given status, all when empty.
func (s *Service) Payments(ctx context.Context, paymentStatus string) ([]models.Payment, error) {
	return s.store.ListPayments(ctx, paymentStatus)
}

// Payment returns one payment by id.
func (s *Service) Payment(ctx context.Context, id string) (*models.Payment, error) {
	return s.store.GetPayment(ctx, id)
}
