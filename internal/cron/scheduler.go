package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"coachbot/internal/config"
	"coachbot/internal/course"
	"coachbot/internal/enrollment"
	"coachbot/internal/export"
	"coachbot/internal/models"
	"coachbot/internal/pkg/utils"
	"coachbot/internal/repository"
	"coachbot/internal/status"
)

const jobTimeout = 2 * time.Minute

// Notifier delivers messages outside of an update. *telegram.BotAPI
// satisfies it.
type Notifier interface {
	SendMessage(chatID string, text string, replyMarkup interface{}) error
	SendDocument(chatID string, fileData []byte, filename, caption string) error
}

// Scheduler manages all cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	svc      *enrollment.Service
	admins   repository.AdminStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a new cron scheduler.
func New(cfg *config.Config, svc *enrollment.Service, admins repository.AdminStore, notifier Notifier, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		cfg:      cfg,
		svc:      svc,
		admins:   admins,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() error {
	s.logger.Info("Starting cron scheduler...")

	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		// Pending payment alert - every hour
		{"0 0 * * * *", "pending payment alert", s.pendingPaymentAlert},
		// Questionnaire reminders - every 6 hours
		{"0 0 */6 * * *", "questionnaire reminders", s.questionnaireReminders},
		// Users backup - daily at 3 AM
		{"0 0 3 * * *", "backup", s.backup},
	}
	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() {
			s.logger.Debug("Running: " + job.name)
			job.fn()
		}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started")
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// ── Pending payment alert ─────────────────────────────────────────────

func (s *Scheduler) pendingPaymentAlert() {
	defer s.recoverFromPanic("pendingPaymentAlert")

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	payments, err := s.svc.Payments(ctx, models.PaymentPending)
	if err != nil {
		s.logger.Error("Failed to list pending payments", zap.Error(err))
		return
	}

	cutoff := s.now().Add(-s.cfg.Cron.PendingAlert)
	var stale []models.Payment
	for _, p := range payments {
		if p.CreatedAt.Before(cutoff) {
			stale = append(stale, p)
		}
	}
	if len(stale) == 0 {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⏰ %s پرداخت بیش از %d ساعت در انتظار تایید است:\n\n",
		utils.ToPersianDigits(fmt.Sprint(len(stale))), int(s.cfg.Cron.PendingAlert.Hours()))
	for _, p := range stale {
		fmt.Fprintf(&b, "• %s | %s | %s\n", p.UserID, course.Label(course.Code(p.Course)), course.FormatPrice(p.Price))
	}
	b.WriteString("\nبرای بررسی از /admin استفاده کنید.")

	text := b.String()
	for _, admin := range s.adminIDs(ctx) {
		if err := s.notifier.SendMessage(admin, text, nil); err != nil {
			s.logger.Warn("Failed to alert admin", zap.String("admin_id", admin), zap.Error(err))
		}
	}
	s.logger.Info("Pending payment alert sent", zap.Int("payments", len(stale)))
}

// ── Questionnaire reminders ───────────────────────────────────────────

const reminderText = "👋 سلام! پرسشنامه شما هنوز کامل نشده است.\n\nبرای اینکه برنامه تمرینی شخصی‌سازی شده‌تان آماده شود، لطفاً پرسشنامه را ادامه دهید."

var reminderKeyboard = map[string]interface{}{
	"inline_keyboard": [][]map[string]string{
		{{"text": "📝 ادامه پرسشنامه", "callback_data": "continue_questionnaire"}},
	},
}

// questionnaireReminders nudges users who stopped mid-questionnaire. A user
// is reminded once per idle period; any interaction clears reminded_at.
func (s *Scheduler) questionnaireReminders() {
	defer s.recoverFromPanic("questionnaireReminders")

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	users, err := s.svc.Users(ctx)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return
	}

	cutoff := s.now().Add(-s.cfg.Cron.ReminderIdle)
	sent := 0
	for i := range users {
		u := &users[i]
		if u.RemindedAt != nil || u.LastInteraction.After(cutoff) {
			continue
		}
		res, err := enrollment.ResolveUser(u)
		if err != nil || res.Tag != status.QuestionnaireInProgress {
			continue
		}

		if err := s.notifier.SendMessage(u.ID, reminderText, reminderKeyboard); err != nil {
			s.logger.Warn("Failed to send reminder", zap.String("user_id", u.ID), zap.Error(err))
			continue
		}
		if err := s.svc.MarkReminded(ctx, u.ID); err != nil {
			s.logger.Warn("Failed to mark reminder", zap.String("user_id", u.ID), zap.Error(err))
		}
		sent++
	}
	if sent > 0 {
		s.logger.Info("Questionnaire reminders sent", zap.Int("users", sent))
	}
}

// ── Backup ────────────────────────────────────────────────────────────

func (s *Scheduler) backup() {
	defer s.recoverFromPanic("backup")

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	now := s.now()
	for _, ds := range []struct {
		dataset string
		caption string
	}{
		{export.DatasetUsers, "📦 بکاپ روزانه کاربران (%d نفر)"},
		{export.DatasetPayments, "📦 بکاپ روزانه پرداخت‌ها (%d مورد)"},
	} {
		table, err := export.Build(ctx, s.svc, ds.dataset)
		if err != nil {
			s.logger.Error("Failed to load backup data", zap.String("dataset", ds.dataset), zap.Error(err))
			continue
		}
		data, err := table.Encode(export.FormatCSV)
		if err != nil {
			s.logger.Error("Failed to build backup", zap.String("dataset", ds.dataset), zap.Error(err))
			continue
		}
		name := export.FileName(ds.dataset, export.FormatCSV, now)
		caption := fmt.Sprintf(ds.caption, len(table.Rows))
		for _, admin := range s.cfg.Bot.AdminIDs {
			if err := s.notifier.SendDocument(admin, data, name, caption); err != nil {
				s.logger.Warn("Failed to send backup", zap.String("admin_id", admin), zap.Error(err))
			}
		}
	}
}

// adminIDs returns configured super admins followed by stored admins.
func (s *Scheduler) adminIDs(ctx context.Context) []string {
	ids := append([]string(nil), s.cfg.Bot.AdminIDs...)
	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		s.logger.Warn("Failed to list admins", zap.Error(err))
		return ids
	}
	for _, a := range admins {
		if !s.cfg.Bot.IsSuperAdmin(a.UserID) {
			ids = append(ids, a.UserID)
		}
	}
	return ids
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("error", r))
	}
}
