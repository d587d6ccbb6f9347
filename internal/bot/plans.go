package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"coachbot/internal/enrollment"
	"coachbot/internal/models"
)

const textPlanUploadPrompt = "📤 فایل برنامه را ارسال کنید (PDF یا تصویر).\n\nکپشن فایل به عنوان عنوان برنامه ذخیره می‌شود."

// planMessage builds the message that delivers a plan to its user.
func planMessage(p *models.Plan, now string) tele.Sendable {
	caption := fmt.Sprintf("📋 %s\n\n💪 برنامه تمرینی شما آماده است!\n🕐 ارسال شده در: %s", p.Title, now)
	if p.ContentType == models.PlanPhoto {
		return &tele.Photo{File: tele.File{FileID: p.FileID}, Caption: caption}
	}
	return &tele.Document{File: tele.File{FileID: p.FileID}, FileName: p.FileName, Caption: caption}
}

// uploadTarget returns the user an admin is uploading a plan for.
func uploadTarget(u *models.User) (string, bool) {
	if !strings.HasPrefix(u.Step, models.StepPlanUpload) {
		return "", false
	}
	return strings.TrimPrefix(u.Step, models.StepPlanUpload), true
}

func (b *Bot) sendPlanUsers(ctx context.Context, c tele.Context) error {
	users, err := b.svc.ReadyUsers(ctx)
	if err != nil {
		b.logger.Error("Failed to list users", zap.Error(err))
		return b.reply(c, textGenericError)
	}
	return b.show(c, PlanUsersMenu(users))
}

func (b *Bot) sendPlanUser(ctx context.Context, c tele.Context, admin *models.User, userID string) error {
	if _, ok := uploadTarget(admin); ok {
		b.resetStep(ctx, admin.ID)
	}
	u, err := b.svc.User(ctx, userID)
	if err != nil {
		if errors.Is(err, enrollment.ErrUnknownUser) {
			return b.reply(c, "⚠️ کاربر یافت نشد.")
		}
		b.logger.Error("Failed to load user", zap.String("user_id", userID), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	plans, err := b.svc.Plans(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to list plans", zap.String("user_id", userID), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	return b.show(c, PlanUserMenu(u, plans))
}

func (b *Bot) startPlanUpload(ctx context.Context, c tele.Context, admin *models.User, userID string) error {
	if _, err := b.svc.User(ctx, userID); err != nil {
		return b.reply(c, "⚠️ کاربر یافت نشد.")
	}
	if err := b.svc.SetStep(ctx, admin.ID, models.StepPlanUpload+userID); err != nil {
		b.logger.Error("Failed to update step", zap.String("user_id", admin.ID), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	m := Menu{Text: textPlanUploadPrompt, Rows: [][]Button{row("🔙 انصراف", cbPlanUserPrefix+userID)}}
	return b.show(c, m)
}

// handlePlanUpload stores the file an admin sent while uploading a plan.
func (b *Bot) handlePlanUpload(ctx context.Context, c tele.Context, admin *models.User, userID string) error {
	msg := c.Message()
	up := enrollment.PlanUpload{UserID: userID, UploadedBy: admin.ID}
	switch {
	case msg != nil && msg.Photo != nil:
		up.FileID = msg.Photo.FileID
		up.ContentType = models.PlanPhoto
	case msg != nil && msg.Document != nil:
		up.FileID = msg.Document.FileID
		up.ContentType = models.PlanDocument
		up.FileName = msg.Document.FileName
	default:
		return c.Send(textPlanUploadPrompt)
	}
	up.Title = msg.Caption

	plan, err := b.svc.AddPlan(ctx, up)
	switch {
	case errors.Is(err, enrollment.ErrNoCourse):
		b.resetStep(ctx, admin.ID)
		return c.Send("⚠️ این کاربر دوره‌ای ندارد.")
	case errors.Is(err, enrollment.ErrUnknownUser):
		b.resetStep(ctx, admin.ID)
		return c.Send("⚠️ کاربر یافت نشد.")
	case err != nil:
		b.logger.Error("Failed to save plan", zap.String("user_id", userID), zap.Error(err))
		return c.Send(textGenericError)
	}
	b.resetStep(ctx, admin.ID)
	admin.Step = models.StepNone

	if err := c.Send(fmt.Sprintf("✅ برنامه «%s» ذخیره شد.", plan.Title)); err != nil {
		return err
	}
	return b.sendPlanUser(ctx, c, admin, userID)
}

func (b *Bot) sendPlanToUser(ctx context.Context, c tele.Context, admin *models.User, planID string) error {
	plan, err := b.svc.Plan(ctx, planID)
	if err != nil {
		if isNotFound(err) {
			return b.reply(c, "⚠️ برنامه یافت نشد.")
		}
		b.logger.Error("Failed to load plan", zap.String("plan_id", planID), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	if _, err := b.out.Send(chatID(plan.UserID), planMessage(plan, b.now().Format("2006/01/02 15:04"))); err != nil {
		b.logger.Warn("Failed to send plan", zap.String("user_id", plan.UserID), zap.String("plan_id", plan.ID), zap.Error(err))
		return b.reply(c, "❌ ارسال برنامه ناموفق بود. ممکن است کاربر ربات را مسدود کرده باشد یا فایل نامعتبر باشد.")
	}
	if _, err := b.svc.MarkPlanSent(ctx, plan.ID); err != nil {
		b.logger.Warn("Failed to record plan delivery", zap.String("plan_id", plan.ID), zap.Error(err))
	}
	b.logger.Info("Plan sent", zap.String("user_id", plan.UserID), zap.String("plan_id", plan.ID), zap.String("by", admin.ID))
	return b.sendPlanUser(ctx, c, admin, plan.UserID)
}

func (b *Bot) setMainPlan(ctx context.Context, c tele.Context, admin *models.User, planID string) error {
	plan, err := b.svc.SetMainPlan(ctx, planID)
	if err != nil {
		if isNotFound(err) {
			return b.reply(c, "⚠️ برنامه یافت نشد.")
		}
		b.logger.Error("Failed to set main plan", zap.String("plan_id", planID), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	return b.sendPlanUser(ctx, c, admin, plan.UserID)
}

func (b *Bot) deletePlan(ctx context.Context, c tele.Context, admin *models.User, planID string) error {
	plan, err := b.svc.DeletePlan(ctx, planID)
	if err != nil {
		if isNotFound(err) {
			return b.reply(c, "⚠️ برنامه یافت نشد.")
		}
		b.logger.Error("Failed to delete plan", zap.String("plan_id", planID), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	return b.sendPlanUser(ctx, c, admin, plan.UserID)
}
