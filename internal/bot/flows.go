package bot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"coachbot/internal/coupon"
	"coachbot/internal/course"
	"coachbot/internal/enrollment"
	"coachbot/internal/models"
	"coachbot/internal/questionnaire"
	"coachbot/internal/status"
)

// ── Course choice and coupons ─────────────────────────────────────────

func (b *Bot) handleChooseCourse(ctx context.Context, c tele.Context, user *models.User, code course.Code) error {
	if user.PaymentStatus == models.PaymentPending {
		return b.reply(c, "⏳ پرداخت قبلی شما در حال بررسی است. لطفاً تا اعلام نتیجه صبر کنید.")
	}
	q, err := b.svc.ChooseCourse(ctx, user.ID, code)
	if err != nil {
		b.logger.Warn("Course choice failed", zap.String("user_id", user.ID), zap.String("course", string(code)), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	return b.show(c, PaymentMenu(q, b.cfg.Payment.CardNumber, b.cfg.Payment.CardHolder))
}

func (b *Bot) startCouponCode(ctx context.Context, c tele.Context, user *models.User) error {
	if _, ok := course.Lookup(course.Code(user.PendingCourse)); !ok {
		return b.sendStatusMenu(ctx, c, user.ID)
	}
	if err := b.svc.SetStep(ctx, user.ID, models.StepCouponCode); err != nil {
		b.logger.Error("Failed to update step", zap.String("user_id", user.ID), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	return c.Send("🏷️ کد تخفیف خود را وارد کنید:")
}

func (b *Bot) handleCouponCode(ctx context.Context, c tele.Context, user *models.User, text string) error {
	q, err := b.svc.ApplyCoupon(ctx, user.ID, text)
	switch {
	case errors.Is(err, coupon.ErrInvalid):
		return c.Send("❌ کد تخفیف نامعتبر است. دوباره وارد کنید یا /start را بزنید.")
	case errors.Is(err, coupon.ErrInactive):
		return c.Send("❌ این کد تخفیف غیرفعال است. دوباره وارد کنید یا /start را بزنید.")
	case errors.Is(err, enrollment.ErrNoPendingCourse):
		b.resetStep(ctx, user.ID)
		return b.sendStatusMenu(ctx, c, user.ID)
	case err != nil:
		b.logger.Error("Failed to apply coupon", zap.String("user_id", user.ID), zap.Error(err))
		return c.Send(textGenericError)
	}
	if err := c.Send(fmt.Sprintf("✅ کد تخفیف %s اعمال شد.", q.Coupon)); err != nil {
		return err
	}
	m := PaymentMenu(q, b.cfg.Payment.CardNumber, b.cfg.Payment.CardHolder)
	return c.Send(m.Text, m.Markup())
}

// ── Status screens ────────────────────────────────────────────────────

func (b *Bot) handleMyStatus(ctx context.Context, c tele.Context, id string) error {
	res, user, err := b.svc.Status(ctx, id)
	if err != nil {
		return b.reply(c, textStoreUnavailable)
	}
	return b.show(c, UserStatusMenu(res, user))
}

func (b *Bot) handlePaymentStatus(ctx context.Context, c tele.Context, id string) error {
	res, _, err := b.svc.Status(ctx, id)
	if err != nil {
		return b.reply(c, textStoreUnavailable)
	}
	return b.show(c, PaymentStatusMenu(res))
}

func (b *Bot) handleViewProgram(ctx context.Context, c tele.Context, id string) error {
	res, _, err := b.svc.Status(ctx, id)
	if err != nil {
		return b.reply(c, textStoreUnavailable)
	}
	if res.Tag != status.ProgramReady {
		return b.sendStatusMenu(ctx, c, id)
	}
	plan, err := b.svc.MainPlan(ctx, id)
	switch {
	case errors.Is(err, enrollment.ErrNoPlan):
		plan = nil
	case err != nil:
		b.logger.Warn("Failed to load plan", zap.String("user_id", id), zap.Error(err))
		plan = nil
	default:
		if err := c.Send(planMessage(plan, b.now().Format("2006/01/02 15:04"))); err != nil {
			b.logger.Warn("Failed to send plan", zap.String("user_id", id), zap.String("plan_id", plan.ID), zap.Error(err))
			plan = nil
		}
	}
	return b.show(c, ProgramMenu(res, b.cfg.Contact.Coach, plan))
}

// ── Questionnaire ─────────────────────────────────────────────────────

func (b *Bot) handleContinueQuestionnaire(ctx context.Context, c tele.Context, user *models.User) error {
	if user.PaymentStatus != models.PaymentApproved || user.QuestionnaireCompleted {
		return b.sendStatusMenu(ctx, c, user.ID)
	}
	return b.show(c, QuestionMenu(enrollment.CurrentStep(user)))
}

func (b *Bot) handleRestartQuestionnaire(ctx context.Context, c tele.Context, user *models.User) error {
	if _, err := b.svc.ResetQuestionnaire(ctx, user.ID); err != nil {
		if errors.Is(err, enrollment.ErrNotInQuestionnaire) {
			return b.sendStatusMenu(ctx, c, user.ID)
		}
		b.logger.Error("Failed to reset questionnaire", zap.String("user_id", user.ID), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	return b.show(c, QuestionMenu(1))
}

func (b *Bot) handleAnswer(ctx context.Context, c tele.Context, id, answer string) error {
	res, err := b.svc.Answer(ctx, id, answer)

	var verr *questionnaire.ValidationError
	switch {
	case errors.As(err, &verr):
		m := QuestionMenu(res.Step)
		return c.Send("❌ "+verr.Message+"\n\n"+m.Text, m.Markup())
	case errors.Is(err, enrollment.ErrNotInQuestionnaire):
		return b.sendStatusMenu(ctx, c, id)
	case errors.Is(err, status.ErrStoreUnavailable):
		return b.reply(c, textStoreUnavailable)
	case err != nil:
		b.logger.Error("Failed to record answer", zap.String("user_id", id), zap.Error(err))
		return b.reply(c, textGenericError)
	}

	if !res.Done {
		return b.show(c, QuestionMenu(res.Step))
	}

	summary := fmt.Sprintf("📝 پرسشنامه تکمیل شد\n\n👤 کاربر: %s\n🆔 User ID: %s\n📚 دوره: %s\n\n%s",
		res.User.Name, res.User.ID, course.Label(course.Code(res.User.CourseSelected)), questionnaire.Summary(res.User.Answers))
	b.notifyAdmins(ctx, func(admin string) error {
		_, err := b.out.Send(chatID(admin), summary)
		return err
	})
	return b.show(c, CompletedMenu())
}

// ── Admin payment review ──────────────────────────────────────────────

func (b *Bot) handleApprove(ctx context.Context, c tele.Context, admin *models.User, paymentID string) error {
	if !b.isAdmin(ctx, admin.ID) {
		return c.Send(textNoAccess)
	}
	p, user, err := b.svc.Approve(ctx, paymentID, admin.ID)
	if err != nil {
		return b.reviewFailed(c, paymentID, err)
	}

	if _, err := b.out.Send(chatID(user.ID), questionnaireIntroText); err != nil {
		b.logger.Warn("Failed to notify user", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		m := QuestionMenu(1)
		_, _ = b.out.Send(chatID(user.ID), m.Text, m.Markup())
	}

	// Editing the review message drops its buttons.
	return b.reply(c, fmt.Sprintf("✅ پرداخت تایید شد.\n\n🆔 User ID: %s\n📚 دوره: %s\n🔖 شناسه پرداخت: %s",
		user.ID, course.Label(course.Code(p.Course)), p.ID))
}

func (b *Bot) handleReject(ctx context.Context, c tele.Context, admin *models.User, paymentID string) error {
	if !b.isAdmin(ctx, admin.ID) {
		return c.Send(textNoAccess)
	}
	p, user, err := b.svc.Reject(ctx, paymentID, admin.ID, "")
	if err != nil {
		return b.reviewFailed(c, paymentID, err)
	}

	res, rerr := enrollment.ResolveUser(user)
	if rerr == nil {
		m := StatusMenu(res, user.Name)
		_, err = b.out.Send(chatID(user.ID), m.Text, m.Markup())
	} else {
		_, err = b.out.Send(chatID(user.ID), "❌ متاسفانه پرداخت شما تایید نشد. لطفاً با پشتیبانی تماس بگیرید.")
	}
	if err != nil {
		b.logger.Warn("Failed to notify user", zap.String("user_id", user.ID), zap.Error(err))
	}

	return b.reply(c, fmt.Sprintf("❌ پرداخت رد شد.\n\n🆔 User ID: %s\n🔖 شناسه پرداخت: %s", user.ID, p.ID))
}

func (b *Bot) reviewFailed(c tele.Context, paymentID string, err error) error {
	switch {
	case errors.Is(err, enrollment.ErrNotPending):
		return b.reply(c, "⚠️ این پرداخت قبلاً بررسی شده است.")
	case errors.Is(err, enrollment.ErrUnknownUser):
		return b.reply(c, "⚠️ کاربر این پرداخت یافت نشد.")
	default:
		if isNotFound(err) {
			return b.reply(c, "⚠️ پرداخت یافت نشد.")
		}
		b.logger.Error("Payment review failed", zap.String("payment_id", paymentID), zap.Error(err))
		return b.reply(c, textGenericError)
	}
}
