package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"coachbot/internal/coupon"
	"coachbot/internal/export"
	"coachbot/internal/models"
	"coachbot/internal/pkg/utils"
	"coachbot/internal/repository"
)

const pendingListLimit = 10

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// isAdmin reports whether id is a configured super admin or a stored admin.
func (b *Bot) isAdmin(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	if b.cfg.Bot.IsSuperAdmin(id) {
		return true
	}
	ok, err := b.repo.IsAdmin(ctx, id)
	if err != nil {
		b.logger.Warn("Admin lookup failed", zap.String("user_id", id), zap.Error(err))
		return false
	}
	return ok
}

func (b *Bot) adminOnly(ctx context.Context, c tele.Context, user *models.User, fn func() error) error {
	if !b.isAdmin(ctx, user.ID) {
		return c.Send(textNoAccess)
	}
	return fn()
}

// ── Commands ──────────────────────────────────────────────────────────

func (b *Bot) handleAdmin(c tele.Context) error {
	ctx, cancel := opContext()
	defer cancel()

	if !b.isAdmin(ctx, senderID(c)) {
		return c.Send(textNoAccess)
	}
	m := AdminMenu()
	return c.Send(m.Text, m.Markup())
}

func (b *Bot) handleAddAdmin(c tele.Context) error {
	ctx, cancel := opContext()
	defer cancel()

	id := senderID(c)
	if !b.cfg.Bot.IsSuperAdmin(id) {
		return c.Send("❌ فقط ادمین اصلی می‌تواند ادمین اضافه کند.")
	}
	args := c.Args()
	if len(args) != 1 || !utils.IsNumeric(utils.ConvertPersianToEnglish(args[0])) {
		return c.Send("استفاده: /add_admin USER_ID")
	}
	target := utils.ConvertPersianToEnglish(args[0])
	if b.isAdmin(ctx, target) {
		return c.Send("ℹ️ این کاربر از قبل ادمین است.")
	}
	if err := b.repo.AddAdmin(ctx, &models.Admin{UserID: target, AddedBy: id, AddedAt: b.now()}); err != nil {
		b.logger.Error("Failed to add admin", zap.String("admin_id", target), zap.Error(err))
		return c.Send(textGenericError)
	}
	b.logger.Info("Admin added", zap.String("admin_id", target), zap.String("by", id))
	return c.Send(fmt.Sprintf("✅ کاربر %s به عنوان ادمین اضافه شد.", target))
}

func (b *Bot) handleRemoveAdmin(c tele.Context) error {
	ctx, cancel := opContext()
	defer cancel()

	id := senderID(c)
	if !b.cfg.Bot.IsSuperAdmin(id) {
		return c.Send("❌ فقط ادمین اصلی می‌تواند ادمین حذف کند.")
	}
	args := c.Args()
	if len(args) != 1 {
		return c.Send("استفاده: /remove_admin USER_ID")
	}
	target := utils.ConvertPersianToEnglish(args[0])
	if b.cfg.Bot.IsSuperAdmin(target) {
		return c.Send("❌ ادمین اصلی قابل حذف نیست.")
	}
	err := b.repo.RemoveAdmin(ctx, target)
	switch {
	case isNotFound(err):
		return c.Send("⚠️ این کاربر ادمین نیست.")
	case err != nil:
		b.logger.Error("Failed to remove admin", zap.String("admin_id", target), zap.Error(err))
		return c.Send(textGenericError)
	}
	b.logger.Info("Admin removed", zap.String("admin_id", target), zap.String("by", id))
	return c.Send(fmt.Sprintf("✅ کاربر %s از لیست ادمین‌ها حذف شد.", target))
}

func (b *Bot) handleCoupons(c tele.Context) error {
	ctx, cancel := opContext()
	defer cancel()

	if !b.isAdmin(ctx, senderID(c)) {
		return c.Send(textNoAccess)
	}
	return b.sendCoupons(ctx, c)
}

// handleAddCoupon handles "/add_coupon CODE PERCENT [description]".
func (b *Bot) handleAddCoupon(c tele.Context) error {
	ctx, cancel := opContext()
	defer cancel()

	if !b.isAdmin(ctx, senderID(c)) {
		return c.Send(textNoAccess)
	}
	args := c.Args()
	if len(args) < 2 {
		return c.Send("استفاده: /add_coupon CODE PERCENT [توضیحات]")
	}
	percent := utils.ParseInt(utils.ConvertPersianToEnglish(strings.TrimSuffix(args[1], "%")), 0)
	cp, err := coupon.New(args[0], percent, strings.Join(args[2:], " "))
	if err != nil {
		return c.Send("❌ کد یا درصد تخفیف نامعتبر است. درصد باید بین ۱ تا ۱۰۰ باشد.")
	}
	if existing, err := b.repo.GetCoupon(ctx, cp.Code); err == nil {
		cp.UsageCount = existing.UsageCount
		cp.CreatedAt = existing.CreatedAt
	}
	if err := b.repo.PutCoupon(ctx, &cp); err != nil {
		b.logger.Error("Failed to save coupon", zap.String("coupon", cp.Code), zap.Error(err))
		return c.Send(textGenericError)
	}
	return c.Send(fmt.Sprintf("✅ کد تخفیف %s با %d%% تخفیف ثبت شد.", cp.Code, cp.DiscountPercent))
}

func (b *Bot) handleToggleCoupon(c tele.Context) error {
	ctx, cancel := opContext()
	defer cancel()

	if !b.isAdmin(ctx, senderID(c)) {
		return c.Send(textNoAccess)
	}
	args := c.Args()
	if len(args) != 1 {
		return c.Send("استفاده: /toggle_coupon CODE")
	}
	return b.toggleCoupon(ctx, c, args[0])
}

// ── Panel actions ─────────────────────────────────────────────────────

func (b *Bot) sendCoupons(ctx context.Context, c tele.Context) error {
	coupons, err := b.repo.ListCoupons(ctx)
	if err != nil {
		b.logger.Error("Failed to list coupons", zap.Error(err))
		return b.reply(c, textGenericError)
	}
	return b.show(c, CouponsMenu(coupons))
}

func (b *Bot) toggleCoupon(ctx context.Context, c tele.Context, code string) error {
	cp, err := b.repo.GetCoupon(ctx, coupon.Normalize(code))
	if isNotFound(err) {
		return b.reply(c, "⚠️ کد تخفیف یافت نشد.")
	}
	if err != nil {
		b.logger.Error("Failed to load coupon", zap.String("coupon", code), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	cp.Active = !cp.Active
	if err := b.repo.PutCoupon(ctx, cp); err != nil {
		b.logger.Error("Failed to save coupon", zap.String("coupon", cp.Code), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	b.logger.Info("Coupon toggled", zap.String("coupon", cp.Code), zap.Bool("active", cp.Active))
	return b.sendCoupons(ctx, c)
}

func (b *Bot) sendStats(ctx context.Context, c tele.Context) error {
	st, err := b.svc.Stats(ctx)
	if err != nil {
		b.logger.Error("Failed to compute stats", zap.Error(err))
		return b.reply(c, textGenericError)
	}
	return b.show(c, StatsMenu(st))
}

func (b *Bot) sendPendingPayments(ctx context.Context, c tele.Context) error {
	payments, err := b.svc.Payments(ctx, models.PaymentPending)
	if err != nil {
		b.logger.Error("Failed to list payments", zap.Error(err))
		return b.reply(c, textGenericError)
	}
	if len(payments) == 0 {
		return b.reply(c, "✅ هیچ پرداختی در انتظار تایید نیست.")
	}

	for i := range payments {
		if i == pendingListLimit {
			break
		}
		p := &payments[i]
		user, _ := b.svc.User(ctx, p.UserID)
		m := ReviewMenu(p, user)
		if err := c.Send(m.Text, m.Markup()); err != nil {
			return err
		}
	}
	return c.Send(fmt.Sprintf("⏳ %d پرداخت در انتظار تایید.", len(payments)))
}

// sendExport builds one dataset export and sends it as a document.
func (b *Bot) sendExport(ctx context.Context, c tele.Context, dataset, format string) error {
	table, err := export.Build(ctx, b.svc, dataset)
	if err != nil {
		b.logger.Error("Failed to build export", zap.String("dataset", dataset), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	data, err := table.Encode(format)
	if err != nil {
		b.logger.Error("Failed to encode export", zap.String("dataset", dataset), zap.String("format", format), zap.Error(err))
		return b.reply(c, textGenericError)
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: export.FileName(dataset, format, b.now()),
		Caption:  fmt.Sprintf("📄 خروجی %s (%d ردیف)", exportLabel(dataset), len(table.Rows)),
	}
	return c.Send(doc)
}
