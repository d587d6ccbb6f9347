package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	telemw "gopkg.in/telebot.v3/middleware"

	"coachbot/internal/config"
	"coachbot/internal/course"
	"coachbot/internal/enrollment"
	"coachbot/internal/models"
	"coachbot/internal/repository"
	"coachbot/internal/status"
)

const opTimeout = 10 * time.Second

// sender delivers messages outside of an update context (admin and user
// notifications). *tele.Bot satisfies it.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// chatID addresses a chat by its stored string ID.
type chatID string

func (c chatID) Recipient() string { return string(c) }

// AdminRepo bundles the stores the admin handlers need.
type AdminRepo interface {
	repository.AdminStore
	repository.CouponStore
}

// Bot wraps the telebot instance and handlers.
type Bot struct {
	tb         *tele.Bot
	webhook    *tele.Webhook
	useWebhook bool
	cfg        *config.Config
	svc        *enrollment.Service
	repo       AdminRepo
	out        sender
	logger     *zap.Logger
	now        func() time.Time
}

// New creates and configures a new Bot instance.
func New(cfg *config.Config, svc *enrollment.Service, repo AdminRepo, logger *zap.Logger) (*Bot, error) {
	useWebhook := cfg.Bot.ResolvedUpdateMode() == config.UpdateModeWebhook

	var poller tele.Poller
	var webhook *tele.Webhook
	if useWebhook {
		if strings.TrimSpace(cfg.Bot.WebhookURL) == "" {
			return nil, fmt.Errorf("BOT_WEBHOOK_URL is required when BOT_UPDATE_MODE=webhook")
		}
		webhook = &tele.Webhook{
			Listen:      "", // mounted on Echo instead of telebot's own server
			SecretToken: cfg.Bot.WebhookSecret,
			Endpoint:    &tele.WebhookEndpoint{PublicURL: cfg.Bot.WebhookURL},
		}
		poller = webhook
	} else {
		poller = &tele.LongPoller{Timeout: 10 * time.Second}
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: poller,
		OnError: func(err error, c tele.Context) {
			logger.Error("telebot error", zap.Error(err))
		},
	}

	tb, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot: %w", err)
	}

	b := newBot(cfg, svc, repo, tb, logger)
	b.tb = tb
	b.webhook = webhook
	b.useWebhook = useWebhook
	b.registerHandlers()

	return b, nil
}

func newBot(cfg *config.Config, svc *enrollment.Service, repo AdminRepo, out sender, logger *zap.Logger) *Bot {
	return &Bot{
		cfg:    cfg,
		svc:    svc,
		repo:   repo,
		out:    out,
		logger: logger,
		now:    time.Now,
	}
}

// GetTelebot returns the underlying telebot instance.
func (b *Bot) GetTelebot() *tele.Bot {
	return b.tb
}

// WebhookHandler returns the webhook handler for mounting on Echo.
// Returns nil when running in long-polling mode.
func (b *Bot) WebhookHandler() http.Handler {
	if b.webhook == nil {
		return nil
	}
	return b.webhook
}

// Start begins polling/webhook processing. It blocks until Stop.
func (b *Bot) Start() {
	if b.useWebhook {
		b.logger.Info("Starting Telegram bot", zap.String("mode", "webhook"), zap.String("webhook_url", b.cfg.Bot.WebhookURL))
	} else {
		// Long polling requires webhook to be removed first.
		if err := b.tb.RemoveWebhook(true); err != nil {
			b.logger.Warn("Failed to remove webhook before long polling", zap.Error(err))
		}
		b.logger.Info("Starting Telegram bot", zap.String("mode", "polling"))
	}
	b.tb.Start()
}

// Stop gracefully shuts down the bot.
func (b *Bot) Stop() {
	b.tb.Stop()
}

// registerHandlers sets up all bot message and callback handlers.
func (b *Bot) registerHandlers() {
	b.tb.Use(telemw.Recover(func(err error, _ tele.Context) {
		b.logger.Error("Handler panic", zap.Error(err))
	}))

	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle("/id", b.handleID)
	b.tb.Handle("/admin", b.handleAdmin)
	b.tb.Handle("/add_admin", b.handleAddAdmin)
	b.tb.Handle("/remove_admin", b.handleRemoveAdmin)
	b.tb.Handle("/coupons", b.handleCoupons)
	b.tb.Handle("/add_coupon", b.handleAddCoupon)
	b.tb.Handle("/toggle_coupon", b.handleToggleCoupon)
	b.tb.Handle(tele.OnText, b.handleText)
	b.tb.Handle(tele.OnPhoto, b.handleReceipt)
	b.tb.Handle(tele.OnDocument, b.handleReceipt)
	b.tb.Handle(tele.OnCallback, b.handleCallback)
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func senderID(c tele.Context) string {
	if u := c.Sender(); u != nil {
		return strconv.FormatInt(u.ID, 10)
	}
	return ""
}

// enter records the interaction and applies the flood guard. A nil user
// means the update was already answered.
func (b *Bot) enter(ctx context.Context, c tele.Context) (*models.User, error) {
	tu := c.Sender()
	if tu == nil {
		return nil, nil
	}
	name := strings.TrimSpace(tu.FirstName + " " + tu.LastName)
	user, err := b.svc.Touch(ctx, strconv.FormatInt(tu.ID, 10), name, tu.Username)
	if err != nil {
		b.logger.Error("Failed to record interaction", zap.Int64("user_id", tu.ID), zap.Error(err))
		return nil, b.reply(c, textStoreUnavailable)
	}
	if enrollment.Flooded(user) {
		if user.MessageCount == enrollment.FloodLimit+1 {
			return nil, b.reply(c, textFlood)
		}
		return nil, nil
	}
	return user, nil
}

// reply answers in place for callbacks and with a new message otherwise.
func (b *Bot) reply(c tele.Context, what interface{}, opts ...interface{}) error {
	if c.Callback() != nil {
		return c.EditOrSend(what, opts...)
	}
	return c.Send(what, opts...)
}

func (b *Bot) show(c tele.Context, m Menu) error {
	return b.reply(c, m.Text, m.Markup())
}

// ── /start ────────────────────────────────────────────────────────────

func (b *Bot) handleStart(c tele.Context) error {
	ctx, cancel := opContext()
	defer cancel()

	user, err := b.enter(ctx, c)
	if user == nil {
		return err
	}
	if user.Step != models.StepNone {
		b.resetStep(ctx, user.ID)
	}
	return b.sendStatusMenu(ctx, c, user.ID)
}

// resetStep clears a pending input step. A failure only leaves the old step
// in place, so it is logged and the update carries on.
func (b *Bot) resetStep(ctx context.Context, id string) {
	if err := b.svc.SetStep(ctx, id, models.StepNone); err != nil {
		b.logger.Warn("Failed to reset step", zap.String("user_id", id), zap.Error(err))
	}
}

func (b *Bot) handleID(c tele.Context) error {
	return c.Send(fmt.Sprintf("🆔 شناسه شما: %s", senderID(c)))
}

// sendStatusMenu resolves the conversation status and renders its menu.
func (b *Bot) sendStatusMenu(ctx context.Context, c tele.Context, id string) error {
	res, user, err := b.svc.Status(ctx, id)
	if err != nil {
		if errors.Is(err, status.ErrStoreUnavailable) {
			return b.reply(c, textStoreUnavailable)
		}
		b.logger.Error("Status lookup failed", zap.String("user_id", id), zap.Error(err))
		return b.reply(c, textGenericError)
	}
	name := ""
	if user != nil {
		name = user.Name
	}
	return b.show(c, StatusMenu(res, name))
}

// ── Text routing ──────────────────────────────────────────────────────

func (b *Bot) handleText(c tele.Context) error {
	ctx, cancel := opContext()
	defer cancel()

	user, err := b.enter(ctx, c)
	if user == nil {
		return err
	}

	text := strings.TrimSpace(c.Text())
	if _, ok := uploadTarget(user); ok && b.isAdmin(ctx, user.ID) {
		return c.Send(textPlanUploadPrompt)
	}
	switch {
	case user.Step == models.StepCouponCode:
		return b.handleCouponCode(ctx, c, user, text)
	case user.PaymentStatus == models.PaymentApproved && !user.QuestionnaireCompleted:
		return b.handleAnswer(ctx, c, user.ID, text)
	default:
		return b.sendStatusMenu(ctx, c, user.ID)
	}
}

// ── Callback queries ──────────────────────────────────────────────────

func (b *Bot) handleCallback(c tele.Context) error {
	ctx, cancel := opContext()
	defer cancel()

	_ = c.Respond()

	user, err := b.enter(ctx, c)
	if user == nil {
		return err
	}
	data := strings.TrimSpace(c.Callback().Data)

	switch {
	case data == cbBackToMain:
		if user.Step != models.StepNone {
			b.resetStep(ctx, user.ID)
		}
		return b.sendStatusMenu(ctx, c, user.ID)

	case data == cbInPerson:
		return b.show(c, CategoryMenu(course.InPerson))
	case data == cbOnline:
		return b.show(c, CategoryMenu(course.Online))
	case data == cbNewCourse:
		return b.show(c, NewCourseMenu())

	case strings.HasPrefix(data, cbPaymentPrefix):
		return b.handleChooseCourse(ctx, c, user, course.Code(strings.TrimPrefix(data, cbPaymentPrefix)))
	case data == cbCoupon:
		return b.startCouponCode(ctx, c, user)

	case data == cbMyStatus:
		return b.handleMyStatus(ctx, c, user.ID)
	case data == cbCheckPayment:
		return b.handlePaymentStatus(ctx, c, user.ID)

	case data == cbContinueQuestions:
		return b.handleContinueQuestionnaire(ctx, c, user)
	case data == cbRestartQuestions:
		return b.handleRestartQuestionnaire(ctx, c, user)
	case strings.HasPrefix(data, cbAnswerPrefix):
		return b.handleAnswer(ctx, c, user.ID, strings.TrimPrefix(data, cbAnswerPrefix))

	case data == cbViewProgram:
		return b.handleViewProgram(ctx, c, user.ID)
	case data == cbContactSupport:
		return b.show(c, SupportMenu(b.cfg.Contact.Support))
	case data == cbContactCoach:
		return b.show(c, CoachMenu(b.cfg.Contact.Coach))

	// Admin payment review
	case strings.HasPrefix(data, cbApprovePrefix):
		return b.handleApprove(ctx, c, user, strings.TrimPrefix(data, cbApprovePrefix))
	case strings.HasPrefix(data, cbRejectPrefix):
		return b.handleReject(ctx, c, user, strings.TrimPrefix(data, cbRejectPrefix))

	// Admin panel
	case data == cbAdminPanel:
		return b.adminOnly(ctx, c, user, func() error { return b.show(c, AdminMenu()) })
	case data == cbAdminPending:
		return b.adminOnly(ctx, c, user, func() error { return b.sendPendingPayments(ctx, c) })
	case data == cbAdminStats:
		return b.adminOnly(ctx, c, user, func() error { return b.sendStats(ctx, c) })
	case data == cbAdminCoupons:
		return b.adminOnly(ctx, c, user, func() error { return b.sendCoupons(ctx, c) })
	case strings.HasPrefix(data, cbAdminTogglePrefix):
		code := strings.TrimPrefix(data, cbAdminTogglePrefix)
		return b.adminOnly(ctx, c, user, func() error { return b.toggleCoupon(ctx, c, code) })
	case data == cbAdminExports:
		return b.adminOnly(ctx, c, user, func() error { return b.show(c, ExportMenu()) })
	case strings.HasPrefix(data, cbAdminExportPrefix):
		dataset, format, ok := parseExportData(data)
		if !ok {
			return nil
		}
		return b.adminOnly(ctx, c, user, func() error { return b.sendExport(ctx, c, dataset, format) })

	// Training plans
	case data == cbAdminPlans:
		return b.adminOnly(ctx, c, user, func() error { return b.sendPlanUsers(ctx, c) })
	case strings.HasPrefix(data, cbPlanUserPrefix):
		id := strings.TrimPrefix(data, cbPlanUserPrefix)
		return b.adminOnly(ctx, c, user, func() error { return b.sendPlanUser(ctx, c, user, id) })
	case strings.HasPrefix(data, cbPlanUploadPrefix):
		id := strings.TrimPrefix(data, cbPlanUploadPrefix)
		return b.adminOnly(ctx, c, user, func() error { return b.startPlanUpload(ctx, c, user, id) })
	case strings.HasPrefix(data, cbPlanSendPrefix):
		id := strings.TrimPrefix(data, cbPlanSendPrefix)
		return b.adminOnly(ctx, c, user, func() error { return b.sendPlanToUser(ctx, c, user, id) })
	case strings.HasPrefix(data, cbPlanMainPrefix):
		id := strings.TrimPrefix(data, cbPlanMainPrefix)
		return b.adminOnly(ctx, c, user, func() error { return b.setMainPlan(ctx, c, user, id) })
	case strings.HasPrefix(data, cbPlanDeletePrefix):
		id := strings.TrimPrefix(data, cbPlanDeletePrefix)
		return b.adminOnly(ctx, c, user, func() error { return b.deletePlan(ctx, c, user, id) })

	default:
		if cr, ok := course.Lookup(course.Code(data)); ok {
			return b.show(c, CourseMenu(cr))
		}
		b.logger.Debug("Unknown callback", zap.String("data", data), zap.String("user", user.ID))
		return nil
	}
}

// ── Receipts ──────────────────────────────────────────────────────────

func (b *Bot) handleReceipt(c tele.Context) error {
	ctx, cancel := opContext()
	defer cancel()

	user, err := b.enter(ctx, c)
	if user == nil {
		return err
	}

	if target, ok := uploadTarget(user); ok && b.isAdmin(ctx, user.ID) {
		return b.handlePlanUpload(ctx, c, user, target)
	}

	msg := c.Message()
	var receipt tele.Sendable
	var fileID string
	switch {
	case msg != nil && msg.Photo != nil:
		fileID = msg.Photo.FileID
		receipt = &tele.Photo{File: tele.File{FileID: fileID}}
	case msg != nil && msg.Document != nil:
		fileID = msg.Document.FileID
		receipt = &tele.Document{File: tele.File{FileID: fileID}, FileName: msg.Document.FileName}
	default:
		return nil
	}

	payment, err := b.svc.SubmitReceipt(ctx, user.ID, fileID)
	switch {
	case errors.Is(err, enrollment.ErrNoPendingCourse):
		return c.Send("⚠️ لطفاً ابتدا یک دوره انتخاب کنید و سپس فیش واریز را ارسال نمایید.")
	case errors.Is(err, enrollment.ErrAlreadyPending):
		return c.Send("⏳ فیش قبلی شما در حال بررسی است. لطفاً تا اعلام نتیجه صبر کنید.")
	case errors.Is(err, status.ErrStoreUnavailable):
		return c.Send(textStoreUnavailable)
	case err != nil:
		b.logger.Error("Failed to submit receipt", zap.String("user_id", user.ID), zap.Error(err))
		return c.Send(textGenericError)
	}

	review := ReviewMenu(payment, user)
	b.notifyAdmins(ctx, func(admin string) error {
		if _, err := b.out.Send(chatID(admin), receipt); err != nil {
			return err
		}
		_, err := b.out.Send(chatID(admin), review.Text, review.Markup())
		return err
	})

	return c.Send(fmt.Sprintf("✅ فیش واریز شما دریافت شد!\n\n📚 دوره: %s\n💰 مبلغ: %s\n\nفیش شما در حال بررسی است و به زودی نتیجه اعلام می‌شود. ⏳",
		course.Label(course.Code(payment.Course)), course.FormatPrice(payment.Price)))
}

// adminIDs returns configured super admins followed by stored admins.
func (b *Bot) adminIDs(ctx context.Context) []string {
	ids := append([]string(nil), b.cfg.Bot.AdminIDs...)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	admins, err := b.repo.ListAdmins(ctx)
	if err != nil {
		b.logger.Warn("Failed to list admins", zap.Error(err))
	}
	for _, a := range admins {
		if !seen[a.UserID] {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}
	return ids
}

func (b *Bot) notifyAdmins(ctx context.Context, send func(admin string) error) {
	for _, admin := range b.adminIDs(ctx) {
		if err := send(admin); err != nil {
			b.logger.Warn("Failed to notify admin", zap.String("admin_id", admin), zap.Error(err))
		}
	}
}
