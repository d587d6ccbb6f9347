package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"coachbot/internal/config"
	"coachbot/internal/course"
	"coachbot/internal/enrollment"
	"coachbot/internal/export"
	"coachbot/internal/models"
	"coachbot/internal/repository"
	"coachbot/internal/status"
)

const superAdmin = "1"

type sent struct {
	to     string
	what   interface{}
	opts   []interface{}
	edited bool
}

func (s sent) text() string {
	if str, ok := s.what.(string); ok {
		return str
	}
	return ""
}

func (s sent) callbacks() []string {
	var out []string
	for _, o := range s.opts {
		if m, ok := o.(*tele.ReplyMarkup); ok {
			for _, r := range m.InlineKeyboard {
				for _, b := range r {
					out = append(out, b.Data)
				}
			}
		}
	}
	return out
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{to: to.Recipient(), what: what, opts: opts})
	return &tele.Message{}, nil
}

func (f *fakeSender) to(id string) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.sent {
		if s.to == id {
			out = append(out, s)
		}
	}
	return out
}

// fakeContext implements the parts of tele.Context the handlers use.
type fakeContext struct {
	tele.Context
	sender   *tele.User
	message  *tele.Message
	callback *tele.Callback
	replies  []sent
}

func (c *fakeContext) Sender() *tele.User { return c.sender }
func (c *fakeContext) Message() *tele.Message { return c.message }
func (c *fakeContext) Callback() *tele.Callback { return c.callback }
func (c *fakeContext) Respond(...*tele.CallbackResponse) error { return nil }

func (c *fakeContext) Text() string {
	if c.message == nil {
		return ""
	}
	return c.message.Text
}

func (c *fakeContext) Args() []string {
	if c.message == nil {
		return nil
	}
	return strings.Fields(c.message.Payload)
}

func (c *fakeContext) Send(what interface{}, opts ...interface{}) error {
	c.replies = append(c.replies, sent{what: what, opts: opts})
	return nil
}

func (c *fakeContext) EditOrSend(what interface{}, opts ...interface{}) error {
	c.replies = append(c.replies, sent{what: what, opts: opts, edited: c.callback != nil})
	return nil
}

func (c *fakeContext) last(t *testing.T) sent {
	t.Helper()
	require.NotEmpty(t, c.replies)
	return c.replies[len(c.replies)-1]
}

type harness struct {
	t     *testing.T
	bot   *Bot
	svc   *enrollment.Service
	store repository.Store
	out   *fakeSender
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := repository.NewJSONFileStore(filepath.Join(t.TempDir(), "bot_data.json"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.PutCoupon(ctx, &models.Coupon{Code: "WELCOME10", DiscountPercent: 10, Active: true}))

	cfg := &config.Config{
		Bot:     config.BotConfig{AdminIDs: []string{superAdmin}},
		Payment: config.PaymentConfig{CardNumber: "6037-9911-0000-0000", CardHolder: "Coach"},
		Contact: config.ContactConfig{Support: "@support", Coach: "@coach"},
	}
	svc := enrollment.NewService(store, zap.NewNop())
	out := &fakeSender{}
	return &harness{
		t:     t,
		bot:   newBot(cfg, svc, store, out, zap.NewNop()),
		svc:   svc,
		store: store,
		out:   out,
	}
}

func tgUser(id int64) *tele.User {
	return &tele.User{ID: id, FirstName: "User", Username: "user"}
}

func (h *harness) text(id int64, text string) *fakeContext {
	h.t.Helper()
	c := &fakeContext{sender: tgUser(id), message: &tele.Message{Text: text}}
	require.NoError(h.t, h.bot.handleText(c))
	return c
}

func (h *harness) command(id int64, handler tele.HandlerFunc, payload string) *fakeContext {
	h.t.Helper()
	c := &fakeContext{sender: tgUser(id), message: &tele.Message{Payload: payload}}
	require.NoError(h.t, handler(c))
	return c
}

func (h *harness) press(id int64, data string) *fakeContext {
	h.t.Helper()
	c := &fakeContext{sender: tgUser(id), callback: &tele.Callback{Data: data}, message: &tele.Message{}}
	require.NoError(h.t, h.bot.handleCallback(c))
	return c
}

func (h *harness) photo(id int64, fileID string) *fakeContext {
	h.t.Helper()
	c := &fakeContext{sender: tgUser(id), message: &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: fileID}}}}
	require.NoError(h.t, h.bot.handleReceipt(c))
	return c
}

func (h *harness) document(id int64, fileID, name, caption string) *fakeContext {
	h.t.Helper()
	c := &fakeContext{sender: tgUser(id), message: &tele.Message{
		Document: &tele.Document{File: tele.File{FileID: fileID}, FileName: name},
		Caption:  caption,
	}}
	require.NoError(h.t, h.bot.handleReceipt(c))
	return c
}

// ready stores a user whose payment is approved and questionnaire done.
func (h *harness) ready(id string, code course.Code) {
	h.t.Helper()
	require.NoError(h.t, h.store.PutUser(context.Background(), &models.User{
		ID:                     id,
		Name:                   "Sara",
		Step:                   models.StepNone,
		CourseSelected:         string(code),
		CourseEverSelected:     true,
		PaymentStatus:          models.PaymentApproved,
		QuestionnaireStep:      17,
		QuestionnaireCompleted: true,
		Answers:                map[string]string{"1": "Sara"},
	}))
}

func (h *harness) step(id string) string {
	h.t.Helper()
	u, err := h.svc.User(context.Background(), id)
	require.NoError(h.t, err)
	return u.Step
}

func (h *harness) status(id string) status.Tag {
	h.t.Helper()
	res, _, err := h.svc.Status(context.Background(), id)
	require.NoError(h.t, err)
	return res.Tag
}

func (h *harness) pendingPaymentID() string {
	h.t.Helper()
	payments, err := h.svc.Payments(context.Background(), models.PaymentPending)
	require.NoError(h.t, err)
	require.Len(h.t, payments, 1)
	return payments[0].ID
}

func TestStart_NewUser(t *testing.T) {
	h := newHarness(t)
	c := h.command(100, h.bot.handleStart, "")

	reply := c.last(t)
	assert.Contains(t, reply.text(), welcomeMessage)
	assert.Equal(t, []string{cbInPerson, cbOnline}, reply.callbacks())
	assert.Equal(t, status.NewUser, h.status("100"))
}

func TestPurchaseAndApproveFlow(t *testing.T) {
	h := newHarness(t)
	h.command(100, h.bot.handleStart, "")

	c := h.press(100, cbOnline)
	assert.Contains(t, c.last(t).callbacks(), string(course.OnlineWeights))

	c = h.press(100, string(course.OnlineWeights))
	assert.Contains(t, c.last(t).callbacks(), cbPaymentPrefix+string(course.OnlineWeights))

	c = h.press(100, cbPaymentPrefix+string(course.OnlineWeights))
	assert.Contains(t, c.last(t).text(), "6037-9911-0000-0000")

	c = h.photo(100, "receipt-1")
	assert.Contains(t, c.last(t).text(), "فیش واریز شما دریافت شد")
	assert.Equal(t, status.PaymentPending, h.status("100"))

	adminMsgs := h.out.to(superAdmin)
	require.Len(t, adminMsgs, 2)
	photo, ok := adminMsgs[0].what.(*tele.Photo)
	require.True(t, ok)
	assert.Equal(t, "receipt-1", photo.FileID)
	paymentID := h.pendingPaymentID()
	assert.Equal(t, []string{cbApprovePrefix + paymentID, cbRejectPrefix + paymentID}, adminMsgs[1].callbacks())

	// a second receipt while pending is refused
	c = h.photo(100, "receipt-2")
	assert.Contains(t, c.last(t).text(), "در حال بررسی")

	// non-admins cannot approve
	c = h.press(100, cbApprovePrefix+paymentID)
	assert.Equal(t, textNoAccess, c.last(t).text())
	assert.Equal(t, status.PaymentPending, h.status("100"))

	c = h.press(1, cbApprovePrefix+paymentID)
	assert.Contains(t, c.last(t).text(), "تایید شد")
	assert.Equal(t, status.QuestionnaireInProgress, h.status("100"))

	userMsgs := h.out.to("100")
	require.Len(t, userMsgs, 2)
	assert.Equal(t, questionnaireIntroText, userMsgs[0].text())
	assert.Equal(t, QuestionMenu(1).Text, userMsgs[1].text())

	// approving twice reports the earlier review
	c = h.press(1, cbApprovePrefix+paymentID)
	assert.Contains(t, c.last(t).text(), "قبلاً بررسی شده")

	c = h.text(100, "Ali Karimi")
	assert.Equal(t, QuestionMenu(2).Text, c.last(t).text())

	c = h.text(100, "12")
	assert.Contains(t, c.last(t).text(), "❌")
	assert.Contains(t, c.last(t).text(), QuestionMenu(2).Text)
}

func TestRejectFlow(t *testing.T) {
	h := newHarness(t)
	h.press(200, cbPaymentPrefix+string(course.InPersonCardio))
	h.photo(200, "receipt")

	c := h.press(1, cbRejectPrefix+h.pendingPaymentID())
	assert.Contains(t, c.last(t).text(), "رد شد")
	assert.Equal(t, status.PaymentRejected, h.status("200"))

	userMsgs := h.out.to("200")
	require.Len(t, userMsgs, 1)
	assert.Contains(t, userMsgs[0].callbacks(), cbPaymentPrefix+string(course.InPersonCardio))
}

func TestCouponFlow(t *testing.T) {
	h := newHarness(t)
	h.press(300, cbPaymentPrefix+string(course.OnlineCombo))

	c := h.press(300, cbCoupon)
	assert.Contains(t, c.last(t).text(), "کد تخفیف")

	c = h.text(300, "nope")
	assert.Contains(t, c.last(t).text(), "نامعتبر")

	c = h.text(300, " welcome10 ")
	require.Len(t, c.replies, 2)
	assert.Contains(t, c.replies[0].text(), "WELCOME10")
	assert.Contains(t, c.replies[1].text(), "WELCOME10")
	assert.NotContains(t, c.replies[1].callbacks(), cbCoupon)

	u, err := h.svc.User(context.Background(), "300")
	require.NoError(t, err)
	assert.Equal(t, models.StepNone, u.Step)
	assert.Equal(t, "WELCOME10", u.PendingCoupon)
}

func TestReceiptWithoutCourse(t *testing.T) {
	h := newHarness(t)
	c := h.photo(400, "receipt")
	assert.Contains(t, c.last(t).text(), "ابتدا یک دوره انتخاب کنید")
	assert.Empty(t, h.out.to(superAdmin))
}

func TestFloodGuard(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < enrollment.FloodLimit; i++ {
		h.text(500, "hi")
	}
	c := h.text(500, "hi")
	assert.Equal(t, textFlood, c.last(t).text())

	c = h.text(500, "hi")
	assert.Empty(t, c.replies, "flood notice is sent once per window")
}

func TestAdminCommands(t *testing.T) {
	h := newHarness(t)

	c := h.command(600, h.bot.handleAdmin, "")
	assert.Equal(t, textNoAccess, c.last(t).text())

	c = h.command(600, h.bot.handleAddAdmin, "700")
	assert.Contains(t, c.last(t).text(), "ادمین اصلی")

	c = h.command(1, h.bot.handleAddAdmin, "600")
	assert.Contains(t, c.last(t).text(), "✅")

	c = h.command(600, h.bot.handleAdmin, "")
	assert.Equal(t, AdminMenu().Text, c.last(t).text())

	c = h.command(1, h.bot.handleRemoveAdmin, superAdmin)
	assert.Contains(t, c.last(t).text(), "قابل حذف نیست")

	c = h.command(1, h.bot.handleRemoveAdmin, "600")
	assert.Contains(t, c.last(t).text(), "✅")

	c = h.command(1, h.bot.handleRemoveAdmin, "600")
	assert.Contains(t, c.last(t).text(), "ادمین نیست")
}

func TestAdminCoupons(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c := h.command(1, h.bot.handleAddCoupon, "summer 15 تابستان")
	assert.Contains(t, c.last(t).text(), "SUMMER")
	cp, err := h.store.GetCoupon(ctx, "SUMMER")
	require.NoError(t, err)
	assert.Equal(t, 15, cp.DiscountPercent)
	assert.True(t, cp.Active)

	c = h.command(1, h.bot.handleAddCoupon, "bad 150")
	assert.Contains(t, c.last(t).text(), "نامعتبر")

	c = h.press(1, cbAdminTogglePrefix+"SUMMER")
	assert.Contains(t, c.last(t).text(), "🔴 SUMMER")
	cp, err = h.store.GetCoupon(ctx, "SUMMER")
	require.NoError(t, err)
	assert.False(t, cp.Active)

	c = h.command(1, h.bot.handleToggleCoupon, "summer")
	assert.Contains(t, c.last(t).text(), "🟢 SUMMER")
}

func TestAdminPanelActions(t *testing.T) {
	h := newHarness(t)
	h.press(800, cbPaymentPrefix+string(course.OnlineCardio))
	h.photo(800, "receipt")

	c := h.press(1, cbAdminPending)
	require.Len(t, c.replies, 2)
	assert.Contains(t, c.replies[0].callbacks(), cbApprovePrefix+h.pendingPaymentID())

	c = h.press(1, cbAdminStats)
	assert.Contains(t, c.last(t).text(), "پرداخت در انتظار: 1")

	c = h.press(1, cbAdminExports)
	assert.Contains(t, c.last(t).callbacks(), exportData(export.DatasetPayments, export.FormatXLSX))

	for _, tt := range []struct{ dataset, format string }{
		{export.DatasetUsers, export.FormatCSV},
		{export.DatasetUsers, export.FormatXLSX},
		{export.DatasetPayments, export.FormatCSV},
		{export.DatasetAnswers, export.FormatXLSX},
	} {
		c = h.press(1, exportData(tt.dataset, tt.format))
		doc, ok := c.last(t).what.(*tele.Document)
		require.True(t, ok, tt.dataset)
		assert.True(t, strings.HasPrefix(doc.FileName, tt.dataset+"_"), doc.FileName)
		assert.True(t, strings.HasSuffix(doc.FileName, "."+tt.format), doc.FileName)
	}

	c = h.press(1, cbAdminExportPrefix+"coupons.csv")
	assert.Empty(t, c.replies, "unknown datasets are ignored")

	c = h.press(800, exportData(export.DatasetPayments, export.FormatCSV))
	assert.Equal(t, textNoAccess, c.last(t).text())

	c = h.press(800, cbAdminStats)
	assert.Equal(t, textNoAccess, c.last(t).text())
}

func TestViewProgramRequiresReadyStatus(t *testing.T) {
	h := newHarness(t)
	c := h.press(900, cbViewProgram)
	assert.Contains(t, c.last(t).callbacks(), cbInPerson, "falls back to the status menu")
}

func TestReviewEditsAdminMessage(t *testing.T) {
	h := newHarness(t)
	h.press(100, cbPaymentPrefix+string(course.OnlineWeights))
	h.photo(100, "receipt")
	paymentID := h.pendingPaymentID()

	c := h.press(1, cbApprovePrefix+paymentID)
	reply := c.last(t)
	assert.True(t, reply.edited, "the review message is replaced")
	assert.Empty(t, reply.callbacks(), "approve and reject buttons are gone")

	c = h.press(1, cbRejectPrefix+paymentID)
	reply = c.last(t)
	assert.True(t, reply.edited)
	assert.Contains(t, reply.text(), "قبلاً بررسی شده")
	assert.Empty(t, reply.callbacks())
}

func TestStartClearsPendingStep(t *testing.T) {
	h := newHarness(t)
	h.press(300, cbPaymentPrefix+string(course.OnlineCombo))
	h.press(300, cbCoupon)
	require.Equal(t, models.StepCouponCode, h.step("300"))

	h.command(300, h.bot.handleStart, "")
	assert.Equal(t, models.StepNone, h.step("300"))

	h.press(300, cbCoupon)
	h.press(300, cbBackToMain)
	assert.Equal(t, models.StepNone, h.step("300"))
}

func TestPlanUploadAndDelivery(t *testing.T) {
	h := newHarness(t)
	h.ready("100", course.OnlineWeights)

	c := h.press(1, cbAdminPlans)
	assert.Contains(t, c.last(t).callbacks(), cbPlanUserPrefix+"100")

	c = h.press(100, cbAdminPlans)
	assert.Equal(t, textNoAccess, c.last(t).text())

	c = h.press(1, cbPlanUserPrefix+"100")
	assert.Contains(t, c.last(t).callbacks(), cbPlanUploadPrefix+"100")

	c = h.press(1, cbPlanUploadPrefix+"100")
	assert.Equal(t, textPlanUploadPrompt, c.last(t).text())
	assert.Equal(t, models.StepPlanUpload+"100", h.step(superAdmin))

	// text is not a plan
	c = h.text(1, "hello")
	assert.Equal(t, textPlanUploadPrompt, c.last(t).text())

	c = h.document(1, "plan-file", "week1.pdf", "هفته اول")
	require.Len(t, c.replies, 2)
	assert.Contains(t, c.replies[0].text(), "هفته اول")
	assert.Equal(t, models.StepNone, h.step(superAdmin))
	assert.Empty(t, h.out.to(superAdmin), "a plan is not a payment receipt")

	plans, err := h.svc.Plans(context.Background(), "100")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	plan := plans[0]
	assert.True(t, plan.Main)
	assert.Equal(t, "week1.pdf", plan.FileName)
	assert.Contains(t, c.replies[1].callbacks(), cbPlanSendPrefix+plan.ID)

	c = h.press(1, cbPlanSendPrefix+plan.ID)
	userMsgs := h.out.to("100")
	require.Len(t, userMsgs, 1)
	doc, ok := userMsgs[0].what.(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, "plan-file", doc.FileID)
	assert.Contains(t, doc.Caption, "هفته اول")
	assert.Contains(t, c.last(t).text(), "ارسال: ")

	// the user sees the plan from the program screen
	c = h.press(100, cbViewProgram)
	require.Len(t, c.replies, 2)
	doc, ok = c.replies[0].what.(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, "plan-file", doc.FileID)
	assert.Contains(t, c.replies[1].text(), "هفته اول")

	c = h.press(1, cbPlanDeletePrefix+plan.ID)
	assert.NotContains(t, c.last(t).callbacks(), cbPlanSendPrefix+plan.ID)

	c = h.press(100, cbViewProgram)
	require.Len(t, c.replies, 1)
	assert.Contains(t, c.last(t).text(), "@coach")
}

func TestPlanUpload_PhotoAndMainSwitch(t *testing.T) {
	h := newHarness(t)
	h.ready("100", course.InPersonWeights)

	h.press(1, cbPlanUploadPrefix+"100")
	h.photo(1, "plan-a")
	h.press(1, cbPlanUploadPrefix+"100")
	h.photo(1, "plan-b")

	plans, err := h.svc.Plans(context.Background(), "100")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	var second models.Plan
	for _, p := range plans {
		assert.Equal(t, models.PlanPhoto, p.ContentType)
		if p.FileID == "plan-b" {
			second = p
		}
	}
	require.False(t, second.Main)

	h.press(1, cbPlanMainPrefix+second.ID)
	main, err := h.svc.MainPlan(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "plan-b", main.FileID)

	c := h.press(100, cbViewProgram)
	photo, ok := c.replies[0].what.(*tele.Photo)
	require.True(t, ok)
	assert.Equal(t, "plan-b", photo.FileID)

	c = h.press(1, cbPlanSendPrefix+"missing")
	assert.Contains(t, c.last(t).text(), "یافت نشد")
}
