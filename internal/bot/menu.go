package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"coachbot/internal/course"
	"coachbot/internal/enrollment"
	"coachbot/internal/export"
	"coachbot/internal/models"
	"coachbot/internal/pkg/utils"
	"coachbot/internal/questionnaire"
	"coachbot/internal/status"
)

// Callback data understood by handleCallback.
const (
	cbInPerson          = "in_person"
	cbOnline            = "online"
	cbPaymentPrefix     = "payment_"
	cbCoupon            = "enter_coupon"
	cbMyStatus          = "my_status"
	cbCheckPayment      = "check_payment_status"
	cbContinueQuestions = "continue_questionnaire"
	cbRestartQuestions  = "restart_questionnaire"
	cbViewProgram       = "view_program"
	cbContactSupport    = "contact_support"
	cbContactCoach      = "contact_coach"
	cbNewCourse         = "new_course"
	cbBackToMain        = "back_to_main"
	cbAnswerPrefix      = "q_answer_"
	cbApprovePrefix     = "approve_payment_"
	cbRejectPrefix      = "reject_payment_"
	cbAdminExports      = "admin_exports"
	cbAdminExportPrefix = "admin_export_"
	cbAdminPending      = "admin_pending"
	cbAdminStats        = "admin_stats"
	cbAdminCoupons      = "admin_coupons"
	cbAdminTogglePrefix = "admin_toggle_coupon_"
	cbAdminPanel        = "admin_panel"
	cbAdminPlans        = "admin_plans"
	cbPlanUserPrefix    = "plan_user_"
	cbPlanUploadPrefix  = "plan_upload_"
	cbPlanSendPrefix    = "plan_send_"
	cbPlanMainPrefix    = "plan_main_"
	cbPlanDeletePrefix  = "plan_del_"
)

const planUsersLimit = 20

const (
	textGenericError       = "❌ خطایی رخ داد. لطفاً چند لحظه بعد دوباره تلاش کنید."
	textStoreUnavailable   = "⚠️ در حال حاضر امکان دسترسی به اطلاعات شما وجود ندارد. لطفاً بعداً دوباره تلاش کنید."
	textFlood              = "⏳ تعداد پیام‌های شما زیاد است. لطفاً یک دقیقه صبر کنید."
	textNoAccess           = "❌ شما دسترسی ادمین ندارید."
	welcomeMessage         = "سلام رفیق خوبم💕\n\nروی هر کدوم از دوره های مدنظرت که کلیک کنی اطلاعاتش برات ارسال میشه تا بتونی مناسب ترینشو متناسب با هدفت انتخاب کنی\n\nو بدون که توی هرکدوم ازینا من کنارتم و بالاسرتم تا بشی اون چیزی که میخوای…"
	questionnaireIntroText = "✅ پرداخت شما تایید شد!\n\nحالا برای شخصی‌سازی برنامه تمرینتان، چند سوال کوتاه از شما می‌پرسیم:"
)

// Button is one inline button.
type Button struct {
	Text string
	Data string
}

// Menu is a rendered message: text plus inline keyboard rows.
type Menu struct {
	Text string
	Rows [][]Button
}

// Markup converts the rows to a telebot inline keyboard.
func (m Menu) Markup() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	for _, row := range m.Rows {
		var btns []tele.InlineButton
		for _, b := range row {
			btns = append(btns, tele.InlineButton{Text: b.Text, Data: b.Data})
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, btns)
	}
	return markup
}

func row(text, data string) []Button {
	return []Button{{Text: text, Data: data}}
}

func greeting(name string) string {
	if strings.TrimSpace(name) == "" {
		name = "رفیق"
	}
	return fmt.Sprintf("سلام %s! 👋\n\n", name)
}

// StatusMenu renders the main menu for a resolved status.
func StatusMenu(res status.Result, name string) Menu {
	switch res.Tag {
	case status.PaymentPending:
		return Menu{
			Text: greeting(name) + fmt.Sprintf("⏳ پرداخت شما برای دوره «%s» در انتظار تایید است.\n\nمی‌توانید وضعیت پرداخت خود را بررسی کنید:", res.CourseLabel),
			Rows: [][]Button{
				row("📊 وضعیت پرداخت", cbCheckPayment),
				row("📞 تماس با پشتیبانی", cbContactSupport),
				row("🔄 دوره جدید", cbNewCourse),
			},
		}
	case status.PaymentRejected:
		m := Menu{
			Text: greeting(name) + fmt.Sprintf("❌ متاسفانه پرداخت شما برای دوره «%s» تایید نشد.\n\nمی‌توانید مجدداً پرداخت کنید یا با پشتیبانی تماس بگیرید:", res.CourseLabel),
		}
		if _, ok := course.Lookup(res.Course); ok {
			m.Rows = append(m.Rows, row("💳 پرداخت مجدد", cbPaymentPrefix+string(res.Course)))
		}
		m.Rows = append(m.Rows,
			row("📞 تماس با پشتیبانی", cbContactSupport),
			row("🔄 دوره جدید", cbNewCourse),
		)
		return m
	case status.QuestionnaireInProgress:
		step := res.ResumeStep
		if step < 1 {
			step = 1
		}
		return Menu{
			Text: greeting(name) + fmt.Sprintf("✅ پرداخت شما تایید شده است.\n📝 پرسشنامه: مرحله %d از %d\n\nلطفاً پرسشنامه را تکمیل کنید تا برنامه شخصی‌سازی شده شما آماده شود:", step, questionnaire.TotalSteps),
			Rows: [][]Button{
				row("📝 ادامه پرسشنامه", cbContinueQuestions),
				row("🔄 شروع مجدد پرسشنامه", cbRestartQuestions),
				row("📊 وضعیت من", cbMyStatus),
			},
		}
	case status.ProgramReady:
		return Menu{
			Text: greeting(name) + fmt.Sprintf("✅ برنامه تمرینی شما برای دوره «%s» آماده است!", res.CourseLabel),
			Rows: [][]Button{
				row("📋 مشاهده برنامه تمرینی", cbViewProgram),
				row("📊 وضعیت من", cbMyStatus),
				row("📞 تماس با مربی", cbContactCoach),
				row("🔄 دوره جدید", cbNewCourse),
			},
		}
	case status.NewUser:
		return Menu{
			Text: greeting(name) + welcomeMessage,
			Rows: [][]Button{
				row("1️⃣ دوره تمرین حضوری", cbInPerson),
				row("2️⃣ دوره تمرین آنلاین", cbOnline),
			},
		}
	default:
		return Menu{
			Text: greeting(name) + "خوش برگشتی! چه کاری می‌تونم برات انجام بدم؟",
			Rows: [][]Button{
				row("1️⃣ دوره تمرین حضوری", cbInPerson),
				row("2️⃣ دوره تمرین آنلاین", cbOnline),
				row("📊 وضعیت من", cbMyStatus),
			},
		}
	}
}

// NewCourseMenu lets a user with history pick another course.
func NewCourseMenu() Menu {
	return Menu{
		Text: "انتخاب دوره جدید:\n\nکدام دوره را می‌خواهید انتخاب کنید؟",
		Rows: [][]Button{
			row("1️⃣ دوره تمرین حضوری", cbInPerson),
			row("2️⃣ دوره تمرین آنلاین", cbOnline),
			row("📊 وضعیت فعلی", cbMyStatus),
		},
	}
}

// CategoryMenu lists the courses of one category.
func CategoryMenu(cat course.Category) Menu {
	title := "🏃 دوره‌های تمرین آنلاین:"
	if cat == course.InPerson {
		title = "🏟️ دوره‌های تمرین حضوری:"
	}
	m := Menu{Text: title}
	for _, c := range course.ByCategory(cat) {
		m.Rows = append(m.Rows, row(c.Button, string(c.Code)))
	}
	m.Rows = append(m.Rows, row("🔙 بازگشت", cbBackToMain))
	return m
}

// CourseMenu shows one course with its pay button.
func CourseMenu(c course.Course) Menu {
	return Menu{
		Text: c.Title + "👇👇👇\n\n" + c.Description,
		Rows: [][]Button{
			row(fmt.Sprintf("💳 پرداخت و ثبت نام (%s)", course.FormatPrice(c.Price)), cbPaymentPrefix+string(c.Code)),
			row("🔙 بازگشت", string(c.Category)),
		},
	}
}

// PaymentMenu shows the card details for a quote.
func PaymentMenu(q enrollment.Quote, cardNumber, cardHolder string) Menu {
	var b strings.Builder
	b.WriteString("برای پرداخت به شماره کارت زیر واریز کنید:\n\n")
	fmt.Fprintf(&b, "📚 دوره: %s\n", q.Course.Title)
	fmt.Fprintf(&b, "💳 شماره کارت: %s\n", cardNumber)
	fmt.Fprintf(&b, "👤 نام صاحب حساب: %s\n", cardHolder)
	if q.Discount > 0 {
		fmt.Fprintf(&b, "🏷️ کد تخفیف %s: %s تخفیف\n", q.Coupon, course.FormatPrice(q.Discount))
	}
	fmt.Fprintf(&b, "💰 مبلغ: %s\n\n", course.FormatPrice(q.Final))
	b.WriteString("بعد از واریز، فیش یا اسکرین شات رو همینجا ارسال کنید تا بررسی شه ✅\n\n⚠️ توجه: فقط فیش واریز رو ارسال کنید")

	m := Menu{Text: b.String()}
	if q.Coupon == "" {
		m.Rows = append(m.Rows, row("🏷️ کد تخفیف دارم", cbCoupon))
	}
	m.Rows = append(m.Rows, row("🔙 بازگشت", cbBackToMain))
	return m
}

// QuestionMenu renders a questionnaire prompt. Choice questions get one
// button per choice.
func QuestionMenu(step int) Menu {
	m := Menu{Text: questionnaire.Prompt(step)}
	if q, ok := questionnaire.Get(step); ok && q.Kind == questionnaire.KindChoice {
		for _, c := range q.Choices {
			m.Rows = append(m.Rows, row(c, cbAnswerPrefix+c))
		}
	}
	m.Rows = append(m.Rows, row("🔙 بازگشت", cbBackToMain))
	return m
}

// CompletedMenu is shown after the last answer.
func CompletedMenu() Menu {
	return Menu{
		Text: "🎉 تبریک! پرسشنامه با موفقیت تکمیل شد\n\nبرنامه تمرینی شما بر اساس اطلاعات ارائه شده طراحی میشه و ظرف ۲۴ ساعت براتون ارسال میشه.\n\nاز اینکه به خانواده ما پیوستید خوشحالیم! 💪⚽️",
		Rows: [][]Button{
			row("📋 مشاهده برنامه تمرینی", cbViewProgram),
			row("🔙 منوی اصلی", cbBackToMain),
		},
	}
}

// PaymentStatusText converts a stored payment status to Persian.
func PaymentStatusText(s string) string {
	switch s {
	case models.PaymentPending:
		return "⏳ در انتظار تایید"
	case models.PaymentApproved:
		return "✅ تایید شده"
	case models.PaymentRejected:
		return "❌ رد شده"
	case "", string(status.PaymentNone):
		return "❌ پرداخت نشده"
	default:
		return "❓ نامشخص"
	}
}

// UserStatusMenu renders the "my status" screen.
func UserStatusMenu(res status.Result, u *models.User) Menu {
	name := "کاربر"
	paymentStatus := string(status.PaymentNone)
	if u != nil {
		if u.Name != "" {
			name = u.Name
		}
		paymentStatus = u.PaymentStatus
	}
	courseName := res.CourseLabel
	if res.Course == course.None {
		courseName = "انتخاب نشده"
	}

	var b strings.Builder
	b.WriteString("📊 وضعیت شما\n\n")
	fmt.Fprintf(&b, "👤 نام: %s\n", name)
	fmt.Fprintf(&b, "📚 دوره: %s\n", courseName)
	fmt.Fprintf(&b, "💳 وضعیت پرداخت: %s", PaymentStatusText(paymentStatus))

	m := Menu{}
	switch res.Tag {
	case status.PaymentPending:
		m.Rows = append(m.Rows, row("🔄 بررسی مجدد", cbCheckPayment))
	case status.QuestionnaireInProgress:
		step := res.ResumeStep
		if step < 1 {
			step = 1
		}
		fmt.Fprintf(&b, "\n📝 پرسشنامه: مرحله %d از %d", step, questionnaire.TotalSteps)
		m.Rows = append(m.Rows, row("📝 ادامه پرسشنامه", cbContinueQuestions))
	case status.ProgramReady:
		b.WriteString("\n📝 پرسشنامه: ✅ تکمیل شده")
		m.Rows = append(m.Rows, row("📋 مشاهده برنامه", cbViewProgram))
	case status.PaymentRejected:
		if _, ok := course.Lookup(res.Course); ok {
			m.Rows = append(m.Rows, row("💳 پرداخت مجدد", cbPaymentPrefix+string(res.Course)))
		}
	}
	m.Rows = append(m.Rows,
		row("📞 تماس با پشتیبانی", cbContactSupport),
		row("🔙 منوی اصلی", cbBackToMain),
	)
	m.Text = b.String()
	return m
}

// PaymentStatusMenu renders the detailed payment screen.
func PaymentStatusMenu(res status.Result) Menu {
	var text string
	switch res.Tag {
	case status.PaymentPending:
		text = fmt.Sprintf("⏳ وضعیت پرداخت\n\nدوره: %s\nوضعیت: در انتظار تایید ادمین\n\nفیش واریزی شما دریافت شده و در حال بررسی است.\nمعمولاً این فرآیند تا 24 ساعت طول می‌کشد.\n\nدر صورت تایید، بلافاصله اطلاع‌رسانی خواهید شد.", res.CourseLabel)
	case status.QuestionnaireInProgress, status.ProgramReady:
		text = fmt.Sprintf("✅ وضعیت پرداخت\n\nدوره: %s\nوضعیت: تایید شده\n\nپرداخت شما با موفقیت تایید شده است!", res.CourseLabel)
	case status.PaymentRejected:
		text = fmt.Sprintf("❌ وضعیت پرداخت\n\nدوره: %s\nوضعیت: رد شده\n\nمتاسفانه پرداخت شما تایید نشده است.\nلطفاً با پشتیبانی تماس بگیرید یا مجدداً پرداخت کنید.", res.CourseLabel)
	default:
		text = "شما هنوز پرداختی انجام نداده‌اید."
	}
	return Menu{
		Text: text,
		Rows: [][]Button{
			row("📞 تماس با پشتیبانی", cbContactSupport),
			row("🔙 بازگشت", cbMyStatus),
		},
	}
}

// ProgramMenu accompanies the plan file, or points the user to the coach
// while no plan has been uploaded.
func ProgramMenu(res status.Result, coach string, plan *models.Plan) Menu {
	text := fmt.Sprintf("📋 برنامه تمرینی شما\n\nدوره: %s\n\nبرنامه تمرینی شخصی‌سازی شده شما بر اساس پاسخ‌های پرسشنامه آماده شده است.\n\nبرای دریافت برنامه کامل لطفاً با مربی تماس بگیرید:\n%s", res.CourseLabel, coach)
	if plan != nil {
		text = fmt.Sprintf("📋 برنامه تمرینی شما\n\nدوره: %s\n📄 %s\n\nبرنامه شما در پیام بالا ارسال شد. برای هر سوالی با مربی در تماس باشید:\n%s", res.CourseLabel, plan.Title, coach)
	}
	return Menu{
		Text: text,
		Rows: [][]Button{
			row("📞 تماس با مربی", cbContactCoach),
			row("📊 وضعیت من", cbMyStatus),
			row("🔙 منوی اصلی", cbBackToMain),
		},
	}
}

// SupportMenu shows the support contact.
func SupportMenu(support string) Menu {
	return Menu{
		Text: fmt.Sprintf("📞 اطلاعات تماس پشتیبانی\n\n🔹 تلگرام: %s\n\nساعات پاسخگویی:\nشنبه تا پنج‌شنبه: ۹ صبح تا ۶ عصر", support),
		Rows: [][]Button{row("🔙 بازگشت", cbMyStatus)},
	}
}

// CoachMenu shows the coach contact.
func CoachMenu(coach string) Menu {
	return Menu{
		Text: fmt.Sprintf("👨‍💼 تماس با مربی\n\n🔹 تلگرام: %s\n\n⏰ مربی معمولاً ظرف ۲۴ ساعت پاسخ می‌دهد.\n\nنکته: لطفاً نام و نام خانوادگی خود را در پیام اول ذکر کنید.", coach),
		Rows: [][]Button{row("🔙 بازگشت", cbViewProgram)},
	}
}

// ReviewMenu is sent to admins with each receipt.
func ReviewMenu(p *models.Payment, u *models.User) Menu {
	name, username := "ناشناس", "بدون نام کاربری"
	if u != nil {
		if u.Name != "" {
			name = u.Name
		}
		if u.Username != "" {
			username = "@" + u.Username
		}
	}
	var b strings.Builder
	b.WriteString("🔔 درخواست تایید پرداخت جدید:\n\n")
	fmt.Fprintf(&b, "👤 کاربر: %s (%s)\n", name, username)
	fmt.Fprintf(&b, "🆔 User ID: %s\n", p.UserID)
	fmt.Fprintf(&b, "📚 دوره: %s\n", course.Label(course.Code(p.Course)))
	fmt.Fprintf(&b, "💰 مبلغ: %s\n", course.FormatPrice(p.Price))
	if p.Coupon != "" {
		fmt.Fprintf(&b, "🏷️ کد تخفیف: %s (%s)\n", p.Coupon, course.FormatPrice(p.Discount))
	}
	fmt.Fprintf(&b, "🔖 شناسه پرداخت: %s", p.ID)
	return Menu{
		Text: b.String(),
		Rows: [][]Button{
			row("✅ تایید پرداخت", cbApprovePrefix+p.ID),
			row("❌ رد پرداخت", cbRejectPrefix+p.ID),
		},
	}
}

// AdminMenu is the admin panel root.
func AdminMenu() Menu {
	return Menu{
		Text: "🔧 پنل مدیریت",
		Rows: [][]Button{
			row("⏳ پرداخت‌های در انتظار", cbAdminPending),
			row("📈 آمار", cbAdminStats),
			row("🏷️ کدهای تخفیف", cbAdminCoupons),
			row("📋 برنامه‌های تمرینی", cbAdminPlans),
			row("📤 خروجی‌ها", cbAdminExports),
		},
	}
}

// exportData builds the callback data of one export button.
func exportData(dataset, format string) string {
	return cbAdminExportPrefix + dataset + "." + format
}

var exportDatasets = []struct{ dataset, label string }{
	{export.DatasetUsers, "👥 کاربران"},
	{export.DatasetPayments, "💳 پرداخت‌ها"},
	{export.DatasetAnswers, "📝 پرسشنامه‌ها"},
}

// parseExportData splits export button data into dataset and format.
func parseExportData(data string) (dataset, format string, ok bool) {
	dataset, format, ok = strings.Cut(strings.TrimPrefix(data, cbAdminExportPrefix), ".")
	if !ok || (format != export.FormatCSV && format != export.FormatXLSX) {
		return "", "", false
	}
	for _, d := range exportDatasets {
		if d.dataset == dataset {
			return dataset, format, true
		}
	}
	return "", "", false
}

func exportLabel(dataset string) string {
	for _, d := range exportDatasets {
		if d.dataset == dataset {
			return d.label
		}
	}
	return dataset
}

// ExportMenu offers every dataset as CSV and Excel.
func ExportMenu() Menu {
	m := Menu{Text: "📤 خروجی اطلاعات\n\nکدام داده را می‌خواهید دریافت کنید؟"}
	for _, d := range exportDatasets {
		m.Rows = append(m.Rows, []Button{
			{Text: d.label + " CSV", Data: exportData(d.dataset, export.FormatCSV)},
			{Text: d.label + " Excel", Data: exportData(d.dataset, export.FormatXLSX)},
		})
	}
	m.Rows = append(m.Rows, row("🔙 پنل مدیریت", cbAdminPanel))
	return m
}

// PlanUsersMenu lists users with a completed questionnaire.
func PlanUsersMenu(users []models.User) Menu {
	m := Menu{Text: "📋 مدیریت برنامه‌های تمرینی\n\nکاربرانی که پرسشنامه را تکمیل کرده‌اند:"}
	if len(users) == 0 {
		m.Text = "📋 مدیریت برنامه‌های تمرینی\n\nهنوز کاربری پرسشنامه را تکمیل نکرده است."
	}
	for i, u := range users {
		if i == planUsersLimit {
			m.Text += fmt.Sprintf("\n\n(%d کاربر اول نمایش داده شده)", planUsersLimit)
			break
		}
		name := u.Name
		if name == "" {
			name = u.ID
		}
		m.Rows = append(m.Rows, row(fmt.Sprintf("👤 %s | %s", name, course.Label(course.Code(u.CourseSelected))), cbPlanUserPrefix+u.ID))
	}
	m.Rows = append(m.Rows, row("🔙 پنل مدیریت", cbAdminPanel))
	return m
}

// PlanUserMenu shows the plans of one user's current course.
func PlanUserMenu(u *models.User, plans []models.Plan) Menu {
	var b strings.Builder
	b.WriteString("📋 برنامه‌های تمرینی کاربر\n\n")
	fmt.Fprintf(&b, "👤 کاربر: %s\n", u.Name)
	fmt.Fprintf(&b, "🆔 User ID: %s\n", u.ID)
	fmt.Fprintf(&b, "📚 دوره: %s\n\n", course.Label(course.Code(u.CourseSelected)))

	m := Menu{}
	count := 0
	for _, p := range plans {
		if p.Course != u.CourseSelected {
			continue
		}
		count++
		mark := ""
		if p.Main {
			mark = " ⭐"
		}
		sent := "ارسال نشده"
		if p.SentAt != nil {
			sent = "ارسال: " + p.SentAt.Format("2006/01/02 15:04")
		}
		fmt.Fprintf(&b, "%d. %s%s (%s)\n", count, p.Title, mark, sent)
		m.Rows = append(m.Rows, []Button{
			{Text: fmt.Sprintf("📨 ارسال %d", count), Data: cbPlanSendPrefix + p.ID},
			{Text: "⭐ اصلی", Data: cbPlanMainPrefix + p.ID},
			{Text: "🗑 حذف", Data: cbPlanDeletePrefix + p.ID},
		})
	}
	if count == 0 {
		b.WriteString("هنوز برنامه‌ای برای این دوره آپلود نشده است.")
	}
	m.Text = strings.TrimRight(b.String(), "\n")
	m.Rows = append(m.Rows,
		row("📤 آپلود برنامه جدید", cbPlanUploadPrefix+u.ID),
		row("🔙 لیست کاربران", cbAdminPlans),
	)
	return m
}

// StatsMenu renders admin counters.
func StatsMenu(st enrollment.Stats) Menu {
	var b strings.Builder
	b.WriteString("📈 آمار ربات\n\n")
	fmt.Fprintf(&b, "👥 کل کاربران: %s\n", utils.FormatNumber(int64(st.TotalUsers)))
	fmt.Fprintf(&b, "⏳ پرداخت در انتظار: %d\n", st.PaymentsPending)
	fmt.Fprintf(&b, "✅ پرداخت تایید شده: %d\n", st.PaymentsApproved)
	fmt.Fprintf(&b, "❌ پرداخت رد شده: %d\n", st.PaymentsRejected)
	fmt.Fprintf(&b, "📝 پرسشنامه تکمیل شده: %d\n", st.QuestionnaireCompleted)
	fmt.Fprintf(&b, "💰 درآمد: %s\n", course.FormatPrice(st.Revenue))
	if len(st.ByCourse) > 0 {
		b.WriteString("\n📚 فروش دوره‌ها:\n")
		for _, c := range course.All() {
			if n := st.ByCourse[c.Code]; n > 0 {
				fmt.Fprintf(&b, "• %s: %d\n", c.Title, n)
			}
		}
	}
	b.WriteString("\n🧭 وضعیت کاربران:\n")
	for _, tag := range status.Tags {
		fmt.Fprintf(&b, "• %s: %d\n", tag, st.ByTag[tag])
	}
	if st.CorruptRecords > 0 {
		fmt.Fprintf(&b, "⚠️ رکورد خراب: %d\n", st.CorruptRecords)
	}
	return Menu{Text: b.String(), Rows: [][]Button{row("🔙 پنل مدیریت", cbAdminPanel)}}
}

// CouponsMenu lists coupons with toggle buttons.
func CouponsMenu(coupons []models.Coupon) Menu {
	var b strings.Builder
	b.WriteString("🏷️ کدهای تخفیف\n\n")
	if len(coupons) == 0 {
		b.WriteString("هیچ کد تخفیفی ثبت نشده است.\n")
	}
	m := Menu{}
	for _, c := range coupons {
		state := "🟢"
		if !c.Active {
			state = "🔴"
		}
		fmt.Fprintf(&b, "%s %s: %d%% (استفاده: %d)\n", state, c.Code, c.DiscountPercent, c.UsageCount)
		m.Rows = append(m.Rows, row(fmt.Sprintf("%s %s", state, c.Code), cbAdminTogglePrefix+c.Code))
	}
	b.WriteString("\nافزودن: /add_coupon CODE PERCENT")
	m.Text = b.String()
	m.Rows = append(m.Rows, row("🔙 پنل مدیریت", cbAdminPanel))
	return m
}
