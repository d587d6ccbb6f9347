package questionnaire

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"coachbot/internal/pkg/utils"
)

// TotalSteps is the number of intake questions.
const TotalSteps = 17

// Kind is the answer type a question expects.
type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
	KindChoice Kind = "choice"
)

// Question is one intake question.
type Question struct {
	Step    int
	Title   string
	Text    string
	Emoji   string
	Kind    Kind
	Choices []string
	MinLen  int
	MaxLen  int
	Min     int
	Max     int
	// DependsOn/DependsAnswer make the question apply only when the answer
	// recorded for DependsOn equals DependsAnswer.
	DependsOn     int
	DependsAnswer string
}

// ErrInvalidAnswer is wrapped by every validation failure. The wrapping
// error's message is safe to show to the user.
var ErrInvalidAnswer = errors.New("invalid answer")

// ValidationError carries the Persian message for the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidAnswer }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

const answerYes = "بله"

var questions = [TotalSteps]Question{
	{Step: 1, Title: "نام و فامیل", Emoji: "👤", Kind: KindText, MinLen: 2, MaxLen: 50,
		Text: "🏃‍♂️ سلام! بیا با هم شروع کنیم.\n\nاسم و فامیل خودت رو بگو:"},
	{Step: 2, Title: "سن", Emoji: "🎂", Kind: KindNumber, Min: 16, Max: 40,
		Text: "🎂 سن؟"},
	{Step: 3, Title: "قد", Emoji: "📐", Kind: KindNumber, Min: 150, Max: 210,
		Text: "📏 قد؟ (برحسب سانتی‌متر)"},
	{Step: 4, Title: "وزن", Emoji: "💪", Kind: KindNumber, Min: 40, Max: 120,
		Text: "⚖️ وزن؟ (برحسب کیلوگرم)"},
	{Step: 5, Title: "تجربه لیگ", Emoji: "🏆", Kind: KindText, MinLen: 3, MaxLen: 100,
		Text: "⚽ چه لیگی بازی کردی؟"},
	{Step: 6, Title: "وقت تمرین", Emoji: "🕐", Kind: KindText, MinLen: 3, MaxLen: 50,
		Text: "⏰ چقدر وقت داری؟"},
	{Step: 7, Title: "هدف مسابقات", Emoji: "🏁", Kind: KindText, MinLen: 5, MaxLen: 100,
		Text: "🎯 برای چه لیگ و مسابقاتی می‌خواهی آماده بشی؟"},
	{Step: 8, Title: "وضعیت تیم", Emoji: "⚽", Kind: KindText, MinLen: 3, MaxLen: 100,
		Text: "👥 فصل بعد تیم داری یا می‌خواهی تست بدی؟"},
	{Step: 9, Title: "تمرین اخیر", Emoji: "🏋️‍♂️", Kind: KindChoice, Choices: []string{answerYes, "خیر"},
		Text: "💪 یک ماه گذشته تمرین هوازی و وزنه داشتی؟"},
	{Step: 10, Title: "جزئیات تمرین هوازی", Emoji: "🏃", Kind: KindText, MinLen: 5, MaxLen: 200,
		DependsOn: 9, DependsAnswer: answerYes,
		Text: "📋 اگر تمرین هوازی داشتی، جزئیات برنامه تمرین هوازی رو برام بفرست:"},
	{Step: 11, Title: "جزئیات تمرین وزنه", Emoji: "🏋️‍♂️", Kind: KindText, MinLen: 5, MaxLen: 200,
		DependsOn: 9, DependsAnswer: answerYes,
		Text: "🏋️ اگر تمرین وزنه داشتی، جزئیات برنامه وزنه‌ات رو برام بفرست:"},
	{Step: 12, Title: "تجهیزات", Emoji: "⚽", Kind: KindText, MinLen: 5, MaxLen: 100,
		Text: "⚽ برای تمرین هوازی توپ، کنز، زمین دم دستت هست؟"},
	{Step: 13, Title: "اولویت اصلی", Emoji: "🎖️", Kind: KindText, MinLen: 3, MaxLen: 100,
		Text: "🎯 به عنوان یک بازیکن، بزرگترین دغدغه‌ات چیه؟ (قدرت، سرعت، حجم و …)"},
	{Step: 14, Title: "مصدومیت‌ها", Emoji: "⚠️", Kind: KindText, MinLen: 2, MaxLen: 150,
		Text: "🏥 آیا مصدومیت‌های خاصی در گذشته داشتی؟"},
	{Step: 15, Title: "تغذیه و خواب", Emoji: "😴", Kind: KindText, MinLen: 5, MaxLen: 150,
		Text: "🍎 وضعیت تغذیه و خواب چطور است؟"},
	{Step: 16, Title: "نوع تمرین", Emoji: "👥", Kind: KindChoice, Choices: []string{"انفرادی", "با تیم", "ترکیبی از هر دو"},
		Text: "🏃‍♂️ الان انفرادی تمرین می‌کنی یا با تیم؟"},
	{Step: 17, Title: "چالش‌ها", Emoji: "⚠️", Kind: KindText, MinLen: 5, MaxLen: 150,
		Text: "🤔 از نظر تو، سخت‌ترین مشکلات یا چالش‌هایی که تو تمرین داری چیه؟"},
}

var letterRx = regexp.MustCompile(`[a-zA-Z\x{0622}-\x{06CC}]`)

// Get returns the question for step.
func Get(step int) (Question, bool) {
	if step < 1 || step > TotalSteps {
		return Question{}, false
	}
	return questions[step-1], true
}

// Applies reports whether step should be asked given the answers so far.
func Applies(step int, answers map[string]string) bool {
	q, ok := Get(step)
	if !ok {
		return false
	}
	if q.DependsOn == 0 {
		return true
	}
	return answers[strconv.Itoa(q.DependsOn)] == q.DependsAnswer
}

// Next returns the first applicable step after step. done is true when
// step was the last applicable question.
func Next(step int, answers map[string]string) (next int, done bool) {
	for n := step + 1; n <= TotalSteps; n++ {
		if Applies(n, answers) {
			return n, false
		}
	}
	return TotalSteps, true
}

// Normalize trims the answer and converts Persian digits for numeric steps.
func Normalize(step int, answer string) string {
	answer = strings.TrimSpace(answer)
	if q, ok := Get(step); ok && q.Kind == KindNumber {
		answer = utils.ConvertPersianToEnglish(answer)
	}
	return answer
}

// Validate checks answer against the rules of step. The answer should be
// normalized first.
func Validate(step int, answer string) error {
	q, ok := Get(step)
	if !ok {
		return invalid("سوال نامعتبر")
	}

	switch q.Kind {
	case KindNumber:
		n, err := strconv.Atoi(answer)
		if err != nil {
			return invalid("لطفا یک عدد معتبر وارد کنید")
		}
		if n < q.Min {
			return invalid("حداقل مقدار %d است", q.Min)
		}
		if n > q.Max {
			return invalid("حداکثر مقدار %d است", q.Max)
		}
	case KindChoice:
		for _, c := range q.Choices {
			if c == answer {
				return nil
			}
		}
		return invalid("لطفا یکی از گزینه‌های موجود را انتخاب کنید: %s", strings.Join(q.Choices, "، "))
	case KindText:
		length := utf8.RuneCountInString(answer)
		if q.MinLen > 0 && length < q.MinLen {
			return invalid("حداقل %d کاراکتر وارد کنید", q.MinLen)
		}
		if q.MaxLen > 0 && length > q.MaxLen {
			return invalid("حداکثر %d کاراکتر مجاز است", q.MaxLen)
		}
		if step == 1 {
			if utils.IsNumeric(answer) {
				return invalid("نام نمی‌تواند فقط شامل عدد باشد. لطفاً نام و نام خانوادگی خود را وارد کنید.")
			}
			if !letterRx.MatchString(answer) {
				return invalid("نام باید حداقل شامل یک حرف باشد. لطفاً نام و نام خانوادگی خود را به صورت کامل وارد کنید.")
			}
		}
	}
	return nil
}

// ProgressText renders "سوال N از 17".
func ProgressText(step int) string {
	if step < 1 {
		step = 1
	}
	return fmt.Sprintf("سوال %d از %d", step, TotalSteps)
}

// Prompt renders the full message for a question, progress line included.
func Prompt(step int) string {
	q, ok := Get(step)
	if !ok {
		return ""
	}
	return ProgressText(step) + "\n\n" + q.Text
}

// Summary formats the recorded answers for the coach/admin.
func Summary(answers map[string]string) string {
	var b strings.Builder
	b.WriteString("📋 خلاصه اطلاعات کاربر:\n\n")
	for _, q := range questions {
		a, ok := answers[strconv.Itoa(q.Step)]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s %s: %s\n", q.Emoji, q.Title, a)
	}
	return b.String()
}
