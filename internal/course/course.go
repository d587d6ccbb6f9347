package course

import (
	"fmt"
	"strings"

	"coachbot/internal/pkg/utils"
)

// Code identifies a course offering. None means no course is selected.
type Code string

const (
	None            Code = "none"
	InPersonCardio  Code = "in_person_cardio"
	InPersonWeights Code = "in_person_weights"
	OnlineWeights   Code = "online_weights"
	OnlineCardio    Code = "online_cardio"
	OnlineCombo     Code = "online_combo"
)

// Category groups courses in the browse menu.
type Category string

const (
	InPerson Category = "in_person"
	Online   Category = "online"
)

// Course is one entry of the catalog.
type Course struct {
	Code        Code
	Category    Category
	Button      string
	Title       string
	Description string
	Price       int // toman
}

var catalog = []Course{
	{
		Code:     InPersonCardio,
		Category: InPerson,
		Button:   "1️⃣ تمرین هوازی سرعتی چابکی کار با توپ",
		Title:    "دوره تمرین حضوری: هوازی سرعتی چابکی کار با توپ",
		Description: "هفته‌ای سه جلسه تمرین، در ماه ۱۲ جلسه\n" +
			"افزایش نفس، سرعت، چابکی، تکنیک با توپ و پرش\n" +
			"روزهای فرد - محدوده تمرین: پونک\n" +
			"ساعت و لوکیشن دقیق بعد از ثبت‌نام ارسال می‌شود",
		Price: 3000000,
	},
	{
		Code:     InPersonWeights,
		Category: InPerson,
		Button:   "2️⃣ تمرین وزنه",
		Title:    "دوره تمرین حضوری: وزنه اختصاصی",
		Description: "گرم کردن اختصاصی برای موبیلیتی و دامنه حرکتی مفاصل\n" +
			"حجم، پرش، استارت سریع‌تر، شوت قوی‌تر و تنه به تنه بهتر\n" +
			"روزهای زوج - محدوده تمرین: خیابان کاشانی\n" +
			"حق عضویت باشگاه جداگانه است",
		Price: 3000000,
	},
	{
		Code:        OnlineWeights,
		Category:    Online,
		Button:      "1️⃣ برنامه وزنه",
		Title:       "دوره آنلاین: برنامه وزنه",
		Description: "برنامه وزنه اختصاصی بر اساس پرسشنامه و شرایط بدنی شما",
		Price:       599000,
	},
	{
		Code:        OnlineCardio,
		Category:    Online,
		Button:      "2️⃣ برنامه هوازی و کار با توپ",
		Title:       "دوره آنلاین: برنامه هوازی و کار با توپ",
		Description: "برنامه هوازی، سرعتی و کار با توپ متناسب با امکانات شما",
		Price:       599000,
	},
	{
		Code:        OnlineCombo,
		Category:    Online,
		Button:      "3️⃣ برنامه وزنه + برنامه هوازی (با تخفیف بیشتر)",
		Title:       "دوره آنلاین: وزنه + هوازی",
		Description: "هر دو برنامه وزنه و هوازی با تخفیف ویژه",
		Price:       999000,
	},
}

// All returns the full catalog in display order.
func All() []Course {
	out := make([]Course, len(catalog))
	copy(out, catalog)
	return out
}

// ByCategory returns the courses of one category in display order.
func ByCategory(cat Category) []Course {
	var out []Course
	for _, c := range catalog {
		if c.Category == cat {
			out = append(out, c)
		}
	}
	return out
}

// Lookup returns the course for code.
func Lookup(code Code) (Course, bool) {
	for _, c := range catalog {
		if c.Code == code {
			return c, true
		}
	}
	return Course{}, false
}

// Parse converts a stored value into a Code. Empty and "none" map to None.
func Parse(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == string(None) {
		return None, nil
	}
	if _, ok := Lookup(Code(s)); ok {
		return Code(s), nil
	}
	return None, fmt.Errorf("unknown course %q", s)
}

// Label returns the Persian title of code, or "نامشخص" when unknown.
func Label(code Code) string {
	if c, ok := Lookup(code); ok {
		return c.Title
	}
	return "نامشخص"
}

// FormatPrice renders a toman amount with thousands separators.
func FormatPrice(toman int) string {
	return utils.FormatNumber(int64(toman)) + " تومان"
}
