package export

import (
	"strconv"

	"coachbot/internal/course"
	"coachbot/internal/enrollment"
	"coachbot/internal/models"
)

// Headers returns the column titles of the users export.
func Headers() []string {
	return []string{
		"User ID",
		"Name",
		"Username",
		"Course",
		"Payment Status",
		"Questionnaire Step",
		"Completed",
		"Status",
		"Last Interaction",
	}
}

// Row renders one user. Records the resolver rejects are exported with
// status CORRUPT so they stay visible to admins.
func Row(u models.User) []string {
	tag := "CORRUPT"
	if res, err := enrollment.ResolveUser(&u); err == nil {
		tag = string(res.Tag)
	}
	return []string{
		u.ID,
		u.Name,
		u.Username,
		course.Label(course.Code(u.CourseSelected)),
		u.PaymentStatus,
		strconv.Itoa(u.QuestionnaireStep),
		strconv.FormatBool(u.QuestionnaireCompleted),
		tag,
		formatTime(u.LastInteraction),
	}
}

// Users builds the users sheet.
func Users(users []models.User) Table {
	t := Table{Name: "Users", Headers: Headers()}
	for _, u := range users {
		t.Rows = append(t.Rows, Row(u))
	}
	return t
}
