package export

import (
	"strconv"

	"coachbot/internal/course"
	"coachbot/internal/models"
	"coachbot/internal/questionnaire"
)

// Answers builds the questionnaire sheet: one row per user who answered at
// least one question, one column per question.
func Answers(users []models.User) Table {
	t := Table{
		Name:    "Questionnaire",
		Headers: []string{"User ID", "Name", "Course", "Completed"},
	}
	for step := 1; step <= questionnaire.TotalSteps; step++ {
		q, _ := questionnaire.Get(step)
		t.Headers = append(t.Headers, q.Title)
	}
	for _, u := range users {
		if len(u.Answers) == 0 {
			continue
		}
		r := []string{
			u.ID,
			u.Name,
			course.Label(course.Code(u.CourseSelected)),
			strconv.FormatBool(u.QuestionnaireCompleted),
		}
		for step := 1; step <= questionnaire.TotalSteps; step++ {
			r = append(r, u.Answers[strconv.Itoa(step)])
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}
