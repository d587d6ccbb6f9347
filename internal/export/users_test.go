package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"coachbot/internal/models"
)

func sampleUsers() []models.User {
	return []models.User{
		{
			ID:                     "1",
			Name:                   "علی",
			Username:               "ali",
			CourseSelected:         "online_combo",
			PaymentStatus:          "approved",
			QuestionnaireStep:      17,
			QuestionnaireCompleted: true,
			LastInteraction:        time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		},
		{ID: "2", CourseSelected: "none", PaymentStatus: "none"},
		{ID: "3", CourseSelected: "none", PaymentStatus: "paid"},
	}
}

func TestUsersCSV(t *testing.T) {
	data, err := Users(sampleUsers()).CSV()
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, Headers(), records[0])
	assert.Equal(t, "علی", records[1][1])
	assert.Equal(t, "PROGRAM_READY", records[1][7])
	assert.Equal(t, "2024-03-01 10:30", records[1][8])
	assert.Equal(t, "NEW_USER", records[2][7])
	assert.Equal(t, "CORRUPT", records[3][7])
}

func TestUsersXLSX(t *testing.T) {
	data, err := Users(sampleUsers()).XLSX()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "User ID", rows[0][0])
	assert.Equal(t, "ali", rows[1][2])
	assert.Equal(t, "PROGRAM_READY", rows[1][7])
}

func TestUsersCSV_Empty(t *testing.T) {
	data, err := Users(nil).CSV()
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 30, 5, 0, time.UTC)
	assert.Equal(t, "users_20240301_103005.csv", FileName(DatasetUsers, FormatCSV, now))
	assert.Equal(t, "questionnaire_20240301_103005.xlsx", FileName(DatasetAnswers, FormatXLSX, now))
}

func TestUsersCSV_EscapesFormulas(t *testing.T) {
	users := []models.User{{ID: "5", Name: "=HYPERLINK(\"http://x\")", Username: "@evil", CourseSelected: "none", PaymentStatus: "none"}}
	data, err := Users(users).CSV()
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, `'=HYPERLINK("http://x")`, records[1][1])
	assert.Equal(t, "'@evil", records[1][2])

	data, err = Users(users).XLSX()
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	formula, err := f.GetCellFormula(f.GetSheetName(0), "B2")
	require.NoError(t, err)
	assert.Empty(t, formula)
}
