package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"coachbot/internal/models"
)

func TestSafeCell(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"Ali":          "Ali",
		"=1+1":         "'=1+1",
		"+98912":       "'+98912",
		"-5":           "'-5",
		"@SUM(A1)":     "'@SUM(A1)",
		"\t=cmd":       "'\t=cmd",
		"علی = مربی":  "علی = مربی",
		"1200000":      "1200000",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeCell(in), in)
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, utf8BOM))
	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestPayments(t *testing.T) {
	reviewed := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	payments := []models.Payment{
		{
			ID:         "p1",
			UserID:     "1",
			Course:     "online_weights",
			Price:      900000,
			Coupon:     "WELCOME10",
			Discount:   100000,
			Status:     models.PaymentRejected,
			ReviewedBy: "1",
			Reason:     "=blurry",
			CreatedAt:  time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
			ReviewedAt: &reviewed,
		},
		{ID: "p2", UserID: "2", Course: "online_cardio", Price: 500000, Status: models.PaymentPending},
	}

	records := readCSV(t, mustCSV(t, Payments(payments)))
	require.Len(t, records, 3)
	assert.Equal(t, "Payment ID", records[0][0])
	assert.Equal(t, []string{"p1", "1"}, records[1][:2])
	assert.Equal(t, "900000", records[1][3])
	assert.Equal(t, "2024-03-01 10:30", records[1][7])
	assert.Equal(t, "2024-03-02 09:00", records[1][8])
	assert.Equal(t, "'=blurry", records[1][10])
	assert.Equal(t, "", records[2][8])
}

func TestAnswers(t *testing.T) {
	users := []models.User{
		{ID: "1", Name: "Ali", CourseSelected: "online_combo", QuestionnaireCompleted: true, Answers: map[string]string{"1": "علی رضایی", "2": "22", "17": "@ali_fit"}},
		{ID: "2", Name: "No answers"},
	}
	table := Answers(users)
	require.Len(t, table.Rows, 1)
	assert.Len(t, table.Headers, 4+17)

	records := readCSV(t, mustCSV(t, table))
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "true", records[1][3])
	assert.Equal(t, "علی رضایی", records[1][4])
	assert.Equal(t, "22", records[1][5])
	assert.Equal(t, "'@ali_fit", records[1][4+16])
}

func TestTableXLSX_SheetName(t *testing.T) {
	data, err := Payments(nil).Encode(FormatXLSX)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "Payments", f.GetSheetName(0))
}

type fakeSource struct {
	users    []models.User
	payments []models.Payment
	err      error
}

func (f fakeSource) Users(context.Context) ([]models.User, error) { return f.users, f.err }

func (f fakeSource) Payments(_ context.Context, paymentStatus string) ([]models.Payment, error) {
	if paymentStatus != "" {
		return nil, errors.New("exports list every payment")
	}
	return f.payments, f.err
}

func TestBuild(t *testing.T) {
	src := fakeSource{users: sampleUsers(), payments: []models.Payment{{ID: "p1"}}}
	ctx := context.Background()

	users, err := Build(ctx, src, DatasetUsers)
	require.NoError(t, err)
	assert.Len(t, users.Rows, 3)

	payments, err := Build(ctx, src, DatasetPayments)
	require.NoError(t, err)
	assert.Len(t, payments.Rows, 1)

	answers, err := Build(ctx, src, DatasetAnswers)
	require.NoError(t, err)
	assert.Empty(t, answers.Rows)

	_, err = Build(ctx, src, "coupons")
	assert.Error(t, err)

	_, err = Build(ctx, fakeSource{err: errors.New("down")}, DatasetUsers)
	assert.Error(t, err)
}

func mustCSV(t *testing.T, table Table) []byte {
	t.Helper()
	data, err := table.Encode(FormatCSV)
	require.NoError(t, err)
	return data
}
