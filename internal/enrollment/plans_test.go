package enrollment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachbot/internal/course"
	"coachbot/internal/models"
	"coachbot/internal/repository"
)

func completeQuestionnaire(t *testing.T, svc *Service, id string) {
	t.Helper()
	ctx := context.Background()
	for {
		u, err := svc.User(ctx, id)
		require.NoError(t, err)
		res, err := svc.Answer(ctx, id, validAnswer(CurrentStep(u), false))
		require.NoError(t, err)
		if res.Done {
			return
		}
	}
}

func TestAddPlan(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddPlan(ctx, PlanUpload{UserID: "9", FileID: "f"})
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = svc.Touch(ctx, "9", "Reza", "")
	require.NoError(t, err)
	_, err = svc.AddPlan(ctx, PlanUpload{UserID: "9", FileID: "f"})
	assert.ErrorIs(t, err, ErrNoCourse)

	pay(t, svc, "9", course.OnlineCardio)
	_, err = svc.AddPlan(ctx, PlanUpload{UserID: "9"})
	assert.ErrorIs(t, err, ErrInvalidPlan)

	first, err := svc.AddPlan(ctx, PlanUpload{UserID: "9", FileID: "f1", ContentType: "sticker", UploadedBy: "1"})
	require.NoError(t, err)
	assert.True(t, first.Main, "first plan of a course is main")
	assert.Equal(t, string(course.OnlineCardio), first.Course)
	assert.Equal(t, defaultPlanTitle, first.Title)
	assert.Equal(t, models.PlanDocument, first.ContentType)

	second, err := svc.AddPlan(ctx, PlanUpload{UserID: "9", Title: "هفته دوم", FileID: "f2", ContentType: models.PlanPhoto})
	require.NoError(t, err)
	assert.False(t, second.Main)

	main, err := svc.MainPlan(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, first.ID, main.ID)
}

func TestSetMainPlan(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	pay(t, svc, "9", course.OnlineWeights)

	_, err := svc.AddPlan(ctx, PlanUpload{UserID: "9", FileID: "f1"})
	require.NoError(t, err)
	second, err := svc.AddPlan(ctx, PlanUpload{UserID: "9", FileID: "f2"})
	require.NoError(t, err)

	_, err = svc.SetMainPlan(ctx, second.ID)
	require.NoError(t, err)

	plans, err := svc.Plans(ctx, "9")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	for _, p := range plans {
		assert.Equal(t, p.ID == second.ID, p.Main, p.ID)
	}

	main, err := svc.MainPlan(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, second.ID, main.ID)

	_, err = svc.SetMainPlan(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeletePlan_PromotesNewest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	pay(t, svc, "9", course.OnlineWeights)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	first, err := svc.AddPlan(ctx, PlanUpload{UserID: "9", FileID: "f1"})
	require.NoError(t, err)
	svc.now = func() time.Time { return base.Add(time.Hour) }
	_, err = svc.AddPlan(ctx, PlanUpload{UserID: "9", FileID: "f2"})
	require.NoError(t, err)
	svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	third, err := svc.AddPlan(ctx, PlanUpload{UserID: "9", FileID: "f3"})
	require.NoError(t, err)

	_, err = svc.DeletePlan(ctx, first.ID)
	require.NoError(t, err)

	main, err := svc.MainPlan(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, third.ID, main.ID)
	assert.True(t, main.Main)
}

func TestMainPlan_FollowsCurrentCourse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.MainPlan(ctx, "9")
	assert.ErrorIs(t, err, ErrUnknownUser)

	p := pay(t, svc, "9", course.OnlineWeights)
	_, err = svc.MainPlan(ctx, "9")
	assert.ErrorIs(t, err, ErrNoPlan)

	_, err = svc.AddPlan(ctx, PlanUpload{UserID: "9", FileID: "f1"})
	require.NoError(t, err)

	// a new course hides the old plan
	_, _, err = svc.Reject(ctx, p.ID, "1", "")
	require.NoError(t, err)
	_, err = svc.ChooseCourse(ctx, "9", course.OnlineCardio)
	require.NoError(t, err)
	_, err = svc.SubmitReceipt(ctx, "9", "receipt-2")
	require.NoError(t, err)

	_, err = svc.MainPlan(ctx, "9")
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestMarkPlanSent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	pay(t, svc, "9", course.OnlineWeights)
	plan, err := svc.AddPlan(ctx, PlanUpload{UserID: "9", FileID: "f1"})
	require.NoError(t, err)
	require.Nil(t, plan.SentAt)

	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }
	sent, err := svc.MarkPlanSent(ctx, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, sent.SentAt)
	assert.True(t, at.Equal(*sent.SentAt))
}

func TestReadyUsers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	pay(t, svc, "1", course.OnlineWeights)
	p := pay(t, svc, "2", course.OnlineWeights)
	_, _, err := svc.Approve(ctx, p.ID, "admin")
	require.NoError(t, err)
	completeQuestionnaire(t, svc, "2")

	users, err := svc.ReadyUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "2", users[0].ID)
}
