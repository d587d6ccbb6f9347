package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyDocument = `{
  "users": {
    "42": {
      "user_id": 42,
      "name": "Ali",
      "username": "ali",
      "course_selected": "online_weights",
      "payment_status": "approved",
      "questionnaire_current_step": 3,
      "answers": {"1": "علی رضایی", "2": 22, "photos": {"15": ["file-a"]}},
      "last_interaction": 18234.55,
      "last_message_time": 1714566645.25,
      "last_updated": "2024-05-01T12:30:45.123456",
      "started_bot": true
    },
    "77": {"name": "Sara", "course_selected": "none"}
  },
  "payments": {
    "42_20240501_123045": {
      "payment_id": "42_20240501_123045",
      "user_id": 42,
      "course_type": "online_weights",
      "price": 1200000,
      "status": "approved",
      "timestamp": "2024-05-01T12:30:45.123456"
    }
  },
  "admins": {
    "1": {"user_id": 1, "permissions": "full", "added_at": "2024-04-30T08:00:00", "synced_from_config": true}
  },
  "statistics": {"total_users": 2, "total_payments": 1, "course_stats": {}}
}`

func TestJSONFileStore_LoadsLegacyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot_data.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyDocument), 0o644))

	s, err := NewJSONFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	u, err := s.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", u.ID)
	assert.Equal(t, "approved", u.PaymentStatus)
	assert.Equal(t, 3, u.QuestionnaireStep)
	assert.Equal(t, "علی رضایی", u.Answers["1"])
	assert.Equal(t, "22", u.Answers["2"])
	assert.JSONEq(t, `{"15":["file-a"]}`, u.Answers["photos"])
	assert.Equal(t, int64(1714566645), u.LastMessageTime)
	assert.True(t, u.LastInteraction.IsZero(), "event-loop clock readings are not wall time")

	sara, err := s.GetUser(ctx, "77")
	require.NoError(t, err)
	assert.Equal(t, "77", sara.ID, "id falls back to the map key")

	p, err := s.GetPayment(ctx, "42_20240501_123045")
	require.NoError(t, err)
	assert.Equal(t, "42", p.UserID)
	assert.Equal(t, 1200000, p.Price)
	want := time.Date(2024, 5, 1, 12, 30, 45, 123456000, time.Local)
	assert.True(t, want.Equal(p.CreatedAt), p.CreatedAt.String())

	ok, err := s.IsAdmin(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)

	// the next write stores the current layout, which loads strictly
	require.NoError(t, s.PutUser(ctx, u))
	reopened, err := NewJSONFileStore(path)
	require.NoError(t, err)
	users, err := reopened.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestJSONFileStore_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot_data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users": [`), 0o644))
	_, err := NewJSONFileStore(path)
	assert.Error(t, err)
}

func TestLegacyTime(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		ok   bool
	}{
		{"rfc3339", "2024-05-01T12:30:45Z", true},
		{"naive", "2024-05-01T12:30:45", true},
		{"naive with space", "2024-05-01 12:30:45.5", true},
		{"date", "2024-05-01", true},
		{"garbage", "yesterday", false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := legacyTime(tt.in)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
