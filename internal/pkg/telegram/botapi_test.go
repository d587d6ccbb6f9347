package telegram

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	api := NewBotAPIWithBaseURL(srv.URL, "TOKEN")
	require.NoError(t, api.SendMessage("42", "سلام", nil))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "سلام", got["text"])
	assert.NotContains(t, got, "reply_markup")
}

func TestCall_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	api := NewBotAPIWithBaseURL(srv.URL, "TOKEN")
	err := api.SendMessage("42", "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestSendDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "7", r.FormValue("chat_id"))
		f, hdr, err := r.FormFile("document")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "users.csv", hdr.Filename)
		assert.True(t, strings.HasPrefix(string(data), "id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	api := NewBotAPIWithBaseURL(srv.URL, "TOKEN")
	require.NoError(t, api.SendDocument("7", []byte("id,name\n"), "users.csv", "export"))
}

func TestCheckTelegramIP(t *testing.T) {
	tests := map[string]bool{
		"149.154.167.220":   true,
		"149.154.175.1":     true,
		"149.154.176.1":     false,
		"91.108.6.10":       true,
		"91.108.8.1":        false,
		"10.0.0.1":          false,
		"not-an-ip":         false,
		"::ffff:91.108.4.1": true,
	}
	for ip, want := range tests {
		assert.Equal(t, want, CheckTelegramIP(ip), ip)
	}
}
