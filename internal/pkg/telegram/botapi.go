package telegram

import (
	"bytes"
	"fmt"
	"net/netip"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.telegram.org"

// BotAPI provides a direct Telegram Bot API client.
// Used by background jobs that run outside a telebot update context.
type BotAPI struct {
	client *resty.Client
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// NewBotAPI creates a new direct Telegram Bot API client.
func NewBotAPI(token string) *BotAPI {
	return NewBotAPIWithBaseURL(defaultBaseURL, token)
}

// NewBotAPIWithBaseURL points the client at a custom Bot API server.
func NewBotAPIWithBaseURL(baseURL, token string) *BotAPI {
	client := resty.New().
		SetBaseURL(baseURL+"/bot"+token).
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second)
	return &BotAPI{client: client}
}

func checkResponse(method string, resp *resty.Response, result *apiResponse) error {
	if result.OK {
		return nil
	}
	if result.Description != "" {
		return fmt.Errorf("telegram API %s: %d %s", method, result.ErrorCode, result.Description)
	}
	return fmt.Errorf("telegram API %s: unexpected status %s", method, resp.Status())
}

// Call makes a raw API call to the Telegram Bot API.
func (b *BotAPI) Call(method string, params map[string]interface{}) error {
	var result apiResponse
	resp, err := b.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(params).
		SetResult(&result).
		SetError(&result).
		Post("/" + method)
	if err != nil {
		return fmt.Errorf("telegram API call %s failed: %w", method, err)
	}
	return checkResponse(method, resp, &result)
}

// SendMessage sends a text message.
func (b *BotAPI) SendMessage(chatID string, text string, replyMarkup interface{}) error {
	params := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if replyMarkup != nil {
		params["reply_markup"] = replyMarkup
	}
	return b.Call("sendMessage", params)
}

// SendDocument uploads a document.
func (b *BotAPI) SendDocument(chatID string, fileData []byte, filename, caption string) error {
	var result apiResponse
	resp, err := b.client.R().
		SetFileReader("document", filename, bytes.NewReader(fileData)).
		SetFormData(map[string]string{
			"chat_id": chatID,
			"caption": caption,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/sendDocument")
	if err != nil {
		return fmt.Errorf("telegram API call sendDocument failed: %w", err)
	}
	return checkResponse("sendDocument", resp, &result)
}

// Telegram webhook source ranges.
var telegramRanges = []netip.Prefix{
	netip.MustParsePrefix("149.154.160.0/20"),
	netip.MustParsePrefix("91.108.4.0/22"),
}

// CheckTelegramIP verifies the request originates from Telegram's IP range.
func CheckTelegramIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range telegramRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
