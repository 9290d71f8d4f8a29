package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "dict-relay-bot/internal/common/errors"
	"dict-relay-bot/internal/common/logger"
)

const apiBase = "https://api.telegram.org/bot"

// Client is a thin Telegram Bot API client over net/http.
type Client struct {
	httpClient *http.Client
	pollClient *http.Client
	baseURL    string
	token      string
}

// NewClient builds a client for the given bot token. pollTimeout is the
// long-poll timeout in seconds; the poll HTTP client allows that plus slack.
func NewClient(token string, pollTimeout int) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		pollClient: &http.Client{Timeout: time.Duration(pollTimeout+10) * time.Second},
		baseURL:    apiBase,
		token:      token,
	}
}

// SendOptions are the optional knobs of sendMessage.
type SendOptions struct {
	// ThreadID posts into a forum topic of the destination chat.
	ThreadID int64
	// ParseMode is "Markdown", "HTML" or empty for plain text.
	ParseMode string
	// ReplyMarkup attaches an inline keyboard.
	ReplyMarkup *InlineKeyboardMarkup
}

// SendMessage delivers a text message to a chat, optionally inside a thread.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) error {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}
	if opts != nil {
		if opts.ThreadID != 0 {
			params.Set("message_thread_id", strconv.FormatInt(opts.ThreadID, 10))
		}
		if opts.ParseMode != "" {
			params.Set("parse_mode", opts.ParseMode)
		}
		if opts.ReplyMarkup != nil {
			b, err := json.Marshal(opts.ReplyMarkup)
			if err != nil {
				return fmt.Errorf("marshal reply markup: %w", err)
			}
			params.Set("reply_markup", string(b))
		}
	}

	var resp Response
	if err := c.makeRequest(ctx, "sendMessage", params, &resp); err != nil {
		return apperrors.NewTelegramAPIError("sendMessage", err)
	}
	if !resp.Ok {
		return apperrors.NewTelegramAPIError("sendMessage", fmt.Errorf("telegram API error: %s", resp.Description)).
			WithDetail("chat_id", chatID)
	}
	return nil
}

// ForwardMessage natively forwards an existing message into a chat.
// threadID of zero forwards outside any topic.
func (c *Client) ForwardMessage(ctx context.Context, chatID, fromChatID, messageID, threadID int64) error {
	params := url.Values{
		"chat_id":      {strconv.FormatInt(chatID, 10)},
		"from_chat_id": {strconv.FormatInt(fromChatID, 10)},
		"message_id":   {strconv.FormatInt(messageID, 10)},
	}
	if threadID != 0 {
		params.Set("message_thread_id", strconv.FormatInt(threadID, 10))
	}

	var resp Response
	if err := c.makeRequest(ctx, "forwardMessage", params, &resp); err != nil {
		return apperrors.NewTelegramAPIError("forwardMessage", err)
	}
	if !resp.Ok {
		return apperrors.NewTelegramAPIError("forwardMessage", fmt.Errorf("telegram API error: %s", resp.Description)).
			WithDetail("chat_id", chatID)
	}
	return nil
}

// CreateForumTopic opens a new discussion thread in a forum supergroup and
// returns its thread id.
func (c *Client) CreateForumTopic(ctx context.Context, chatID int64, name string) (int64, error) {
	params := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"name":    {name},
	}

	var result struct {
		Ok          bool       `json:"ok"`
		Description string     `json:"description,omitempty"`
		Result      ForumTopic `json:"result"`
	}
	if err := c.makeRequest(ctx, "createForumTopic", params, &result); err != nil {
		return 0, apperrors.NewTelegramAPIError("createForumTopic", err)
	}
	if !result.Ok {
		return 0, apperrors.NewTelegramAPIError("createForumTopic", fmt.Errorf("telegram API error: %s", result.Description)).
			WithDetail("chat_id", chatID)
	}
	return result.Result.MessageThreadID, nil
}

// AnswerCallbackQuery acknowledges an inline-keyboard press so the client
// stops showing a progress indicator.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	params := url.Values{"callback_query_id": {callbackID}}

	var resp Response
	if err := c.makeRequest(ctx, "answerCallbackQuery", params, &resp); err != nil {
		return apperrors.NewTelegramAPIError("answerCallbackQuery", err)
	}
	if !resp.Ok {
		return apperrors.NewTelegramAPIError("answerCallbackQuery", fmt.Errorf("telegram API error: %s", resp.Description))
	}
	return nil
}

// EditMessageText rewrites a previously sent message, used by the admin menu
// to navigate between panels in place.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *InlineKeyboardMarkup) error {
	params := url.Values{
		"chat_id":    {strconv.FormatInt(chatID, 10)},
		"message_id": {strconv.FormatInt(messageID, 10)},
		"text":       {text},
		"parse_mode": {"Markdown"},
	}
	if markup != nil {
		b, err := json.Marshal(markup)
		if err != nil {
			return fmt.Errorf("marshal reply markup: %w", err)
		}
		params.Set("reply_markup", string(b))
	}

	var resp Response
	if err := c.makeRequest(ctx, "editMessageText", params, &resp); err != nil {
		return apperrors.NewTelegramAPIError("editMessageText", err)
	}
	if !resp.Ok {
		return apperrors.NewTelegramAPIError("editMessageText", fmt.Errorf("telegram API error: %s", resp.Description))
	}
	return nil
}

// GetUpdates long-polls for new updates past the given offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	params := url.Values{
		"offset":  {strconv.FormatInt(offset, 10)},
		"timeout": {strconv.Itoa(timeoutSec)},
	}

	endpoint := c.baseURL + c.token + "/getUpdates?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.pollClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		Ok          bool     `json:"ok"`
		Description string   `json:"description,omitempty"`
		Result      []Update `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !result.Ok {
		return nil, fmt.Errorf("telegram API error: %s", result.Description)
	}
	return result.Result, nil
}

func (c *Client) makeRequest(ctx context.Context, method string, data url.Values, result interface{}) error {
	endpoint := c.baseURL + c.token + "/" + method

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		logger.Debug().Str("method", method).Int("status", resp.StatusCode).Msg("Unparseable Telegram response")
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
