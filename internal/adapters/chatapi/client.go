package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"neobot/internal/domain"
	"neobot/internal/infra/metrics"
)

// Config — параметры подключения к неофициальному API платформы.
type Config struct {
	// WSURL — адрес websocket-потока событий.
	WSURL string
	// APIBaseURL — базовый адрес HTTP API.
	APIBaseURL string
	Token      string
	// SelfID — идентификатор учётной записи бота.
	SelfID string

	CallTimeout time.Duration
}

// Client — клиент платформы: websocket для входящих событий,
// HTTP для исходящих вызовов.
type Client struct {
	cfg  Config
	log  zerolog.Logger
	http *http.Client
}

// New создаёт клиент.
func New(logger zerolog.Logger, cfg Config) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		log:  logger,
		http: &http.Client{Timeout: cfg.CallTimeout},
	}
}

// CurrentUserID возвращает идентификатор учётной записи бота.
func (c *Client) CurrentUserID() string { return c.cfg.SelfID }

type sendRequest struct {
	ThreadID string `json:"thread_id"`
	Body     string `json:"body"`
	ReplyTo  string `json:"reply_to,omitempty"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

// SendMessage отправляет текст в тред.
func (c *Client) SendMessage(ctx context.Context, text, threadID, replyTo string) (domain.MessageRef, error) {
	var resp sendResponse
	err := c.call(ctx, http.MethodPost, "/messages", "send_message", sendRequest{
		ThreadID: threadID,
		Body:     text,
		ReplyTo:  replyTo,
	}, &resp)
	if err != nil {
		return domain.MessageRef{}, err
	}
	return domain.MessageRef{MessageID: resp.MessageID, ThreadID: threadID}, nil
}

// UnsendMessage удаляет сообщение.
func (c *Client) UnsendMessage(ctx context.Context, threadID, messageID string) error {
	path := fmt.Sprintf("/threads/%s/messages/%s", url.PathEscape(threadID), url.PathEscape(messageID))
	return c.call(ctx, http.MethodDelete, path, "unsend_message", nil, nil)
}

// GetThreadInfo возвращает сведения о треде.
func (c *Client) GetThreadInfo(ctx context.Context, threadID string) (domain.ThreadInfo, error) {
	var info domain.ThreadInfo
	path := "/threads/" + url.PathEscape(threadID)
	if err := c.call(ctx, http.MethodGet, path, "get_thread_info", nil, &info); err != nil {
		return domain.ThreadInfo{}, err
	}
	return info, nil
}

type userInfoResponse struct {
	Users map[string]domain.UserInfo `json:"users"`
}

// GetUserInfo возвращает сведения о пользователях по идентификаторам.
func (c *Client) GetUserInfo(ctx context.Context, uids ...string) (map[string]domain.UserInfo, error) {
	if len(uids) == 0 {
		return map[string]domain.UserInfo{}, nil
	}
	var resp userInfoResponse
	path := "/users?ids=" + url.QueryEscape(strings.Join(uids, ","))
	if err := c.call(ctx, http.MethodGet, path, "get_user_info", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Users == nil {
		resp.Users = map[string]domain.UserInfo{}
	}
	return resp.Users, nil
}

func (c *Client) call(ctx context.Context, method, path, operation string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.APIBaseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("chatapi", operation, path, start, err)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s failed: status %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
