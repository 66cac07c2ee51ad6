package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KNICEX/crypto-scout/internal/service/notification"
)

const defaultBaseURL = "https://api.telegram.org"

var _ notification.Transport = (*Service)(nil)

// Service Telegram Bot API 封装, 发送/编辑消息 + 长轮询拉取指令
type Service struct {
	token   string
	baseURL string
	cli     *http.Client
}

type Option func(s *Service)

func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(cli *http.Client) Option {
	return func(s *Service) {
		s.cli = cli
	}
}

func NewService(token string, opts ...Option) *Service {
	svc := &Service{
		token:   token,
		baseURL: defaultBaseURL,
		cli: &http.Client{
			Timeout: 40 * time.Second, // 大于 getUpdates 的长轮询窗口
		},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type apiResponse struct {
	Ok          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

// Update getUpdates 返回的单条更新, 只关心文本消息
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Chat      Chat   `json:"chat"`
}

type Chat struct {
	ID int64 `json:"id"`
}

func (s *Service) Send(ctx context.Context, recipient int64, text string) (notification.MessageRef, error) {
	payload := map[string]any{
		"chat_id": recipient,
		"text":    text,
	}
	raw, err := s.call(ctx, "sendMessage", payload)
	if err != nil {
		return 0, &notification.DeliveryError{Recipient: recipient, Op: "sendMessage", Err: err}
	}
	var msg sentMessage
	if err = json.Unmarshal(raw, &msg); err != nil {
		return 0, &notification.DeliveryError{Recipient: recipient, Op: "sendMessage", Err: err}
	}
	return notification.MessageRef(msg.MessageID), nil
}

func (s *Service) Edit(ctx context.Context, recipient int64, ref notification.MessageRef, text string) error {
	payload := map[string]any{
		"chat_id":    recipient,
		"message_id": int64(ref),
		"text":       text,
	}
	if _, err := s.call(ctx, "editMessageText", payload); err != nil {
		return &notification.DeliveryError{Recipient: recipient, Op: "editMessageText", Err: err}
	}
	return nil
}

// Updates 长轮询拉取指令, timeoutSec 为服务端挂起秒数
func (s *Service) Updates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	payload := map[string]any{
		"offset":  offset,
		"timeout": timeoutSec,
	}
	raw, err := s.call(ctx, "getUpdates", payload)
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err = json.Unmarshal(raw, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (s *Service) call(ctx context.Context, method string, payload map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/bot%s/%s", s.baseURL, s.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("telegram %s failed status=%d body=%s", method, resp.StatusCode, string(raw))
	}

	var apiResp apiResponse
	if err = json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, err
	}
	if !apiResp.Ok {
		return nil, fmt.Errorf("telegram %s failed: %s", method, apiResp.Description)
	}
	return apiResp.Result, nil
}
