// Package telegram is a minimal client of the Telegram Bot API. It sends
// messages and long-polls getUpdates for commands.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/CZERTAINLY/dfswatch/internal/model"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second

	// MaxMessageLen is the limit of a single sendMessage text.
	MaxMessageLen = 4096

	defaultPollTimeout = 30 * time.Second
)

var ErrRecipient = errors.New("invalid telegram chat id")

// Handler is called for each text message received from an allowed chat.
type Handler func(ctx context.Context, chatID int64, text string)

// Client implements model.Notifier. Recipients are decimal chat ids.
type Client struct {
	Token string
	// BaseURL overrides the Telegram API base for testing.
	BaseURL string
	// AllowedChats limits the chats whose messages are handled, empty means
	// any chat.
	AllowedChats []int64
	// PollTimeout is the long-poll timeout passed to getUpdates.
	PollTimeout time.Duration

	client http.Client
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	offset int64
}

func New(cfg model.Telegram) *Client {
	return &Client{
		Token:        cfg.Token,
		BaseURL:      cfg.BaseURL,
		AllowedChats: slices.Clone(cfg.AllowedChats),
	}
}

func (c *Client) apiURL(method string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = model.DefaultTelegramBaseURL
	}
	return fmt.Sprintf("%s/bot%s/%s", base, c.Token, method)
}

// Notify sends text to the chat identified by recipient.
func (c *Client) Notify(ctx context.Context, recipient, text string) error {
	chatID, err := ParseChatID(recipient)
	if err != nil {
		return err
	}
	return c.Send(ctx, chatID, text)
}

// Send posts text to chatID, split into several messages when it exceeds
// MaxMessageLen.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range splitMessage(text, MaxMessageLen) {
		if err := c.sendMessage(ctx, chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) sendMessage(ctx context.Context, chatID int64, text string) error {
	form := url.Values{
		"chat_id": {strconv.FormatInt(chatID, 10)},
		"text":    {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("telegram send: decode response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("telegram send: API error: %s", result.Description)
	}
	return nil
}

// Start begins long-polling for incoming messages in a new goroutine, which
// calls handler for each message from an allowed chat. Handler runs on the
// polling goroutine.
func (c *Client) Start(ctx context.Context, handler Handler) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Go(func() {
		c.poll(ctx, handler)
	})
}

// Stop cancels the polling goroutine and waits for it to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

func (c *Client) Close() error {
	c.Stop()
	return nil
}

func (c *Client) poll(ctx context.Context, handler Handler) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := c.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.WarnContext(ctx, "telegram getUpdates failed: retrying", "error", err, "backoff", backoff.String())
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = initialBackoff

		for _, u := range updates {
			c.mu.Lock()
			if u.UpdateID >= c.offset {
				c.offset = u.UpdateID + 1
			}
			c.mu.Unlock()
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			if !c.allowed(u.Message.Chat.ID) {
				slog.DebugContext(ctx, "ignoring message from a foreign chat", "chat_id", u.Message.Chat.ID)
				continue
			}
			handler(ctx, u.Message.Chat.ID, u.Message.Text)
		}
	}
}

func (c *Client) allowed(chatID int64) bool {
	return len(c.AllowedChats) == 0 || slices.Contains(c.AllowedChats, chatID)
}

func (c *Client) getUpdates(ctx context.Context) ([]update, error) {
	timeout := c.PollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	c.mu.Lock()
	offset := c.offset
	c.mu.Unlock()
	params := url.Values{
		"offset":          {strconv.FormatInt(offset, 10)},
		"timeout":         {strconv.Itoa(int(timeout.Seconds()))},
		"allowed_updates": {`["message"]`},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL("getUpdates")+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var result getUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("getUpdates: decode response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("getUpdates: API error: %s", result.Description)
	}
	return result.Result, nil
}

// ParseChatID parses a decimal Telegram chat id.
func ParseChatID(recipient string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(recipient), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrRecipient, recipient)
	}
	return id, nil
}

// splitMessage splits s into chunks of at most limit runes, preferring to
// cut after the last newline of a chunk.
func splitMessage(s string, limit int) []string {
	runes := []rune(s)
	if len(runes) <= limit {
		return []string{s}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		if i := lastIndex(runes[:limit], '\n'); i > 0 {
			cut = i + 1
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

type getUpdatesResponse struct {
	OK          bool     `json:"ok"`
	Description string   `json:"description,omitempty"`
	Result      []update `json:"result"`
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message,omitempty"`
}

type message struct {
	Text string `json:"text"`
	Chat chat   `json:"chat"`
}

type chat struct {
	ID int64 `json:"id"`
}
