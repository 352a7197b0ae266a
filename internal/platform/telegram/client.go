package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"brashlens-backend/internal/common/logger"
	"brashlens-backend/internal/service/bot"
)

// maxFloodWait caps the retry_after delay honoured before giving up.
const maxFloodWait = time.Minute

// RPSError is returned when Telegram keeps rejecting a request for flood control.
type RPSError struct {
	RetryAfter time.Duration
	Msg        string
}

func (e *RPSError) Error() string {
	return fmt.Sprintf("telegram flood control: %s (retry after %s)", e.Msg, e.RetryAfter)
}

// Client sends renders through the Bot API and converts updates into bot events.
type Client struct {
	api *tgbotapi.BotAPI
	log zerolog.Logger
}

var _ bot.Sender = (*Client)(nil)

// NewClient authenticates the token against the Bot API.
func NewClient(token string, debug bool) (*Client, error) {
	return NewClientWithEndpoint(token, tgbotapi.APIEndpoint, debug)
}

// NewClientWithEndpoint is NewClient against a custom Bot API server.
func NewClientWithEndpoint(token, endpoint string, debug bool) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("empty telegram bot token")
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = debug

	l := logger.Component("telegram")
	l.Info().Str("bot_username", api.Self.UserName).Msg("Telegram client initialized")
	return &Client{api: api, log: l}, nil
}

// Username asks getMe for the bot's own username.
func (c *Client) Username(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	me, err := c.api.GetMe()
	if err != nil {
		return "", err
	}
	return me.UserName, nil
}

// Send delivers a new message or edits an existing one.
func (c *Client) Send(ctx context.Context, r bot.Render) error {
	var msg tgbotapi.Chattable
	if r.EditMessageID != 0 {
		edit := tgbotapi.NewEditMessageText(r.ChatID, r.EditMessageID, r.Text)
		if r.Markdown {
			edit.ParseMode = tgbotapi.ModeMarkdown
		}
		if kb := keyboard(r.Keyboard); kb != nil {
			edit.ReplyMarkup = kb
		}
		msg = edit
	} else {
		m := tgbotapi.NewMessage(r.ChatID, r.Text)
		if r.Markdown {
			m.ParseMode = tgbotapi.ModeMarkdown
		}
		if kb := keyboard(r.Keyboard); kb != nil {
			m.ReplyMarkup = *kb
		}
		msg = m
	}

	err := c.request(ctx, msg)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

// AnswerCallback stops the client-side spinner, optionally with a toast or alert.
func (c *Client) AnswerCallback(ctx context.Context, a bot.CallbackAnswer) error {
	if a.CallbackID == "" {
		return nil
	}
	cfg := tgbotapi.NewCallback(a.CallbackID, a.Text)
	if a.Alert {
		cfg = tgbotapi.NewCallbackWithAlert(a.CallbackID, a.Text)
	}
	return c.request(ctx, cfg)
}

// request performs the call and retries once after the delay a 429 asks for.
func (c *Client) request(ctx context.Context, msg tgbotapi.Chattable) error {
	_, err := c.api.Request(msg)
	if err == nil {
		return nil
	}

	wait, ok := retryAfter(err)
	if !ok {
		return err
	}
	if wait > maxFloodWait {
		return &RPSError{RetryAfter: wait, Msg: err.Error()}
	}

	c.log.Warn().Dur("retry_after", wait).Msg("Flood control hit, waiting before retry")
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return ctx.Err()
	}

	if _, err := c.api.Request(msg); err != nil {
		if wait, ok := retryAfter(err); ok {
			return &RPSError{RetryAfter: wait, Msg: err.Error()}
		}
		return err
	}
	return nil
}

func retryAfter(err error) (time.Duration, bool) {
	var tgErr *tgbotapi.Error
	if !errors.As(err, &tgErr) || tgErr.RetryAfter <= 0 {
		return 0, false
	}
	return time.Duration(tgErr.RetryAfter) * time.Second, true
}

func keyboard(rows [][]bot.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		kbRows = append(kbRows, buttons)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	return &kb
}

// ToEvent converts an update into a bot event. Updates without a user are skipped.
func ToEvent(u tgbotapi.Update) (bot.Event, bool) {
	if cq := u.CallbackQuery; cq != nil && cq.From != nil {
		ev := bot.Event{
			Kind:       bot.EventCallback,
			ChatID:     cq.From.ID,
			UserID:     cq.From.ID,
			Data:       cq.Data,
			CallbackID: cq.ID,
		}
		if cq.Message != nil {
			ev.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				ev.ChatID = cq.Message.Chat.ID
			}
		}
		fillUser(&ev, cq.From)
		return ev, true
	}

	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return bot.Event{}, false
	}
	ev := bot.Event{
		ChatID: msg.Chat.ID,
		UserID: msg.From.ID,
	}
	if msg.IsCommand() {
		ev.Kind = bot.EventCommand
		ev.Command = msg.Command()
	} else {
		ev.Kind = bot.EventText
		ev.Data = msg.Text
	}
	fillUser(&ev, msg.From)
	return ev, true
}

func fillUser(ev *bot.Event, from *tgbotapi.User) {
	ev.Username = from.UserName
	ev.FirstName = from.FirstName
	ev.LastName = from.LastName
	ev.LanguageCode = from.LanguageCode
}
