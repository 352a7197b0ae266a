package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"brashlens-backend/internal/common/logger"
	"brashlens-backend/internal/domain/user"
)

// Accounts is the slice of the user service the conversation needs.
type Accounts interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*user.User, error)
	CreateUser(ctx context.Context, in user.Create) (*user.User, error)
	DeleteByTelegramID(ctx context.Context, telegramID int64) (bool, error)
}

// Observer receives one call per handled event.
type Observer interface {
	BotEvent(kind, outcome string)
}

const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeDenied  = "denied"
	outcomeUnknown = "unknown"
)

// Controller turns chat events into account operations and renders.
// Events of one user in a chat are handled one at a time; other sessions run concurrently.
type Controller struct {
	accounts Accounts
	sender   Sender
	gate     *Gate
	observer Observer
	sessions *sessionStore
	log      zerolog.Logger
}

// NewController wires the conversation. gate and observer may be nil.
func NewController(accounts Accounts, sender Sender, gate *Gate, observer Observer) *Controller {
	return &Controller{
		accounts: accounts,
		sender:   sender,
		gate:     gate,
		observer: observer,
		sessions: newSessionStore(),
		log:      logger.Component("bot"),
	}
}

// reply is what a transition renders back to the originating chat.
type reply struct {
	text     string
	markdown bool
	keyboard [][]Button
	// toast is the callback answer text; alert shows it as a modal.
	toast   string
	alert   bool
	outcome string
}

// State returns the current session state of userID in chatID.
func (c *Controller) State(chatID, userID int64) State {
	sess := c.sessions.get(chatID, userID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// Handle processes one inbound event. The returned error is a delivery failure only.
func (c *Controller) Handle(ctx context.Context, ev Event) error {
	if !c.gate.Allow(ev.UserID) {
		c.observe(ev.Kind, outcomeDenied)
		return c.deny(ctx, ev)
	}

	sess := c.sessions.get(ev.ChatID, ev.UserID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	var r reply
	switch ev.Kind {
	case EventCommand:
		r = c.handleCommand(ctx, sess, ev)
	case EventCallback:
		r = c.handleCallback(ctx, sess, ev)
	default:
		r = unknown()
	}

	c.observe(ev.Kind, r.outcome)
	c.log.Debug().
		Int64("user_id", ev.UserID).
		Str("kind", ev.Kind.String()).
		Str("state", sess.state.String()).
		Str("outcome", r.outcome).
		Msg("Event handled")

	return c.deliver(ctx, ev, r)
}

func (c *Controller) handleCommand(ctx context.Context, sess *session, ev Event) reply {
	switch ev.Command {
	case CommandStart:
		return c.start(ctx, sess, ev)
	case CommandDeleteMe:
		return c.requestDeletion(ctx, sess, ev)
	case CommandHelp:
		return reply{text: textHelp, outcome: outcomeOK}
	}
	return unknown()
}

func (c *Controller) handleCallback(ctx context.Context, sess *session, ev Event) reply {
	switch ev.Data {
	case CallbackRolePhotographer:
		return c.chooseRole(ctx, sess, ev, user.RolePhotographer)
	case CallbackRoleClient:
		return c.chooseRole(ctx, sess, ev, user.RoleClient)
	case CallbackDeleteMe:
		return c.requestDeletion(ctx, sess, ev)
	case CallbackDeleteConfirm:
		return c.confirmDeletion(ctx, sess, ev)
	case CallbackDeleteCancel:
		return c.cancelDeletion(sess, ev)
	}
	return unknown()
}

func (c *Controller) start(ctx context.Context, sess *session, ev Event) reply {
	u, err := c.accounts.GetByTelegramID(ctx, ev.UserID)
	if err != nil {
		c.log.Error().Err(err).Int64("user_id", ev.UserID).Msg("User lookup failed on /start")
		return reply{text: textTemporaryError, outcome: outcomeError}
	}

	sess.pendingDeletion = false
	if u != nil {
		sess.state = StateRegistered
		return reply{
			text:     welcomeBackText(u.FirstName, u.Role.String()),
			keyboard: [][]Button{{{Text: buttonDeleteMe, Data: CallbackDeleteMe}}},
			outcome:  outcomeOK,
		}
	}

	sess.state = StateRoleOffered
	c.log.Info().Int64("user_id", ev.UserID).Msg("Offering role choice")
	return reply{
		text: textChooseRole,
		keyboard: [][]Button{{
			{Text: buttonPhotographer, Data: CallbackRolePhotographer},
			{Text: buttonClient, Data: CallbackRoleClient},
		}},
		outcome: outcomeOK,
	}
}

func (c *Controller) chooseRole(ctx context.Context, sess *session, ev Event, role user.Role) reply {
	if sess.state != StateRoleOffered {
		return unknown()
	}

	in := user.Create{
		TelegramID: ev.UserID,
		Username:   optional(ev.Username),
		FirstName:  displayName(ev),
		LastName:   optional(ev.LastName),
		Language:   user.NormalizeLanguage(ev.LanguageCode),
		Role:       role,
	}
	if _, err := c.accounts.CreateUser(ctx, in); err != nil {
		c.log.Error().Err(err).Int64("user_id", ev.UserID).Str("role", role.String()).Msg("Registration failed")
		return reply{text: textRegistrationFailed, outcome: outcomeError}
	}

	sess.state = StateRegistered
	c.log.Info().Int64("user_id", ev.UserID).Str("role", role.String()).Msg("User registered")

	text := textRegisteredClient
	if role == user.RolePhotographer {
		text = textRegisteredPhotographer
	}
	return reply{text: text, outcome: outcomeOK}
}

func (c *Controller) requestDeletion(ctx context.Context, sess *session, ev Event) reply {
	u, err := c.accounts.GetByTelegramID(ctx, ev.UserID)
	if err != nil {
		c.log.Error().Err(err).Int64("user_id", ev.UserID).Msg("User lookup failed on delete request")
		return reply{text: textTemporaryError, outcome: outcomeError}
	}
	if u == nil {
		return reply{text: textAlreadyDeleted, toast: textAccountNotFoundAlert, alert: true, outcome: outcomeOK}
	}

	sess.pendingDeletion = true
	sess.state = StateDeletionPending
	c.log.Info().Int64("user_id", ev.UserID).Msg("Account deletion confirmation requested")
	return reply{
		text:     textDeleteConfirm,
		markdown: true,
		keyboard: [][]Button{
			{{Text: buttonConfirmDelete, Data: CallbackDeleteConfirm}},
			{{Text: buttonCancelDelete, Data: CallbackDeleteCancel}},
		},
		outcome: outcomeOK,
	}
}

func (c *Controller) confirmDeletion(ctx context.Context, sess *session, ev Event) reply {
	if !sess.pendingDeletion {
		// No prompt was shown in this session: only a missing account gets a real answer.
		u, err := c.accounts.GetByTelegramID(ctx, ev.UserID)
		if err != nil {
			c.log.Error().Err(err).Int64("user_id", ev.UserID).Msg("User lookup failed on delete confirm")
			return reply{text: textTemporaryError, outcome: outcomeError}
		}
		if u == nil {
			return reply{text: textAlreadyDeleted, outcome: outcomeOK}
		}
		return unknown()
	}

	sess.pendingDeletion = false
	deleted, err := c.accounts.DeleteByTelegramID(ctx, ev.UserID)
	if err != nil {
		sess.state = StateRegistered
		c.log.Error().Err(err).Int64("user_id", ev.UserID).Msg("Account deletion failed")
		return reply{text: textDeleteFailed, outcome: outcomeError}
	}

	sess.state = StateDeleted
	if !deleted {
		return reply{text: textAlreadyDeleted, outcome: outcomeOK}
	}
	c.log.Info().Int64("user_id", ev.UserID).Msg("Account deleted by user")
	return reply{text: textDeleted, markdown: true, outcome: outcomeOK}
}

func (c *Controller) cancelDeletion(sess *session, ev Event) reply {
	if !sess.pendingDeletion {
		return unknown()
	}
	sess.pendingDeletion = false
	sess.state = StateRegistered
	c.log.Info().Int64("user_id", ev.UserID).Msg("Account deletion cancelled")
	return reply{text: textDeleteCancelled, toast: textDeleteCancelledToast, outcome: outcomeOK}
}

func (c *Controller) deny(ctx context.Context, ev Event) error {
	c.log.Warn().
		Int64("user_id", ev.UserID).
		Str("attempt", describe(ev)).
		Msg("Unauthorized access attempt to test bot")

	return c.deliver(ctx, ev, reply{
		text:     textAccessDenied,
		markdown: true,
		toast:    textAccessDeniedAlert,
		alert:    true,
	})
}

// deliver answers callbacks and edits their message; commands get a new message.
func (c *Controller) deliver(ctx context.Context, ev Event, r reply) error {
	render := Render{
		ChatID:   ev.ChatID,
		Text:     r.text,
		Markdown: r.markdown,
		Keyboard: r.keyboard,
	}
	if ev.Kind == EventCallback {
		if err := c.sender.AnswerCallback(ctx, CallbackAnswer{CallbackID: ev.CallbackID, Text: r.toast, Alert: r.alert}); err != nil {
			c.log.Warn().Err(err).Int64("user_id", ev.UserID).Msg("Failed to answer callback")
		}
		render.EditMessageID = ev.MessageID
	}
	if err := c.sender.Send(ctx, render); err != nil {
		return fmt.Errorf("send reply to chat %d: %w", ev.ChatID, err)
	}
	return nil
}

func (c *Controller) observe(kind EventKind, outcome string) {
	if c.observer != nil {
		c.observer.BotEvent(kind.String(), outcome)
	}
}

func unknown() reply {
	return reply{text: textUnknownCommand, outcome: outcomeUnknown}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func displayName(ev Event) string {
	if name := strings.TrimSpace(ev.FirstName); name != "" {
		return name
	}
	if ev.Username != "" {
		return ev.Username
	}
	return "User"
}

func describe(ev Event) string {
	switch ev.Kind {
	case EventCommand:
		return "command: /" + ev.Command
	case EventCallback:
		return "callback: " + ev.Data
	}
	text := ev.Data
	if r := []rune(text); len(r) > 50 {
		text = string(r[:50])
	}
	return "text: " + text
}
