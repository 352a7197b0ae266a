package bot

import "context"

type EventKind int

const (
	EventCommand EventKind = iota
	EventCallback
	EventText
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventCallback:
		return "callback"
	default:
		return "text"
	}
}

// Event is an inbound chat event, independent of the transport.
type Event struct {
	Kind   EventKind
	ChatID int64
	UserID int64

	// Command without the slash, for EventCommand.
	Command string
	// Callback data for EventCallback, message text for EventText.
	Data string

	CallbackID string
	// MessageID of the message carrying the pressed button.
	MessageID int

	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
}

type Button struct {
	Text string
	Data string
}

// Render is an outbound message. A non-zero EditMessageID edits that message instead of sending a new one.
type Render struct {
	ChatID        int64
	Text          string
	Markdown      bool
	Keyboard      [][]Button
	EditMessageID int
}

type CallbackAnswer struct {
	CallbackID string
	Text       string
	Alert      bool
}

// Sender delivers renders back to the chat platform.
type Sender interface {
	Send(ctx context.Context, r Render) error
	AnswerCallback(ctx context.Context, a CallbackAnswer) error
}
