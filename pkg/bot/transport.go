package bot

import (
	"context"
	"time"
)

// Message is one incoming text update
type Message struct {
	ChatID    int64
	MessageID int
	UserID    int64
	Username  string
	Text      string
	Date      time.Time
	RequestID string // Set by the Dispatcher for log correlation
}

// Reply is one outgoing text message
type Reply struct {
	Text     string
	ReplyTo  int  // Message ID to quote; 0 = none
	ShowMenu bool // Attach the main menu keyboard
	Markdown bool // Text uses Markdown emphasis
}

// Sender delivers replies to a chat
type Sender interface {
	Send(ctx context.Context, chatID int64, r Reply) error
	SendPhoto(ctx context.Context, chatID int64, png []byte, replyTo int) error
}

// Transport is a chat network. *TelegramTransport is the production implementation.
type Transport interface {
	Sender
	// Updates streams incoming messages until ctx is done, then closes the channel
	Updates(ctx context.Context) (<-chan Message, error)
}
