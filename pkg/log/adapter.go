package log

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// BadgerLogrusAdapter implements badger.Logger interface using logrus
type BadgerLogrusAdapter struct {
	*logrus.Entry // Embed logrus Entry
}

// NewBadgerLogrusAdapter creates a new adapter
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry.WithField("component", "badger")}
}

// Errorf logs an error message
func (l *BadgerLogrusAdapter) Errorf(f string, v ...interface{}) { l.Entry.Errorf(f, v...) }

// Warningf logs a warning message
func (l *BadgerLogrusAdapter) Warningf(f string, v ...interface{}) { l.Entry.Warningf(f, v...) }

// Infof logs an info message
func (l *BadgerLogrusAdapter) Infof(f string, v ...interface{}) { l.Entry.Infof(f, v...) }

// Debugf logs a debug message.
// Badger is chatty at debug level; those lines go to trace.
func (l *BadgerLogrusAdapter) Debugf(f string, v ...interface{}) { l.Entry.Tracef(f, v...) }

// TelegramLogrusAdapter implements the tgbotapi.BotLogger interface using logrus.
// The bot library only logs at one level, so everything lands at debug.
type TelegramLogrusAdapter struct {
	entry *logrus.Entry
}

// NewTelegramLogrusAdapter creates a new adapter
func NewTelegramLogrusAdapter(entry *logrus.Entry) *TelegramLogrusAdapter {
	return &TelegramLogrusAdapter{entry: entry.WithField("component", "telegram")}
}

// Println logs the operands separated by spaces
func (l *TelegramLogrusAdapter) Println(v ...interface{}) {
	l.entry.Debugln(v...)
}

// Printf logs a formatted message
func (l *TelegramLogrusAdapter) Printf(format string, v ...interface{}) {
	l.entry.Debugf(strings.TrimSuffix(format, "\n"), v...)
}
