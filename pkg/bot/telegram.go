package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Sriram-PR/wiki-bot/pkg/config"
	"github.com/Sriram-PR/wiki-bot/pkg/log"
	"github.com/Sriram-PR/wiki-bot/pkg/process"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// Telegram answers this description when Markdown entities do not balance
const parseEntitiesError = "can't parse entities"

// TelegramTransport implements Transport on the Telegram Bot API (long polling)
type TelegramTransport struct {
	api         *tgbotapi.BotAPI
	limiter     *rate.Limiter
	maxLen      int
	pollTimeout time.Duration
	menu        tgbotapi.ReplyKeyboardMarkup
	log         *logrus.Entry
}

// NewTelegramTransport authenticates with the Bot API. endpoint is a tgbotapi endpoint
// format ("https://api.telegram.org/bot%s/%s"); empty selects the public API.
// client may be nil.
func NewTelegramTransport(cfg config.BotConfig, endpoint string, client *http.Client, logger *logrus.Entry) (*TelegramTransport, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.PollTimeout + 30*time.Second}
	}
	if err := tgbotapi.SetLogger(log.NewTelegramLogrusAdapter(logger)); err != nil {
		logger.Warnf("Failed to install telegram logger: %v", err)
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("%w: authenticating bot: %w", utils.ErrTransport, err)
	}
	api.Debug = cfg.Debug

	t := &TelegramTransport{
		api:         api,
		limiter:     rate.NewLimiter(rate.Limit(cfg.SendRatePerSecond), cfg.SendBurst),
		maxLen:      cfg.MaxMessageLength,
		pollTimeout: cfg.PollTimeout,
		menu:        menuKeyboard(),
		log:         logger.WithField("component", "telegram"),
	}
	t.log.Infof("Authorized on account @%s", api.Self.UserName)
	return t, nil
}

func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, row := range MenuRows() {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// Updates starts long polling. The returned channel closes after ctx is done.
func (t *TelegramTransport) Updates(ctx context.Context) (<-chan Message, error) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(t.pollTimeout / time.Second)
	u.AllowedUpdates = []string{"message"}
	in := t.api.GetUpdatesChan(u)

	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				t.api.StopReceivingUpdates()
				return
			case upd, ok := <-in:
				if !ok {
					return
				}
				msg, ok := toMessage(upd)
				if !ok {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					t.api.StopReceivingUpdates()
					return
				}
			}
		}
	}()
	return out, nil
}

func toMessage(upd tgbotapi.Update) (Message, bool) {
	m := upd.Message
	if m == nil || m.Chat == nil {
		return Message{}, false
	}
	msg := Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Text:      m.Text,
		Date:      m.Time(),
	}
	if m.From != nil {
		msg.UserID = m.From.ID
		msg.Username = m.From.UserName
	}
	return msg, true
}

// Send delivers r, split into transport-sized chunks. The first chunk quotes
// r.ReplyTo and the last carries the menu. Markdown rejected by Telegram is
// resent as plain text.
func (t *TelegramTransport) Send(ctx context.Context, chatID int64, r Reply) error {
	chunks := process.SplitMessage(r.Text, t.maxLen)
	for i, chunk := range chunks {
		cfg := tgbotapi.NewMessage(chatID, chunk)
		if i == 0 {
			cfg.ReplyToMessageID = r.ReplyTo
		}
		if r.ShowMenu && i == len(chunks)-1 {
			cfg.ReplyMarkup = t.menu
		}
		if r.Markdown {
			cfg.ParseMode = tgbotapi.ModeMarkdown
		}

		err := t.send(ctx, cfg)
		if err != nil && r.Markdown && strings.Contains(err.Error(), parseEntitiesError) {
			t.log.WithField("chat_id", chatID).Debugf("Markdown rejected, resending as plain text: %v", err)
			cfg.ParseMode = ""
			cfg.Text = process.StripMarkdown(chunk)
			err = t.send(ctx, cfg)
		}
		if err != nil {
			return fmt.Errorf("%w: sendMessage to %d: %w", utils.ErrTransport, chatID, err)
		}
	}
	return nil
}

// SendPhoto uploads a PNG payload
func (t *TelegramTransport) SendPhoto(ctx context.Context, chatID int64, png []byte, replyTo int) error {
	cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "image.png", Bytes: png})
	cfg.ReplyToMessageID = replyTo
	if err := t.send(ctx, cfg); err != nil {
		return fmt.Errorf("%w: sendPhoto to %d: %w", utils.ErrTransport, chatID, err)
	}
	return nil
}

// send waits for the outgoing rate limit and honours one flood-control retry_after
func (t *TelegramTransport) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := t.api.Request(c)
	if retryAfter := floodWait(err); retryAfter > 0 {
		t.log.Warnf("Flood control, retrying in %s", retryAfter)
		timer := time.NewTimer(retryAfter)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		_, err = t.api.Request(c)
	}
	return err
}

func floodWait(err error) time.Duration {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return time.Duration(tgErr.RetryAfter) * time.Second
	}
	return 0
}
