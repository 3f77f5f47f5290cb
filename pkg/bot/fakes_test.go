package bot

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/assistant"
	"github.com/Sriram-PR/wiki-bot/pkg/mainimage"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

type sentPhoto struct {
	ChatID  int64
	PNG     []byte
	ReplyTo int
}

// recordingSender keeps every outgoing message
type recordingSender struct {
	mu      sync.Mutex
	replies []Reply
	chats   []int64
	photos  []sentPhoto
	err     error
}

func (s *recordingSender) Send(_ context.Context, chatID int64, r Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, r)
	s.chats = append(s.chats, chatID)
	return s.err
}

func (s *recordingSender) SendPhoto(_ context.Context, chatID int64, png []byte, replyTo int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos = append(s.photos, sentPhoto{ChatID: chatID, PNG: png, ReplyTo: replyTo})
	return s.err
}

func (s *recordingSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.replies))
	for i, r := range s.replies {
		out[i] = r.Text
	}
	return out
}

type fakeAssistant struct {
	article    *assistant.Article
	articleErr error
	image      *mainimage.Result
	random     string
	quote      string
	history    string
	genErr     error
	days       []time.Time
}

func (f *fakeAssistant) Article(context.Context, string) (*assistant.Article, error) {
	return f.article, f.articleErr
}

func (f *fakeAssistant) MainImage(context.Context, string) *mainimage.Result { return f.image }

func (f *fakeAssistant) RandomArticle(context.Context) (string, error) { return f.random, f.genErr }

func (f *fakeAssistant) RandomQuote(context.Context) (string, error) { return f.quote, f.genErr }

func (f *fakeAssistant) OnThisDay(_ context.Context, day time.Time) (string, error) {
	f.days = append(f.days, day)
	return f.history, f.genErr
}

// chanTransport feeds a fixed channel of messages to a Dispatcher
type chanTransport struct {
	recordingSender
	ch chan Message
}

func (c *chanTransport) Updates(context.Context) (<-chan Message, error) { return c.ch, nil }
