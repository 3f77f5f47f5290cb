package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/assistant"
	"github.com/Sriram-PR/wiki-bot/pkg/mainimage"
	"github.com/Sriram-PR/wiki-bot/pkg/metrics"
	"github.com/Sriram-PR/wiki-bot/pkg/quiz"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// Route labels used in logs and metrics
const (
	RouteIgnored       = "ignored"
	RouteStart         = "start"
	RouteQuizStart     = "quiz_start"
	RouteQuizAnswer    = "quiz_answer"
	RouteHistory       = "history"
	RouteRandomArticle = "random_article"
	RouteRandomQuote   = "random_quote"
	RouteArticle       = "article"
	RouteUnknownCmd    = "unknown_command"
)

const (
	TextGreeting    = "Hello! Write me a name or event, and I will find a Wikipedia article for you."
	TextUnavailable = "Sorry, Wikipedia could not be reached. Please try again later."
	TextUnknownCmd  = "Unknown command. Use the menu buttons or send me a name or event."

	TextQuizUnavailable = "Sorry, the quiz could not be started. Please try again later."
)

// Assistant is the content side of the bot. *assistant.Service satisfies it.
type Assistant interface {
	Article(ctx context.Context, title string) (*assistant.Article, error)
	MainImage(ctx context.Context, title string) *mainimage.Result
	RandomArticle(ctx context.Context) (string, error)
	RandomQuote(ctx context.Context) (string, error)
	OnThisDay(ctx context.Context, day time.Time) (string, error)
}

// QuizRunner is the quiz side of the bot. *quiz.Manager satisfies it.
type QuizRunner interface {
	Start(ctx context.Context, chatID int64) (string, error)
	Answer(ctx context.Context, chatID int64, text string) (*quiz.AnswerResult, error)
	Active(ctx context.Context, chatID int64) (bool, error)
	Cancel(ctx context.Context, chatID int64) error
}

// Router turns one incoming message into replies
type Router struct {
	svc    Assistant
	quiz   QuizRunner
	sender Sender
	log    *logrus.Entry
	now    func() time.Time
}

// NewRouter creates a Router
func NewRouter(svc Assistant, quizRunner QuizRunner, sender Sender, log *logrus.Entry) *Router {
	return &Router{
		svc:    svc,
		quiz:   quizRunner,
		sender: sender,
		log:    log.WithField("component", "router"),
		now:    time.Now,
	}
}

// Handle routes msg. Slash commands win over a running quiz; any other text
// during a quiz is taken as the answer to the current question.
func (r *Router) Handle(ctx context.Context, msg Message) (err error) {
	start := time.Now()
	route := RouteIgnored
	reqLog := r.log.WithFields(logrus.Fields{"chat_id": msg.ChatID, "request_id": msg.RequestID})

	defer func() {
		metrics.ObserveUpdate(route, time.Since(start))
		if err != nil {
			category := utils.CategorizeError(err)
			metrics.IncHandlerError(route, category)
			reqLog.WithFields(logrus.Fields{"route": route, "category": category}).Errorf("Handler failed: %v", err)
			return
		}
		reqLog.WithField("route", route).Debugf("Handled in %s", time.Since(start))
	}()

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}

	if cmd, ok := parseCommand(text); ok {
		switch cmd {
		case CommandStart:
			route = RouteStart
			return r.handleStart(ctx, msg)
		case CommandQuiz:
			route = RouteQuizStart
			return r.handleQuizStart(ctx, msg)
		}
	}

	active, activeErr := r.quiz.Active(ctx, msg.ChatID)
	if activeErr != nil {
		// Session backend down: fall through to normal routing rather than swallowing the message
		reqLog.Warnf("Quiz session lookup failed: %v", activeErr)
	}
	if active {
		route = RouteQuizAnswer
		return r.handleQuizAnswer(ctx, msg, text)
	}

	switch text {
	case ButtonQuiz:
		route = RouteQuizStart
		return r.handleQuizStart(ctx, msg)
	case ButtonHistory:
		route = RouteHistory
		return r.replyGenerated(ctx, msg, func(ctx context.Context) (string, error) {
			return r.svc.OnThisDay(ctx, r.now())
		}, false)
	case ButtonRandomArticle:
		route = RouteRandomArticle
		return r.replyGenerated(ctx, msg, r.svc.RandomArticle, true)
	case ButtonRandomQuote:
		route = RouteRandomQuote
		return r.replyGenerated(ctx, msg, r.svc.RandomQuote, true)
	}

	if strings.HasPrefix(text, "/") {
		route = RouteUnknownCmd
		return r.sender.Send(ctx, msg.ChatID, Reply{Text: TextUnknownCmd, ShowMenu: true})
	}

	route = RouteArticle
	return r.handleArticle(ctx, msg, text)
}

func (r *Router) handleStart(ctx context.Context, msg Message) error {
	if err := r.quiz.Cancel(ctx, msg.ChatID); err != nil {
		r.log.WithField("chat_id", msg.ChatID).Warnf("Failed to cancel quiz on /start: %v", err)
	}
	return r.sender.Send(ctx, msg.ChatID, Reply{Text: TextGreeting, ShowMenu: true})
}

func (r *Router) handleQuizStart(ctx context.Context, msg Message) error {
	prompt, err := r.quiz.Start(ctx, msg.ChatID)
	if errors.Is(err, quiz.ErrNoQuestions) {
		return r.sender.Send(ctx, msg.ChatID, Reply{Text: quiz.TextNoQuestions})
	}
	if err != nil {
		if sendErr := r.sender.Send(ctx, msg.ChatID, Reply{Text: TextQuizUnavailable, ShowMenu: true}); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}
	return r.sender.Send(ctx, msg.ChatID, Reply{Text: prompt})
}

func (r *Router) handleQuizAnswer(ctx context.Context, msg Message, text string) error {
	res, err := r.quiz.Answer(ctx, msg.ChatID, text)
	if errors.Is(err, quiz.ErrNoSession) {
		return r.sender.Send(ctx, msg.ChatID, Reply{Text: quiz.TextNotFound, ShowMenu: true})
	}
	if err != nil {
		return err
	}
	for i, line := range res.Messages() {
		// Menu comes back with the final score
		last := res.Finished && i == len(res.Messages())-1
		if err := r.sender.Send(ctx, msg.ChatID, Reply{Text: line, ShowMenu: last}); err != nil {
			return err
		}
	}
	return nil
}

// replyGenerated sends the text produced by gen with the main menu. A failing
// generator still gets a reply so the user is never left waiting.
func (r *Router) replyGenerated(ctx context.Context, msg Message, gen func(context.Context) (string, error), markdown bool) error {
	text, err := gen(ctx)
	if err != nil {
		if sendErr := r.sender.Send(ctx, msg.ChatID, Reply{Text: TextUnavailable, ShowMenu: true}); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}
	return r.sender.Send(ctx, msg.ChatID, Reply{Text: text, ShowMenu: true, Markdown: markdown})
}

// handleArticle replies with the article summary, then with its main image
func (r *Router) handleArticle(ctx context.Context, msg Message, query string) error {
	art, err := r.svc.Article(ctx, query)
	if errors.Is(err, utils.ErrPageNotFound) {
		return r.sender.Send(ctx, msg.ChatID, Reply{Text: assistant.TextArticleNotFound, ReplyTo: msg.MessageID, ShowMenu: true})
	}
	if err != nil {
		if sendErr := r.sender.Send(ctx, msg.ChatID, Reply{Text: TextUnavailable, ReplyTo: msg.MessageID, ShowMenu: true}); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}

	if err := r.sender.Send(ctx, msg.ChatID, Reply{Text: art.Text, ReplyTo: msg.MessageID}); err != nil {
		return err
	}

	// Image problems never fail the request; the pipeline already logged the cause
	res := r.svc.MainImage(ctx, query)
	if res != nil && res.Found() {
		return r.sender.SendPhoto(ctx, msg.ChatID, res.PNG, 0)
	}
	return r.sender.Send(ctx, msg.ChatID, Reply{Text: assistant.TextNoImages, ReplyTo: msg.MessageID})
}
