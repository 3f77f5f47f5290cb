package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/metrics"
	"github.com/Sriram-PR/wiki-bot/pkg/models"
	"github.com/Sriram-PR/wiki-bot/pkg/storage"
)

var (
	ErrNoQuestions = errors.New("no quiz questions available")
	ErrNoSession   = errors.New("no active quiz for chat")
)

// User-visible texts
const (
	TextNoQuestions = "No quiz questions available."
	TextNotFound    = "Quiz not found. Please start a new quiz by pressing the button."
	TextCorrect     = "Correct!"
)

// Manager runs quizzes. All progress lives in the SessionStore, so a Manager is safe
// for concurrent use as long as updates of one chat are handled in order.
type Manager struct {
	store      storage.SessionStore
	questions  []models.QuizQuestion
	perSession int
	log        *logrus.Entry
	perm       func(n int) []int
	now        func() time.Time
}

// NewManager creates a Manager sampling perSession questions (capped at len(questions)) per quiz
func NewManager(store storage.SessionStore, questions []models.QuizQuestion, perSession int, log *logrus.Entry) *Manager {
	if perSession <= 0 || perSession > len(questions) {
		perSession = len(questions)
	}
	return &Manager{
		store:      store,
		questions:  questions,
		perSession: perSession,
		log:        log.WithField("component", "quiz"),
		perm:       rand.Perm,
		now:        time.Now,
	}
}

// AnswerResult is the outcome of one answer
type AnswerResult struct {
	Verdict  models.AnswerVerdict
	Feedback string // "Correct!" or "Wrong! The correct answer is: ..."
	Next     string // Next question prompt; empty when Finished
	Finished bool
	Score    int
	Total    int
}

// Messages returns the replies to send, in order
func (r *AnswerResult) Messages() []string {
	if r.Finished {
		return []string{r.Feedback, FinishedText(r.Score, r.Total)}
	}
	return []string{r.Feedback, r.Next}
}

// FinishedText is the final score line
func FinishedText(score, total int) string {
	return fmt.Sprintf("Quiz finished! Your score: %d/%d", score, total)
}

// Prompt renders a question for sending. The question file drops the '?' separator, so it is put back.
func Prompt(q models.QuizQuestion) string {
	return q.Question + "?"
}

// Start samples a fresh set of questions for chatID, replacing any running quiz,
// and returns the first prompt.
func (m *Manager) Start(ctx context.Context, chatID int64) (string, error) {
	if len(m.questions) == 0 {
		return "", ErrNoQuestions
	}

	idx := m.perm(len(m.questions))[:m.perSession]
	picked := make([]models.QuizQuestion, len(idx))
	for i, j := range idx {
		picked[i] = m.questions[j]
	}

	now := m.now()
	sess := &models.QuizSession{
		ChatID:    chatID,
		Questions: picked,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Put(ctx, sess); err != nil {
		return "", fmt.Errorf("saving new quiz session: %w", err)
	}

	metrics.IncQuizEvent("started")
	m.log.WithField("chat_id", chatID).Debugf("Quiz started with %d question(s)", len(picked))
	return Prompt(sess.Current()), nil
}

// Active reports whether chatID has a quiz awaiting an answer
func (m *Manager) Active(ctx context.Context, chatID int64) (bool, error) {
	_, found, err := m.store.Get(ctx, chatID)
	return found, err
}

// Answer grades text against the current question. Comparison ignores case and
// surrounding whitespace. The session is removed once the last question is answered.
func (m *Manager) Answer(ctx context.Context, chatID int64, text string) (*AnswerResult, error) {
	sess, found, err := m.store.Get(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("loading quiz session: %w", err)
	}
	if !found || sess.Done() {
		return nil, ErrNoSession
	}

	current := sess.Current()
	res := &AnswerResult{Total: len(sess.Questions)}
	if strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(current.Answer)) {
		sess.Score++
		res.Verdict = models.VerdictCorrect
		res.Feedback = TextCorrect
	} else {
		res.Verdict = models.VerdictWrong
		res.Feedback = "Wrong! The correct answer is: " + current.Answer
	}
	metrics.IncQuizEvent(res.Verdict.String())

	sess.Index++
	sess.UpdatedAt = m.now()
	res.Score = sess.Score

	logEntry := m.log.WithFields(logrus.Fields{"chat_id": chatID, "verdict": res.Verdict})
	if sess.Done() {
		res.Finished = true
		if err := m.store.Delete(ctx, chatID); err != nil {
			return nil, fmt.Errorf("removing finished quiz session: %w", err)
		}
		metrics.IncQuizEvent("finished")
		logEntry.Debugf("Quiz finished with score %d/%d", res.Score, res.Total)
		return res, nil
	}

	if err := m.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("saving quiz progress: %w", err)
	}
	res.Next = Prompt(sess.Current())
	logEntry.Debugf("Question %d/%d answered", sess.Index, res.Total)
	return res, nil
}

// Cancel drops a running quiz without reporting a score
func (m *Manager) Cancel(ctx context.Context, chatID int64) error {
	return m.store.Delete(ctx, chatID)
}

// QuestionCount is the size of the loaded question pool
func (m *Manager) QuestionCount() int { return len(m.questions) }
