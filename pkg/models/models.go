package models

import (
	"image"
	"time"
)

// CandidateContext tells where in the article an image reference was found
type CandidateContext int

const (
	ContextBody    CandidateContext = iota // Anywhere in the rendered page
	ContextInfobox                         // Inside the first infobox table
)

func (c CandidateContext) String() string {
	if c == ContextInfobox {
		return "infobox"
	}
	return "body"
}

// ImageCandidate is an image reference discovered in article markup, not yet fetched or validated.
// SourceReference may be protocol-relative, root-relative or absolute.
type ImageCandidate struct {
	SourceReference string
	Context         CandidateContext
}

// FetchedImage is a decoded payload. Held only for one relevance check or one delivery.
type FetchedImage struct {
	Raw    []byte
	Format string // Decoder name reported by image.Decode (png, jpeg, gif, webp, ...)
	Width  int
	Height int
	Image  image.Image
}

// QuizQuestion is one line of the question file
type QuizQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuizSession is the per-chat quiz progress stored in a SessionStore
type QuizSession struct {
	ChatID    int64          `json:"chat_id"`
	Questions []QuizQuestion `json:"questions"`
	Index     int            `json:"index"` // Next question to be answered
	Score     int            `json:"score"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Done reports whether every question has been answered
func (s *QuizSession) Done() bool {
	return s.Index >= len(s.Questions)
}

// Current returns the question awaiting an answer. Callers must check Done first.
func (s *QuizSession) Current() QuizQuestion {
	return s.Questions[s.Index]
}
