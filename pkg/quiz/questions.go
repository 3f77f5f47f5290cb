package quiz

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Sriram-PR/wiki-bot/pkg/models"
)

// LoadQuestions reads a question file. Each usable line has the form
// "question?answer" with exactly one '?'; every other line is skipped.
func LoadQuestions(path string) ([]models.QuizQuestion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening questions file %s: %w", path, err)
	}
	defer f.Close()
	return ParseQuestions(f)
}

// ParseQuestions is LoadQuestions over an arbitrary reader
func ParseQuestions(r io.Reader) ([]models.QuizQuestion, error) {
	var out []models.QuizQuestion
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		parts := strings.Split(line, "?")
		if len(parts) != 2 {
			continue
		}
		q, a := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if q == "" || a == "" {
			continue
		}
		out = append(out, models.QuizQuestion{Question: q, Answer: a})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}
	return out, nil
}
