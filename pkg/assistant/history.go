package assistant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/utils"
	"github.com/Sriram-PR/wiki-bot/pkg/wiki"
)

// eventSeparator splits "1914 – Event text" lines of date articles (an en dash with spaces)
const eventSeparator = " – "

// DayTitle is the encyclopedia title of a calendar day, e.g. "May 4"
func DayTitle(day time.Time) string {
	return day.Format("January 2")
}

// OnThisDay lists the events of day's date from the configured section and subsection
// that happened before the configured year. Every expected absence is reported as a
// user-facing text with a nil error.
func (s *Service) OnThisDay(ctx context.Context, day time.Time) (string, error) {
	title := DayTitle(day)
	text, err := s.articles.PlainText(ctx, title)
	if errors.Is(err, utils.ErrPageNotFound) {
		return TextPageNotFound, nil
	}
	if err != nil {
		return "", err
	}

	root := wiki.ParseSections(text)
	section := root.FindSection(s.history.Section)
	if section == nil {
		return TextNoEventsForDate, nil
	}

	var sb strings.Builder
	for _, sub := range section.Sections {
		if sub.Title == s.history.Subsection {
			sb.WriteString(sub.Text)
			sb.WriteString("\n")
		}
	}

	events := FilterEvents(sb.String(), s.history.BeforeYear)
	if len(events) == 0 {
		return NoEventsBefore(s.history.BeforeYear), nil
	}
	s.log.WithFields(logrus.Fields{"title": title, "events": len(events)}).Debug("Historical events selected")
	return strings.Join(events, "\n"), nil
}

// NoEventsBefore is the reply when the subsection has no event older than year
func NoEventsBefore(year int) string {
	return fmt.Sprintf("No historical events found before %d.", year)
}

// FilterEvents keeps the non-blank lines of the form "<year> – <event>" whose
// year is a positive integer below beforeYear. Lines keep their original text.
func FilterEvents(text string, beforeYear int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		yearStr, _, _ := strings.Cut(line, eventSeparator)
		year, ok := parseYear(strings.TrimSpace(yearStr))
		if ok && year > 0 && year < beforeYear {
			out = append(out, line)
		}
	}
	return out
}

// parseYear accepts only plain ASCII digits ("AD 79" and "44 BC" are rejected)
func parseYear(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
