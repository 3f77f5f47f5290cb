package bot

import "strings"

// Main menu buttons. Pressing one sends its label as a text message.
const (
	ButtonQuiz          = "Quiz"
	ButtonHistory       = "Historical retrospective"
	ButtonRandomArticle = "Random article"
	ButtonRandomQuote   = "Random quote"
)

const menuRowWidth = 2

var menuButtons = []string{ButtonQuiz, ButtonHistory, ButtonRandomArticle, ButtonRandomQuote}

// MenuRows lays the main menu out in rows of menuRowWidth buttons
func MenuRows() [][]string {
	var rows [][]string
	for i := 0; i < len(menuButtons); i += menuRowWidth {
		end := min(i+menuRowWidth, len(menuButtons))
		rows = append(rows, append([]string(nil), menuButtons[i:end]...))
	}
	return rows
}

// Commands understood by the router
const (
	CommandStart = "start"
	CommandQuiz  = "quiz"
)

// parseCommand extracts the command name from "/name", "/name@bot" or "/name args".
// ok is false for anything that is not a command.
func parseCommand(text string) (name string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return "", false
	}
	name = text[1:]
	if i := strings.IndexAny(name, " \t\n"); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), name != ""
}
