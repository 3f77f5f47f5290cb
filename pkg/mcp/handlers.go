package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/assistant"
	"github.com/Sriram-PR/wiki-bot/pkg/metrics"
	"github.com/Sriram-PR/wiki-bot/pkg/process"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

const (
	defaultSnippetLength = 300
	maxSnippetLength     = 2000
)

// instrument logs every tool call with a request id and counts failures
func (s *Server) instrument(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		log := s.log.WithFields(logrus.Fields{"tool": name, "request_id": uuid.NewString()})
		log.Debug("Tool call")

		res, err := h(ctx, request)
		if err != nil {
			metrics.IncHandlerError("mcp_"+name, utils.CategorizeError(err))
		} else if res != nil && res.IsError {
			metrics.IncHandlerError("mcp_"+name, "Tool_Error")
		}
		log.WithField("duration", time.Since(start)).Info("Tool call finished")
		return res, err
	}
}

// toolError renders err for the client with its category
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", utils.CategorizeError(err), err))
}

func (s *Server) handleGetArticle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := strings.TrimSpace(request.GetString("title", ""))
	if title == "" {
		return mcp.NewToolResultError("title parameter is required"), nil
	}

	art, err := s.cfg.Assistant.Article(ctx, title)
	if err != nil {
		if errors.Is(err, utils.ErrPageNotFound) {
			return mcp.NewToolResultText(assistant.TextArticleNotFound), nil
		}
		return toolError(err), nil
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"title":       art.Title,
		"url":         art.URL,
		"text":        art.Text,
		"token_count": process.CountTokens(art.Text),
	})), nil
}

func (s *Server) handleGetMainImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := strings.TrimSpace(request.GetString("title", ""))
	if title == "" {
		return mcp.NewToolResultError("title parameter is required"), nil
	}

	res := s.cfg.Assistant.MainImage(ctx, title)
	meta := map[string]interface{}{
		"title":       res.Title,
		"outcome":     res.Outcome.String(),
		"probed":      res.Probed,
		"duration_ms": res.Duration.Milliseconds(),
	}
	if res.PageURL != "" {
		meta["page_url"] = res.PageURL
	}
	if res.Err != nil {
		meta["error"] = res.Err.Error()
	}
	if !res.Found() {
		return mcp.NewToolResultText(formatJSON(meta)), nil
	}

	meta["source_url"] = res.SourceURL
	meta["context"] = res.Context.String()
	meta["width"] = res.Width
	meta["height"] = res.Height
	meta["format"] = res.Format
	meta["sha256"] = utils.CalculateBytesSHA256(res.PNG)
	return mcp.NewToolResultImage(formatJSON(meta), base64.StdEncoding.EncodeToString(res.PNG), "image/png"), nil
}

func (s *Server) handleSearchArticle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := strings.TrimSpace(request.GetString("title", ""))
	query := strings.TrimSpace(request.GetString("query", ""))
	if title == "" || query == "" {
		return mcp.NewToolResultError("title and query parameters are required"), nil
	}
	snippetLen := request.GetInt("snippet_length", defaultSnippetLength)
	if snippetLen <= 0 {
		snippetLen = defaultSnippetLength
	}
	if snippetLen > maxSnippetLength {
		snippetLen = maxSnippetLength
	}

	text, err := s.cfg.Assistant.ArticleText(ctx, title)
	if err != nil {
		if errors.Is(err, utils.ErrPageNotFound) {
			return mcp.NewToolResultText(assistant.TextPageNotFound), nil
		}
		return toolError(err), nil
	}

	matches := strings.Count(strings.ToLower(text), strings.ToLower(query))
	result := map[string]interface{}{
		"title":   title,
		"query":   query,
		"matches": matches,
	}
	if matches > 0 {
		result["snippet"] = extractSnippet(text, query, snippetLen)
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

func (s *Server) handleOnThisDay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day, err := parseDay(request.GetString("date", ""), s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := s.cfg.Assistant.OnThisDay(ctx, day)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleRandomArticle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.cfg.Assistant.RandomArticle(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleRandomQuote(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.cfg.Assistant.RandomQuote(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(text), nil
}

// parseDay accepts "2006-01-02" or "January 2". Empty means today.
func parseDay(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	// Leap year so that February 29 parses
	if t, err := time.Parse("January 2 2006", s+" 2000"); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or 'January 2'", s)
}

// extractSnippet returns a substring of content around the first match of query (case-insensitive).
// Operates on runes to avoid splitting multi-byte UTF-8 characters.
func extractSnippet(content, query string, maxLen int) string {
	runes := []rune(content)
	queryRunes := []rune(strings.ToLower(query))
	contentLowerRunes := []rune(strings.ToLower(content))

	idx := -1
	if len(queryRunes) > 0 && len(contentLowerRunes) == len(runes) {
		for i := 0; i <= len(contentLowerRunes)-len(queryRunes); i++ {
			if string(contentLowerRunes[i:i+len(queryRunes)]) == string(queryRunes) {
				idx = i
				break
			}
		}
	}

	if idx == -1 {
		if len(runes) > maxLen {
			return string(runes[:maxLen]) + "..."
		}
		return content
	}

	start := idx - maxLen/2
	if start < 0 {
		start = 0
	}
	end := idx + len(queryRunes) + maxLen/2
	if end > len(runes) {
		end = len(runes)
	}

	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet = snippet + "..."
	}
	return snippet
}

func formatJSON(data map[string]interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
