package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/assistant"
	"github.com/Sriram-PR/wiki-bot/pkg/mainimage"
)

const serverName = "wiki-bot"

// Assistant is the content backend of the tools. *assistant.Service satisfies it.
type Assistant interface {
	Article(ctx context.Context, title string) (*assistant.Article, error)
	ArticleText(ctx context.Context, title string) (string, error)
	MainImage(ctx context.Context, title string) *mainimage.Result
	RandomArticle(ctx context.Context) (string, error)
	RandomQuote(ctx context.Context) (string, error)
	OnThisDay(ctx context.Context, day time.Time) (string, error)
}

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	Assistant Assistant
	Version   string
	Transport string // "stdio" or "sse"
	Port      int
	Logger    *logrus.Logger
}

// Server exposes the assistant as MCP tools
type Server struct {
	mcpServer *server.MCPServer
	cfg       *ServerConfig
	log       *logrus.Entry
	now       func() time.Time
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.Assistant == nil {
		return nil, fmt.Errorf("assistant is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	mcpServer := server.NewMCPServer(
		serverName,
		cfg.Version,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		cfg:       cfg,
		log:       cfg.Logger.WithField("component", "mcp"),
		now:       time.Now,
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	tools := []struct {
		tool    mcp.Tool
		handler server.ToolHandlerFunc
	}{
		{
			mcp.NewTool("get_article",
				mcp.WithDescription("Return the first two paragraphs of a Wikipedia article summary"),
				mcp.WithString("title", mcp.Required(), mcp.Description("Article title or search phrase")),
			),
			s.handleGetArticle,
		},
		{
			mcp.NewTool("get_main_image",
				mcp.WithDescription("Find the main image of a Wikipedia article (infobox image, else the first large enough picture) as PNG"),
				mcp.WithString("title", mcp.Required(), mcp.Description("Article title")),
			),
			s.handleGetMainImage,
		},
		{
			mcp.NewTool("search_article",
				mcp.WithDescription("Find a phrase in the full text of a Wikipedia article and return a snippet around it"),
				mcp.WithString("title", mcp.Required(), mcp.Description("Article title")),
				mcp.WithString("query", mcp.Required(), mcp.Description("Phrase to look for (case-insensitive)")),
				mcp.WithNumber("snippet_length", mcp.Description("Approximate snippet length in characters (default: 300, max: 2000)")),
			),
			s.handleSearchArticle,
		},
		{
			mcp.NewTool("on_this_day",
				mcp.WithDescription("List historical events of a calendar day from Wikipedia"),
				mcp.WithString("date", mcp.Description("Date as YYYY-MM-DD or 'January 2' (default: today)")),
			),
			s.handleOnThisDay,
		},
		{
			mcp.NewTool("random_article",
				mcp.WithDescription("Return the title and first paragraph of a random Wikipedia article"),
			),
			s.handleRandomArticle,
		},
		{
			mcp.NewTool("random_quote",
				mcp.WithDescription("Return a random quote from a random Wikiquote page"),
			),
			s.handleRandomQuote,
		},
	}

	for _, t := range tools {
		s.mcpServer.AddTool(t.tool, s.instrument(t.tool.Name, t.handler))
	}
	s.log.Infof("Registered %d MCP tools", len(tools))
}

// Run serves the configured transport until ctx is done (sse) or stdin closes (stdio)
func (s *Server) Run(ctx context.Context) error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		sseServer := server.NewSSEServer(s.mcpServer)

		errCh := make(chan error, 1)
		go func() { errCh <- sseServer.Start(addr) }()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			s.log.Info("Shutting down MCP server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return sseServer.Shutdown(shutdownCtx)
		}
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}
