package assistant

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/config"
	"github.com/Sriram-PR/wiki-bot/pkg/mainimage"
	"github.com/Sriram-PR/wiki-bot/pkg/process"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
	"github.com/Sriram-PR/wiki-bot/pkg/wiki"
)

// User-visible fallback texts
const (
	TextArticleNotFound       = "Article not found."
	TextRandomArticleNotFound = "Random article not found."
	TextNoRandomQuote         = "No random quote found."
	TextPageNotFound          = "Page not found."
	TextNoEventsForDate       = "No historical events found for this date."
	TextNoImages              = "No images found."
)

// Random quote pages are retried this many times before giving up; many Wikiquote pages have no usable list
const quoteAttempts = 3

// ArticleClient is the encyclopedia side. *wiki.Client satisfies it.
type ArticleClient interface {
	GetPage(ctx context.Context, title string) (*wiki.Page, error)
	RandomTitle(ctx context.Context) (string, error)
	PlainText(ctx context.Context, title string) (string, error)
}

// QuoteClient is the quotation side. *quote.Client satisfies it.
type QuoteClient interface {
	RandomTitles(ctx context.Context, n int) ([]string, error)
	Quotes(ctx context.Context, title string) ([]string, error)
}

// ImageFinder looks up the main image of an article. *mainimage.Pipeline satisfies it.
type ImageFinder interface {
	Lookup(ctx context.Context, title string) *mainimage.Result
}

// Article is a summary ready to send
type Article struct {
	Title string
	URL   string
	Text  string // First paragraphs of the intro
}

// Service answers every content request of the bot and the MCP server
type Service struct {
	articles ArticleClient
	quotes   QuoteClient
	images   ImageFinder
	history  config.HistoryConfig
	log      *logrus.Entry
	pick     func(n int) int
}

// New creates a Service. history must already be validated.
func New(articles ArticleClient, quotes QuoteClient, images ImageFinder, history config.HistoryConfig, log *logrus.Entry) *Service {
	return &Service{
		articles: articles,
		quotes:   quotes,
		images:   images,
		history:  history,
		log:      log.WithField("component", "assistant"),
		pick:     rand.IntN,
	}
}

// Article returns the first two non-empty paragraphs of the article summary.
// A missing article, or one without any intro text, wraps utils.ErrPageNotFound.
func (s *Service) Article(ctx context.Context, title string) (*Article, error) {
	page, err := s.articles.GetPage(ctx, title)
	if err != nil {
		return nil, err
	}
	if page.Missing {
		return nil, fmt.Errorf("%w: %s", utils.ErrPageNotFound, title)
	}
	text := process.FirstParagraphs(page.Summary, 2)
	if text == "" {
		return nil, fmt.Errorf("%w: '%s' has no summary", utils.ErrPageNotFound, title)
	}
	return &Article{Title: page.Title, URL: page.FullURL, Text: text}, nil
}

// MainImage runs the image pipeline for title
func (s *Service) MainImage(ctx context.Context, title string) *mainimage.Result {
	return s.images.Lookup(ctx, title)
}

// RandomArticle renders "*<title>*" and the first paragraph of a random article.
// A vanished random page yields the fallback text with a nil error.
func (s *Service) RandomArticle(ctx context.Context) (string, error) {
	title, err := s.articles.RandomTitle(ctx)
	if err != nil {
		return "", err
	}
	page, err := s.articles.GetPage(ctx, title)
	if err != nil {
		return "", err
	}
	if page.Missing {
		s.log.WithField("title", title).Warn("Random title does not resolve to a page")
		return TextRandomArticleNotFound, nil
	}
	return fmt.Sprintf("*%s*\n\n%s", title, process.FirstParagraphs(page.Summary, 1)), nil
}

// RandomQuote renders one random quote of a random Wikiquote page
func (s *Service) RandomQuote(ctx context.Context) (string, error) {
	titles, err := s.quotes.RandomTitles(ctx, quoteAttempts)
	if err != nil {
		if errors.Is(err, utils.ErrPageNotFound) {
			return TextNoRandomQuote, nil
		}
		return "", err
	}

	for _, title := range titles {
		quotes, err := s.quotes.Quotes(ctx, title)
		if err != nil {
			if errors.Is(err, utils.ErrPageNotFound) {
				continue
			}
			return "", err
		}
		if len(quotes) == 0 {
			s.log.WithField("title", title).Debug("Quote page has no usable quotes")
			continue
		}
		return fmt.Sprintf("*Random Quote from %s*\n\n%s", title, quotes[s.pick(len(quotes))]), nil
	}
	return TextNoRandomQuote, nil
}

// ArticleText returns the full plain text of an article, headings in "== Title ==" form
func (s *Service) ArticleText(ctx context.Context, title string) (string, error) {
	return s.articles.PlainText(ctx, title)
}
