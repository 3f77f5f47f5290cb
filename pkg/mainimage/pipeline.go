package mainimage

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/fetch"
	"github.com/Sriram-PR/wiki-bot/pkg/metrics"
	"github.com/Sriram-PR/wiki-bot/pkg/models"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// ArticleSource answers the questions the pipeline has about an article. *wiki.Client satisfies it.
type ArticleSource interface {
	// ResolvePage reports existence and the canonical URL in a single lookup
	ResolvePage(ctx context.Context, title string) (pageURL string, exists bool, err error)
}

// Result describes one lookup. PNG is set only when Outcome is found.
type Result struct {
	Title     string
	PageURL   string
	Outcome   models.ImageOutcome
	SourceURL string
	Context   models.CandidateContext
	Width     int
	Height    int
	Format    string // Format of the downloaded payload before PNG re-encode
	PNG       []byte
	Probed    int
	Duration  time.Duration
	Err       error
}

// Found reports whether a payload was produced
func (r *Result) Found() bool {
	return r.Outcome == models.ImageOutcomeFound && len(r.PNG) > 0
}

// Pipeline finds, downloads and normalizes the main image of an article.
// It keeps no state between calls and is safe for concurrent use.
type Pipeline struct {
	source   ArticleSource
	getter   ImageGetter
	selector *Selector
	opts     Options
	log      *logrus.Entry
}

// New creates a Pipeline
func New(source ArticleSource, getter ImageGetter, opts Options, log *logrus.Entry) *Pipeline {
	log = log.WithField("component", "mainimage")
	return &Pipeline{
		source:   source,
		getter:   getter,
		selector: NewSelector(getter, opts, log),
		opts:     opts.withDefaults(),
		log:      log,
	}
}

// FetchImages returns zero or one PNG payloads for the article. It never fails;
// every problem is logged and yields an empty list.
func (p *Pipeline) FetchImages(ctx context.Context, title string) [][]byte {
	res := p.Lookup(ctx, title)
	if !res.Found() {
		return nil
	}
	return [][]byte{res.PNG}
}

// Lookup runs the full pipeline for an article title
func (p *Pipeline) Lookup(ctx context.Context, title string) (res *Result) {
	start := time.Now()
	lookupLog := p.log.WithField("title", title)

	defer func() {
		if r := recover(); r != nil {
			lookupLog.Errorf("PANIC during image lookup: %v\n%s", r, string(debug.Stack()))
			res = &Result{Title: title, Outcome: models.ImageOutcomeDecodeError, Err: fmt.Errorf("%w: panic: %v", utils.ErrDecode, r)}
		}
		res.Duration = time.Since(start)
		p.record(lookupLog, res)
	}()

	pageURL, exists, err := p.source.ResolvePage(ctx, title)
	if err != nil {
		return failed(title, err)
	}
	if !exists {
		return failed(title, fmt.Errorf("%w: %s", utils.ErrPageNotFound, title))
	}

	// Markup is fetched once with the default UA; no retry in this path
	resp, err := p.getter.Get(ctx, pageURL, fetch.GetOptions{Timeout: p.opts.FetchTimeout, Kind: fetch.KindPage})
	if err != nil {
		res = failed(title, err)
		res.PageURL = pageURL
		return res
	}
	if !resp.OK() {
		res = failed(title, fmt.Errorf("%w: article markup status %d", statusError(resp.StatusCode), resp.StatusCode))
		res.PageURL = pageURL
		return res
	}

	res = p.FindMainImage(ctx, string(resp.Body))
	res.Title = title
	res.PageURL = pageURL
	return res
}

// FindMainImage runs extraction, selection and PNG normalization over rendered article markup
func (p *Pipeline) FindMainImage(ctx context.Context, markup string) *Result {
	candidates, err := ExtractCandidates(markup)
	if err != nil {
		return failed("", err)
	}

	sel, err := p.selector.Select(ctx, candidates)
	if err != nil {
		res := failed("", err)
		if sel != nil {
			res.Probed = sel.Probed
		}
		return res
	}

	encoded, err := EncodePNG(sel.Image.Image)
	if err != nil {
		res := failed("", err)
		res.Probed = sel.Probed
		return res
	}

	return &Result{
		Outcome:   models.ImageOutcomeFound,
		SourceURL: sel.URL,
		Context:   sel.Candidate.Context,
		Width:     sel.Image.Width,
		Height:    sel.Image.Height,
		Format:    sel.Image.Format,
		PNG:       encoded,
		Probed:    sel.Probed,
	}
}

func (p *Pipeline) record(log *logrus.Entry, res *Result) {
	metrics.ObserveImageLookup(res.Outcome.String(), res.Probed)
	fields := logrus.Fields{
		"outcome":  res.Outcome.String(),
		"probed":   res.Probed,
		"duration": res.Duration,
	}
	if res.Found() {
		fields["img_url"] = res.SourceURL
		fields["width"] = res.Width
		fields["height"] = res.Height
		log.WithFields(fields).Info("Main image found")
		return
	}
	if res.Err != nil {
		fields["error_type"] = utils.CategorizeError(res.Err)
		fields["error"] = res.Err.Error()
	}
	log.WithFields(fields).Info("No main image")
}

func failed(title string, err error) *Result {
	return &Result{Title: title, Outcome: outcomeFor(err), Err: err}
}

// outcomeFor maps pipeline errors onto the outcome enum
func outcomeFor(err error) models.ImageOutcome {
	switch {
	case err == nil:
		return models.ImageOutcomeFound
	case errors.Is(err, utils.ErrPageNotFound):
		return models.ImageOutcomePageNotFound
	case errors.Is(err, utils.ErrNoCandidates):
		return models.ImageOutcomeNoCandidates
	case errors.Is(err, utils.ErrNoQualifyingImage):
		return models.ImageOutcomeNoQualifying
	case errors.Is(err, utils.ErrDecode), errors.Is(err, utils.ErrParsing):
		return models.ImageOutcomeDecodeError
	default:
		// Transport, HTTP status and context failures
		return models.ImageOutcomeNetworkError
	}
}

func statusError(code int) error {
	switch {
	case code >= 500:
		return utils.ErrServerHTTPError
	case code >= 400:
		return utils.ErrClientHTTPError
	default:
		return utils.ErrOtherHTTPError
	}
}
