package mainimage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/wiki-bot/pkg/config"
	"github.com/Sriram-PR/wiki-bot/pkg/fetch"
	"github.com/Sriram-PR/wiki-bot/pkg/models"
	"github.com/Sriram-PR/wiki-bot/pkg/parse"
	"github.com/Sriram-PR/wiki-bot/pkg/utils"
)

// ImageGetter performs a single GET. *fetch.Fetcher satisfies it.
type ImageGetter interface {
	Get(ctx context.Context, rawURL string, opts fetch.GetOptions) (*fetch.Response, error)
}

// Options controls candidate selection
type Options struct {
	MinWidth      int
	MinHeight     int
	FetchTimeout  time.Duration
	UserAgent     string // Sent with every image request
	MaxCandidates int    // Body candidates probed at most (0 = unbounded)
	MaxImageBytes int64
	MaxPixels     int64  // Declared width*height limit, checked before decoding
	OriginHost    string // Host for root-relative references
}

// OptionsFromConfig builds Options from a validated AppConfig
func OptionsFromConfig(cfg config.AppConfig) Options {
	return Options{
		MinWidth:      cfg.Image.MinWidth,
		MinHeight:     cfg.Image.MinHeight,
		FetchTimeout:  cfg.Image.FetchTimeout,
		UserAgent:     config.GetEffectiveImageUserAgent(cfg),
		MaxCandidates: cfg.Image.MaxCandidates,
		MaxImageBytes: cfg.Image.MaxImageBytes,
		MaxPixels:     cfg.Image.MaxPixels,
		OriginHost:    cfg.Wiki.OriginHost,
	}
}

func (o Options) withDefaults() Options {
	if o.MinWidth <= 0 {
		o.MinWidth = 120
	}
	if o.MinHeight <= 0 {
		o.MinHeight = 120
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 30 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = "Mozilla/5.0"
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = config.DefaultMaxPixels
	}
	if o.OriginHost == "" {
		o.OriginHost = parse.DefaultOriginHost
	}
	return o
}

// Selection is the accepted candidate together with its decoded payload
type Selection struct {
	Candidate models.ImageCandidate
	URL       string
	Image     *models.FetchedImage
	Probed    int // Candidates downloaded before (and including) the accepted one
}

// Selector applies the two-tier relevance policy: an infobox image is trusted outright,
// body images must reach the minimum decoded size.
// Each candidate is fetched once; the probe bytes are the delivered bytes.
type Selector struct {
	getter ImageGetter
	opts   Options
	log    *logrus.Entry
}

// NewSelector creates a Selector
func NewSelector(getter ImageGetter, opts Options, log *logrus.Entry) *Selector {
	return &Selector{getter: getter, opts: opts.withDefaults(), log: log}
}

// Select walks candidates strictly in order and returns the first qualifying one.
// On failure the returned Selection (when non-nil) only carries the probe count.
//
// Errors:
//   - utils.ErrNoCandidates when candidates is empty
//   - utils.ErrNetwork when any download fails at the transport level; the search stops there
//   - utils.ErrNoQualifyingImage when nothing qualifies
func (s *Selector) Select(ctx context.Context, candidates []models.ImageCandidate) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, utils.ErrNoCandidates
	}

	probed := 0
	bodyProbed := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return &Selection{Probed: probed}, fmt.Errorf("%w: %w", utils.ErrNetwork, err)
		}

		if c.Context == models.ContextBody && s.opts.MaxCandidates > 0 && bodyProbed >= s.opts.MaxCandidates {
			s.log.WithField("max_candidates", s.opts.MaxCandidates).Debug("Body candidate cap reached")
			break
		}

		absURL := parse.Resolve(c.SourceReference, s.opts.OriginHost)
		candLog := s.log.WithFields(logrus.Fields{"img_url": absURL, "context": c.Context.String()})
		if !fetchable(absURL) {
			candLog.Debug("Skipping candidate with unsupported URL")
			continue
		}

		probed++
		if c.Context == models.ContextBody {
			bodyProbed++
		}
		img, err := s.fetchAndDecode(ctx, absURL)
		if err != nil {
			if errors.Is(err, utils.ErrNetwork) {
				candLog.Warnf("Network error, aborting image search: %v", err)
				return &Selection{Probed: probed}, err
			}
			if c.Context == models.ContextInfobox {
				// Infobox branch has no fallback
				candLog.Infof("Infobox image unusable: %v", err)
				return &Selection{Probed: probed}, fmt.Errorf("%w: infobox image: %w", utils.ErrNoQualifyingImage, err)
			}
			candLog.Debugf("Skipping candidate: %v", err)
			continue
		}

		if c.Context == models.ContextInfobox || s.qualifies(img) {
			candLog.WithFields(logrus.Fields{"width": img.Width, "height": img.Height, "probed": probed}).Debug("Candidate accepted")
			return &Selection{Candidate: c, URL: absURL, Image: img, Probed: probed}, nil
		}
		candLog.WithFields(logrus.Fields{"width": img.Width, "height": img.Height}).Debug("Candidate below minimum size")
	}

	return &Selection{Probed: probed}, utils.ErrNoQualifyingImage
}

// qualifies applies the size threshold to the decoded raster, never to markup attributes
func (s *Selector) qualifies(img *models.FetchedImage) bool {
	return img.Width >= s.opts.MinWidth && img.Height >= s.opts.MinHeight
}

// fetchAndDecode downloads absURL once. Non-2xx, oversize and oversized-raster payloads count as undecodable.
func (s *Selector) fetchAndDecode(ctx context.Context, absURL string) (*models.FetchedImage, error) {
	resp, err := s.getter.Get(ctx, absURL, fetch.GetOptions{
		UserAgent: s.opts.UserAgent,
		Timeout:   s.opts.FetchTimeout,
		MaxBytes:  s.opts.MaxImageBytes,
		Kind:      fetch.KindImage,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: status %d", utils.ErrDecode, resp.StatusCode)
	}
	if resp.Oversize {
		return nil, fmt.Errorf("%w: payload larger than %d bytes", utils.ErrDecode, s.opts.MaxImageBytes)
	}
	return Decode(resp.Body, s.opts.MaxPixels)
}

// fetchable reports whether u is an absolute http(s) URL
func fetchable(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
