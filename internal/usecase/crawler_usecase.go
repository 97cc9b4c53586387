package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/user/kb-crawler/internal/entity"
	"github.com/user/kb-crawler/internal/repository"
	"github.com/user/kb-crawler/pkg/metrics"
	"github.com/user/kb-crawler/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoLinksFound is returned when discovery yields no URL to extract.
	ErrNoLinksFound = errors.New("no links found")
	// ErrInvalidRequest wraps validation failures of crawl input.
	ErrInvalidRequest = errors.New("invalid crawl request")
	// ErrAllPagesFailed is returned when links were found but none could be extracted.
	ErrAllPagesFailed = errors.New("no page could be extracted")
)

// Failure policies.
const (
	FailurePolicyAbort = "abort"
	FailurePolicySkip  = "skip"
)

// CrawlerConfig holds the limits applied to every crawl.
type CrawlerConfig struct {
	MaxDepth       int
	MaxPages       int
	ExtractWorkers int
	FailurePolicy  string
	SameHostOnly   bool
	Canonicalize   bool
	CrawlDeadline  time.Duration
}

// CrawlOptions are per-request overrides.
type CrawlOptions struct {
	// FailurePolicy is abort or skip. Empty uses the configured policy.
	FailurePolicy string
}

// Crawler defines the interface for crawling a site and extracting its text.
type Crawler interface {
	// Crawl discovers the pages reachable from the seed and extracts their text.
	Crawl(ctx context.Context, req entity.CrawlRequest, opts CrawlOptions) (*entity.CrawlOutcome, error)
	// ExtractContentFromPages extracts the text of the given pages, in input order.
	ExtractContentFromPages(ctx context.Context, urls []string, opts CrawlOptions) (*entity.CrawlOutcome, error)
}

// CrawlerOption configures optional collaborators.
type CrawlerOption func(*crawlerUseCase)

// WithCrawlRuns records every crawl in the run history.
func WithCrawlRuns(runs CrawlRuns) CrawlerOption {
	return func(uc *crawlerUseCase) { uc.runs = runs }
}

// WithResultCache serves repeated crawls from cache for ttl.
func WithResultCache(cache repository.ResultCacheRepository, ttl time.Duration) CrawlerOption {
	return func(uc *crawlerUseCase) {
		uc.cache = cache
		uc.cacheTTL = ttl
	}
}

// WithRobotsPolicy skips URLs disallowed by robots.txt.
func WithRobotsPolicy(policy repository.RobotsPolicy) CrawlerOption {
	return func(uc *crawlerUseCase) { uc.robots = policy }
}

type crawlerUseCase struct {
	launcher   repository.BrowserLauncher
	discoverer *LinkDiscoverer
	extractor  *ContentExtractor
	runs       CrawlRuns
	cache      repository.ResultCacheRepository
	cacheTTL   time.Duration
	robots     repository.RobotsPolicy
	cfg        CrawlerConfig
	logger     *zap.Logger
}

// NewCrawlerUseCase creates a new instance of the crawler use case.
func NewCrawlerUseCase(
	launcher repository.BrowserLauncher,
	cfg CrawlerConfig,
	logger *zap.Logger,
	opts ...CrawlerOption,
) Crawler {
	if cfg.ExtractWorkers < 1 {
		cfg.ExtractWorkers = 1
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = FailurePolicySkip
	}
	uc := &crawlerUseCase{
		launcher:   launcher,
		discoverer: NewLinkDiscoverer(logger),
		extractor:  NewContentExtractor(),
		cfg:        cfg,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *crawlerUseCase) Crawl(ctx context.Context, req entity.CrawlRequest, opts CrawlOptions) (*entity.CrawlOutcome, error) {
	abort, err := uc.abortOnError(opts)
	if err != nil {
		return nil, err
	}
	if err := uc.validate(req); err != nil {
		return nil, err
	}
	if req.Mode == entity.ModeSitemap {
		req.MaxDepth = 0
	}

	mode := string(req.Mode)
	startTime := time.Now()
	defer func() {
		metrics.CrawlDuration.WithLabelValues(mode).Observe(time.Since(startTime).Seconds())
	}()

	key := uc.cacheKey(req, abort)
	if cached := uc.lookupCache(ctx, key); cached != nil {
		if uc.runs != nil {
			run := uc.runs.Start(ctx, req)
			uc.runs.Finish(ctx, run, cached, nil)
			cached.RunID = run.ID
		}
		metrics.CrawlsTotal.WithLabelValues(mode, "cached").Inc()
		uc.logger.Info("Serving crawl from cache", zap.String("seed", req.SeedURL), zap.String("mode", mode))
		return cached, nil
	}

	var run *entity.CrawlRun
	if uc.runs != nil {
		run = uc.runs.Start(ctx, req)
	}
	uc.logger.Info("Starting crawl",
		zap.String("seed", req.SeedURL),
		zap.String("mode", mode),
		zap.Int("max_depth", req.MaxDepth),
		zap.Bool("abort_on_error", abort),
	)

	outcome, crawlErr := uc.withDeadline(ctx, func(ctx context.Context) (*entity.CrawlOutcome, error) {
		return uc.crawl(ctx, req, abort)
	})

	if run != nil {
		uc.runs.Finish(context.WithoutCancel(ctx), run, outcome, crawlErr)
	}
	metrics.CrawlsTotal.WithLabelValues(mode, crawlOutcomeLabel(crawlErr)).Inc()

	if crawlErr != nil {
		uc.logger.Warn("Crawl failed", zap.String("seed", req.SeedURL), zap.Duration("duration", time.Since(startTime)), zap.Error(crawlErr))
		return nil, crawlErr
	}

	uc.storeCache(ctx, key, outcome)
	if run != nil {
		outcome.RunID = run.ID
	}
	uc.logger.Info("Crawl finished",
		zap.String("seed", req.SeedURL),
		zap.Int("pages", len(outcome.Pages)),
		zap.Int("failures", len(outcome.Failures)),
		zap.Duration("duration", time.Since(startTime)),
	)
	return outcome, nil
}

func (uc *crawlerUseCase) ExtractContentFromPages(ctx context.Context, urls []string, opts CrawlOptions) (*entity.CrawlOutcome, error) {
	abort, err := uc.abortOnError(opts)
	if err != nil {
		return nil, err
	}
	unique := newVisitedSet(uc.cfg.Canonicalize)
	for _, u := range urls {
		if !utils.IsHTTPURL(u) {
			return nil, fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidRequest, u)
		}
		unique.Add(u)
	}
	if unique.Len() == 0 {
		return nil, ErrNoLinksFound
	}
	if uc.cfg.MaxPages > 0 && unique.Len() > uc.cfg.MaxPages {
		return nil, fmt.Errorf("%w: %d pages requested, limit is %d", ErrInvalidRequest, unique.Len(), uc.cfg.MaxPages)
	}

	startTime := time.Now()
	defer func() {
		metrics.CrawlDuration.WithLabelValues("extract").Observe(time.Since(startTime).Seconds())
	}()

	outcome, err := uc.withDeadline(ctx, func(ctx context.Context) (*entity.CrawlOutcome, error) {
		session, err := uc.launch(ctx)
		if err != nil {
			return nil, err
		}
		defer uc.closeSession(session)
		return uc.extractAll(ctx, session, unique.List(), abort)
	})
	metrics.CrawlsTotal.WithLabelValues("extract", crawlOutcomeLabel(err)).Inc()
	return outcome, err
}

// crawl owns the browser session for one request and closes it on every path.
func (uc *crawlerUseCase) crawl(ctx context.Context, req entity.CrawlRequest, abort bool) (*entity.CrawlOutcome, error) {
	session, err := uc.launch(ctx)
	if err != nil {
		return nil, err
	}
	defer uc.closeSession(session)

	dopts := DiscoveryOptions{
		SameHostOnly: uc.cfg.SameHostOnly,
		Canonicalize: uc.cfg.Canonicalize,
		MaxPages:     uc.cfg.MaxPages,
		AbortOnError: abort,
		Robots:       uc.robots,
	}

	var (
		links    []string
		failures []entity.PageFailure
	)
	switch req.Mode {
	case entity.ModeSitemap:
		links, err = uc.discoverer.DiscoverSitemapLinks(ctx, session, req.SeedURL, dopts)
	default:
		links, failures, err = uc.discoverer.DiscoverWebsiteLinks(ctx, session, req.SeedURL, req.MaxDepth, dopts)
	}
	if err != nil {
		return nil, err
	}
	metrics.LinksDiscovered.WithLabelValues(string(req.Mode)).Add(float64(len(links)))
	for range failures {
		metrics.PagesTotal.WithLabelValues(entity.StageDiscover, "failed").Inc()
	}
	if len(links) == 0 {
		return nil, ErrNoLinksFound
	}
	uc.logger.Debug("Links discovered", zap.String("seed", req.SeedURL), zap.Int("links", len(links)))

	outcome, err := uc.extractAll(ctx, session, links, abort)
	if err != nil {
		return nil, err
	}
	outcome.Failures = append(failures, outcome.Failures...)
	return outcome, nil
}

// extractAll reads every URL through the shared session. Results keep input
// order regardless of how many workers run.
func (uc *crawlerUseCase) extractAll(ctx context.Context, session repository.BrowserSession, urls []string, abort bool) (*entity.CrawlOutcome, error) {
	pages := make([]*entity.PageContent, len(urls))
	failures := make([]*entity.PageFailure, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.ExtractWorkers)
	for i, u := range urls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := uc.extractor.ExtractText(gctx, session, u)
			if err != nil {
				metrics.PagesTotal.WithLabelValues(entity.StageExtract, "failed").Inc()
				if abort || gctx.Err() != nil {
					return err
				}
				uc.logger.Warn("Skipping page", zap.String("url", u), zap.Error(err))
				failures[i] = &entity.PageFailure{URL: u, Stage: entity.StageExtract, Reason: err.Error()}
				return nil
			}
			metrics.PagesTotal.WithLabelValues(entity.StageExtract, "ok").Inc()
			pages[i] = &entity.PageContent{Link: u, Content: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	outcome := &entity.CrawlOutcome{}
	for i := range urls {
		if pages[i] != nil {
			outcome.Pages = append(outcome.Pages, *pages[i])
		}
		if failures[i] != nil {
			outcome.Failures = append(outcome.Failures, *failures[i])
		}
	}
	if len(outcome.Pages) == 0 {
		return nil, fmt.Errorf("%w: %d of %d pages failed", ErrAllPagesFailed, len(outcome.Failures), len(urls))
	}
	return outcome, nil
}

// withDeadline runs fn under the crawl deadline and reports its expiry as ErrCrawlTimeout.
func (uc *crawlerUseCase) withDeadline(ctx context.Context, fn func(context.Context) (*entity.CrawlOutcome, error)) (*entity.CrawlOutcome, error) {
	if uc.cfg.CrawlDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.cfg.CrawlDeadline)
		defer cancel()
	}
	outcome, err := fn(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s: %v", repository.ErrCrawlTimeout, uc.cfg.CrawlDeadline, err)
	}
	return outcome, err
}

func (uc *crawlerUseCase) launch(ctx context.Context) (repository.BrowserSession, error) {
	session, err := uc.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	metrics.BrowserSessionsOpen.Inc()
	return session, nil
}

func (uc *crawlerUseCase) closeSession(session repository.BrowserSession) {
	metrics.BrowserSessionsOpen.Dec()
	if err := session.Close(); err != nil {
		uc.logger.Warn("Failed to close browser", zap.Error(err))
	}
}

func (uc *crawlerUseCase) validate(req entity.CrawlRequest) error {
	if !utils.IsHTTPURL(req.SeedURL) {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidRequest, req.SeedURL)
	}
	if _, err := entity.ParseCrawlMode(string(req.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Mode == entity.ModeWebsite && (req.MaxDepth < 0 || req.MaxDepth > uc.cfg.MaxDepth) {
		return fmt.Errorf("%w: depth must be between 0 and %d", ErrInvalidRequest, uc.cfg.MaxDepth)
	}
	return nil
}

func (uc *crawlerUseCase) abortOnError(opts CrawlOptions) (bool, error) {
	policy := opts.FailurePolicy
	if policy == "" {
		policy = uc.cfg.FailurePolicy
	}
	switch policy {
	case FailurePolicyAbort:
		return true, nil
	case FailurePolicySkip:
		return false, nil
	}
	return false, fmt.Errorf("%w: unknown failure policy %q", ErrInvalidRequest, policy)
}

func (uc *crawlerUseCase) cacheKey(req entity.CrawlRequest, abort bool) string {
	return utils.HashURL(strings.Join([]string{
		string(req.Mode),
		req.SeedURL,
		strconv.Itoa(req.MaxDepth),
		strconv.FormatBool(abort),
		strconv.FormatBool(uc.cfg.SameHostOnly),
		strconv.FormatBool(uc.cfg.Canonicalize),
		strconv.FormatBool(uc.robots != nil),
		strconv.Itoa(uc.cfg.MaxPages),
	}, "|"))
}

func (uc *crawlerUseCase) lookupCache(ctx context.Context, key string) *entity.CrawlOutcome {
	if uc.cache == nil || uc.cacheTTL <= 0 {
		return nil
	}
	outcome, err := uc.cache.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("Result cache read failed", zap.Error(err))
		return nil
	}
	return outcome
}

func (uc *crawlerUseCase) storeCache(ctx context.Context, key string, outcome *entity.CrawlOutcome) {
	if uc.cache == nil || uc.cacheTTL <= 0 {
		return
	}
	if err := uc.cache.Set(ctx, key, outcome, uc.cacheTTL); err != nil {
		uc.logger.Warn("Result cache write failed", zap.Error(err))
	}
}

func crawlOutcomeLabel(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrNoLinksFound):
		return "empty"
	case errors.Is(err, repository.ErrCrawlTimeout):
		return "timeout"
	default:
		return "failed"
	}
}
