package usecase

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/kb-crawler/internal/entity"
	"github.com/user/kb-crawler/internal/repository"
	"github.com/user/kb-crawler/pkg/utils"
	"go.uber.org/zap"
)

// DiscoveryOptions tunes link discovery for one crawl.
type DiscoveryOptions struct {
	SameHostOnly bool
	Canonicalize bool
	// MaxPages caps the number of distinct URLs returned. Zero means no cap.
	MaxPages int
	// AbortOnError makes any failed page load fail the discovery. The seed always does.
	AbortOnError bool
	// Robots, when set, filters out disallowed URLs.
	Robots repository.RobotsPolicy
}

// LinkDiscoverer finds the URLs a crawl will extract.
type LinkDiscoverer struct {
	logger *zap.Logger
}

// NewLinkDiscoverer creates a LinkDiscoverer.
func NewLinkDiscoverer(logger *zap.Logger) *LinkDiscoverer {
	return &LinkDiscoverer{logger: logger}
}

// DiscoverWebsiteLinks walks the site breadth first from seedURL. Pages at
// depth 0 through maxDepth are loaded and every link found on them is
// returned, so each result is at most maxDepth+1 hops from the seed. Results
// are unique and in first-seen order. The seed is loaded once and only appears
// in the result when some page links back to it.
func (d *LinkDiscoverer) DiscoverWebsiteLinks(ctx context.Context, session repository.BrowserSession, seedURL string, maxDepth int, opts DiscoveryOptions) ([]string, []entity.PageFailure, error) {
	visited := newVisitedSet(opts.Canonicalize)
	expanded := map[string]struct{}{visited.key(seedURL): {}}
	// scope holds the hosts links must belong to: the requested seed and,
	// once loaded, wherever it redirected to.
	scope := []string{seedURL}
	var failures []entity.PageFailure

	frontier := []string{seedURL}
	for depth := 0; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, pageURL := range frontier {
			if d.capped(visited, opts) {
				d.logger.Warn("Page cap reached, truncating discovery", zap.String("seed", seedURL), zap.Int("max_pages", opts.MaxPages))
				return visited.List(), failures, nil
			}
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}

			page, err := session.Load(ctx, pageURL)
			if err != nil {
				if depth == 0 || opts.AbortOnError || ctx.Err() != nil {
					return nil, nil, fmt.Errorf("discover links on %s: %w", pageURL, err)
				}
				d.logger.Warn("Skipping page during discovery", zap.String("url", pageURL), zap.Error(err))
				failures = append(failures, entity.PageFailure{URL: pageURL, Stage: entity.StageDiscover, Reason: err.Error()})
				continue
			}
			if page.Status >= 400 {
				d.logger.Warn("Page answered with an HTTP error", zap.String("url", pageURL), zap.Int("status", page.Status))
			}
			if depth == 0 && page.URL != "" && page.URL != seedURL {
				d.logger.Debug("Seed redirected", zap.String("seed", seedURL), zap.String("final_url", page.URL))
				scope = append(scope, page.URL)
				expanded[visited.key(page.URL)] = struct{}{}
			}

			for _, link := range extractLinks(page) {
				if !d.accept(ctx, scope, link, opts) {
					continue
				}
				if d.capped(visited, opts) {
					break
				}
				if !visited.Add(link) {
					continue
				}
				k := visited.key(link)
				if _, done := expanded[k]; !done && depth < maxDepth {
					expanded[k] = struct{}{}
					next = append(next, link)
				}
			}
		}
		frontier = next
	}

	return visited.List(), failures, nil
}

// DiscoverSitemapLinks returns every distinct <loc> value of the sitemap at
// sitemapURL, in document order. Listed pages are never followed.
func (d *LinkDiscoverer) DiscoverSitemapLinks(ctx context.Context, session repository.BrowserSession, sitemapURL string, opts DiscoveryOptions) ([]string, error) {
	page, err := session.Load(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("load sitemap %s: %w", sitemapURL, err)
	}

	locs, err := extractSitemapLocs(page.HTML)
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}

	visited := newVisitedSet(opts.Canonicalize)
	for _, loc := range locs {
		if d.capped(visited, opts) {
			d.logger.Warn("Page cap reached, truncating sitemap", zap.String("sitemap", sitemapURL), zap.Int("max_pages", opts.MaxPages))
			break
		}
		if opts.Robots != nil && !opts.Robots.Allowed(ctx, loc) {
			continue
		}
		visited.Add(loc)
	}
	return visited.List(), nil
}

func (d *LinkDiscoverer) capped(visited *visitedSet, opts DiscoveryOptions) bool {
	return opts.MaxPages > 0 && visited.Len() >= opts.MaxPages
}

func (d *LinkDiscoverer) accept(ctx context.Context, scope []string, link string, opts DiscoveryOptions) bool {
	if !utils.IsHTTPURL(link) {
		return false
	}
	if opts.SameHostOnly && !inScope(scope, link) {
		return false
	}
	if opts.Robots != nil && !opts.Robots.Allowed(ctx, link) {
		return false
	}
	return true
}

func inScope(scope []string, link string) bool {
	for _, u := range scope {
		if utils.SameHost(u, link) {
			return true
		}
	}
	return false
}

// extractLinks returns the absolute targets of every anchor on the page in
// document order. Relative hrefs resolve against <base href> when present,
// otherwise against the final page URL. Fragment-only anchors are skipped.
func extractLinks(page *repository.RenderedPage) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil
	}
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(b)
		}
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		abs, err := utils.ToAbsoluteURL(base, href)
		if err != nil {
			return
		}
		links = append(links, abs)
	})
	return links
}

// extractSitemapLocs reads the trimmed text of every <loc> directly under a
// <url> or <sitemap> entry, CDATA included. Documents that are not well-formed
// XML, such as a browser's rendering of the feed, are read as HTML instead.
func extractSitemapLocs(doc string) ([]string, error) {
	locs, err := xmlSitemapLocs(doc)
	if err == nil {
		return locs, nil
	}
	return htmlSitemapLocs(doc)
}

func xmlSitemapLocs(doc string) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var (
		locs  []string
		stack []string
		text  strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return locs, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n := len(stack)
			if t.Name.Local == "loc" && n >= 2 && (stack[n-2] == "url" || stack[n-2] == "sitemap") {
				if loc := strings.TrimSpace(text.String()); loc != "" {
					locs = append(locs, loc)
				}
			}
			stack = stack[:n-1]
			text.Reset()
		}
	}
}

func htmlSitemapLocs(doc string) ([]string, error) {
	root, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, err
	}
	var locs []string
	root.Find("url > loc, sitemap > loc").Each(func(_ int, s *goquery.Selection) {
		if loc := strings.TrimSpace(s.Text()); loc != "" {
			locs = append(locs, loc)
		}
	})
	return locs, nil
}
