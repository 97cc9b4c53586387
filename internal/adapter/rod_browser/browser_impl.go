package rod_browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/user/kb-crawler/internal/adapter/proxy"
	"github.com/user/kb-crawler/internal/repository"
	"github.com/user/kb-crawler/pkg/metrics"
	"go.uber.org/zap"
)

// Stylesheets stay enabled: innerText depends on computed visibility.
var blockedResourceTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeMedia,
}

// Launcher starts a stealth Chromium through Rod for each session.
type Launcher struct {
	navTimeout time.Duration
	proxies    *proxy.Manager
	logger     *zap.Logger
}

// NewLauncher creates a launcher. navTimeout bounds every single page load.
func NewLauncher(navTimeout time.Duration, proxies *proxy.Manager, logger *zap.Logger) *Launcher {
	return &Launcher{navTimeout: navTimeout, proxies: proxies, logger: logger}
}

// Launch starts the browser process and connects to it.
func (l *Launcher) Launch(ctx context.Context) (repository.BrowserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrBrowserLaunch, err)
	}

	ln := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage")
	if p := l.proxies.GetProxy(); p != "" {
		ln = ln.Proxy(p)
	}

	u, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrBrowserLaunch, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("%w: connect: %v", repository.ErrBrowserLaunch, err)
	}

	l.logger.Debug("Browser launched", zap.String("driver", "rod"))
	return &session{
		browser:    browser,
		launcher:   ln,
		userAgent:  l.proxies.GetUserAgent(),
		navTimeout: l.navTimeout,
	}, nil
}

type session struct {
	browser    *rod.Browser
	launcher   *launcher.Launcher
	userAgent  string
	navTimeout time.Duration
	closeOnce  sync.Once
	closeErr   error
}

// navigationStatusScript reads the main document status from Navigation Timing.
const navigationStatusScript = `() => {
	const nav = performance.getEntriesByType("navigation")[0];
	return nav && nav.responseStatus ? nav.responseStatus : 0;
}`

// Load renders url in a new stealth tab and closes the tab afterwards.
func (s *session) Load(ctx context.Context, url string) (*repository.RenderedPage, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: create tab: %v", repository.ErrNavigationFailed, url, err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()
	page = page.Context(navCtx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.userAgent}); err != nil {
		return nil, fmt.Errorf("%w: %s: set user agent: %v", repository.ErrNavigationFailed, url, err)
	}

	router := page.HijackRequests()
	for _, rt := range blockedResourceTypes {
		_ = router.Add("*", rt, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
	}
	go router.Run()
	defer func() { _ = router.Stop() }()

	start := time.Now()
	rendered, err := s.render(page, url)
	metrics.NavigationDuration.WithLabelValues("rod").Observe(time.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, url, err)
	}
	return rendered, nil
}

func (s *session) render(page *rod.Page, url string) (*repository.RenderedPage, error) {
	if err := page.Navigate(url); err != nil {
		return nil, err
	}
	if err := page.WaitLoad(); err != nil {
		return nil, err
	}

	rendered := &repository.RenderedPage{URL: url}
	if info, err := page.Info(); err == nil && info.URL != "" {
		rendered.URL = info.URL
	}

	html, err := page.Eval(`() => document.documentElement ? document.documentElement.outerHTML : ""`)
	if err != nil {
		return nil, err
	}
	rendered.HTML = html.Value.Str()

	text, err := page.Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return nil, err
	}
	rendered.Text = text.Value.Str()

	status, err := page.Eval(navigationStatusScript)
	if err == nil {
		rendered.Status = status.Value.Int()
	}
	metrics.DocumentResponses.WithLabelValues("rod", metrics.StatusClass(rendered.Status)).Inc()
	return rendered, nil
}

// Close disconnects, kills the process and removes its profile directory. Later calls are no-ops.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.browser.Close()
		s.launcher.Kill()
		s.launcher.Cleanup()
	})
	return s.closeErr
}
