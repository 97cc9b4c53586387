package chromedp_browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/user/kb-crawler/internal/adapter/proxy"
	"github.com/user/kb-crawler/internal/repository"
	"github.com/user/kb-crawler/pkg/metrics"
	"go.uber.org/zap"
)

const (
	outerHTMLScript = `document.documentElement ? document.documentElement.outerHTML : ""`
	innerTextScript = `document.body ? document.body.innerText : ""`
)

// Launcher starts one headless Chrome process per session.
type Launcher struct {
	navTimeout time.Duration
	proxies    *proxy.Manager
	logger     *zap.Logger
}

// NewLauncher creates a launcher. navTimeout bounds every single page load.
func NewLauncher(navTimeout time.Duration, proxies *proxy.Manager, logger *zap.Logger) *Launcher {
	return &Launcher{navTimeout: navTimeout, proxies: proxies, logger: logger}
}

// Launch starts the browser process and waits until it accepts commands.
func (l *Launcher) Launch(ctx context.Context) (repository.BrowserSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(l.proxies.GetUserAgent()),
	)
	if p := l.proxies.GetProxy(); p != "" {
		opts = append(opts, chromedp.ProxyServer(p))
	}

	// The browser outlives the launch call; Close owns its shutdown.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(l.logger.Sugar().Debugf))

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("%w: %v", repository.ErrBrowserLaunch, err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", repository.ErrBrowserLaunch, ctx.Err())
	}

	l.logger.Debug("Browser launched", zap.String("driver", "chromedp"))
	return &session{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		navTimeout:    l.navTimeout,
	}, nil
}

type session struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	navTimeout    time.Duration
	closeOnce     sync.Once
	closeErr      error
}

// Load renders url in a new tab. Cancelling the tab context closes the tab.
func (s *session) Load(ctx context.Context, url string) (*repository.RenderedPage, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.navTimeout)
	defer cancelTimeout()

	// The first document response after redirects is the main frame.
	var status atomic.Int64
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument && e.Response != nil {
			status.CompareAndSwap(0, e.Response.Status)
		}
	})

	start := time.Now()
	var page repository.RenderedPage
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.Location(&page.URL),
		chromedp.Evaluate(outerHTMLScript, &page.HTML),
		chromedp.Evaluate(innerTextScript, &page.Text),
	)
	metrics.NavigationDuration.WithLabelValues("chromedp").Observe(time.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, url, err)
	}
	if page.URL == "" {
		page.URL = url
	}
	page.Status = int(status.Load())
	metrics.DocumentResponses.WithLabelValues("chromedp", metrics.StatusClass(page.Status)).Inc()
	return &page, nil
}

// Close stops the browser and waits for the process to exit. Later calls are no-ops.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.browserCtx)
		s.browserCancel()
		s.allocCancel()
	})
	return s.closeErr
}
