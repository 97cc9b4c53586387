package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/kb-crawler/internal/entity"
	"github.com/user/kb-crawler/internal/repository"
)

// fakeSite serves canned documents keyed by URL.
type fakeSite struct {
	pages map[string]string
	fail  map[string]bool
	// redirects maps a requested URL to the URL the page finally loads from.
	redirects map[string]string
	// block makes Load wait for context cancellation.
	block bool
}

type fakeLauncher struct {
	site *fakeSite

	mu        sync.Mutex
	launchErr error
	launches  int
	sessions  []*fakeSession
}

func newFakeLauncher(site *fakeSite) *fakeLauncher {
	return &fakeLauncher{site: site}
}

func (l *fakeLauncher) Launch(ctx context.Context) (repository.BrowserSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	s := &fakeSession{site: l.site}
	l.sessions = append(l.sessions, s)
	return s, nil
}

func (l *fakeLauncher) closes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, s := range l.sessions {
		n += s.closeCount()
	}
	return n
}

func (l *fakeLauncher) loads() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, s := range l.sessions {
		s.mu.Lock()
		out = append(out, s.loaded...)
		s.mu.Unlock()
	}
	return out
}

type fakeSession struct {
	site *fakeSite

	mu     sync.Mutex
	loaded []string
	closed int
}

func (s *fakeSession) Load(ctx context.Context, url string) (*repository.RenderedPage, error) {
	s.mu.Lock()
	s.loaded = append(s.loaded, url)
	closed := s.closed > 0
	s.mu.Unlock()
	if closed {
		return nil, errors.New("session already closed")
	}

	if s.site.block {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, url, ctx.Err())
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, url, err)
	}
	if s.site.fail[url] {
		return nil, fmt.Errorf("%w: %s: net::ERR_CONNECTION_REFUSED", repository.ErrNavigationFailed, url)
	}
	final := url
	if target, ok := s.site.redirects[url]; ok {
		final = target
	}
	doc, ok := s.site.pages[final]
	if !ok {
		return nil, fmt.Errorf("%w: %s: 404", repository.ErrNavigationFailed, url)
	}
	return &repository.RenderedPage{URL: final, HTML: doc}, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeResultCache struct {
	mu      sync.Mutex
	entries map[string]*entity.CrawlOutcome
	ttls    []time.Duration
}

func newFakeResultCache() *fakeResultCache {
	return &fakeResultCache{entries: make(map[string]*entity.CrawlOutcome)}
}

func (c *fakeResultCache) Get(_ context.Context, key string) (*entity.CrawlOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (c *fakeResultCache) Set(_ context.Context, key string, outcome *entity.CrawlOutcome, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *outcome
	c.entries[key] = &cp
	c.ttls = append(c.ttls, ttl)
	return nil
}

type denyPrefixPolicy struct{ prefix string }

func (p denyPrefixPolicy) Allowed(_ context.Context, url string) bool {
	return len(url) < len(p.prefix) || url[:len(p.prefix)] != p.prefix
}

type fakeRunRepo struct {
	mu        sync.Mutex
	runs      map[string]*entity.CrawlRun
	createErr error
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: make(map[string]*entity.CrawlRun)}
}

func (r *fakeRunRepo) Create(_ context.Context, run *entity.CrawlRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *fakeRunRepo) Finish(_ context.Context, run *entity.CrawlRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *fakeRunRepo) FindByID(_ context.Context, id string) (*entity.CrawlRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

type fakeFailureRepo struct {
	mu       sync.Mutex
	failures map[string][]entity.PageFailure
}

func newFakeFailureRepo() *fakeFailureRepo {
	return &fakeFailureRepo{failures: make(map[string][]entity.PageFailure)}
}

func (r *fakeFailureRepo) SaveAll(_ context.Context, runID string, failures []entity.PageFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[runID] = append(r.failures[runID], failures...)
	return nil
}

func (r *fakeFailureRepo) FindByRun(_ context.Context, runID string) ([]entity.PageFailure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[runID], nil
}
