package robots

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
	"github.com/user/kb-crawler/internal/repository"
	"go.uber.org/zap"
)

// AgentName is the product token matched against robots.txt groups.
const AgentName = "kb-crawler"

const maxRobotsBytes = 512 << 10

// Policy answers robots.txt questions, caching each origin's file.
type Policy struct {
	client *http.Client
	cache  repository.RobotsCacheRepository
	ttl    time.Duration
	agent  string
	logger *zap.Logger
}

// NewPolicy creates a policy. cache may be nil, in which case every check fetches robots.txt.
func NewPolicy(client *http.Client, cache repository.RobotsCacheRepository, ttl time.Duration, logger *zap.Logger) *Policy {
	return &Policy{client: client, cache: cache, ttl: ttl, agent: AgentName, logger: logger}
}

// Allowed reports whether the agent may fetch rawURL. Unreachable or
// unparseable robots files allow everything.
func (p *Policy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	origin := u.Scheme + "://" + u.Host

	status, body, err := p.lookup(ctx, origin)
	if err != nil {
		p.logger.Debug("robots.txt unavailable, allowing", zap.String("origin", origin), zap.Error(err))
		return true
	}
	rules, err := robotstxt.FromStatusAndString(status, body)
	if err != nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return rules.TestAgent(path, p.agent)
}

func (p *Policy) lookup(ctx context.Context, origin string) (int, string, error) {
	if p.cache != nil {
		status, body, found, err := p.cache.Get(ctx, origin)
		if err != nil {
			p.logger.Warn("robots cache read failed", zap.String("origin", origin), zap.Error(err))
		} else if found {
			return status, body, nil
		}
	}

	status, body, err := p.fetch(ctx, origin)
	if err != nil {
		return 0, "", err
	}
	if p.cache != nil {
		if err := p.cache.Set(ctx, origin, status, body, p.ttl); err != nil {
			p.logger.Warn("robots cache write failed", zap.String("origin", origin), zap.Error(err))
		}
	}
	return status, body, nil
}

func (p *Policy) fetch(ctx context.Context, origin string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", p.agent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(body), nil
}
