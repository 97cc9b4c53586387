package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/kb-crawler/internal/adapter/redis"
	"go.uber.org/zap"
)

func newRobotsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestAllowedFollowsRules(t *testing.T) {
	srv, _ := newRobotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /private\n\nUser-agent: kb-crawler\nDisallow: /drafts\n")
	p := NewPolicy(srv.Client(), nil, time.Hour, zap.NewNop())
	ctx := context.Background()

	assert.True(t, p.Allowed(ctx, srv.URL+"/docs"))
	assert.False(t, p.Allowed(ctx, srv.URL+"/drafts/one"))
	assert.True(t, p.Allowed(ctx, srv.URL+"/private"), "the specific group replaces the wildcard group")
}

func TestAllowedStatusHandling(t *testing.T) {
	missing, _ := newRobotsServer(t, http.StatusNotFound, "")
	broken, _ := newRobotsServer(t, http.StatusServiceUnavailable, "")
	ctx := context.Background()

	assert.True(t, NewPolicy(missing.Client(), nil, time.Hour, zap.NewNop()).Allowed(ctx, missing.URL+"/a"))
	assert.False(t, NewPolicy(broken.Client(), nil, time.Hour, zap.NewNop()).Allowed(ctx, broken.URL+"/a"))
}

func TestAllowedWhenUnreachable(t *testing.T) {
	p := NewPolicy(&http.Client{Timeout: time.Second}, nil, time.Hour, zap.NewNop())
	assert.True(t, p.Allowed(context.Background(), "http://127.0.0.1:1/page"))
	assert.False(t, p.Allowed(context.Background(), "not a url"))
}

func TestAllowedUsesCache(t *testing.T) {
	srv, hits := newRobotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /private\n")
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	p := NewPolicy(srv.Client(), redis.NewRobotsCacheRepo(client), time.Hour, zap.NewNop())
	ctx := context.Background()

	assert.False(t, p.Allowed(ctx, srv.URL+"/private"))
	assert.True(t, p.Allowed(ctx, srv.URL+"/public"))
	assert.Equal(t, int32(1), hits.Load())

	mr.FastForward(2 * time.Hour)
	assert.False(t, p.Allowed(ctx, srv.URL+"/private"))
	assert.Equal(t, int32(2), hits.Load())
}

func TestAllowedSurvivesCacheOutage(t *testing.T) {
	srv, hits := newRobotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /private\n")
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	p := NewPolicy(srv.Client(), redis.NewRobotsCacheRepo(client), time.Hour, zap.NewNop())
	require.False(t, p.Allowed(context.Background(), srv.URL+"/private"))
	assert.Equal(t, int32(1), hits.Load())
}
