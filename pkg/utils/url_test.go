package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashURLIsStable(t *testing.T) {
	a := HashURL("https://example.com/a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, HashURL("https://example.com/a"))
	assert.NotEqual(t, a, HashURL("https://example.com/b"))
}

func TestToAbsoluteURL(t *testing.T) {
	base, err := url.Parse("https://example.com/docs/intro")
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"guide", "https://example.com/docs/guide"},
		{"/pricing", "https://example.com/pricing"},
		{"../about", "https://example.com/about"},
		{"https://other.org/x", "https://other.org/x"},
		{"#top", "https://example.com/docs/intro#top"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToAbsoluteURL(base, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsHTTPURL(t *testing.T) {
	assert.True(t, IsHTTPURL("https://example.com"))
	assert.True(t, IsHTTPURL("HTTP://example.com/a"))
	assert.False(t, IsHTTPURL("mailto:hi@example.com"))
	assert.False(t, IsHTTPURL("javascript:void(0)"))
	assert.False(t, IsHTTPURL("/relative/path"))
	assert.False(t, IsHTTPURL("ftp://example.com/file"))
}

func TestSameHost(t *testing.T) {
	assert.True(t, SameHost("https://Example.com/a", "http://example.com/b"))
	assert.False(t, SameHost("https://example.com", "https://docs.example.com"))
	assert.False(t, SameHost("http://127.0.0.1:8080/", "http://127.0.0.1:9090/"))
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.COM", "https://example.com/"},
		{"https://example.com/docs/", "https://example.com/docs"},
		{"https://example.com/docs#install", "https://example.com/docs"},
		{"https://example.com:443/a", "https://example.com/a"},
		{"http://example.com:8080/a/", "http://example.com:8080/a"},
		{"https://example.com/s?b=2&a=1", "https://example.com/s?a=1&b=2"},
		{"https://example.com/files/a%2Fb/", "https://example.com/files/a%2Fb"},
		{"https://Example.com/p?a=1;b=2#x", "https://example.com/p?a=1;b=2"},
		{"https://example.com//", "https://example.com/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}
