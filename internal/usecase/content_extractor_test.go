package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/kb-crawler/internal/repository"
)

type renderedSession struct {
	page *repository.RenderedPage
}

func (s renderedSession) Load(context.Context, string) (*repository.RenderedPage, error) {
	return s.page, nil
}

func (s renderedSession) Close() error { return nil }

func TestExtractTextPrefersRenderedText(t *testing.T) {
	s := renderedSession{page: &repository.RenderedPage{
		URL:  "https://site.test/",
		HTML: `<body><p>markup</p></body>`,
		Text: "\n  Rendered text\nsecond line  \n",
	}}

	text, err := NewContentExtractor().ExtractText(context.Background(), s, "https://site.test/")
	require.NoError(t, err)
	assert.Equal(t, "Rendered text\nsecond line", text)
}

func TestExtractTextFallsBackToMarkup(t *testing.T) {
	s := renderedSession{page: &repository.RenderedPage{
		URL: "https://site.test/",
		HTML: `<html><head><title>Ignored</title><style>.x{color:red}</style></head>
<body>
	<h1>Title</h1>
	<script>var hidden = "no";</script>
	<p>Some   text
	   here</p>
	<noscript>enable js</noscript>
	<template><p>tpl</p></template>
</body></html>`,
	}}

	text, err := NewContentExtractor().ExtractText(context.Background(), s, "https://site.test/")
	require.NoError(t, err)
	assert.Equal(t, "Title\nSome text here", text)
}

func TestExtractTextEmptyBody(t *testing.T) {
	s := renderedSession{page: &repository.RenderedPage{URL: "https://site.test/", HTML: `<html><body></body></html>`}}

	text, err := NewContentExtractor().ExtractText(context.Background(), s, "https://site.test/")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractTextLoadFailure(t *testing.T) {
	site := &fakeSite{fail: map[string]bool{"https://site.test/x": true}}

	_, err := NewContentExtractor().ExtractText(context.Background(), &fakeSession{site: site}, "https://site.test/x")
	assert.ErrorIs(t, err, repository.ErrNavigationFailed)
}
