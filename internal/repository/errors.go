package repository

import "errors"

var (
	// ErrBrowserLaunch is returned when a headless browser could not be started.
	ErrBrowserLaunch = errors.New("browser launch failed")
	// ErrNavigationFailed is returned when a page could not be loaded or read.
	ErrNavigationFailed = errors.New("navigation failed")
	// ErrCrawlTimeout is returned when a whole crawl exceeds its deadline.
	ErrCrawlTimeout = errors.New("crawl timed out")
	// ErrNotFound is returned by lookups that match no record.
	ErrNotFound = errors.New("not found")
)
