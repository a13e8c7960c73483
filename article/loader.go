package article

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Document is a downloaded article reduced to its text.
type Document struct {
	URL       string
	Title     string
	Text      string
	FetchedAt time.Time
}

// PageFetcher downloads a page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Loader fetches a page and extracts its text.
type Loader struct {
	fetcher   PageFetcher
	extractor Extractor
	logger    *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(fetcher PageFetcher, extractor Extractor) (*Loader, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	return &Loader{
		fetcher:   fetcher,
		extractor: extractor,
		logger:    slog.Default().With("component", "article-loader"),
	}, nil
}

// Load downloads url and returns its extracted text. The text may be empty;
// deciding whether that is an error is up to the caller.
func (l *Loader) Load(ctx context.Context, url string) (*Document, error) {
	l.logger.Debug("fetching article", "url", url)

	page, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		URL:       url,
		Title:     Title(page),
		FetchedAt: time.Now().UTC(),
	}

	if strings.TrimSpace(page) == "" {
		return doc, nil
	}

	text, err := l.extractor.Extract(ctx, page)
	if err != nil {
		return nil, err
	}
	doc.Text = text

	l.logger.Debug("extracted article", "url", url, "title", doc.Title, "length", len(text))
	return doc, nil
}
