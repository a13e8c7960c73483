package article

import "errors"

var (
	// ErrUnexpectedStatus is returned when the server answers with anything
	// but 200 OK.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrEmptyHTML is returned when there is no markup to extract from.
	ErrEmptyHTML = errors.New("empty HTML input")

	// ErrUnknownFormat is returned for an extractor name that is not supported.
	ErrUnknownFormat = errors.New("unknown extraction format")

	// ErrFetcherRequired is returned when a Loader is built without a fetcher.
	ErrFetcherRequired = errors.New("fetcher required")

	// ErrExtractorRequired is returned when a Loader is built without an extractor.
	ErrExtractorRequired = errors.New("extractor required")
)
