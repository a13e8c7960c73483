// Package ingestion builds the embedding index for a single article.
//
// The Pipeline type runs the build workflow:
//   - Loading the article and extracting its text
//   - Splitting the text into overlapping chunks
//   - Embedding chunks in batches on a bounded worker pool
//   - Storing the normalized chunks in a chunk repository
//
// Batches are embedded concurrently and reassembled in article order.
// The first failure aborts the build; nothing is retried.
package ingestion
