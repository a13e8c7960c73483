// Package reembed replaces the vectors of an existing day's index using a
// different embedding model.
//
// Chunks are read in article order, embedded in batches with retry and
// exponential backoff, normalized, and written back. Progress is stored as a
// checkpoint after every batch so an interrupted run resumes where it
// stopped, provided the same model is requested.
package reembed
