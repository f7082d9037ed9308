// Package tasks runs long REST operations with real-time progress reporting.
//
// # Bulk Export
//
// [BulkExport] writes the flashcards of many uploads to disk:
//   - Walks every page of the listing with [CollectUploads]
//   - Fetches cards with a bounded worker pool and a shared rate limiter
//   - Renders each upload's cards with the formatter package, one file per upload
//   - Writes export_manifest.json summarizing successes, failures and skipped uploads
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
