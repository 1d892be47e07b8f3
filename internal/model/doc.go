// Package model defines the core data structures used throughout cliqcrawl.
//
// This package contains the following main types:
//   - URLEntry: One input URL after validation and normalization
//   - CrawlTask: A deduplicated entry bound to its result slot and request settings
//   - FetchOutcome: The classified result of a single HTTP attempt
//   - Record: The per-URL output row, success or failure
//   - CrawlRun: The frozen result of one run, handed to exporters
//
// The models live in their own package because intake, fetcher, parser,
// pipeline and export all share them.
//
// All exported types are serializable to JSON for report output and
// database storage.
package model
