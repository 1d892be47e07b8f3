// Package database stores finished crawl runs in SQLite.
//
// A RunDB holds two tables: runs, with one row per crawl run and its final
// counters, and records, with one row per record of a run. Each run carries
// a SHA3-256 digest of its input set so repeated crawls of the same input
// can be found. The driver is modernc.org/sqlite, which needs no cgo.
package database
