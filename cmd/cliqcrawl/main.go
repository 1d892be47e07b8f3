// Package main provides the entry point for the cliqcrawl CLI.
//
// cliqcrawl extracts product data from tatacliq.com product URLs. It
// validates and deduplicates the input list, fetches every product with a
// fixed pool of workers, and writes one row per URL to a spreadsheet.
//
// Usage:
//
//	cliqcrawl crawl --input urls.xlsx
//	cliqcrawl crawl https://www.tatacliq.com/.../p-mp000000012345678
//
// See --help for all available options.
package main

func main() {
	Execute()
}
