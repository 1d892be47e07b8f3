// Package input reads the URL list for a crawl from a spreadsheet, a CSV
// file or a plain text file.
package input
