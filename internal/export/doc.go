// Package export writes finished crawl runs to files and terminals.
//
// Writers implement the Writer interface so they can be combined with
// MultiWriter. The spreadsheet writer produces one row per record with the
// columns Input and Status followed by the union of every record's fields.
package export
