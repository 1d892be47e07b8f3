// Package parser turns fetched product documents into record fields.
//
// Two document shapes are understood. The product-details JSON returned by
// the marketplace web service is read by structural lookup, and plain HTML
// product pages are read with goquery (JSON-LD first, then Open Graph and
// product meta tags). The shape is sniffed from the body, so the same
// Parser serves both crawl modes.
//
// The package also builds the web service endpoints used for enrichment
// and parses their responses (customer voice, manufacturing details and
// size guide charts).
package parser
