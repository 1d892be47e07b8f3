package parser

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// Format is the detected shape of a fetched document.
type Format string

const (
	// FormatJSON is a product-details web service response.
	FormatJSON Format = "json"

	// FormatHTML is a product page.
	FormatHTML Format = "html"
)

// Result is the outcome of parsing one document.
type Result struct {
	// Record holds the fields, or the failure when the document is a
	// not-found marker or cannot be decoded.
	Record model.Record

	// Refs are the enrichment identifiers. Only set for JSON documents.
	Refs Refs

	// Format is the detected document shape.
	Format Format
}

// Parser extracts record fields from fetched bodies.
// It holds no per-document state and is safe for concurrent use.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse parses body fetched for url into a record. Index and URLs of the
// returned record are placeholders for the caller to fill in.
func (p *Parser) Parse(body []byte, url string) model.Record {
	return p.Analyze(body, url).Record
}

// Analyze parses body and also returns the enrichment identifiers.
func (p *Parser) Analyze(body []byte, url string) Result {
	entry := model.URLEntry{Raw: url, Normalized: url, Valid: true}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Result{Record: model.NewFailedRecord(0, entry, model.FailureFatal, "empty response")}
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		return p.analyzeJSON(trimmed, entry)
	}
	return p.analyzeHTML(trimmed, entry)
}

func (p *Parser) analyzeJSON(body []byte, entry model.URLEntry) Result {
	res := Result{Format: FormatJSON}

	doc, err := decodeObject(body)
	if err != nil {
		res.Record = model.NewFailedRecord(0, entry, model.FailureFatal, fmt.Sprintf("malformed json: %v", err))
		return res
	}
	if missing, reason := doc.notFound(); missing {
		res.Record = model.NewFailedRecord(0, entry, model.FailureNotFound, "not found: "+reason)
		return res
	}

	pid, _ := ProductID(entry.Normalized)
	res.Refs = detailsRefs(doc, pid)
	res.Record = model.NewOKRecord(0, entry, detailsFields(doc))
	return res
}

func (p *Parser) analyzeHTML(body []byte, entry model.URLEntry) Result {
	res := Result{Format: FormatHTML}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		res.Record = model.NewFailedRecord(0, entry, model.FailureFatal, fmt.Sprintf("malformed html: %v", err))
		return res
	}
	if missing, reason := pageNotFound(doc); missing {
		res.Record = model.NewFailedRecord(0, entry, model.FailureNotFound, "not found: "+reason)
		return res
	}

	res.Record = model.NewOKRecord(0, entry, pageFields(doc))
	return res
}
