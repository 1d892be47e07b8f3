package parser

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// Field names written by the page parser.
const (
	FieldName        = "name"
	FieldBrand       = "brand"
	FieldPagePrice   = "price"
	FieldCurrency    = "currency"
	FieldSKU         = "sku"
	FieldDescription = "description"
	FieldImage       = "image"
)

// pageKeys are always present in an ok record parsed from HTML.
var pageKeys = []string{
	FieldName,
	FieldBrand,
	FieldPagePrice,
	FieldCurrency,
	FieldAvailability,
	FieldSKU,
	FieldDescription,
	FieldImage,
}

// notFoundMarkers are matched case-insensitively against title and h1.
var notFoundMarkers = []string{"page not found", "404"}

// pageNotFound reports whether the document is a not-found page.
func pageNotFound(doc *goquery.Document) (bool, string) {
	if doc.Find(".page-not-found").Length() > 0 {
		return true, "page not found"
	}
	title := strings.ToLower(collapseSpace(doc.Find("title").First().Text()))
	h1 := strings.ToLower(collapseSpace(doc.Find("h1").First().Text()))
	for _, m := range notFoundMarkers {
		if strings.Contains(title, m) || strings.Contains(h1, m) {
			return true, "page not found"
		}
	}
	return false, ""
}

// pageFields extracts product fields from an HTML product page.
// JSON-LD Product data wins, then Open Graph and product meta tags,
// then visible markup.
func pageFields(doc *goquery.Document) model.Fields {
	f := model.NewFields(len(pageKeys))
	for _, k := range pageKeys {
		f.Set(k, "")
	}

	if p := jsonLDProduct(doc); p != nil {
		f.Set(FieldName, p.str("name"))
		f.Set(FieldSKU, p.str("sku"))
		f.Set(FieldDescription, CleanHTML(p.str("description")))
		f.Set(FieldImage, firstText(p["image"]))

		switch b := p["brand"].(type) {
		case map[string]any:
			f.Set(FieldBrand, object(b).str("name"))
		default:
			f.Set(FieldBrand, text(b))
		}

		offer := firstObject(p["offers"])
		f.Set(FieldPagePrice, offer.str("price"))
		if f.Value(FieldPagePrice) == "" {
			f.Set(FieldPagePrice, offer.str("lowPrice"))
		}
		f.Set(FieldCurrency, offer.str("priceCurrency"))
		f.Set(FieldAvailability, schemaAvailability(offer.str("availability")))
	}

	fill := func(key, value string) {
		if f.Value(key) == "" {
			f.Set(key, strings.TrimSpace(value))
		}
	}
	fill(FieldName, meta(doc, "og:title"))
	fill(FieldName, collapseSpace(doc.Find("h1").First().Text()))
	fill(FieldBrand, meta(doc, "product:brand"))
	fill(FieldPagePrice, meta(doc, "product:price:amount"))
	fill(FieldCurrency, meta(doc, "product:price:currency"))
	fill(FieldAvailability, schemaAvailability(meta(doc, "product:availability")))
	fill(FieldSKU, meta(doc, "product:retailer_item_id"))
	fill(FieldDescription, meta(doc, "og:description"))
	fill(FieldDescription, meta(doc, "description"))
	fill(FieldImage, meta(doc, "og:image"))

	return f
}

// jsonLDProduct returns the first schema.org Product found in JSON-LD
// script blocks, looking inside arrays and @graph containers.
func jsonLDProduct(doc *goquery.Document) object {
	var found object
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}
		found = findProduct(v)
		return found == nil
	})
	return found
}

func findProduct(v any) object {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if p := findProduct(e); p != nil {
				return p
			}
		}
	case map[string]any:
		o := object(t)
		if isProductType(o["@type"]) {
			return o
		}
		if g, ok := o["@graph"]; ok {
			return findProduct(g)
		}
	}
	return nil
}

func isProductType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "Product")
	case []any:
		for _, e := range t {
			if isProductType(e) {
				return true
			}
		}
	}
	return false
}

// meta returns the content of a meta tag matched by property or name.
func meta(doc *goquery.Document, key string) string {
	sel := doc.Find(`meta[property="` + key + `"]`)
	if sel.Length() == 0 {
		sel = doc.Find(`meta[name="` + key + `"]`)
	}
	content, _ := sel.First().Attr("content")
	return strings.TrimSpace(content)
}

// firstObject returns v, or the first object of v when it is an array.
func firstObject(v any) object {
	switch t := v.(type) {
	case map[string]any:
		return object(t)
	case []any:
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				return object(m)
			}
		}
	}
	return nil
}

// firstText returns v as text, or its first non-empty element.
func firstText(v any) string {
	if arr, ok := v.([]any); ok {
		for _, e := range arr {
			if s := text(e); s != "" {
				return s
			}
		}
		return ""
	}
	if m, ok := v.(map[string]any); ok {
		return object(m).str("url")
	}
	return text(v)
}

// schemaAvailability maps schema.org availability URLs to labels.
// "https://schema.org/InStock" becomes "in stock".
func schemaAvailability(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.LastIndex(v, "/"); i >= 0 {
		v = v[i+1:]
	}
	switch strings.ToLower(v) {
	case "":
		return ""
	case "instock", "in stock", "limitedavailability", "onlineonly":
		return "in stock"
	case "outofstock", "out of stock", "soldout", "discontinued":
		return "out of stock"
	case "preorder":
		return "pre-order"
	default:
		return v
	}
}
