package parser

import (
	"net/url"
	"strings"
)

// DefaultAPIBase is the marketplace web service root.
const DefaultAPIBase = "https://www.tatacliq.com/marketplacewebservices/v2/mpl"

// productIDMarker separates the slug from the product ID in a product URL.
const productIDMarker = "/p-"

// ProductID extracts the product ID from a product page URL.
// The ID is the text after the last "/p-" in the path, upper-cased.
// ok is false when the path has no such marker or the ID is empty.
func ProductID(rawURL string) (id string, ok bool) {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}
	i := strings.LastIndex(path, productIDMarker)
	if i < 0 {
		return "", false
	}
	id = strings.Trim(path[i+len(productIDMarker):], "/ ")
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return strings.ToUpper(id), true
}

// Endpoints builds web service URLs relative to a base.
type Endpoints struct {
	base string
}

// NewEndpoints returns Endpoints rooted at base. An empty base means
// DefaultAPIBase.
func NewEndpoints(base string) Endpoints {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultAPIBase
	}
	return Endpoints{base: base}
}

// Base returns the root URL.
func (e Endpoints) Base() string {
	return e.base
}

// Details returns the product-details URL for pid.
func (e Endpoints) Details(pid string) string {
	q := url.Values{}
	q.Set("isPwa", "true")
	q.Set("isMDE", "true")
	q.Set("isDynamicVar", "true")
	return e.base + "/products/productDetails/" + url.PathEscape(pid) + "?" + q.Encode()
}

// CustomerVoice returns the customer-voice URL for pid.
func (e Endpoints) CustomerVoice(pid string) string {
	return e.base + "/products/" + url.PathEscape(pid) + "/customerVoice"
}

// Manufacturing returns the manufacturing-details URL for a brand code and
// category ID.
func (e Endpoints) Manufacturing(brand, category string) string {
	q := url.Values{}
	q.Set("brand", strings.ToUpper(brand))
	q.Set("category", strings.ToUpper(category))
	return e.base + "/products/manufacturingdetails?" + q.Encode()
}

// SizeGuide returns the size-guide chart URL for pid.
func (e Endpoints) SizeGuide(pid, sizeGuideID string) string {
	q := url.Values{}
	q.Set("isPwa", "true")
	q.Set("sizeGuideId", sizeGuideID)
	q.Set("rootCategory", "Clothing")
	return e.base + "/products/" + url.PathEscape(pid) + "/sizeGuideChart?" + q.Encode()
}
