package intake

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// Validation error messages stored in URLEntry.Error.
const (
	ReasonEmpty          = "empty url"
	ReasonMalformed      = "malformed url"
	ReasonScheme         = "unsupported scheme"
	ReasonMissingHost    = "missing host"
	ReasonDomainMismatch = "domain not allowed"
)

// defaultScheme is prepended to inputs that have no scheme, e.g. "tatacliq.com/p-1".
const defaultScheme = "https"

// Validator checks syntax and domain membership of input URLs.
// A Validator is immutable and safe for concurrent use.
type Validator struct {
	// domain is the lower-cased target domain, e.g. "tatacliq.com".
	domain string

	// allowSubdomains accepts hosts ending with "."+domain.
	allowSubdomains bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithSubdomains controls whether subdomains of the target domain are accepted.
// Subdomains are accepted by default.
func WithSubdomains(allow bool) ValidatorOption {
	return func(v *Validator) {
		v.allowSubdomains = allow
	}
}

// NewValidator creates a Validator for the given target domain.
func NewValidator(domain string, opts ...ValidatorOption) *Validator {
	v := &Validator{
		domain:          strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), "."),
		allowSubdomains: true,
	}
	v.domain = strings.TrimPrefix(v.domain, "www.")
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Domain returns the target domain.
func (v *Validator) Domain() string {
	return v.domain
}

// Validate normalizes raw and checks it. It never panics and never returns
// an error: problems are reported through the entry's Valid and Error fields.
func (v *Validator) Validate(raw string) model.URLEntry {
	entry := model.URLEntry{Raw: raw}

	normalized, host, reason := Normalize(raw)
	if reason != "" {
		entry.Error = reason
		return entry
	}
	entry.Normalized = normalized
	entry.Key = dedupeKey(normalized)

	if !v.allowed(host) {
		entry.Error = ReasonDomainMismatch
		return entry
	}

	entry.Valid = true
	return entry
}

// ValidateAll validates every raw string, keeping input order and stamping
// each entry with its position.
func (v *Validator) ValidateAll(raws []string) []model.URLEntry {
	entries := make([]model.URLEntry, len(raws))
	for i, raw := range raws {
		entries[i] = v.Validate(raw)
		entries[i].Position = i
	}
	return entries
}

// allowed reports whether host belongs to the target domain.
func (v *Validator) allowed(host string) bool {
	if v.domain == "" {
		return false
	}
	if host == v.domain || host == "www."+v.domain {
		return true
	}
	return v.allowSubdomains && strings.HasSuffix(host, "."+v.domain)
}

// Normalize returns the canonical form of raw and its host.
// When raw cannot be normalized, reason is non-empty and the other values
// are undefined.
//
// Normalization lower-cases scheme and host, adds https:// when no scheme
// is given, drops default ports and fragments, sorts the query and strips
// a trailing slash from non-root paths. Normalize is idempotent.
func Normalize(raw string) (normalized, host, reason string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "", ReasonEmpty
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return "", "", ReasonMalformed
	}
	if !strings.Contains(s, "://") {
		s = defaultScheme + "://" + strings.TrimPrefix(s, "//")
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", "", ReasonMalformed
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", ReasonScheme
	}
	if u.Opaque != "" || u.User != nil {
		return "", "", ReasonMalformed
	}

	host = strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", "", ReasonMissingHost
	}
	if !isASCII(host) {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return "", "", ReasonMalformed
		}
		host = ascii
	}
	if !wellFormedHost(host) {
		return "", "", ReasonMalformed
	}

	port, ok := canonicalPort(u.Port())
	if !ok {
		return "", "", ReasonMalformed
	}
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	switch {
	case port != "":
		u.Host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		u.Host = "[" + host + "]"
	default:
		u.Host = host
	}

	u.Fragment = ""
	u.RawFragment = ""
	// Work on the escaped form so reserved escapes such as %2F survive.
	escaped := u.EscapedPath()
	if len(escaped) > 1 {
		escaped = strings.TrimRight(escaped, "/")
	}
	if escaped == "/" {
		escaped = ""
	}
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return "", "", ReasonMalformed
	}
	u.Path, u.RawPath = path, escaped

	if u.RawQuery != "" {
		// Queries that do not parse (e.g. containing ';') are kept verbatim.
		if q, err := url.ParseQuery(u.RawQuery); err == nil {
			u.RawQuery = q.Encode()
		}
	}
	u.ForceQuery = false

	return u.String(), host, ""
}

// canonicalPort strips leading zeros from port. Ports outside 1-65535 are
// rejected. An empty port stays empty.
func canonicalPort(port string) (string, bool) {
	if port == "" {
		return "", true
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", false
	}
	return strconv.Itoa(n), true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// wellFormedHost accepts IP literals and names with a derivable eTLD+1.
// Single-label names such as "bad-url" or "localhost" are rejected.
func wellFormedHost(host string) bool {
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return true
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
		return false
	}
	return true
}

// dedupeKey strips the scheme and a leading "www." from a normalized URL.
func dedupeKey(normalized string) string {
	key := normalized
	if i := strings.Index(key, "://"); i >= 0 {
		key = key[i+3:]
	}
	return strings.TrimPrefix(key, "www.")
}
