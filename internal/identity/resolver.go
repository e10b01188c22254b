// Package identity derives the stable job_id a posting is keyed on.
package identity

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/JakeFAU/jobposting-crawler/internal/crawler"
)

// DefaultQueryParams are checked in order for the site's posting number.
var DefaultQueryParams = []string{"rec_idx", "idx"}

// HashPrefix marks identities derived from content instead of the site.
const HashPrefix = "h"

// Resolver implements crawler.IdentityResolver. It is pure: the same inputs
// always produce the same id.
type Resolver struct {
	params []string
	hasher fieldHasher
}

type fieldHasher interface {
	HashFields(fields ...string) (string, error)
}

// NewResolver builds a Resolver; empty params fall back to the defaults.
func NewResolver(params []string, hasher fieldHasher) *Resolver {
	if len(params) == 0 {
		params = DefaultQueryParams
	}
	return &Resolver{params: params, hasher: hasher}
}

// Resolve prefers a posting number from the query, then a numeric trailing
// path segment, then a digest of title, company and URL.
func (r *Resolver) Resolve(rawURL, title, company string) string {
	rawURL = strings.TrimSpace(rawURL)
	if u, err := url.Parse(rawURL); err == nil && rawURL != "" {
		q := u.Query()
		for _, p := range r.params {
			if v := strings.TrimSpace(q.Get(p)); v != "" {
				return v
			}
		}
		if seg := path.Base(strings.TrimRight(u.Path, "/")); isDigits(seg) {
			return seg
		}
	}

	sum, err := r.hasher.HashFields(title, company, rawURL)
	if err != nil || sum == "" {
		// SHA-256 cannot fail; keep the id non-empty regardless.
		return HashPrefix + crawler.Unknown
	}
	return HashPrefix + sum
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
