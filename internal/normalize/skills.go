// Package normalize canonicalizes skill lists and date strings before
// postings are persisted. Every function here is total: bad input falls back
// to the original value instead of failing.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultSkillSynonyms maps cleaned tokens to their canonical spelling.
var DefaultSkillSynonyms = map[string]string{
	"py":               "python",
	"python2":          "python",
	"python3":          "python",
	"js":               "javascript",
	"ts":               "typescript",
	"nodejs":           "node",
	"node.js":          "node",
	"postgre":          "postgres",
	"postgresql":       "postgres",
	"tf":               "tensorflow",
	"tf1":              "tensorflow",
	"tf2":              "tensorflow",
	"pytorch":          "torch",
	"py-torch":         "torch",
	"sklearn":          "scikit-learn",
	"scikitlearn":      "scikit-learn",
	"machinelearning":  "ml",
	"machine-learning": "ml",
}

// Tokens are split on these runes and on any whitespace.
const skillSeparators = "/|,;"

// SkillNormalizer splits, cleans and deduplicates raw skill strings.
type SkillNormalizer struct {
	synonyms map[string]string
}

// NewSkillNormalizer merges extra synonyms over the defaults. Keys and values
// of extra are cleaned the same way tokens are.
func NewSkillNormalizer(extra map[string]string) *SkillNormalizer {
	synonyms := make(map[string]string, len(DefaultSkillSynonyms)+len(extra))
	for k, v := range DefaultSkillSynonyms {
		synonyms[k] = v
	}
	for k, v := range extra {
		key, val := cleanToken(k), cleanToken(v)
		if key == "" || val == "" {
			continue
		}
		synonyms[key] = val
	}
	return &SkillNormalizer{synonyms: synonyms}
}

// Normalize returns the canonical ", "-joined skill list.
func (n *SkillNormalizer) Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	folded := norm.NFKC.String(raw)
	parts := strings.FieldsFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(skillSeparators, r)
	})

	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		token := cleanToken(part)
		if token == "" {
			continue
		}
		if canonical, ok := n.synonyms[token]; ok {
			token = canonical
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return strings.Join(out, ", ")
}

// cleanToken lowercases and drops everything except letters, digits and the
// symbols that carry meaning in tech names (C++, C#, .NET, scikit-learn).
func cleanToken(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '#', r == '+', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
