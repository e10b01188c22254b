package crawler

import (
	"strings"
	"time"
)

// BuildPosting resolves identity and normalizes a raw card into the record
// that storage accepts. scrapedAt is stamped as UTC.
func BuildPosting(raw RawPosting, resolver IdentityResolver, norm Normalizer, scrapedAt time.Time) (Posting, error) {
	p := Posting{
		JobID:       resolver.Resolve(raw.URL, raw.Title, raw.Company),
		Title:       orUnknown(raw.Title),
		Company:     orUnknown(raw.Company),
		Location:    orUnknown(raw.Location),
		Salary:      orUnknown(raw.Salary),
		JobCategory: orUnknown(raw.JobCategory),
		Career:      orUnknown(raw.Career),
		Education:   orUnknown(raw.Education),
		Skills:      norm.Skills(raw.Skills),
		PostedAt:    norm.Date(raw.PostedText),
		DueDate:     norm.Date(raw.DueText),
		URL:         strings.TrimSpace(raw.URL),
		Summary:     strings.TrimSpace(raw.Summary),
		ScrapedAt:   scrapedAt.UTC(),
	}
	if err := p.Validate(); err != nil {
		return Posting{}, err
	}
	return p, nil
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	return s
}

// Rewriter maps a stored posting to its re-normalized form.
type Rewriter func(p Posting) Posting

// RenormalizeWith re-applies norm to the normalized fields of a stored
// posting. Date values already in ISO form pass through unchanged.
func RenormalizeWith(norm Normalizer) Rewriter {
	return func(p Posting) Posting {
		p.Skills = norm.Skills(p.Skills)
		p.PostedAt = renormalizeDate(norm, p.PostedAt)
		p.DueDate = renormalizeDate(norm, p.DueDate)
		return p
	}
}

func renormalizeDate(norm Normalizer, v *string) *string {
	if v == nil {
		return nil
	}
	return norm.Date(*v)
}

// SameNormalized reports whether two postings agree on every field a
// Rewriter may touch.
func SameNormalized(a, b Posting) bool {
	return a.Skills == b.Skills && equalDate(a.PostedAt, b.PostedAt) && equalDate(a.DueDate, b.DueDate)
}

func equalDate(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
