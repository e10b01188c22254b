package normalize

// Normalizer combines skill and date canonicalization behind the single
// surface the crawl engine consumes.
type Normalizer struct {
	skills *SkillNormalizer
	dates  *DateNormalizer
}

// New returns a Normalizer built from its two halves.
func New(skills *SkillNormalizer, dates *DateNormalizer) *Normalizer {
	if skills == nil {
		skills = NewSkillNormalizer(nil)
	}
	if dates == nil {
		dates = NewDateNormalizer(nil, nil, nil, nil)
	}
	return &Normalizer{skills: skills, dates: dates}
}

// Skills canonicalizes a raw skill list.
func (n *Normalizer) Skills(raw string) string {
	return n.skills.Normalize(raw)
}

// Date resolves a raw date string; nil means no date.
func (n *Normalizer) Date(raw string) *string {
	return n.dates.Normalize(raw)
}
