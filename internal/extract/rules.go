package extract

import "strings"

// Condition fields a ConditionRule may assign.
const (
	FieldCareer    = "career"
	FieldEducation = "education"
)

// ConditionRule assigns the classified condition span to Field when it
// contains any of Tokens (case-insensitive).
type ConditionRule struct {
	Field  string   `mapstructure:"field"`
	Tokens []string `mapstructure:"tokens"`
}

// Rules holds every selector the extractor uses. Each slice is a fallback
// chain: the first selector producing a non-empty value wins.
type Rules struct {
	Cards          []string        `mapstructure:"cards"`
	Title          []string        `mapstructure:"title"`
	Company        []string        `mapstructure:"company"`
	Conditions     []string        `mapstructure:"conditions"`
	Categories     []string        `mapstructure:"categories"`
	Skills         []string        `mapstructure:"skills"`
	Dates          []string        `mapstructure:"dates"`
	SummaryMeta    []string        `mapstructure:"summary_meta"`
	ConditionRules []ConditionRule `mapstructure:"condition_rules"`
}

// DefaultRules matches the listings markup the crawler targets.
func DefaultRules() Rules {
	return Rules{
		Cards:      []string{"div.item_recruit", ".list_item"},
		Title:      []string{"h2.job_tit a", ".job_tit a", "a.job_tit"},
		Company:    []string{"strong.corp_name a", ".corp_name a", "strong.corp_name", ".company_name"},
		Conditions: []string{".job_condition span"},
		Categories: []string{".job_sector a"},
		Skills: []string{
			".tag span",
			".toolTip.wrap_keyword span",
			".toolTip_wrap span",
			".job_keyword span",
			".job_sector span.badge",
		},
		Dates:       []string{".job_date span"},
		SummaryMeta: []string{`meta[name="description"]`, `meta[property="og:description"]`},
		ConditionRules: []ConditionRule{
			{Field: FieldCareer, Tokens: []string{"entry", "experience", "years", "신입", "경력"}},
			{Field: FieldEducation, Tokens: []string{"associate", "bachelor", "highschool", "any", "초대졸", "대졸", "고졸", "학력무관"}},
		},
	}
}

// WithDefaults fills empty chains from DefaultRules.
func (r Rules) WithDefaults() Rules {
	d := DefaultRules()
	fill := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = src
		}
	}
	fill(&r.Cards, d.Cards)
	fill(&r.Title, d.Title)
	fill(&r.Company, d.Company)
	fill(&r.Conditions, d.Conditions)
	fill(&r.Categories, d.Categories)
	fill(&r.Skills, d.Skills)
	fill(&r.Dates, d.Dates)
	fill(&r.SummaryMeta, d.SummaryMeta)
	if len(r.ConditionRules) == 0 {
		r.ConditionRules = d.ConditionRules
	}
	return r
}

// classify returns the field of the first rule matching text, or "".
func (r Rules) classify(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range r.ConditionRules {
		for _, tok := range rule.Tokens {
			if tok != "" && strings.Contains(lower, strings.ToLower(tok)) {
				return rule.Field
			}
		}
	}
	return ""
}
