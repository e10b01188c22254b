package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct{}

func (stubResolver) Resolve(rawURL, title, _ string) string {
	if rawURL == "" {
		return "h-" + title
	}
	return "id-" + rawURL
}

type stubNormalizer struct{}

func (stubNormalizer) Skills(raw string) string { return "norm:" + raw }

func (stubNormalizer) Date(raw string) *string {
	if raw == "" {
		return nil
	}
	out := "d:" + raw
	return &out
}

func TestBuildPostingFillsSentinels(t *testing.T) {
	t.Parallel()

	kst := time.FixedZone("KST", 9*60*60)
	scraped := time.Date(2025, 6, 10, 9, 0, 0, 0, kst)
	p, err := BuildPosting(RawPosting{
		Title:      " Backend ",
		Company:    "Acme",
		URL:        " https://example.com/1 ",
		Skills:     "Go",
		PostedText: "오늘",
	}, stubResolver{}, stubNormalizer{}, scraped)
	require.NoError(t, err)

	assert.Equal(t, "id- https://example.com/1 ", p.JobID)
	assert.Equal(t, "Backend", p.Title)
	assert.Equal(t, Unknown, p.Location)
	assert.Equal(t, Unknown, p.Salary)
	assert.Equal(t, Unknown, p.JobCategory)
	assert.Equal(t, Unknown, p.Career)
	assert.Equal(t, Unknown, p.Education)
	assert.Equal(t, "norm:Go", p.Skills)
	require.NotNil(t, p.PostedAt)
	assert.Equal(t, "d:오늘", *p.PostedAt)
	assert.Nil(t, p.DueDate)
	assert.Equal(t, "https://example.com/1", p.URL)
	assert.Equal(t, time.UTC, p.ScrapedAt.Location())
	assert.True(t, p.ScrapedAt.Equal(scraped))
}

func TestBuildPostingRejectsMissingTitle(t *testing.T) {
	t.Parallel()

	p, err := BuildPosting(RawPosting{Company: "Acme"}, stubResolver{}, stubNormalizer{}, time.Now())
	require.NoError(t, err, "missing title becomes the sentinel")
	assert.Equal(t, Unknown, p.Title)

	_, err = BuildPosting(RawPosting{Title: "T", Company: "C"}, stubResolver{}, stubNormalizer{}, time.Time{})
	require.Error(t, err)
}

func TestPostingValidate(t *testing.T) {
	t.Parallel()

	empty := ""
	base := Posting{JobID: "1", Title: "T", Company: "C", ScrapedAt: time.Now()}
	require.NoError(t, base.Validate())

	tests := map[string]func(p *Posting){
		"job id":    func(p *Posting) { p.JobID = " " },
		"title":     func(p *Posting) { p.Title = "" },
		"posted at": func(p *Posting) { p.PostedAt = &empty },
		"due date":  func(p *Posting) { p.DueDate = &empty },
		"scraped":   func(p *Posting) { p.ScrapedAt = time.Time{} },
	}
	for name, mutate := range tests {
		p := base
		mutate(&p)
		assert.Error(t, p.Validate(), name)
	}
}

func TestRenormalizeWith(t *testing.T) {
	t.Parallel()

	posted := "raw"
	p := Posting{JobID: "1", Skills: "Go", PostedAt: &posted}
	out := RenormalizeWith(stubNormalizer{})(p)
	assert.Equal(t, "norm:Go", out.Skills)
	require.NotNil(t, out.PostedAt)
	assert.Equal(t, "d:raw", *out.PostedAt)
	assert.Nil(t, out.DueDate)
	assert.False(t, SameNormalized(p, out))
	assert.True(t, SameNormalized(out, out))
}
