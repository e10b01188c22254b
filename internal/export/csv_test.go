package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobposting-crawler/internal/clock/system"
	"github.com/JakeFAU/jobposting-crawler/internal/crawler"
	"github.com/JakeFAU/jobposting-crawler/internal/storage/memory"
)

func strPtr(s string) *string { return &s }

func samplePostings() []crawler.Posting {
	return []crawler.Posting{
		{
			JobID:       "1",
			Title:       "Backend, Go",
			Company:     "Acme",
			Career:      "경력 3년↑",
			Education:   crawler.Unknown,
			Location:    "서울 강남구",
			Salary:      crawler.Unknown,
			JobCategory: "백엔드",
			Skills:      "go, postgres",
			PostedAt:    strPtr("2025-06-01"),
			URL:         "https://www.saramin.co.kr/zf_user/jobs/relay/view?rec_idx=1",
			Summary:     "line one\nline two",
			ScrapedAt:   time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Golang":        "golang",
		"데이터 분석":        "데이터-분석",
		"  C++ / Go  ":  "c-go",
		"ML/AI Engineer": "ml-ai-engineer",
		"!!!":           "keyword",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 10, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "golang_20250610_090507.csv", FileName("Golang", at))
}

func TestExportWritesSnapshot(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	clk := system.NewFixed(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))
	exp := NewCSVExporter(store, clk, Options{Prefix: "exports", BOM: true})

	uri, err := exp.Export(context.Background(), "golang", samplePostings())
	require.NoError(t, err)
	assert.Equal(t, "memory://exports/golang_20250610_090000.csv", uri)

	raw, ok := store.Object("exports/golang_20250610_090000.csv")
	require.True(t, ok)
	require.True(t, bytes.HasPrefix(raw, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(raw[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{
		"Backend, Go", "Acme", "경력 3년↑", "unknown", "서울 강남구", "unknown", "백엔드",
		"go, postgres", "2025-06-01", "", "line one\nline two",
		"https://www.saramin.co.kr/zf_user/jobs/relay/view?rec_idx=1", "2025-06-10T00:00:00Z",
	}, records[1])
}

type failingStore struct{}

func (failingStore) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("disk full")
}

func TestExportPropagatesStoreError(t *testing.T) {
	t.Parallel()

	exp := NewCSVExporter(failingStore{}, system.NewFixed(time.Now()), Options{})
	_, err := exp.Export(context.Background(), "golang", samplePostings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
