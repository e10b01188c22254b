// Package export writes CSV snapshots of a keyword's postings to a blob store.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/JakeFAU/jobposting-crawler/internal/crawler"
)

// Columns is the fixed CSV column order.
var Columns = []string{
	"title",
	"company",
	"career",
	"education",
	"location",
	"salary",
	"job_category",
	"skills",
	"posted_at",
	"due_date",
	"summary",
	"url",
	"scraped_at",
}

const contentType = "text/csv; charset=utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BlobStore is the sink a snapshot is written to.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Options tunes the CSV layout.
type Options struct {
	// Prefix is the directory or object prefix for snapshots.
	Prefix string
	// BOM prepends a UTF-8 byte order mark so spreadsheet tools detect the
	// encoding of Korean text.
	BOM bool
}

// CSVExporter implements crawler.Exporter.
type CSVExporter struct {
	store BlobStore
	clock crawler.Clock
	opts  Options
}

// NewCSVExporter builds an exporter writing through store.
func NewCSVExporter(store BlobStore, clock crawler.Clock, opts Options) *CSVExporter {
	return &CSVExporter{store: store, clock: clock, opts: opts}
}

// Export writes the batch and returns the location it was stored at.
func (e *CSVExporter) Export(ctx context.Context, keyword string, postings []crawler.Posting) (string, error) {
	var buf bytes.Buffer
	if e.opts.BOM {
		buf.Write(utf8BOM)
	}
	if err := WriteCSV(&buf, postings); err != nil {
		return "", err
	}
	name := FileName(keyword, e.clock.Now())
	if e.opts.Prefix != "" {
		name = path.Join(e.opts.Prefix, name)
	}
	uri, err := e.store.PutObject(ctx, name, contentType, &buf)
	if err != nil {
		return "", fmt.Errorf("export %q: %w", keyword, err)
	}
	return uri, nil
}

// WriteCSV writes the header and one row per posting.
func WriteCSV(w io.Writer, postings []crawler.Posting) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range postings {
		if err := cw.Write(row(p)); err != nil {
			return fmt.Errorf("write csv row %s: %w", p.JobID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func row(p crawler.Posting) []string {
	return []string{
		p.Title,
		p.Company,
		p.Career,
		p.Education,
		p.Location,
		p.Salary,
		p.JobCategory,
		p.Skills,
		deref(p.PostedAt),
		deref(p.DueDate),
		p.Summary,
		p.URL,
		p.ScrapedAt.UTC().Format(time.RFC3339),
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// FileName returns "{keyword-slug}_{YYYYMMDD_HHMMSS}.csv".
func FileName(keyword string, at time.Time) string {
	return fmt.Sprintf("%s_%s.csv", Slug(keyword), at.Format("20060102_150405"))
}

// Slug lowercases keyword and collapses every run of non letter/digit runes
// into a single "-".
func Slug(keyword string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(keyword) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if s == "" {
		return "keyword"
	}
	return s
}
