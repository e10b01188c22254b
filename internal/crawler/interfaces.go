package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves listing and detail pages. Only context cancellation is
// reported as an error; every other failure becomes a terminal Page.
type Fetcher interface {
	FetchListing(ctx context.Context, keyword string, page int) (Page, error)
	FetchDetail(ctx context.Context, url string) (Page, error)
}

// Extractor turns page markup into raw postings.
type Extractor interface {
	Extract(page Page) ExtractResult
	Summary(page Page) string
}

// ExtractResult carries the cards found on a page.
type ExtractResult struct {
	Cards    int
	Postings []RawPosting
	Dropped  int
}

// IdentityResolver derives the stable job_id.
type IdentityResolver interface {
	Resolve(rawURL, title, company string) string
}

// Normalizer canonicalizes skills and dates. Both methods are total.
type Normalizer interface {
	Skills(raw string) string
	Date(raw string) *string
}

// PostingStore persists postings idempotently.
type PostingStore interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, postings []Posting) (int64, error)
}

// Exporter writes a snapshot of one keyword batch.
type Exporter interface {
	Export(ctx context.Context, keyword string, postings []Posting) (string, error)
}

// Hasher computes digests for identity fallback.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
