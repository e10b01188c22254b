// Package crawler defines core types shared across subsystems.
package crawler

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Unknown is stored for free-text fields that could not be extracted.
const Unknown = "unknown"

// TerminalReason explains why a fetch ended pagination.
type TerminalReason string

// Terminal reasons reported by Fetcher implementations.
const (
	TerminalNone             TerminalReason = ""
	TerminalNotFound         TerminalReason = "not_found"
	TerminalEmpty            TerminalReason = "empty"
	TerminalStatus           TerminalReason = "unexpected_status"
	TerminalRetriesExhausted TerminalReason = "retries_exhausted"
)

// Reasons the engine stops a keyword without a terminal fetch.
const (
	StopNoPostings TerminalReason = "no_postings"
	StopPageCap    TerminalReason = "page_cap"
	StopPostingCap TerminalReason = "posting_cap"
)

// Page is the result of a single fetch. A terminal page carries no usable body
// and tells the caller to stop paginating.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Headers     http.Header
	Body        []byte
	Attempts    int
	Duration    time.Duration
	Terminal    bool
	Reason      TerminalReason
}

// TerminalPage builds a terminal result.
func TerminalPage(url string, status int, reason TerminalReason, attempts int) Page {
	return Page{
		URL:        url,
		StatusCode: status,
		Attempts:   attempts,
		Terminal:   true,
		Reason:     reason,
	}
}

// RawPosting is what the extractor found on one listing card. Blank fields
// become sentinels in BuildPosting.
type RawPosting struct {
	Title       string
	Company     string
	URL         string
	Location    string
	Career      string
	Education   string
	Salary      string
	JobCategory string
	Skills      string
	PostedText  string
	DueText     string
	Summary     string
}

// Posting is the persisted record. It is built once by BuildPosting and then
// passed by value; downstream stages never see RawPosting.
type Posting struct {
	JobID       string    `json:"job_id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Salary      string    `json:"salary"`
	JobCategory string    `json:"job_category"`
	Career      string    `json:"career"`
	Education   string    `json:"education"`
	Skills      string    `json:"skills"`
	PostedAt    *string   `json:"posted_at"`
	DueDate     *string   `json:"due_date"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// Validate reports postings that would violate the table contract.
func (p Posting) Validate() error {
	if strings.TrimSpace(p.JobID) == "" {
		return fmt.Errorf("posting job_id is required")
	}
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Company) == "" {
		return fmt.Errorf("posting %s: title and company are required", p.JobID)
	}
	if p.PostedAt != nil && *p.PostedAt == "" {
		return fmt.Errorf("posting %s: posted_at must be nil instead of empty", p.JobID)
	}
	if p.DueDate != nil && *p.DueDate == "" {
		return fmt.Errorf("posting %s: due_date must be nil instead of empty", p.JobID)
	}
	if p.ScrapedAt.IsZero() {
		return fmt.Errorf("posting %s: scraped_at is required", p.JobID)
	}
	return nil
}

// KeywordResult summarizes the crawl of one keyword.
type KeywordResult struct {
	Keyword      string
	Pages        int
	Postings     []Posting
	Affected     int64
	Dropped      int
	StopReason   TerminalReason
	ExportedPath string
}

// RunStats aggregates a whole run across keywords.
type RunStats struct {
	RunID    string
	Keywords int
	Pages    int
	Postings int
	Affected int64
	Dropped  int
}
