// Package memory provides in-process stores for dry runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/jobposting-crawler/internal/crawler"
)

// PostingStore keeps postings in a map keyed by job_id and applies the same
// merge rules as the Postgres store.
type PostingStore struct {
	mu   sync.RWMutex
	rows map[string]crawler.Posting
}

// NewPostingStore constructs an empty PostingStore.
func NewPostingStore() *PostingStore {
	return &PostingStore{rows: make(map[string]crawler.Posting)}
}

// EnsureSchema is a no-op.
func (s *PostingStore) EnsureSchema(context.Context) error {
	return nil
}

// Upsert validates the whole batch, then overwrites every column of existing
// rows. scraped_at always moves forward for an id that is written again.
func (s *PostingStore) Upsert(_ context.Context, postings []crawler.Posting) (int64, error) {
	for _, p := range postings {
		if err := p.Validate(); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range postings {
		p = clonePosting(p)
		if prev, ok := s.rows[p.JobID]; ok {
			if floor := prev.ScrapedAt.Add(time.Microsecond); p.ScrapedAt.Before(floor) {
				p.ScrapedAt = floor
			}
		}
		s.rows[p.JobID] = p
	}
	return int64(len(postings)), nil
}

// Renormalize applies rw to every stored row, returning how many changed.
func (s *PostingStore) Renormalize(_ context.Context, rw crawler.Rewriter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for id, before := range s.rows {
		after := rw(clonePosting(before))
		if crawler.SameNormalized(before, after) {
			continue
		}
		before.Skills = after.Skills
		before.PostedAt = after.PostedAt
		before.DueDate = after.DueDate
		s.rows[id] = before
		updated++
	}
	return updated, nil
}

// Get returns a copy of the stored posting.
func (s *PostingStore) Get(jobID string) (crawler.Posting, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.rows[jobID]
	if !ok {
		return crawler.Posting{}, false
	}
	return clonePosting(p), true
}

// All returns copies of every posting ordered by job_id.
func (s *PostingStore) All() []crawler.Posting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.Posting, 0, len(s.rows))
	for _, p := range s.rows {
		out = append(out, clonePosting(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out
}

// Len reports the number of stored postings.
func (s *PostingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func clonePosting(p crawler.Posting) crawler.Posting {
	p.PostedAt = cloneString(p.PostedAt)
	p.DueDate = cloneString(p.DueDate)
	return p
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
