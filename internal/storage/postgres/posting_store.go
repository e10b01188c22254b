// Package postgres provides the Postgres-backed posting store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/jobposting-crawler/internal/crawler"
)

// DefaultTable is the table downstream consumers read.
const DefaultTable = "job_postings"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrPermanent marks failures that rerunning will not fix (missing table,
// privileges, disk full, bad credentials).
var ErrPermanent = errors.New("permanent storage failure")

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// PostingStore implements crawler.PostingStore on Postgres.
type PostingStore struct {
	pool  pool
	table string
}

// NewPostingStore connects a pool using cfg.
func NewPostingStore(ctx context.Context, cfg Config) (*PostingStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, classify("connect postgres", err)
	}
	return &PostingStore{pool: p, table: table}, nil
}

// NewPostingStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewPostingStoreWithPool(p pool, table string) (*PostingStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &PostingStore{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *PostingStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// schemaStatements creates the table, patches older layouts and adds the
// read indexes. Every statement is idempotent.
func (s *PostingStore) schemaStatements() []string {
	t := s.table
	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	job_id       TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	company      TEXT NOT NULL,
	location     TEXT,
	salary       TEXT,
	job_category TEXT,
	career       TEXT,
	education    TEXT,
	skills       TEXT,
	posted_at    TEXT,
	due_date     TEXT,
	closes_at    TEXT,
	url          TEXT,
	summary      TEXT,
	scraped_at   TIMESTAMPTZ NOT NULL
)`, t),
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS summary TEXT`, t),
		fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS closes_at TEXT`, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_scraped_at_idx ON %s (scraped_at DESC)`, t, t),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_posted_at_idx ON %s (posted_at)`, t, t),
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
		fmt.Sprintf(`DROP INDEX IF EXISTS %s_skills_idx`, t),
		// Serves skills ILIKE '%go%' lookups.
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_skills_trgm_idx ON %s USING gin (skills gin_trgm_ops)`, t, t),
	}
}

// EnsureSchema creates the table and indexes if they are missing.
func (s *PostingStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.schemaStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return classify("ensure schema", err)
		}
	}
	return nil
}

func (s *PostingStore) upsertSQL() string {
	return fmt.Sprintf(`
INSERT INTO %[1]s (
	job_id,
	title,
	company,
	location,
	salary,
	job_category,
	career,
	education,
	skills,
	posted_at,
	due_date,
	closes_at,
	url,
	summary,
	scraped_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, $12, $13, $14)
ON CONFLICT (job_id) DO UPDATE SET
	title = EXCLUDED.title,
	company = EXCLUDED.company,
	location = EXCLUDED.location,
	salary = EXCLUDED.salary,
	job_category = EXCLUDED.job_category,
	career = EXCLUDED.career,
	education = EXCLUDED.education,
	skills = EXCLUDED.skills,
	posted_at = EXCLUDED.posted_at,
	due_date = EXCLUDED.due_date,
	closes_at = EXCLUDED.closes_at,
	url = EXCLUDED.url,
	summary = EXCLUDED.summary,
	scraped_at = GREATEST(EXCLUDED.scraped_at, %[1]s.scraped_at + interval '1 microsecond')
`, s.table)
}

// Upsert writes postings as one batch inside a transaction and returns the
// affected row count. A failure rolls back the whole batch.
func (s *PostingStore) Upsert(ctx context.Context, postings []crawler.Posting) (int64, error) {
	if len(postings) == 0 {
		return 0, nil
	}
	for _, p := range postings {
		if err := p.Validate(); err != nil {
			return 0, fmt.Errorf("upsert: %w", err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, classify("begin upsert", err)
	}
	// No-op once committed.
	defer func() { _ = tx.Rollback(ctx) }()

	affected, err := s.upsertBatch(ctx, tx, postings)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, classify("commit upsert", err)
	}
	return affected, nil
}

func (s *PostingStore) upsertBatch(ctx context.Context, tx pgx.Tx, postings []crawler.Posting) (int64, error) {
	query := s.upsertSQL()
	batch := &pgx.Batch{}
	for _, p := range postings {
		batch.Queue(query,
			p.JobID,
			p.Title,
			p.Company,
			p.Location,
			p.Salary,
			p.JobCategory,
			p.Career,
			p.Education,
			p.Skills,
			p.PostedAt,
			p.DueDate,
			p.URL,
			p.Summary,
			p.ScrapedAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	var affected int64
	for _, p := range postings {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, classify(fmt.Sprintf("upsert posting %s", p.JobID), err)
		}
		affected += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, classify("close upsert batch", err)
	}
	return affected, nil
}

// Renormalize applies rw to every stored row and writes back rows whose
// normalized fields changed. scraped_at is left alone.
func (s *PostingStore) Renormalize(ctx context.Context, rw crawler.Rewriter) (int64, error) {
	stored, err := s.normalizedFields(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, classify("begin renormalize", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(
		`UPDATE %s SET skills = $2, posted_at = $3, due_date = $4, closes_at = $4 WHERE job_id = $1`,
		s.table,
	)
	var updated int64
	for _, before := range stored {
		after := rw(before)
		if crawler.SameNormalized(before, after) {
			continue
		}
		tag, err := tx.Exec(ctx, query, before.JobID, after.Skills, after.PostedAt, after.DueDate)
		if err != nil {
			return 0, classify(fmt.Sprintf("renormalize posting %s", before.JobID), err)
		}
		updated += tag.RowsAffected()
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, classify("commit renormalize", err)
	}
	return updated, nil
}

func (s *PostingStore) normalizedFields(ctx context.Context) ([]crawler.Posting, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT job_id, skills, posted_at, due_date FROM %s ORDER BY job_id`, s.table))
	if err != nil {
		return nil, classify("select postings", err)
	}
	defer rows.Close()

	var out []crawler.Posting
	for rows.Next() {
		var (
			p                   crawler.Posting
			skills, posted, due pgtype.Text
		)
		if err := rows.Scan(&p.JobID, &skills, &posted, &due); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		p.Skills = skills.String
		p.PostedAt = textPtr(posted)
		p.DueDate = textPtr(due)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate postings", err)
	}
	return out, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid || t.String == "" {
		return nil
	}
	v := t.String
	return &v
}

// classify wraps err with op and tags permanent Postgres failures.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && permanent(pgErr.Code) {
		return fmt.Errorf("%s: %w: %w", op, ErrPermanent, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func permanent(code string) bool {
	switch code {
	case pgerrcode.DiskFull,
		pgerrcode.InsufficientPrivilege,
		pgerrcode.UndefinedTable,
		pgerrcode.UndefinedColumn:
		return true
	}
	return pgerrcode.IsInvalidAuthorizationSpecification(code)
}
