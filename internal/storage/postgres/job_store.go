// Package postgres provides the Postgres-backed job store.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

// ChunkSize bounds the number of ids sent in one statement.
const ChunkSize = 100

const defaultTable = "jobs"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

//go:embed schema.sql
var schemaTemplate string

// JobStoreConfig controls the Postgres connection pool.
type JobStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// JobStore implements crawler.JobStore on a Postgres table.
type JobStore struct {
	pool  pool
	table string
}

// NewJobStore connects to Postgres using cfg.
func NewJobStore(ctx context.Context, cfg JobStoreConfig) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
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
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &JobStore{pool: p, table: table}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewJobStoreWithPool(p pool, table string) (*JobStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &JobStore{pool: p, table: table}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks connectivity.
func (s *JobStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the job table and its index when missing.
func (s *JobStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(schemaTemplate, s.table)); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

// Exists reports whether a job with id is stored.
func (s *JobStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", s.table)
	if err := s.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists %s: %w", id, err)
	}
	return exists, nil
}

// DiffNew returns the ids that are not stored yet, in input order.
func (s *JobStore) DiffNew(ctx context.Context, ids []string) ([]string, error) {
	known := make(map[string]struct{}, len(ids))
	query := fmt.Sprintf("SELECT id FROM %s WHERE id = ANY($1)", s.table)
	for _, chunk := range chunks(ids, ChunkSize) {
		found, err := s.queryIDs(ctx, query, chunk)
		if err != nil {
			return nil, fmt.Errorf("diff ids: %w", err)
		}
		for _, id := range found {
			known[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Insert adds job. An existing id yields crawler.ErrDuplicateJob.
func (s *JobStore) Insert(ctx context.Context, job crawler.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	region,
	field,
	description,
	visa_sponsor,
	experience,
	swedish,
	skills,
	education,
	last_application_date
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`, s.table)

	args := []any{
		job.ID,
		job.Region,
		job.Field,
		job.Description,
		job.VisaSponsor,
		job.Experience,
		swedishValue(job.Swedish),
		crawler.JoinSkills(job.Skills),
		job.Education,
		job.LastApplicationDate,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("insert %s: %w", job.ID, crawler.ErrDuplicateJob)
		}
		return fmt.Errorf("insert %s: %w", job.ID, err)
	}
	return nil
}

// PurgeExpired deletes the field/region jobs whose id is absent from
// currentIDs and returns how many were removed. An empty currentIDs deletes nothing.
func (s *JobStore) PurgeExpired(ctx context.Context, currentIDs []string, field, region string) (int, error) {
	if len(currentIDs) == 0 {
		return 0, nil
	}
	stored, err := s.queryIDs(ctx,
		fmt.Sprintf("SELECT id FROM %s WHERE field = $1 AND region = $2", s.table), field, region)
	if err != nil {
		return 0, fmt.Errorf("load %s/%s ids: %w", field, region, err)
	}
	current := make(map[string]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		current[id] = struct{}{}
	}
	var expired []string
	for _, id := range stored {
		if _, ok := current[id]; !ok {
			expired = append(expired, id)
		}
	}

	deleted := 0
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", s.table)
	for _, chunk := range chunks(expired, ChunkSize) {
		tag, err := s.pool.Exec(ctx, query, chunk)
		if err != nil {
			return deleted, fmt.Errorf("delete expired: %w", err)
		}
		deleted += int(tag.RowsAffected())
	}
	return deleted, nil
}

// Search returns the jobs matching filter. An empty field yields no rows
// without touching the database.
func (s *JobStore) Search(ctx context.Context, filter crawler.SearchFilter) ([]crawler.Job, error) {
	if filter.Field == "" {
		return []crawler.Job{}, nil
	}
	query, args := BuildSearchQuery(s.table, filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]crawler.Job, 0)
	for rows.Next() {
		var (
			job     crawler.Job
			swedish *string
			skills  *string
		)
		if err := rows.Scan(
			&job.ID,
			&job.Field,
			&job.Region,
			&job.Description,
			&job.VisaSponsor,
			&job.Experience,
			&swedish,
			&skills,
			&job.Education,
			&job.LastApplicationDate,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if swedish != nil {
			job.Swedish = crawler.ParseSwedish(*swedish)
		}
		job.Skills = []string{}
		if skills != nil {
			job.Skills = crawler.SplitSkills(*skills)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func (s *JobStore) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func swedishValue(s crawler.Swedish) *string {
	if s == crawler.SwedishUnknown {
		return nil
	}
	v := string(s)
	return &v
}

func chunks(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
