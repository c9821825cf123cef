package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"webgen_server/internal/types"
)

// PostgresStore keeps projects and comparisons as JSONB documents.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects and pings within ten seconds.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

const upsertProject = `
INSERT INTO projects (id, user_id, created_at, updated_at, doc)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET user_id = EXCLUDED.user_id, updated_at = EXCLUDED.updated_at, doc = EXCLUDED.doc`

func (s *PostgresStore) SaveProject(ctx context.Context, p *Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project %s: %w", p.ID, err)
	}
	if _, err := s.pool.Exec(ctx, upsertProject, p.ID, p.UserID, p.CreatedAt, p.UpdatedAt, doc); err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (*Project, error) {
	return getProject(ctx, s.pool, id, "")
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getProject(ctx context.Context, q queryRower, id, suffix string) (*Project, error) {
	var doc []byte
	err := q.QueryRow(ctx, `SELECT doc FROM projects WHERE id = $1`+suffix, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	var p Project
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", id, err)
	}
	return &p, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, opts ListOptions) (*ProjectPage, error) {
	opts = opts.Normalize()

	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM projects WHERE ($1 = '' OR user_id = $1)`, opts.UserID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
SELECT doc FROM projects
WHERE ($1 = '' OR user_id = $1)
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`, opts.UserID, opts.PerPage, opts.offset())
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]*Project, 0, len(docs))
	for _, doc := range docs {
		var p Project
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("decode project: %w", err)
		}
		projects = append(projects, &p)
	}
	return newPage(projects, total, opts), nil
}

func (s *PostgresStore) DeleteProject(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateProjectFiles(ctx context.Context, id string, files types.FileBundle, meta *types.GenerationMetadata) (*Project, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update %s: %w", id, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	p, err := getProject(ctx, tx, id, " FOR UPDATE")
	if err != nil {
		return nil, err
	}
	p.Files = FilesFromBundle(files)
	if meta != nil {
		p.Metadata = meta
	}
	p.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode project %s: %w", id, err)
	}
	if _, err := tx.Exec(ctx, `UPDATE projects SET updated_at = $2, doc = $3 WHERE id = $1`, id, p.UpdatedAt, doc); err != nil {
		return nil, fmt.Errorf("update project %s: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) SaveComparison(ctx context.Context, c *types.ComparisonOutcome) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode comparison %s: %w", c.ComparisonID, err)
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO comparisons (id, created_at, doc) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, c.ComparisonID, c.GeneratedAt, doc)
	if err != nil {
		return fmt.Errorf("save comparison %s: %w", c.ComparisonID, err)
	}
	return nil
}

func (s *PostgresStore) GetComparison(ctx context.Context, id string) (*types.ComparisonOutcome, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM comparisons WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comparison %s: %w", id, err)
	}
	var c types.ComparisonOutcome
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, fmt.Errorf("decode comparison %s: %w", id, err)
	}
	return &c, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
