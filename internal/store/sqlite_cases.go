package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// CaseStore is the sqlite catalog of test cases. It hydrates search
// results and feeds document text to the reranker.
type CaseStore struct {
	db *sql.DB
}

// NewCaseStore opens (or creates) the catalog at path. WAL mode keeps
// concurrent search reads cheap during indexing.
func NewCaseStore(path string) (*CaseStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open case catalog: %w", err)
	}

	s := &CaseStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *CaseStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS cases (
	key             TEXT PRIMARY KEY,
	case_id         TEXT NOT NULL,
	title           TEXT NOT NULL,
	module          TEXT NOT NULL DEFAULT '',
	priority        TEXT NOT NULL DEFAULT '',
	steps           TEXT NOT NULL DEFAULT '',
	expected_result TEXT NOT NULL DEFAULT '',
	tags            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_cases_case_id ON cases(case_id);
CREATE INDEX IF NOT EXISTS idx_cases_module ON cases(module);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate case catalog: %w", err)
	}
	return nil
}

// PutCases upserts cases in one transaction.
func (s *CaseStore) PutCases(ctx context.Context, cases []*Case) error {
	if len(cases) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO cases (key, case_id, title, module, priority, steps, expected_result, tags)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	case_id = excluded.case_id,
	title = excluded.title,
	module = excluded.module,
	priority = excluded.priority,
	steps = excluded.steps,
	expected_result = excluded.expected_result,
	tags = excluded.tags`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cases {
		_, err := stmt.ExecContext(ctx, c.Key, c.CaseID, c.Title, c.Module,
			c.Priority, c.Steps, c.ExpectedResult, strings.Join(c.Tags, ","))
		if err != nil {
			return fmt.Errorf("upsert case %s: %w", c.Key, err)
		}
	}

	return tx.Commit()
}

// GetCases fetches cases by key in one batch. Missing keys are simply
// absent from the result map.
func (s *CaseStore) GetCases(ctx context.Context, keys []string) (map[string]*Case, error) {
	result := make(map[string]*Case, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT key, case_id, title, module, priority, steps, expected_result, tags
FROM cases WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		result[c.Key] = c
	}
	return result, rows.Err()
}

// GetCase fetches a single case, nil when absent.
func (s *CaseStore) GetCase(ctx context.Context, key string) (*Case, error) {
	cases, err := s.GetCases(ctx, []string{key})
	if err != nil {
		return nil, err
	}
	return cases[key], nil
}

// AllCases streams every case, used when rebuilding indexes.
func (s *CaseStore) AllCases(ctx context.Context) ([]*Case, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT key, case_id, title, module, priority, steps, expected_result, tags
FROM cases ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query all cases: %w", err)
	}
	defer rows.Close()

	var cases []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// Count returns the number of catalogued cases.
func (s *CaseStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return n, nil
}

// Close closes the catalog.
func (s *CaseStore) Close() error {
	return s.db.Close()
}

func scanCase(rows *sql.Rows) (*Case, error) {
	var c Case
	var tags string
	if err := rows.Scan(&c.Key, &c.CaseID, &c.Title, &c.Module, &c.Priority,
		&c.Steps, &c.ExpectedResult, &tags); err != nil {
		return nil, fmt.Errorf("scan case: %w", err)
	}
	if tags != "" {
		c.Tags = strings.Split(tags, ",")
	}
	return &c, nil
}
