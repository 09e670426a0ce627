package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/orbit-run/orbit/pkg/api"
)

// SQLiteStore implements WorkflowStore and RunStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

var _ WorkflowStore = (*SQLiteStore)(nil)
var _ RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflows (
			name TEXT PRIMARY KEY,
			spec BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			status TEXT NOT NULL,
			record BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_workflow ON runs(workflow_name);
		CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);`,
	)
	return err
}

func (s *SQLiteStore) SaveWorkflow(spec api.WorkflowSpec) error {
	data, err := EncodeWorkflow(spec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO workflows (name, spec) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET spec = excluded.spec`,
		spec.Name, data,
	)
	return err
}

func (s *SQLiteStore) GetWorkflow(name string) (api.WorkflowSpec, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT spec FROM workflows WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return api.WorkflowSpec{}, api.ErrWorkflowNotFound
	}
	if err != nil {
		return api.WorkflowSpec{}, err
	}
	return DecodeWorkflow(data)
}

func (s *SQLiteStore) ListWorkflows() ([]api.WorkflowSpec, error) {
	rows, err := s.db.Query(`SELECT spec FROM workflows ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specs []api.WorkflowSpec
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		spec, err := DecodeWorkflow(data)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

func (s *SQLiteStore) DeleteWorkflow(name string) error {
	_, err := s.db.Exec(`DELETE FROM workflows WHERE name = ?`, name)
	return err
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *api.Run) error {
	data, err := EncodeRun(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, workflow_name, status, record) VALUES (?, ?, ?, ?)`,
		run.ID, run.WorkflowName, string(run.Status), data,
	)
	return err
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *api.Run) error {
	data, err := EncodeRun(run)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET workflow_name = ?, status = ?, record = ? WHERE id = ?`,
		run.WorkflowName, string(run.Status), data, run.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return api.ErrRunNotFound
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*api.Run, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeRun(data)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error) {
	query := `SELECT record FROM runs`
	var conds []string
	var args []any

	if filter.WorkflowName != "" {
		conds = append(conds, `workflow_name = ?`)
		args = append(args, filter.WorkflowName)
	}
	if filter.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(filter.Status))
	}
	for i, cond := range conds {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*api.Run
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		run, err := DecodeRun(data)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
