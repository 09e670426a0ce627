package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/orbit-run/orbit/pkg/api"
)

// PostgresStore implements WorkflowStore and RunStore backed by PostgreSQL.
//
// Like the SQLite store, it takes an already-open *sql.DB; the caller picks
// and imports the driver.
type PostgresStore struct {
	db *sql.DB
}

var _ WorkflowStore = (*PostgresStore)(nil)
var _ RunStore = (*PostgresStore)(nil)

// NewPostgresStore initializes the required schema in the given database
// and returns a new PostgresStore.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS orbit_workflows (
			name TEXT PRIMARY KEY,
			spec JSONB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS orbit_runs (
			id TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			status TEXT NOT NULL,
			record JSONB NOT NULL,
			seq BIGSERIAL
		);
		CREATE INDEX IF NOT EXISTS idx_orbit_runs_workflow ON orbit_runs(workflow_name);
		CREATE INDEX IF NOT EXISTS idx_orbit_runs_status ON orbit_runs(status);`,
	)
	return err
}

func (s *PostgresStore) SaveWorkflow(spec api.WorkflowSpec) error {
	data, err := EncodeWorkflow(spec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO orbit_workflows (name, spec) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET spec = EXCLUDED.spec`,
		spec.Name, data,
	)
	return err
}

func (s *PostgresStore) GetWorkflow(name string) (api.WorkflowSpec, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT spec FROM orbit_workflows WHERE name = $1`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return api.WorkflowSpec{}, api.ErrWorkflowNotFound
	}
	if err != nil {
		return api.WorkflowSpec{}, err
	}
	return DecodeWorkflow(data)
}

func (s *PostgresStore) ListWorkflows() ([]api.WorkflowSpec, error) {
	rows, err := s.db.Query(`SELECT spec FROM orbit_workflows ORDER BY name`)
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

func (s *PostgresStore) DeleteWorkflow(name string) error {
	_, err := s.db.Exec(`DELETE FROM orbit_workflows WHERE name = $1`, name)
	return err
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *api.Run) error {
	data, err := EncodeRun(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orbit_runs (id, workflow_name, status, record) VALUES ($1, $2, $3, $4)`,
		run.ID, run.WorkflowName, string(run.Status), data,
	)
	return err
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *api.Run) error {
	data, err := EncodeRun(run)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE orbit_runs SET workflow_name = $1, status = $2, record = $3 WHERE id = $4`,
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

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*api.Run, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM orbit_runs WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, api.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return DecodeRun(data)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error) {
	query := `SELECT record FROM orbit_runs`
	var conds []string
	var args []any

	if filter.WorkflowName != "" {
		args = append(args, filter.WorkflowName)
		conds = append(conds, fmt.Sprintf(`workflow_name = $%d`, len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf(`status = $%d`, len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY seq`

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
