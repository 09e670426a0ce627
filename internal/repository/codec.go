package repository

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/orbit-run/orbit/pkg/api"
)

// The stores serialize specs and runs as JSON. Action payloads and results
// are schema-bearing string-keyed maps, so JSON round-trips them faithfully
// and keeps stored rows inspectable with ordinary database tooling.

type taskSpecRecord struct {
	ID            string           `json:"id,omitempty"`
	Name          string           `json:"name"`
	ActionType    string           `json:"action_type"`
	ActionPayload map[string]any   `json:"action_payload,omitempty"`
	Dependencies  []string         `json:"dependencies,omitempty"`
	TimeoutMS     int64            `json:"timeout_ms,omitempty"`
	Retry         *api.RetryPolicy `json:"retry,omitempty"`
}

type workflowRecord struct {
	ID          string           `json:"id,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Tasks       []taskSpecRecord `json:"tasks"`
	CreatedAt   time.Time        `json:"created_at"`
}

// EncodeWorkflow serializes a workflow spec.
func EncodeWorkflow(spec api.WorkflowSpec) ([]byte, error) {
	rec := workflowRecord{
		ID:          spec.ID,
		Name:        spec.Name,
		Description: spec.Description,
		CreatedAt:   spec.CreatedAt,
	}
	for _, t := range spec.Tasks {
		rec.Tasks = append(rec.Tasks, taskSpecRecord{
			ID:            t.ID,
			Name:          t.Name,
			ActionType:    string(t.ActionType),
			ActionPayload: t.ActionPayload,
			Dependencies:  t.Dependencies,
			TimeoutMS:     t.Timeout.Milliseconds(),
			Retry:         t.Retry,
		})
	}
	return json.Marshal(rec)
}

// DecodeWorkflow deserializes a workflow spec.
func DecodeWorkflow(data []byte) (api.WorkflowSpec, error) {
	var rec workflowRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return api.WorkflowSpec{}, err
	}
	spec := api.WorkflowSpec{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		CreatedAt:   rec.CreatedAt,
	}
	for _, t := range rec.Tasks {
		spec.Tasks = append(spec.Tasks, api.TaskSpec{
			ID:            t.ID,
			Name:          t.Name,
			ActionType:    api.ActionType(t.ActionType),
			ActionPayload: t.ActionPayload,
			Dependencies:  t.Dependencies,
			Timeout:       time.Duration(t.TimeoutMS) * time.Millisecond,
			Retry:         t.Retry,
		})
	}
	return spec, nil
}

type taskResultRecord struct {
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	SkippedBy  string         `json:"skipped_by,omitempty"`
	Attempts   int            `json:"attempts,omitempty"`
	StartedAt  time.Time      `json:"started_at,omitempty"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
}

type runRecord struct {
	ID           string                      `json:"id"`
	WorkflowID   string                      `json:"workflow_id,omitempty"`
	WorkflowName string                      `json:"workflow_name"`
	Status       string                      `json:"status"`
	Tasks        map[string]taskResultRecord `json:"tasks,omitempty"`
	Error        string                      `json:"error,omitempty"`
	StartedAt    time.Time                   `json:"started_at,omitempty"`
	FinishedAt   time.Time                   `json:"finished_at,omitempty"`
}

// EncodeRun serializes a run.
func EncodeRun(run *api.Run) ([]byte, error) {
	rec := runRecord{
		ID:           run.ID,
		WorkflowID:   run.WorkflowID,
		WorkflowName: run.WorkflowName,
		Status:       string(run.Status),
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}
	if run.Err != nil {
		rec.Error = run.Err.Error()
	}
	if len(run.Tasks) > 0 {
		rec.Tasks = make(map[string]taskResultRecord, len(run.Tasks))
		for name, tr := range run.Tasks {
			rec.Tasks[name] = taskResultRecord{
				Name:       tr.Name,
				Status:     string(tr.Status),
				Output:     tr.Output,
				Error:      tr.Error,
				SkippedBy:  tr.SkippedBy,
				Attempts:   tr.Attempts,
				StartedAt:  tr.StartedAt,
				FinishedAt: tr.FinishedAt,
			}
		}
	}
	return json.Marshal(rec)
}

// DecodeRun deserializes a run.
func DecodeRun(data []byte) (*api.Run, error) {
	var rec runRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	run := &api.Run{
		ID:           rec.ID,
		WorkflowID:   rec.WorkflowID,
		WorkflowName: rec.WorkflowName,
		Status:       api.Status(rec.Status),
		StartedAt:    rec.StartedAt,
		FinishedAt:   rec.FinishedAt,
	}
	if rec.Error != "" {
		run.Err = errors.New(rec.Error)
	}
	if len(rec.Tasks) > 0 {
		run.Tasks = make(map[string]*api.TaskResult, len(rec.Tasks))
		for name, tr := range rec.Tasks {
			run.Tasks[name] = &api.TaskResult{
				Name:       tr.Name,
				Status:     api.Status(tr.Status),
				Output:     tr.Output,
				Error:      tr.Error,
				SkippedBy:  tr.SkippedBy,
				Attempts:   tr.Attempts,
				StartedAt:  tr.StartedAt,
				FinishedAt: tr.FinishedAt,
			}
		}
	}
	return run, nil
}
