package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/channelfit/internal/model"
	"github.com/banshee-data/channelfit/internal/timeutil"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// FitRun is one persisted fit.
type FitRun struct {
	ID          int64           `json:"id"`
	RunID       string          `json:"run_id"`
	CubePath    string          `json:"cube_path"`
	Status      string          `json:"status"`
	Config      json.RawMessage `json:"config,omitempty"`
	Walkers     int             `json:"walkers"`
	Burnin      int             `json:"burnin"`
	Steps       int             `json:"steps"`
	Acceptance  *float64        `json:"acceptance,omitempty"`
	MaxLogProb  *float64        `json:"max_log_prob,omitempty"`
	TablePath   string          `json:"table_path,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// ParamEstimate is the four table rows of one parameter.
type ParamEstimate struct {
	Name string  `json:"name"`
	Free bool    `json:"free"`
	Low  float64 `json:"plow"`
	Mid  float64 `json:"pmid"`
	High float64 `json:"phigh"`
	Opt  float64 `json:"popt"`
}

// Estimates flattens the plow, pmid, phigh and popt rows into one
// estimate per parameter in canonical order.
func Estimates(rows [4]model.Params, free []string) []ParamEstimate {
	lo, mid, hi, opt := rows[0].Vector(), rows[1].Vector(), rows[2].Vector(), rows[3].Vector()
	out := make([]ParamEstimate, 0, model.NumParams)
	for i, name := range model.Names {
		out = append(out, ParamEstimate{
			Name: name,
			Free: slices.Contains(free, name),
			Low:  lo[i],
			Mid:  mid[i],
			High: hi[i],
			Opt:  opt[i],
		})
	}
	return out
}

// RunStore records fit runs, stamping them with its clock.
type RunStore struct {
	db    *DB
	clock timeutil.Clock
}

// NewRunStore returns a store over db using the wall clock.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db, clock: timeutil.RealClock{}}
}

// WithClock replaces the store's clock.
func (s *RunStore) WithClock(c timeutil.Clock) *RunStore {
	s.clock = c
	return s
}

func (s *RunStore) retry(fn func() error) error {
	return retryOnBusy(s.clock.Sleep, fn)
}

// Start inserts a running record and returns its new run ID.
func (s *RunStore) Start(cubePath string, config json.RawMessage, walkers, burnin, steps int) (string, error) {
	runID := uuid.NewString()
	startedAt := s.clock.Now()
	query := `
		INSERT INTO fit_runs (run_id, cube_path, status, config, walkers, burnin, steps, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	err := s.retry(func() error {
		_, err := s.db.Exec(query, runID, cubePath, StatusRunning, nullJSON(config),
			walkers, burnin, steps, startedAt.UTC().Format(time.RFC3339Nano))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("inserting fit run for %s: %w", cubePath, err)
	}
	return runID, nil
}

// Complete stores the estimates of a finished run and marks it completed.
func (s *RunStore) Complete(runID string, est []ParamEstimate, acceptance, maxLogProb float64, tablePath string) error {
	completedAt := s.clock.Now()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin completing run %s: %w", runID, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE fit_runs
		SET status = ?, acceptance = ?, max_log_prob = ?, table_path = ?, completed_at = ?
		WHERE run_id = ?
	`, StatusCompleted, finiteOrNil(acceptance), finiteOrNil(maxLogProb), nullStr(tablePath),
		completedAt.UTC().Format(time.RFC3339Nano), runID)
	if err != nil {
		return fmt.Errorf("updating fit run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fit run %s not found", runID)
	}
	for _, e := range est {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO fit_run_params (run_id, name, free, plow, pmid, phigh, popt)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, e.Name, e.Free, e.Low, e.Mid, e.High, e.Opt); err != nil {
			return fmt.Errorf("inserting %s estimate for run %s: %w", e.Name, runID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", runID, err)
	}
	return nil
}

// Fail marks a run as failed or cancelled with its error message.
func (s *RunStore) Fail(runID, status, errMsg string) error {
	completedAt := s.clock.Now()
	err := s.retry(func() error {
		_, err := s.db.Exec(`UPDATE fit_runs SET status = ?, error = ?, completed_at = ? WHERE run_id = ?`,
			status, nullStr(errMsg), completedAt.UTC().Format(time.RFC3339Nano), runID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failing fit run %s: %w", runID, err)
	}
	return nil
}

// Get returns a run by ID, or nil when it does not exist.
func (s *RunStore) Get(runID string) (*FitRun, error) {
	row := s.db.QueryRow(`
		SELECT id, run_id, cube_path, status, config, walkers, burnin, steps,
		       acceptance, max_log_prob, table_path, error, started_at, completed_at
		FROM fit_runs WHERE run_id = ?
	`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying fit run %s: %w", runID, err)
	}
	return run, nil
}

// List returns the most recent runs first. limit is clamped to [1, 100]
// with 20 for non-positive values.
func (s *RunStore) List(limit int) ([]FitRun, error) {
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, 100)
	rows, err := s.db.Query(`
		SELECT id, run_id, cube_path, status, config, walkers, burnin, steps,
		       acceptance, max_log_prob, table_path, error, started_at, completed_at
		FROM fit_runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing fit runs: %w", err)
	}
	defer rows.Close()

	var runs []FitRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning fit run row: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Params returns the stored estimates of a run in canonical order.
func (s *RunStore) Params(runID string) ([]ParamEstimate, error) {
	rows, err := s.db.Query(`
		SELECT name, free, plow, pmid, phigh, popt FROM fit_run_params WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying estimates for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []ParamEstimate
	for rows.Next() {
		var e ParamEstimate
		if err := rows.Scan(&e.Name, &e.Free, &e.Low, &e.Mid, &e.High, &e.Opt); err != nil {
			return nil, fmt.Errorf("scanning estimate row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b ParamEstimate) int {
		return slices.Index(model.Names, a.Name) - slices.Index(model.Names, b.Name)
	})
	return out, nil
}

// Rows rebuilds the plow, pmid, phigh and popt rows of a run.
func (s *RunStore) Rows(runID string) ([4]model.Params, error) {
	var rows [4]model.Params
	est, err := s.Params(runID)
	if err != nil {
		return rows, err
	}
	if len(est) == 0 {
		return rows, fmt.Errorf("fit run %s has no stored estimates", runID)
	}
	for _, e := range est {
		for i, v := range [4]float64{e.Low, e.Mid, e.High, e.Opt} {
			if err := rows[i].Set(e.Name, v); err != nil {
				return rows, fmt.Errorf("fit run %s: %w", runID, err)
			}
		}
	}
	return rows, nil
}

// Delete removes a run and its estimates.
func (s *RunStore) Delete(runID string) error {
	return s.retry(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.Exec(`DELETE FROM fit_run_params WHERE run_id = ?`, runID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM fit_runs WHERE run_id = ?`, runID); err != nil {
			return err
		}
		return tx.Commit()
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(r scanner) (*FitRun, error) {
	var run FitRun
	var config, tablePath, errMsg, completedAt sql.NullString
	var acceptance, maxLogProb sql.NullFloat64
	var startedAt string
	if err := r.Scan(&run.ID, &run.RunID, &run.CubePath, &run.Status, &config,
		&run.Walkers, &run.Burnin, &run.Steps, &acceptance, &maxLogProb,
		&tablePath, &errMsg, &startedAt, &completedAt); err != nil {
		return nil, err
	}
	if config.Valid && config.String != "" {
		run.Config = json.RawMessage(config.String)
	}
	if acceptance.Valid {
		run.Acceptance = &acceptance.Float64
	}
	if maxLogProb.Valid {
		run.MaxLogProb = &maxLogProb.Float64
	}
	run.TablePath = tablePath.String
	run.Error = errMsg.String
	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at for run %s: %w", run.RunID, err)
	}
	run.StartedAt = t
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at for run %s: %w", run.RunID, err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

func nullJSON(data json.RawMessage) *string {
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	return &s
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
