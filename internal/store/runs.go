package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"careerscan-engine/internal/domain"
)

var ErrRunNotFound = errors.New("run not found")

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

type Run struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Status     RunStatus `json:"status"`
	Total      int       `json:"total"`
	Found      int       `json:"found"`
	StartedAt  string    `json:"started_at"`
	FinishedAt string    `json:"finished_at"`
	OutputPath string    `json:"output_path"`
	Error      string    `json:"error"`
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func CreateRun(ctx context.Context, db *sql.DB, id, source string, total int) (Run, error) {
	r := Run{ID: id, Source: source, Status: RunRunning, Total: total, StartedAt: now()}
	_, err := db.ExecContext(ctx, `
INSERT INTO runs(id, source, status, total, started_at)
VALUES(?,?,?,?,?);`,
		r.ID, r.Source, r.Status, r.Total, r.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	return r, nil
}

// SaveOutcome stores the rows and log lines of a finished batch and its
// final status in one transaction.
func SaveOutcome(ctx context.Context, db *sql.DB, runID string, out domain.Outcome, status RunStatus, outputPath string, runErr error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rowStmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO results(run_id, idx, org_id, company_name, domain, careers_url)
VALUES(?,?,?,?,?,?);`)
	if err != nil {
		return err
	}
	defer rowStmt.Close()

	for i, r := range out.Rows {
		if _, err := rowStmt.ExecContext(ctx, runID, i, r.ID, r.CompanyName, r.Domain, r.CareersPageURL); err != nil {
			return fmt.Errorf("insert result %d: %w", i, err)
		}
	}

	logStmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO run_logs(run_id, seq, pair_idx, line)
VALUES(?,?,?,?);`)
	if err != nil {
		return err
	}
	defer logStmt.Close()

	for i, l := range out.Logs {
		if _, err := logStmt.ExecContext(ctx, runID, i, l.Index, l.String()); err != nil {
			return fmt.Errorf("insert log %d: %w", i, err)
		}
	}

	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	res, err := tx.ExecContext(ctx, `
UPDATE runs
SET status = ?, total = ?, found = ?, finished_at = ?, output_path = ?, error = ?
WHERE id = ?;`,
		status, out.Total, out.Found, now(), outputPath, errText, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return tx.Commit()
}

// FailRun marks a run that could not produce an outcome at all.
func FailRun(ctx context.Context, db *sql.DB, runID string, runErr error) error {
	_, err := db.ExecContext(ctx, `
UPDATE runs SET status = ?, finished_at = ?, error = ? WHERE id = ?;`,
		RunFailed, now(), runErr.Error(), runID)
	return err
}

const runColumns = `id, source, status, total, found, started_at, finished_at, output_path, error`

func scanRun(s interface{ Scan(dest ...any) error }) (Run, error) {
	var r Run
	err := s.Scan(&r.ID, &r.Source, &r.Status, &r.Total, &r.Found, &r.StartedAt, &r.FinishedAt, &r.OutputPath, &r.Error)
	return r, err
}

func GetRun(ctx context.Context, db *sql.DB, id string) (Run, error) {
	r, err := scanRun(db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ? LIMIT 1;`, id))
	if err == sql.ErrNoRows {
		return Run{}, ErrRunNotFound
	}
	return r, err
}

// LatestFinishedRun returns the most recent run that produced an output file.
func LatestFinishedRun(ctx context.Context, db *sql.DB) (Run, error) {
	r, err := scanRun(db.QueryRowContext(ctx, `
SELECT `+runColumns+`
FROM runs
WHERE status IN (?, ?) AND output_path != ''
ORDER BY finished_at DESC, rowid DESC
LIMIT 1;`, RunCompleted, RunCancelled))
	if err == sql.ErrNoRows {
		return Run{}, ErrRunNotFound
	}
	return r, err
}

func ListRuns(ctx context.Context, db *sql.DB, limit int) ([]Run, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
SELECT `+runColumns+`
FROM runs
ORDER BY started_at DESC, rowid DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func ListResults(ctx context.Context, db *sql.DB, runID string) ([]domain.Row, error) {
	rows, err := db.QueryContext(ctx, `
SELECT org_id, company_name, domain, careers_url
FROM results
WHERE run_id = ?
ORDER BY idx ASC;`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Row{}
	for rows.Next() {
		var r domain.Row
		if err := rows.Scan(&r.ID, &r.CompanyName, &r.Domain, &r.CareersPageURL); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func ListLogs(ctx context.Context, db *sql.DB, runID string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT line FROM run_logs WHERE run_id = ? ORDER BY seq ASC;`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CleanupOldRuns deletes runs started before now-olderThan together with
// their results and logs. Output files are left to the caller.
func CleanupOldRuns(ctx context.Context, db *sql.DB, olderThan time.Duration) (deleted []Run, err error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE started_at < ? AND status != ?;`, cutoff, RunRunning)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		deleted = append(deleted, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range deleted {
		for _, q := range []string{
			`DELETE FROM results WHERE run_id = ?;`,
			`DELETE FROM run_logs WHERE run_id = ?;`,
			`DELETE FROM runs WHERE id = ?;`,
		} {
			if _, err := tx.ExecContext(ctx, q, r.ID); err != nil {
				return nil, fmt.Errorf("cleanup run %s: %w", r.ID, err)
			}
		}
	}
	return deleted, tx.Commit()
}
