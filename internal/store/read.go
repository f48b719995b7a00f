package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/bfvm/internal/ir"
)

const runColumns = `seq, id, program_hash, program, input, settings, reason, status, steps,
	peak_cells, memory_pointer, output, tape, started_at, finished_at`

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent limit runs in seq order (oldest first).
// A limit <= 0 returns every run.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]ir.RunRecord, error) {
	if limit <= 0 {
		return s.queryRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq ASC`)
	}
	return s.queryRuns(ctx, `
		SELECT `+runColumns+` FROM (
			SELECT * FROM runs ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC
	`, limit)
}

// RunsForProgram returns every run of a program hash in seq order.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) RunsForProgram(ctx context.Context, programHash string) ([]ir.RunRecord, error) {
	return s.queryRuns(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE program_hash = ?
		ORDER BY seq ASC
	`, programHash)
}

// CountRuns returns the number of stored runs.
func (s *Store) CountRuns(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (ir.RunRecord, error) {
	var (
		rec          ir.RunRecord
		settingsJSON string
		reason       string
		tapeCBOR     []byte
		startedAt    string
		finishedAt   string
	)
	err := row.Scan(
		&rec.Seq,
		&rec.Report.RunID,
		&rec.Report.ProgramHash,
		&rec.Program,
		&rec.Input,
		&settingsJSON,
		&reason,
		&rec.Report.Status,
		&rec.Report.Steps,
		&rec.Report.PeakCells,
		&rec.Report.MemoryPointer,
		&rec.Output,
		&tapeCBOR,
		&startedAt,
		&finishedAt,
	)
	if err == sql.ErrNoRows {
		return ir.RunRecord{}, err
	}
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("scan run: %w", err)
	}

	if rec.Report.Reason, err = ir.ParseHaltReason(reason); err != nil {
		return ir.RunRecord{}, fmt.Errorf("run %s: %w", rec.Report.RunID, err)
	}
	if rec.Report.Settings, err = unmarshalSettings(settingsJSON); err != nil {
		return ir.RunRecord{}, fmt.Errorf("run %s: %w", rec.Report.RunID, err)
	}
	if rec.Report.Tape, err = unmarshalTape(tapeCBOR); err != nil {
		return ir.RunRecord{}, fmt.Errorf("run %s: %w", rec.Report.RunID, err)
	}
	if rec.Report.StartedAt, err = parseTime(startedAt); err != nil {
		return ir.RunRecord{}, fmt.Errorf("run %s: %w", rec.Report.RunID, err)
	}
	if rec.Report.FinishedAt, err = parseTime(finishedAt); err != nil {
		return ir.RunRecord{}, fmt.Errorf("run %s: %w", rec.Report.RunID, err)
	}
	return rec, nil
}
