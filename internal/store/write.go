package store

import (
	"context"
	"fmt"

	"github.com/roach88/bfvm/internal/ir"
)

// WriteRun inserts a run record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate run IDs are
// silently ignored. The record's Seq field is ignored; seq is assigned by
// the database.
func (s *Store) WriteRun(ctx context.Context, rec ir.RunRecord) error {
	r := rec.Report
	if r.RunID == "" {
		return fmt.Errorf("write run: empty run id")
	}
	if _, err := ir.ParseHaltReason(string(r.Reason)); err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}

	settingsJSON, err := marshalSettings(r.Settings)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}
	tapeCBOR, err := marshalTape(r.Tape)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, program_hash, program, input, settings, reason, status, steps,
		 peak_cells, memory_pointer, output, tape, started_at, finished_at, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.RunID,
		r.ProgramHash,
		rec.Program,
		rec.Input,
		settingsJSON,
		string(r.Reason),
		r.Status,
		r.Steps,
		r.PeakCells,
		r.MemoryPointer,
		rec.Output,
		tapeCBOR,
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		ir.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}
	return nil
}
