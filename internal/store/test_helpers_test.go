package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/bfvm/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// createTestRecord creates a completed run record with minimal fields.
func createTestRecord(id, program string) ir.RunRecord {
	settings := ir.DefaultSettings()
	return ir.RunRecord{
		Report: ir.RunReport{
			RunID:         id,
			ProgramHash:   ir.MustProgramHash(program, settings),
			Reason:        ir.HaltCompleted,
			Status:        "Finished execution",
			Steps:         3,
			PeakCells:     1,
			MemoryPointer: 0,
			Tape:          []int64{2},
			Settings:      settings,
			StartedAt:     testEpoch,
			FinishedAt:    testEpoch.Add(time.Second),
		},
		Program: program,
		Input:   "",
		Output:  "\x02",
	}
}
