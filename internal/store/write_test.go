package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bfvm/internal/ir"
)

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("run-1", "++.")
	require.NoError(t, s.WriteRun(ctx, rec))
	require.NoError(t, s.WriteRun(ctx, rec))

	n, err := s.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWriteRun_DuplicateIDKeepsFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestRecord("run-1", "++.")
	second := createTestRecord("run-1", "+++.")
	require.NoError(t, s.WriteRun(ctx, first))
	require.NoError(t, s.WriteRun(ctx, second))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "++.", got.Program)
}

func TestWriteRun_Rejects(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	noID := createTestRecord("", "+")
	assert.Error(t, s.WriteRun(ctx, noID))

	badReason := createTestRecord("run-1", "+")
	badReason.Report.Reason = ir.HaltNone
	err := s.WriteRun(ctx, badReason)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown halt reason")
}

func TestWriteRun_RefusedRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRecord("run-1", "[")
	rec.Report.Reason = ir.HaltMismatchedBrackets
	rec.Report.Status = "Mismatched loop brackets"
	rec.Report.Steps = 0
	rec.Report.PeakCells = 0
	rec.Report.Tape = nil
	rec.Output = ""
	require.NoError(t, s.WriteRun(ctx, rec))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, ir.HaltMismatchedBrackets, got.Report.Reason)
	assert.Nil(t, got.Report.Tape)
}
