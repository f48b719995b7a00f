// Package compiler turns CUE settings profiles into ir.Settings.
//
// A profile file declares named profiles under the top-level "profile"
// field:
//
//	profile: classic: { negatives: false, wrapping: true, cell_size: 256 }
//	profile: signed16: { negatives: true, cell_size: 65536 }
//
// Each profile is unified with a closed schema that supplies defaults and
// bounds, so unknown fields, wrong types and out-of-range values are
// rejected with a positioned CompileError.
package compiler
