// Package ir provides the shared types of the bfvm interpreter.
//
// This package contains type definitions and content hashing only. All other
// internal packages import ir; ir imports nothing internal. This keeps it the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Cell values are int64, never floats or formatted text
//   - Settings are plain values, copied into an engine before a run
//   - All JSON tags use snake_case
//   - Program identity is content-addressed (see ProgramHash)
package ir
