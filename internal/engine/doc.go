// Package engine implements the bfvm execution engine.
//
// The engine resolves loop brackets once, then drives the code pointer
// through the program, dispatching the eight opcodes against a tape and
// reporting to injected collaborators (output, status, highlight).
//
// ARCHITECTURE:
//
// Cooperative Step Loop:
// A run executes in the goroutine that calls Run. Each opcode is one
// indivisible step. After every executed opcode the engine:
//  1. increments the step count
//  2. notifies the highlight collaborator of the new code position
//  3. sleeps for the configured per-step delay, if any
//  4. checks the stop flag (set by Stop or by context cancellation)
//
// Characters that are not opcodes advance the code pointer without counting
// as a step and without the checkpoint.
//
// State Machine:
//
//	Idle --Run--> Running --end of program--> Halted(completed)
//	                      --Stop/ctx done---> Halted(stopped)
//	Idle --Run (unbalanced brackets)--------> Halted(mismatched_brackets)
//
// A halted engine can run again. Program, input and settings cannot change
// while Running; setters return ErrRunning and leave the values untouched.
//
// Error Surface:
// The only run failure is mismatched brackets, detected before any tape
// mutation or output. Every arithmetic and pointer edge case has a defined
// non-failing outcome (see package tape).
//
// Thread-safety:
//   - Stop(), State(), Steps(), Status(): safe from any goroutine
//   - Run(): one active call at a time; a concurrent call gets ErrRunning
//   - Collaborators are invoked from the Run goroutine only
package engine
