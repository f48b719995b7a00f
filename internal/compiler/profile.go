package compiler

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/bfvm/internal/ir"
)

// profileSchema constrains a single profile. Definitions are closed, so
// unknown fields fail unification.
const profileSchema = `
#Profile: {
	negatives: bool | *false
	wrapping:  bool | *true
	cell_size: int & >=1 | *256
	delay_ms:  int & >=0 | *0
}
`

// Profile is a named, validated settings bundle.
type Profile struct {
	Name     string
	Settings ir.Settings
	Pos      token.Pos
}

// CompileProfiles compiles every profile under the "profile" field of v.
// Profiles are returned sorted by name. A value without a "profile" field
// yields an empty slice.
func CompileProfiles(v cue.Value) ([]Profile, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("profile", err)
	}

	profiles := []Profile{}
	root := v.LookupPath(cue.ParsePath("profile"))
	if !root.Exists() {
		return profiles, nil
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError("profile", err)
	}
	for iter.Next() {
		p, err := CompileProfile(iter.Value())
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles, nil
}

// CompileProfile compiles one profile value. The profile name is taken
// from the value's path, e.g. "signed16" for profile.signed16.
func CompileProfile(v cue.Value) (*Profile, error) {
	name := ""
	if sels := v.Path().Selectors(); len(sels) > 0 {
		name = sels[len(sels)-1].String()
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(name, err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Field:   name,
			Message: "profile must be a struct",
			Pos:     v.Pos(),
		}
	}

	schema := v.Context().CompileString(profileSchema).LookupPath(cue.ParsePath("#Profile"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile profile schema: %w", err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(name, err)
	}

	p := &Profile{Name: name, Pos: v.Pos()}
	var err error
	if p.Settings.UsingNegatives, err = lookupBool(unified, name, "negatives"); err != nil {
		return nil, err
	}
	if p.Settings.UsingWrapping, err = lookupBool(unified, name, "wrapping"); err != nil {
		return nil, err
	}
	if p.Settings.MaxCellSize, err = lookupInt(unified, name, "cell_size"); err != nil {
		return nil, err
	}
	if p.Settings.DelayMillis, err = lookupInt(unified, name, "delay_ms"); err != nil {
		return nil, err
	}

	if err := p.Settings.Validate(); err != nil {
		return nil, &CompileError{Field: name, Message: err.Error(), Pos: v.Pos()}
	}
	return p, nil
}

// lookupField resolves a schema field, taking its default when the profile
// leaves it unset.
func lookupField(v cue.Value, field string) cue.Value {
	f := v.LookupPath(cue.ParsePath(field))
	if d, ok := f.Default(); ok {
		return d
	}
	return f
}

func lookupBool(v cue.Value, profile, field string) (bool, error) {
	b, err := lookupField(v, field).Bool()
	if err != nil {
		return false, formatCUEError(profile+"."+field, err)
	}
	return b, nil
}

func lookupInt(v cue.Value, profile, field string) (int64, error) {
	n, err := lookupField(v, field).Int64()
	if err != nil {
		return 0, formatCUEError(profile+"."+field, err)
	}
	return n, nil
}

// CompileError reports an invalid profile with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(field string, err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Field: field, Message: err.Error()}
	}

	firstErr := errs[0]
	ce := &CompileError{Field: field, Message: firstErr.Error()}
	if positions := errors.Positions(firstErr); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
