package schema

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/pindral/brainstore/internal/brain"
	"github.com/pindral/brainstore/internal/canon"
)

// SourceField is the payload key a schema entity stores its CUE source
// under.
const SourceField = "source"

// Source extracts the CUE source from a schema entity's payload.
func Source(payload canon.Value) (string, error) {
	obj, ok := payload.(canon.Object)
	if !ok {
		return "", brain.NewValidation("schema payload must be an object with a %q field", SourceField)
	}
	v, ok := obj[SourceField]
	if !ok {
		return "", brain.NewValidation("schema payload is missing the %q field", SourceField)
	}
	src, ok := v.(canon.String)
	if !ok {
		return "", brain.NewValidation("schema %q field must be a string of CUE source", SourceField)
	}
	return string(src), nil
}

// Validate unifies payload with the CUE schema in source and requires
// the result to be fully concrete. Any unification or concreteness
// failure comes back as a validation error carrying CUE's message.
func Validate(source string, payload canon.Value) error {
	ctx := cuecontext.New()

	sv := ctx.CompileString(source)
	if err := sv.Err(); err != nil {
		return brain.NewValidation("schema does not compile: %v", err)
	}

	dv := ctx.Encode(canon.ToAny(payload))
	if err := dv.Err(); err != nil {
		return brain.NewValidation("payload cannot be encoded for validation: %v", err)
	}

	unified := sv.Unify(dv)
	if err := unified.Err(); err != nil {
		return brain.NewValidation("payload does not match schema: %v", err)
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return brain.NewValidation("payload does not satisfy schema: %v", err)
	}
	return nil
}
