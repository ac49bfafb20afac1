package harness

// Scenario defines one conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Brain is the brain the steps run against. Defaults to "demo".
	Brain string `yaml:"brain,omitempty"`

	// Steps is the operation sequence.
	Steps []Step `yaml:"steps"`
}

// Step is one repository operation.
type Step struct {
	// Op selects the operation: save, move, remove, delete, restore,
	// create_project, update_project, archive_project, restore_project,
	// delete_project, purge, compact, repair.
	Op string `yaml:"op"`

	Project string `yaml:"project,omitempty"`
	Entity  string `yaml:"entity,omitempty"`
	Target  string `yaml:"target,omitempty"`

	// Payload is the JSON document for save steps.
	Payload map[string]any `yaml:"payload,omitempty"`

	// Parent repositions the entity during a save step.
	Parent *string `yaml:"parent,omitempty"`

	// Schema binds a schema selector during a save step.
	Schema string `yaml:"schema,omitempty"`

	// Ref selects a version for restore steps.
	Ref string `yaml:"ref,omitempty"`

	// Mode is the move mode: merge (default) or replace.
	Mode string `yaml:"mode,omitempty"`

	// Recursive applies to remove and delete steps.
	Recursive bool `yaml:"recursive,omitempty"`

	// Keep is the retention count for purge steps.
	Keep int `yaml:"keep,omitempty"`

	// DryRun applies to purge and repair steps.
	DryRun bool `yaml:"dry_run,omitempty"`

	// Title and Description feed project steps.
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`

	// Reactivate applies to restore_project steps.
	Reactivate bool `yaml:"reactivate,omitempty"`

	// Expect validates the step's outcome. A step without an Expect
	// clause must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies a step's expected outcome.
type Expect struct {
	// Error is the expected error kind (NOT_FOUND, CONFLICT,
	// VALIDATION, INTEGRITY, WRITE_FAILED). Empty means success.
	Error string `yaml:"error,omitempty"`

	// Version is the expected committed version number for save steps.
	Version int64 `yaml:"version,omitempty"`
}

// TraceEvent is one recorded bus event.
type TraceEvent struct {
	Name    string `json:"name"`
	Project string `json:"project,omitempty"`
	Entity  string `json:"entity,omitempty"`
	Version int64  `json:"version,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation.
	Pass bool `json:"pass"`

	// Trace lists the bus events the steps produced, in order.
	// Write events are excluded: their paths are machine-specific.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Document is the final canonical brain document.
	Document []byte `json:"-"`
}

// AddError adds an expectation failure and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
