package task

import "time"

// Stage represents a single stage of the task pipeline.
type Stage string

const (
	StageGenerate Stage = "generate"
	StageSanitize Stage = "sanitize"
	StageSave     Stage = "save"
	StageExecute  Stage = "execute"
	StageCollect  Stage = "collect"
	StageDone     Stage = "done"
)

// Status reflects the terminal outcome of a task.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Request is the payload submitted to create a task. The prompt is the
// natural-language description of what the generated script should do.
type Request struct {
	Prompt string `json:"prompt" validate:"required,min=3,max=4000"`
}

// Execution captures the result of running a generated script in the sandbox.
type Execution struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// Record is the durable bookkeeping entry for one task. It is persisted as
// JSON under the output directory and survives process restarts.
type Record struct {
	SchemaVersion string     `json:"schema_version"`
	ID            string     `json:"id"`
	Prompt        string     `json:"prompt"`
	Status        Status     `json:"status"`
	Stage         Stage      `json:"stage"`
	ScriptName    string     `json:"script_name,omitempty"`
	Requirements  []string   `json:"requirements,omitempty"`
	Execution     *Execution `json:"execution,omitempty"`
	Artifacts     []string   `json:"artifacts,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// SchemaVersion is the current Record schema version.
const SchemaVersion = "1.0"

// NewRecord creates a running record at the generate stage.
func NewRecord(id, prompt string) *Record {
	return &Record{
		SchemaVersion: SchemaVersion,
		ID:            id,
		Prompt:        prompt,
		Status:        StatusRunning,
		Stage:         StageGenerate,
		CreatedAt:     time.Now().UTC(),
	}
}

// Fail marks the record failed at its current stage.
func (r *Record) Fail(err error) {
	now := time.Now().UTC()
	r.Status = StatusFailed
	r.Error = err.Error()
	r.FinishedAt = &now
}

// Complete marks the record as successfully finished.
func (r *Record) Complete() {
	now := time.Now().UTC()
	r.Status = StatusSucceeded
	r.Stage = StageDone
	r.FinishedAt = &now
}
