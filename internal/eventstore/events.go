package eventstore

import (
	"encoding/json"
	"time"

	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Event type names.
const (
	EventRunStarted     = "RunStarted"
	EventStageCompleted = "StageCompleted"
	EventToolGateForced = "ToolGateForced"
	EventTaskCompleted  = "TaskCompleted"
	EventRunCompleted   = "RunCompleted"
)

func newBaseEvent(runID, eventType string, at time.Time, payload any) (BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return BaseEvent{}, foundationerrors.WrapError(err, foundationerrors.CategoryHistory, "failed to marshal "+eventType+" payload").
			WithContext("run_id", runID).
			Build()
	}
	return BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: at,
		EventPayload:   data,
	}, nil
}

// RunStartedMeta holds the options a run was started with.
type RunStartedMeta struct {
	ForceRebuild  bool   `json:"force_rebuild"`
	Configuration string `json:"configuration"`
	Architecture  string `json:"architecture"`
	Platform      string `json:"platform"`
	Revision      string `json:"revision,omitempty"`
}

// RunStarted is emitted when a run begins.
type RunStarted struct {
	BaseEvent
	Meta RunStartedMeta
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, at time.Time, meta RunStartedMeta) (*RunStarted, error) {
	base, err := newBaseEvent(runID, EventRunStarted, at, meta)
	if err != nil {
		return nil, err
	}
	return &RunStarted{BaseEvent: base, Meta: meta}, nil
}

// StageCompletedMeta describes a finished stage.
type StageCompletedMeta struct {
	Stage      string `json:"stage"`
	Result     string `json:"result"`
	ElapsedMS  int64  `json:"elapsed_ms"`
	Ran        int    `json:"ran"`
	Skipped    int    `json:"skipped"`
	FailedStep string `json:"failed_step,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StageCompleted is emitted when a stage finishes, successfully or not.
type StageCompleted struct {
	BaseEvent
	Meta StageCompletedMeta
}

// NewStageCompleted creates a StageCompleted event.
func NewStageCompleted(runID string, at time.Time, meta StageCompletedMeta) (*StageCompleted, error) {
	base, err := newBaseEvent(runID, EventStageCompleted, at, meta)
	if err != nil {
		return nil, err
	}
	return &StageCompleted{BaseEvent: base, Meta: meta}, nil
}

// ToolGateForced is emitted when a newer compiler forces a group rebuild.
type ToolGateForced struct {
	BaseEvent
	Group    string `json:"group"`
	Compiler string `json:"compiler"`
}

// NewToolGateForced creates a ToolGateForced event.
func NewToolGateForced(runID string, at time.Time, group, compiler string) (*ToolGateForced, error) {
	base, err := newBaseEvent(runID, EventToolGateForced, at, map[string]string{
		"group":    group,
		"compiler": compiler,
	})
	if err != nil {
		return nil, err
	}
	return &ToolGateForced{BaseEvent: base, Group: group, Compiler: compiler}, nil
}

// TaskCompletedMeta describes one asset task.
type TaskCompletedMeta struct {
	Group      string `json:"group"`
	Compiler   string `json:"compiler"`
	Kind       string `json:"kind"`
	Asset      string `json:"asset"`
	Artifact   string `json:"artifact"`
	Status     string `json:"status"`
	Reason     string `json:"reason"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// TaskCompleted is emitted for every asset task, skipped ones included.
type TaskCompleted struct {
	BaseEvent
	Meta TaskCompletedMeta
}

// NewTaskCompleted creates a TaskCompleted event.
func NewTaskCompleted(runID string, at time.Time, meta TaskCompletedMeta) (*TaskCompleted, error) {
	base, err := newBaseEvent(runID, EventTaskCompleted, at, meta)
	if err != nil {
		return nil, err
	}
	return &TaskCompleted{BaseEvent: base, Meta: meta}, nil
}

// RunCompletedMeta is the final summary of a run.
type RunCompletedMeta struct {
	Outcome          string   `json:"outcome"`
	ElapsedMS        int64    `json:"elapsed_ms"`
	Ran              int      `json:"ran"`
	Skipped          int      `json:"skipped"`
	Failed           int      `json:"failed"`
	FailedStage      string   `json:"failed_stage,omitempty"`
	Error            string   `json:"error,omitempty"`
	AdvancedGroups   []string `json:"advanced_groups,omitempty"`
	MarkersDiscarded bool     `json:"markers_discarded,omitempty"`
}

// RunCompleted is emitted once per run.
type RunCompleted struct {
	BaseEvent
	Meta RunCompletedMeta
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID string, at time.Time, meta RunCompletedMeta) (*RunCompleted, error) {
	base, err := newBaseEvent(runID, EventRunCompleted, at, meta)
	if err != nil {
		return nil, err
	}
	return &RunCompleted{BaseEvent: base, Meta: meta}, nil
}

// DecodeTask reads the task payload of a TaskCompleted event.
func DecodeTask(e Event) (TaskCompletedMeta, bool) {
	var meta TaskCompletedMeta
	if e.Type() != EventTaskCompleted {
		return meta, false
	}
	if err := json.Unmarshal(e.Payload(), &meta); err != nil {
		return meta, false
	}
	return meta, true
}
