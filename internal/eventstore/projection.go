package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const runStatusRunning = "running"

// RunSummary is the read model of one run.
type RunSummary struct {
	RunID         string        `json:"run_id"`
	Status        string        `json:"status"` // running, success, failed, canceled
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	Duration      time.Duration `json:"duration,omitempty"`
	ForceRebuild  bool          `json:"force_rebuild"`
	Configuration string        `json:"configuration"`
	Architecture  string        `json:"architecture"`
	Revision      string        `json:"revision,omitempty"`
	Ran           int           `json:"ran"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	ForcedGroups  []string      `json:"forced_groups,omitempty"`
	FailedStage   string        `json:"failed_stage,omitempty"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	Advanced      []string      `json:"advanced_groups,omitempty"`
}

// RunHistoryProjection maintains an in-memory view of run history,
// reconstructed from the events in a store.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	history []*RunSummary // completed runs, newest first
	maxSize int
}

// NewRunHistoryProjection creates a projection keeping at most maxHistorySize
// completed runs (100 when not positive).
func NewRunHistoryProjection(store Store, maxHistorySize int) *RunHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &RunHistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from every stored event.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	p.history = nil
	for _, e := range events {
		p.applyLocked(e)
	}
	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	p.trimLocked()
	return nil
}

// Apply folds a single event into the projection.
func (p *RunHistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
	p.trimLocked()
}

func (p *RunHistoryProjection) applyLocked(e Event) {
	id := e.RunID()
	if id == "" {
		return
	}
	s, ok := p.runs[id]
	if !ok {
		s = &RunSummary{RunID: id, Status: runStatusRunning, StartedAt: e.Timestamp()}
		p.runs[id] = s
	}

	switch e.Type() {
	case EventRunStarted:
		var meta RunStartedMeta
		if err := json.Unmarshal(e.Payload(), &meta); err == nil {
			s.StartedAt = e.Timestamp()
			s.ForceRebuild = meta.ForceRebuild
			s.Configuration = meta.Configuration
			s.Architecture = meta.Architecture
			s.Revision = meta.Revision
		}

	case EventToolGateForced:
		var payload struct {
			Group string `json:"group"`
		}
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			s.ForcedGroups = append(s.ForcedGroups, payload.Group)
		}

	case EventRunCompleted:
		var meta RunCompletedMeta
		if err := json.Unmarshal(e.Payload(), &meta); err != nil {
			return
		}
		at := e.Timestamp()
		s.CompletedAt = &at
		s.Duration = time.Duration(meta.ElapsedMS) * time.Millisecond
		s.Status = meta.Outcome
		s.Ran, s.Skipped, s.Failed = meta.Ran, meta.Skipped, meta.Failed
		s.FailedStage = meta.FailedStage
		s.ErrorMessage = meta.Error
		s.Advanced = meta.AdvancedGroups
		p.addToHistoryLocked(s)
	}
}

func (p *RunHistoryProjection) addToHistoryLocked(s *RunSummary) {
	for _, h := range p.history {
		if h.RunID == s.RunID {
			return
		}
	}
	p.history = append([]*RunSummary{s}, p.history...)
}

// trimLocked bounds history and drops completed runs that fell out of it.
func (p *RunHistoryProjection) trimLocked() {
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.RunID] = struct{}{}
	}
	for id, s := range p.runs {
		if s.Status == runStatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.runs, id)
		}
	}
}

// History returns completed runs, newest first.
func (p *RunHistoryProjection) History() []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]RunSummary, 0, len(p.history))
	for _, h := range p.history {
		out = append(out, *h)
	}
	return out
}

// Run returns the summary of one run.
func (p *RunHistoryProjection) Run(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return *s, true
}

// LastCompleted returns the most recently completed run.
func (p *RunHistoryProjection) LastCompleted() (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.history) == 0 {
		return RunSummary{}, false
	}
	return *p.history[0], true
}
