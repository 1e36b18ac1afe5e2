// Package notify publishes run completion notifications to NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
	"git.home.luguber.info/inful/assetbuilder/internal/retry"
)

// RunNotification is the JSON payload published after every run.
type RunNotification struct {
	RunID          string    `json:"run_id"`
	Project        string    `json:"project"`
	Outcome        string    `json:"outcome"`
	Revision       string    `json:"revision,omitempty"`
	Configuration  string    `json:"configuration"`
	Architecture   string    `json:"architecture"`
	ForceRebuild   bool      `json:"force_rebuild"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	ElapsedMS      int64     `json:"elapsed_ms"`
	Ran            int       `json:"ran"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	FailedStage    string    `json:"failed_stage,omitempty"`
	Error          string    `json:"error,omitempty"`
	AdvancedGroups []string  `json:"advanced_groups,omitempty"`
}

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier is a pipeline observer publishing to <subject>.<outcome>.
type Notifier struct {
	pipeline.NoopObserver

	pub     Publisher
	conn    *nats.Conn
	subject string
	project string
	logger  *slog.Logger
	retry   retry.Policy
}

// New creates a notifier over an existing publisher.
func New(pub Publisher, subject, project string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{pub: pub, subject: subject, project: project, logger: logger, retry: retry.Policy{}}
}

// WithRetry sets the publish retry policy.
func (n *Notifier) WithRetry(p retry.Policy) *Notifier {
	n.retry = p
	return n
}

// Connect dials the configured NATS server. An empty URL yields a notifier
// that publishes nothing.
func Connect(cfg config.NotifyConfig, project string, logger *slog.Logger) (*Notifier, error) {
	if cfg.NATSURL == "" {
		return New(nil, cfg.Subject, project, logger), nil
	}
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("assetbuilder"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	n := New(conn, cfg.Subject, project, logger).
		WithRetry(retry.NewPolicy(retry.Mode(cfg.Backoff), cfg.RetryDelayDuration(), 0, cfg.Retries))
	n.conn = conn
	n.logger.Info("NATS notifications enabled", slog.String("url", cfg.NATSURL), slog.String("subject", cfg.Subject))
	return n, nil
}

// Enabled reports whether notifications are published.
func (n *Notifier) Enabled() bool { return n != nil && n.pub != nil }

// Subject returns the subject a run with outcome is published on.
func (n *Notifier) Subject(outcome pipeline.Outcome) string {
	return strings.TrimSuffix(n.subject, ".") + "." + string(outcome)
}

// Build renders the notification for report.
func (n *Notifier) Build(report *pipeline.RunReport) RunNotification {
	ran, skipped, failed := report.TaskCounts()
	msg := RunNotification{
		RunID:          report.RunID,
		Project:        n.project,
		Outcome:        string(report.Outcome),
		Revision:       report.Revision,
		Configuration:  string(report.Options.Configuration),
		Architecture:   string(report.Options.Architecture),
		ForceRebuild:   report.Options.ForceRebuild,
		StartedAt:      report.Start.UTC(),
		CompletedAt:    report.End.UTC(),
		ElapsedMS:      report.Elapsed().Milliseconds(),
		Ran:            ran,
		Skipped:        skipped,
		Failed:         failed,
		AdvancedGroups: report.AdvancedGroups,
	}
	if st, ok := report.FailedStage(); ok {
		msg.FailedStage = string(st.Name)
	}
	if report.Err != nil {
		msg.Error = report.Err.Error()
	}
	return msg
}

// Publish sends the notification for report.
func (n *Notifier) Publish(report *pipeline.RunReport) error {
	if !n.Enabled() {
		return nil
	}
	data, err := json.Marshal(n.Build(report))
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	subject := n.Subject(report.Outcome)
	err = n.retry.Do(context.Background(), func() error {
		if err := n.pub.Publish(subject, data); err != nil {
			return fmt.Errorf("failed to publish notification: %w", err)
		}
		if n.conn != nil {
			if err := n.conn.FlushTimeout(2 * time.Second); err != nil {
				return fmt.Errorf("failed to flush notification: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	n.logger.Debug("Published run notification", slog.String("subject", subject), logfields.RunID(report.RunID))
	return nil
}

// OnRunComplete publishes the notification; failures are only logged.
func (n *Notifier) OnRunComplete(report *pipeline.RunReport) {
	if err := n.Publish(report); err != nil {
		n.logger.Warn("Run notification failed", logfields.Error(err))
	}
}

// Close drains the connection, if any.
func (n *Notifier) Close() {
	if n != nil && n.conn != nil {
		_ = n.conn.Drain()
	}
}
