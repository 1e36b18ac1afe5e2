package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	foundationerrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" help:"Number of runs to show" default:"20"`
	RunID string `name:"run" help:"Show the asset tasks of one run"`
	JSON  bool   `name:"json" help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if !cfg.History.IsEnabled() {
		return foundationerrors.ConfigError("run history is disabled (history.enabled: false)").Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.Path(cfg.History.Path, config.Vars{}))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if h.RunID != "" {
		return printRunTasks(g, os.Stdout, store, h.RunID, h.JSON)
	}

	projection := eventstore.NewRunHistoryProjection(store, h.Limit)
	if err := projection.Rebuild(g.context()); err != nil {
		return err
	}
	return printHistory(os.Stdout, projection.History(), h.JSON)
}

func printHistory(w io.Writer, runs []eventstore.RunSummary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tOPTIONS\tREVISION\tRAN\tSKIPPED\tFAILED\tDURATION\tDETAIL")
	for _, r := range runs {
		opts := r.Configuration + "/" + r.Architecture
		if r.ForceRebuild {
			opts += "/rebuild"
		}
		detail := ""
		switch {
		case r.FailedStage != "":
			detail = r.FailedStage + ": " + firstLine(r.ErrorMessage)
		case len(r.ForcedGroups) > 0:
			detail = "forced " + strings.Join(r.ForcedGroups, ",")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.RunID, r.StartedAt.Local().Format(time.DateTime), r.Status, opts, dash(r.Revision),
			r.Ran, r.Skipped, r.Failed, r.Duration.Round(time.Millisecond), detail)
	}
	return tw.Flush()
}

func printRunTasks(g *Global, w io.Writer, store eventstore.Store, runID string, asJSON bool) error {
	events, err := store.GetByRunID(g.context(), runID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return foundationerrors.NewError(foundationerrors.CategoryHistory, "run not found").
			WithContext("run_id", runID).
			Build()
	}
	var tasks []eventstore.TaskCompletedMeta
	for _, e := range events {
		if meta, ok := eventstore.DecodeTask(e); ok {
			tasks = append(tasks, meta)
		}
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "GROUP\tASSET\tSTATUS\tREASON\tEXIT\tDURATION")
	for _, t := range tasks {
		status := t.Status
		if t.Error != "" {
			status += " (" + firstLine(t.Error) + ")"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			t.Group, t.Asset, status, t.Reason, t.ExitCode, time.Duration(t.DurationMS)*time.Millisecond)
	}
	return tw.Flush()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
