package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/vaultcleaner/internal/application"
	"github.com/ericfisherdev/vaultcleaner/internal/domain/model"
)

// renderRun prints one row per vault in request order, then a totals line.
func renderRun(w io.Writer, run model.CleanupRun) error {
	if len(run.Vaults) == 0 {
		fmt.Fprintf(w, "No backup vaults configured for %s\n", run.Trigger)
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Vault", "Status", "Deleted", "Duration", "Reason")
	for _, o := range run.Ordered() {
		if err := table.Append(
			string(o.Vault),
			string(o.Status),
			strconv.Itoa(o.Deleted),
			o.Duration.Round(time.Millisecond).String(),
			o.Reason,
		); err != nil {
			return fmt.Errorf("render run: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render run: %w", err)
	}

	fmt.Fprintf(w, "\nRun %s: %d succeeded, %d skipped, %d failed, %d recovery points deleted\n",
		run.ID,
		run.Count(model.OutcomeSucceeded),
		run.Count(model.OutcomeSkipped),
		run.Count(model.OutcomeFailed),
		run.DeletedTotal(),
	)
	return nil
}

// renderPlan prints what a run would do, one row per vault.
func renderPlan(w io.Writer, plans []application.VaultPlan) error {
	if len(plans) == 0 {
		fmt.Fprintln(w, "No backup vaults configured")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Vault", "Action", "Recovery points", "Error")

	total := 0
	for _, p := range plans {
		action, points, errMsg := "empty", strconv.Itoa(len(p.Points)), ""
		switch {
		case !p.Exists:
			action, points = "skip", "-"
		case p.Err != nil:
			action, points, errMsg = "fail", "-", p.Err.Error()
		default:
			total += len(p.Points)
		}
		if err := table.Append(string(p.Vault), action, points, errMsg); err != nil {
			return fmt.Errorf("render plan: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render plan: %w", err)
	}

	fmt.Fprintf(w, "\nDry run: %d recovery points would be deleted\n", total)
	return nil
}

// runView is the serialized form of a run for json and yaml output.
type runView struct {
	ID         string        `json:"id" yaml:"id"`
	Trigger    string        `json:"trigger" yaml:"trigger"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Deleted    int           `json:"deleted" yaml:"deleted"`
	Outcomes   []outcomeView `json:"outcomes" yaml:"outcomes"`
}

type outcomeView struct {
	Vault      string `json:"vault" yaml:"vault"`
	Status     string `json:"status" yaml:"status"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Deleted    int    `json:"deleted" yaml:"deleted"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
}

func toRunViews(runs []model.CleanupRun) []runView {
	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		v := runView{
			ID:         run.ID,
			Trigger:    string(run.Trigger),
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Deleted:    run.DeletedTotal(),
			Outcomes:   []outcomeView{},
		}
		for _, o := range run.Ordered() {
			v.Outcomes = append(v.Outcomes, outcomeView{
				Vault:      string(o.Vault),
				Status:     string(o.Status),
				Reason:     o.Reason,
				Deleted:    o.Deleted,
				DurationMS: o.Duration.Milliseconds(),
			})
		}
		views = append(views, v)
	}
	return views
}

// renderRuns prints recorded runs as a table, JSON or YAML.
func renderRuns(w io.Writer, runs []model.CleanupRun, format string) error {
	switch format {
	case "json":
		out, err := json.MarshalIndent(toRunViews(runs), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal runs: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toRunViews(runs)); err != nil {
			return fmt.Errorf("marshal runs: %w", err)
		}
		return enc.Close()
	case "table", "":
	default:
		return fmt.Errorf("invalid --output %q: want table, json or yaml", format)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No cleanup runs recorded")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Run", "Trigger", "Started", "Duration", "Succeeded", "Skipped", "Failed", "Deleted")
	for _, run := range runs {
		if err := table.Append(
			run.ID,
			string(run.Trigger),
			run.StartedAt.Local().Format(time.DateTime),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
			strconv.Itoa(run.Count(model.OutcomeSucceeded)),
			strconv.Itoa(run.Count(model.OutcomeSkipped)),
			strconv.Itoa(run.Count(model.OutcomeFailed)),
			strconv.Itoa(run.DeletedTotal()),
		); err != nil {
			return fmt.Errorf("render runs: %w", err)
		}
	}
	return table.Render()
}
