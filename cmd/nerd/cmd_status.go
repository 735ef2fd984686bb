package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"codenerd/internal/model"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7a89"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the pipeline's current tasks, files, and objectives",
	Long: `status renders the state store's snapshot: task counts by
status, files touched per phase, and objective progress. Purely
presentational — it never mutates the pipeline's own state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectDir, err := resolveWorkspace()
		if err != nil {
			return newUsageError(err.Error())
		}
		cfg, err := loadConfig(projectDir)
		if err != nil {
			return err
		}

		p, err := buildCoordinator(projectDir, cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		snap := p.store.Snapshot()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, headingStyle.Render("Tasks"))
		byStatus := make(map[model.TaskStatus]int)
		for _, t := range snap.Tasks {
			byStatus[t.Status]++
		}
		for _, s := range []model.TaskStatus{
			model.TaskNew, model.TaskInProgress, model.TaskQAPending,
			model.TaskNeedsFixes, model.TaskQAFailed, model.TaskCompleted,
			model.TaskSkipped, model.TaskFailed,
		} {
			if byStatus[s] > 0 {
				fmt.Fprintf(out, "  %-12s %d\n", s, byStatus[s])
			}
		}

		fmt.Fprintln(out, headingStyle.Render("Files"))
		paths := make([]string, 0, len(snap.Files))
		for p := range snap.Files {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fs := snap.Files[p]
			fmt.Fprintf(out, "  %-40s %-10s %s\n", p, fs.Status, dimStyle.Render(fs.LastModifiedByPhase))
		}

		fmt.Fprintln(out, headingStyle.Render("Objectives"))
		renderObjectives(out, "primary", snap.Objectives.Primary)
		renderObjectives(out, "secondary", snap.Objectives.Secondary)
		renderObjectives(out, "tertiary", snap.Objectives.Tertiary)

		fmt.Fprintln(out, headingStyle.Render("Strategic plan"))
		if doc, err := p.ipcStore.ReadStrategic("MASTER_PLAN.md"); err == nil {
			renderMarkdown(out, doc.Render())
		}

		return nil
	},
}

func renderObjectives(out interface{ Write([]byte) (int, error) }, label string, recs []model.ObjectiveRecord) {
	for _, r := range recs {
		fmt.Fprintf(out, "  [%s] %-20s %s\n", label, r.ID, r.Status)
	}
}

// renderMarkdown glamour-renders a markdown document for the terminal,
// falling back to raw text if the renderer can't start (non-tty output,
// missing terminfo).
func renderMarkdown(out interface{ Write([]byte) (int, error) }, raw string) {
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Fprintln(out, raw)
		return
	}
	rendered, err := renderer.Render(raw)
	if err != nil {
		fmt.Fprintln(out, raw)
		return
	}
	fmt.Fprint(out, rendered)
}
