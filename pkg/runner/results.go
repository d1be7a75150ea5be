package runner

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Results accumulates the outcomes of one run. It is threaded through the
// processing call tree and owned by the caller; nothing here is global.
type Results struct {
	RunID     string
	Processed int

	Updated     []string
	Skipped     []string
	Failed      []string
	Unsupported []string
}

func (r *Results) updated(entry string) {
	r.Updated = append(r.Updated, entry)
}

func (r *Results) skipped(entry string) {
	r.Skipped = append(r.Skipped, entry)
}

func (r *Results) failed(entry string) {
	r.Failed = append(r.Failed, entry)
}

func (r *Results) unsupported(entry string) {
	r.Unsupported = append(r.Unsupported, entry)
}

// RenderSummary writes the end-of-run summary: one counts table and the
// per-file detail lists. Failures are always listed in full.
func (r *Results) RenderSummary(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"outcome", "count"})
	tw.AppendRows([]table.Row{
		{"processed", r.Processed},
		{"updated", len(r.Updated)},
		{"skipped", len(r.Skipped)},
		{"unsupported", len(r.Unsupported)},
		{"failed", len(r.Failed)},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	tw.Render()

	renderList(w, "updated", r.Updated)
	renderList(w, "skipped", r.Skipped)
	renderList(w, "unsupported", r.Unsupported)
	renderList(w, "failed", r.Failed)
}

func renderList(w io.Writer, name string, entries []string) {
	if len(entries) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s:\n", name)
	for _, e := range entries {
		fmt.Fprintf(w, "  - %s\n", e)
	}
}
