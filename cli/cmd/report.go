// ABOUTME: Renders a finished simulation as a per-agent table followed by the
// ABOUTME: overall mean wait time.
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/2389-research/arbiter/agent"
	"github.com/2389-research/arbiter/simulation"
)

// PrintReport writes r to w.
func PrintReport(w io.Writer, r *simulation.Report) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tROUNDS\tMEAN WAIT\tLONGEST WAIT")
	for _, a := range r.Agents {
		stats := agent.Stats{Waits: a.Waits}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", a.ID, stats.Rounds(), a.Mean, stats.Max())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Overall mean wait time: %s (%d rounds in %s)\n",
		r.OverallMean, r.Rounds, r.Elapsed.Round(time.Millisecond))
	return err
}
