package experiment

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// FormatTable renders a sweep as aligned text, one row per bandwidth
// value, followed by the control rows (when present) and the pass/fail
// checks. Downstream tooling parses this shape, so it is stable.
func FormatTable(res *SweepResult) string {
	var sb strings.Builder

	cfg := res.Config
	fmt.Fprintf(&sb, "bandwidth sweep: n=%d coupling=%.2f noise=%.2f dt=%.3f gain=%.2f codec=%s trials=%d\n\n",
		cfg.N, cfg.Coupling, cfg.NoiseStd, cfg.Dt, cfg.Gain, cfg.Mode, cfg.Trials)

	writeRows(&sb, res.Rows)

	if len(res.ControlRows) > 0 {
		sb.WriteString("\ncontrol (gain=0):\n")
		writeRows(&sb, res.ControlRows)
	}

	if len(res.Checks) > 0 {
		sb.WriteString("\nchecks:\n")
		w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
		for _, c := range res.Checks {
			verdict := "PASS"
			if !c.Pass {
				verdict = "FAIL"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n", c.Name, verdict, c.Detail)
		}
		w.Flush()
	}

	return sb.String()
}

func writeRows(sb *strings.Builder, rows []BandwidthStats) {
	w := tabwriter.NewWriter(sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "K\tDRIVER_CX\tRESPONDER_CX\tCOHERENCE\tMISMATCH\tTRIALS")
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%.2f±%.2f\t%.2f±%.2f\t%.3f\t%.3f±%.3f\t%d\n",
			row.Bandwidth,
			row.DriverComplexity, row.DriverComplexityStd,
			row.ResponderComplexity, row.ResponderComplexityStd,
			row.Coherence,
			row.Mismatch, row.MismatchStd,
			row.Trials,
		)
	}
	w.Flush()
}
