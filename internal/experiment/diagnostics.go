package experiment

import "fmt"

// Tolerances for the automated sweep diagnostics. These validate the
// calibrated feedback gain rather than assume it: a gain that fails the
// monotonicity checks is miscalibrated for the configured noise level.
const (
	driverSpreadLimit  = 0.20
	controlSpreadLimit = 0.25
	monotoneSlack      = 0.10
)

// diagnose computes the pass/fail checks for a finished sweep. The rows
// follow the order of Config.Bandwidths, which the checks require to be
// ascending to judge monotonicity.
func diagnose(res *SweepResult) []Check {
	checks := make([]Check, 0, 4)
	rows := res.Rows
	if len(rows) == 0 {
		return checks
	}

	driver := make([]float64, len(rows))
	for i, row := range rows {
		driver[i] = row.DriverComplexity
	}
	spread := relativeSpread(driver)
	checks = append(checks, Check{
		Name:   "driver_invariance",
		Pass:   spread < driverSpreadLimit,
		Detail: fmt.Sprintf("driver complexity spread %.1f%% (limit %.0f%%)", spread*100, driverSpreadLimit*100),
	})

	if len(rows) > 1 {
		first, last := rows[0], rows[len(rows)-1]

		rising := last.ResponderComplexity > first.ResponderComplexity
		for i := 0; i+1 < len(rows); i++ {
			if rows[i+1].ResponderComplexity < rows[i].ResponderComplexity*(1-monotoneSlack) {
				rising = false
			}
		}
		checks = append(checks, Check{
			Name: "responder_monotonic",
			Pass: rising,
			Detail: fmt.Sprintf("responder complexity %.2f at k=%d vs %.2f at k=%d",
				first.ResponderComplexity, first.Bandwidth, last.ResponderComplexity, last.Bandwidth),
		})

		falling := last.Mismatch < first.Mismatch
		for i := 0; i+1 < len(rows); i++ {
			if rows[i+1].Mismatch > rows[i].Mismatch*(1+monotoneSlack) {
				falling = false
			}
		}
		checks = append(checks, Check{
			Name: "mismatch_monotonic",
			Pass: falling,
			Detail: fmt.Sprintf("mismatch %.3f at k=%d vs %.3f at k=%d",
				first.Mismatch, first.Bandwidth, last.Mismatch, last.Bandwidth),
		})
	}

	if len(res.ControlRows) > 0 {
		ctrl := make([]float64, len(res.ControlRows))
		for i, row := range res.ControlRows {
			ctrl[i] = row.ResponderComplexity
		}
		spread := relativeSpread(ctrl)
		checks = append(checks, Check{
			Name:   "control_null",
			Pass:   spread < controlSpreadLimit,
			Detail: fmt.Sprintf("uncoupled responder spread %.1f%% (limit %.0f%%)", spread*100, controlSpreadLimit*100),
		})
	}

	return checks
}

// relativeSpread is (max-min)/mean, the variation measure used by every
// invariance check.
func relativeSpread(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	min, max, sum := vals[0], vals[0], 0.0
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean := sum / float64(len(vals))
	if mean == 0 {
		return 0
	}
	return (max - min) / mean
}
