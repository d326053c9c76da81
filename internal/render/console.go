// Package render prints results as plain-text console tables.
package render

import (
	"fmt"
	"io"

	"pvsizer/internal/model"
	"pvsizer/internal/simulator"
)

// Console writes human-readable summaries and scenario tables.
type Console struct {
	w io.Writer
}

func New(w io.Writer) *Console {
	return &Console{w: w}
}

// Summary prints the aggregate situation for a window: totals, AC/TC and
// the installed PV power when known.
func (c *Console) Summary(title string, totals model.Totals, ac, tc float64, window model.TimeRange, pvActualKW float64) {
	if !window.Start.IsZero() {
		title = fmt.Sprintf("%s (%s → %s)", title,
			window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))
	}
	fmt.Fprintf(c.w, "\n=== %s ===\n", title)
	fmt.Fprintf(c.w, " %9s │ %10s │ %12s │ %12s │ %6s │ %6s\n",
		"PV (kWh)", "Load (kWh)", "Import (kWh)", "Export (kWh)", "AC %", "TC %")
	fmt.Fprintf(c.w, "───────────┼────────────┼──────────────┼──────────────┼────────┼───────\n")
	fmt.Fprintf(c.w, " %9.0f │ %10.0f │ %12.0f │ %12.0f │ %6.1f │ %6.1f\n",
		totals.PVKWh, totals.LoadKWh, totals.ImportKWh, totals.ExportKWh, ac, tc)
	if pvActualKW > 0 {
		fmt.Fprintf(c.w, " Installed PV: %.1f kWc\n", pvActualKW)
	}
}

// Passing prints the combinations meeting the targets, at most limit rows.
// basePVKWh/baseLoadKWh are the unscaled window totals used to derive each
// row's energy columns.
func (c *Console) Passing(results []*model.ScenarioResult, acMin, acMax, tcMin float64, limit int, basePVKWh, baseLoadKWh float64) {
	fmt.Fprintf(c.w, "\nScenarios meeting targets: AC in [%.0f → %.0f] %%, TC >= %.0f %%\n", acMin, acMax, tcMin)
	fmt.Fprintf(c.w, " %4s │ %9s │ %8s │ %8s │ %8s │ %8s │ %6s │ %6s\n",
		"PV ×", "Batt", "PV", "Load", "Import", "Export", "AC %", "TC %")
	fmt.Fprintf(c.w, "──────┼───────────┼──────────┼──────────┼──────────┼──────────┼────────┼───────\n")

	for i, r := range results {
		if i >= limit {
			fmt.Fprintf(c.w, " … %d more\n", len(results)-limit)
			break
		}
		totals := simulator.TraceTotals(basePVKWh*r.PVFactor, baseLoadKWh, r.Trace)
		fmt.Fprintf(c.w, " %4g │ %5.0f kWh │ %8.0f │ %8.0f │ %8.0f │ %8.0f │ %6.1f │ %6.1f\n",
			r.PVFactor, r.BatteryKWh,
			totals.PVKWh, totals.LoadKWh, totals.ImportKWh, totals.ExportKWh,
			r.ACPercent, r.TCPercent)
	}
}

// Best prints the selected compromise with the resulting PV power.
func (c *Console) Best(r *model.ScenarioResult, pvActualKW float64) {
	fmt.Fprintf(c.w, "\nBest compromise: PV ×%g", r.PVFactor)
	if pvActualKW > 0 {
		fmt.Fprintf(c.w, " (≈ %.1f kWc)", pvActualKW*r.PVFactor)
	}
	fmt.Fprintf(c.w, ", battery %.0f kWh: AC %.1f %%, TC %.1f %%\n",
		r.BatteryKWh, r.ACPercent, r.TCPercent)
}

// NoScenario prints the failure diagnostic with the best achieved values,
// so the user can see which target is out of reach.
func (c *Console) NoScenario(failed *model.SimulationFailed, acMin, acMax, tcMin float64) {
	fmt.Fprintf(c.w, "\nNo scenario meets the targets (AC in [%.0f → %.0f] %%, TC >= %.0f %%)\n",
		acMin, acMax, tcMin)
	fmt.Fprintf(c.w, "Best achieved over %d combinations: AC %.1f %%, TC %.1f %%\n",
		failed.Evaluated, failed.BestAC, failed.BestTC)
	if failed.BestTC < tcMin {
		fmt.Fprintf(c.w, "TC is short by %.1f points, consider larger batteries or higher PV factors.\n", tcMin-failed.BestTC)
	}
	if failed.BestAC < acMin {
		fmt.Fprintf(c.w, "AC is short by %.1f points, surplus is exporting and more storage would help.\n", acMin-failed.BestAC)
	}
}

// Definitions prints the AC/TC glossary footer.
func (c *Console) Definitions() {
	fmt.Fprintf(c.w, "\nAC (autoconsumption): share of PV production consumed on-site.\n")
	fmt.Fprintf(c.w, "TC (coverage rate): share of consumption supplied by PV, directly or via battery.\n")
}
