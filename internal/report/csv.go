package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"pvsizer/internal/model"
	"pvsizer/internal/simulator"
)

// WriteHourlyCSV writes the per-hour detail file read back by the simulate
// command: date,pv_diff,load_diff,import,export.
func WriteHourlyCSV(path string, hours []Hourly) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"date", "pv_diff", "load_diff", "import", "export"}); err != nil {
			return err
		}
		for _, h := range hours {
			row := []string{
				h.Timestamp.Format(model.TimeLayout),
				f3(h.PVKWh), f3(h.LoadKWh), f3(h.ImportKWh), f3(h.ExportKWh),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteDailyCSV writes the daily rollup with the net balance column.
func WriteDailyCSV(path string, days []model.DailyTotal) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"date", "pv_day_kWh", "load_day_kWh", "import_kWh", "export_kWh", "balance_kWh"}); err != nil {
			return err
		}
		for _, d := range days {
			row := []string{
				d.Day,
				f3(d.PVKWh), f3(d.LoadKWh), f3(d.ImportKWh), f3(d.ExportKWh), f3(d.BalanceKWh()),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCombosCSV exports every evaluated combination with its totals and
// AC/TC, one row per (pv factor, battery) pair in selection order.
// basePVKWh and baseLoadKWh are the unscaled window totals.
func WriteCombosCSV(path string, results []*model.ScenarioResult, basePVKWh, baseLoadKWh float64) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"pv_factor", "battery_kWh", "pv_tot_kWh", "load_tot_kWh", "import_kWh", "export_kWh", "AC_%", "TC_%"}); err != nil {
			return err
		}
		for _, r := range results {
			totals := simulator.TraceTotals(basePVKWh*r.PVFactor, baseLoadKWh, r.Trace)
			row := []string{
				strconv.FormatFloat(r.PVFactor, 'g', -1, 64),
				strconv.FormatFloat(r.BatteryKWh, 'g', -1, 64),
				f3(totals.PVKWh), f3(totals.LoadKWh), f3(totals.ImportKWh), f3(totals.ExportKWh),
				f1(r.ACPercent), f1(r.TCPercent),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCSV(path string, write func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := write(w); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return nil
}

func f3(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
func f1(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
