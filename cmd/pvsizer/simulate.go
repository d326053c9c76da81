package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pvsizer/internal/config"
	"pvsizer/internal/ingest"
	"pvsizer/internal/logging"
	"pvsizer/internal/model"
	"pvsizer/internal/render"
	"pvsizer/internal/report"
	"pvsizer/internal/series"
	"pvsizer/internal/simulator"
)

const passingTableLimit = 10

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Sweep battery sizes and PV factors over the hourly CSV",
	Long: `simulate reads the hourly CSV produced by the report command, replays
every (battery size, PV factor) combination through the dispatch simulator
and reports the ones meeting the configured autoconsumption and coverage
targets. The full grid is also written to the combos CSV.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New("simulate", verbose)

	window, err := cfg.Window()
	if err != nil {
		return err
	}
	// The hourly detail written by report is the simulation input.
	src := ingest.NewCSVSource(cfg.OutCSVDetail)
	samples, err := src.HourlyPVLoad(ctx, window.Start, window.End)
	if err != nil {
		return fmt.Errorf("read %s (run report first): %w", cfg.OutCSVDetail, err)
	}

	s := series.New(samples)
	if err := s.Validate(); err != nil {
		return err
	}
	basePV, baseLoad := s.Totals()
	log.Info().Int("hours", s.Len()).
		Float64("pv_kwh", basePV).Float64("load_kwh", baseLoad).
		Msg("series loaded")

	console := render.New(os.Stdout)

	base, err := report.Build(samples)
	if err != nil {
		return err
	}
	console.Summary("Current situation (no battery)", base.Totals, base.ACPercent, base.TCPercent, window, cfg.PVActualKW)

	searchCfg := cfg.Search()
	batt := cfg.Battery()
	grid := cfg.GridPolicy()

	if searchCfg.Override != nil {
		r, err := simulator.Search(ctx, s, searchCfg, batt, grid)
		if err != nil {
			return err
		}
		fmt.Println("\nForced scenario (SIM_OVERRIDE):")
		console.Best(r, cfg.PVActualKW)
		console.Definitions()
		return nil
	}

	results, err := simulator.SearchAll(ctx, s, searchCfg, batt, grid)
	if err != nil {
		return err
	}
	log.Info().Int("combinations", len(results)).Msg("sweep complete")

	if err := report.WriteCombosCSV(cfg.OutCSVSimu, results, basePV, baseLoad); err != nil {
		return fmt.Errorf("write %s: %w", cfg.OutCSVSimu, err)
	}
	log.Info().Str("combos", cfg.OutCSVSimu).Msg("CSV file written")

	passing := simulator.Passing(results, searchCfg)
	if len(passing) == 0 {
		_, selErr := simulator.Select(results, searchCfg)
		var failed *model.SimulationFailed
		if errors.As(selErr, &failed) {
			// Not an error: the targets are simply out of reach on this grid.
			console.NoScenario(failed, searchCfg.TargetACMin, searchCfg.TargetACMax, searchCfg.TargetTCMin)
			console.Definitions()
			return nil
		}
		return selErr
	}

	console.Passing(passing, searchCfg.TargetACMin, searchCfg.TargetACMax, searchCfg.TargetTCMin, passingTableLimit, basePV, baseLoad)
	console.Best(passing[0], cfg.PVActualKW)
	console.Definitions()
	return nil
}
