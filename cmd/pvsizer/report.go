package main

import (
	"context"
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
)

var sourceName string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch hourly history and write the import/export CSVs",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&sourceName, "source", "ha_ws", "data source: ha_ws, csv or enlighten")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireSource(sourceName); err != nil {
		return err
	}

	log := logging.New("report", verbose)
	src, err := newSource(cfg, sourceName)
	if err != nil {
		return err
	}

	window, err := cfg.Window()
	if err != nil {
		return err
	}

	log.Info().Str("source", sourceName).
		Time("start", window.Start).Time("end", window.End).
		Msg("fetching hourly history")
	samples, err := src.HourlyPVLoad(ctx, window.Start, window.End)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	log.Info().Int("hours", len(samples)).Msg("history fetched")

	rep, err := report.Build(samples)
	if err != nil {
		return err
	}

	if err := report.WriteHourlyCSV(cfg.OutCSVDetail, rep.Hours); err != nil {
		return fmt.Errorf("write %s: %w", cfg.OutCSVDetail, err)
	}
	if err := report.WriteDailyCSV(cfg.OutCSVDaily, rep.Days); err != nil {
		return fmt.Errorf("write %s: %w", cfg.OutCSVDaily, err)
	}
	log.Info().Str("hourly", cfg.OutCSVDetail).Str("daily", cfg.OutCSVDaily).Msg("CSV files written")

	console := render.New(os.Stdout)
	console.Summary("Measured situation", rep.Totals, rep.ACPercent, rep.TCPercent, window, cfg.PVActualKW)
	console.Definitions()
	return nil
}

// newSource builds the ingestion backend selected by --source.
func newSource(cfg *config.Config, name string) (ingest.Source, error) {
	log := logging.New("ingest", verbose)
	switch name {
	case "ha_ws":
		return &ingest.HomeAssistantSource{
			BaseURL:    cfg.BaseURL,
			Token:      cfg.Token,
			PVEntity:   cfg.PVEntity,
			LoadEntity: cfg.LoadEntity,
			SSLVerify:  cfg.SSLVerify,
			Log:        log,
		}, nil
	case "csv":
		return ingest.NewCSVSource(cfg.InCSV), nil
	case "enlighten":
		return &ingest.EnlightenSource{
			APIKey:   cfg.EnphaseAPIKey,
			UserID:   cfg.EnphaseUserID,
			SystemID: cfg.EnphaseSystemID,
			SiteID:   cfg.EnphaseSiteID,
			Log:      log,
		}, nil
	default:
		return nil, &model.ConfigError{Param: "source", Reason: fmt.Sprintf("unknown source %q", name)}
	}
}
