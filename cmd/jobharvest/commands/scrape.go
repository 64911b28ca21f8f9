package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"jobharvest/internal/application/harvest"
	"jobharvest/internal/components/chrono"
	"jobharvest/internal/components/telemetry"
	"jobharvest/internal/scrapers/workday"
	"jobharvest/lib/runlog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var dumpHttp string

func init() {
	scrapeCmd.Flags().StringVar(&dumpHttp, "dump-http", "", "Write every http exchange to files in this directory.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--config config.json5] [--dump-http <dir>]",
	Short: "Runs the harvest once and exports the results.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(configPath)
		if err != nil {
			return err
		}
		clock, err := chrono.NewStandardTime(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone: %w", err)
		}

		closeLog, err := setupLogging(cfg, clock)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx := cmd.Context()
		shutdown := setupTelemetry(ctx)
		defer shutdown()

		pipeline, err := newPipeline(ctx, cfg, clock)
		if err != nil {
			return err
		}

		slog.Info("starting harvest", "base_url", cfg.BaseUrl)
		t1 := time.Now()
		res, err := pipeline.Run(ctx)
		slog.Info("harvest time", "seconds", time.Since(t1).Seconds())

		printResult(cmd.OutOrStdout(), cfg, res)
		return err
	},
}

// setupLogging logs to stderr and to <log_folder>/scraper_<timestamp>.log.
func setupLogging(cfg Config, clock chrono.TimeAPI) (func(), error) {
	err := os.MkdirAll(cfg.LogFolder, 0777)
	if err != nil {
		return nil, fmt.Errorf("create log folder: %w", err)
	}
	path := filepath.Join(cfg.LogFolder, fmt.Sprintf("scraper_%s.log", chrono.Timestamp(clock.Now())))
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	telemetry.InitSlog(verbose, file)
	return func() { file.Close() }, nil
}

// setupTelemetry enables otlp export when a telemetry.json5 is found above the cwd.
func setupTelemetry(ctx context.Context) func() {
	tel, err := telemetry.SetupFromEnv(ctx, "jobharvest")
	if errors.Is(err, os.ErrNotExist) {
		return func() {}
	}
	if err != nil {
		slog.Warn("failed to setup telemetry", "err", err)
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := tel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	}
}

func newPipeline(ctx context.Context, cfg Config, clock chrono.TimeAPI) (*harvest.Pipeline, error) {
	tel := telemetry.SlogAPI{}

	var output telemetry.InstrumentOutput
	if dumpHttp != "" {
		fsOutput, err := telemetry.NewFilesystemOutput(dumpHttp)
		if err != nil {
			return nil, err
		}
		output = fsOutput
	}

	client, err := workday.NewClient(workday.ClientOptions{
		BaseUrl:          cfg.BaseUrl,
		Headers:          cfg.Headers,
		Cookies:          cfg.Cookies,
		Timeout:          cfg.timeout(),
		CloudflareBypass: cfg.CloudflareBypass,
		Output:           output,
	}, tel)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	opts, err := cfg.pipelineOptions(ctx)
	if err != nil {
		return nil, err
	}
	return harvest.NewPipeline(client, opts, clock, tel), nil
}

func printResult(w io.Writer, cfg Config, res harvest.Result) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)

	switch res.Status {
	case runlog.StatusSuccess:
		t.SetTitle(text.FgGreen.Sprint("SUCCESS"))
	case runlog.StatusNoData:
		t.SetTitle(text.FgYellow.Sprint("NO JOBS FOUND"))
	default:
		t.SetTitle(text.FgRed.Sprint("ERROR"))
	}

	t.AppendRow(table.Row{"Jobs scraped", res.Records})
	t.AppendRow(table.Row{"Run", res.Timestamp})
	if len(res.Files) > 0 {
		t.AppendRow(table.Row{"Files saved in", cfg.OutputFolder + string(filepath.Separator)})
		for _, file := range res.Files {
			t.AppendRow(table.Row{"", filepath.Base(file)})
		}
	}
	if res.Err != nil {
		t.AppendRow(table.Row{"Error", res.Err.Error()})
	}
	t.Render()
}
