package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"jobharvest/internal/components/assert"
	"jobharvest/internal/components/chrono"
	"jobharvest/internal/components/telemetry"
	"jobharvest/internal/export"
	"jobharvest/lib/objectstore"
	"jobharvest/lib/runlog"
)

const (
	report_pipeline_state   = "pipeline.state"
	report_pipeline_history = "pipeline.history"
	report_pipeline_upload  = "pipeline.upload"
	report_pipeline_notify  = "pipeline.notify"
	report_pipeline_failed  = "pipeline.failed"
)

// Uploader copies an exported file somewhere else, *objectstore.Bucket implements it.
type Uploader interface {
	Upload(ctx context.Context, key, localPath string) error
}

// Notifier delivers a run summary, notify.Mailer implements it.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

type State string

const (
	StateCollecting  State = "collecting"
	StateFetching    State = "fetching_details"
	StateNormalizing State = "normalizing"
	StateExporting   State = "exporting"
)

// Result describes a finished run.
type Result struct {
	Status    runlog.Status
	Records   int
	Files     []string
	Timestamp string
	Date      string
	Err       error
}

// PipelineOptions configures everything a Pipeline does around the harvest itself.
type PipelineOptions struct {
	Harvest Options
	// Export.Date is filled per run.
	Export  export.Options
	History runlog.Log

	// Uploader is optional, files go under UploadPrefix/<date>/.
	Uploader     Uploader
	UploadPrefix string

	// Notifier is optional and only told about the statuses in NotifyOn.
	Notifier Notifier
	NotifyOn []runlog.Status
}

// Pipeline runs one harvest from the first listing page to the history entry.
type Pipeline struct {
	source Source
	opts   PipelineOptions
	time   chrono.TimeAPI
	tel    telemetry.API
}

func NewPipeline(source Source, opts PipelineOptions, time chrono.TimeAPI, tel telemetry.API) *Pipeline {
	assert.NotNil(source)
	assert.NotNil(time)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.History.Path())

	opts.Harvest = opts.Harvest.WithDefaults()
	assert.Positive(opts.Harvest.PageSize)
	if len(opts.Export.Formats) == 0 {
		opts.Export.Formats = export.DefaultFormats
	}
	if opts.NotifyOn == nil {
		opts.NotifyOn = []runlog.Status{runlog.StatusError}
	}

	return &Pipeline{
		source: source,
		opts:   opts,
		time:   time,
		tel:    telemetry.NewScopedAPI("harvest", tel),
	}
}

// Run executes the pipeline and writes exactly one history entry for it.
//
// A run with no listings left after deduplication is StatusNoData and
// writes no files. Any error ends the run as StatusError, the error is
// recorded and then returned. A panic is recorded the same way and
// re-raised.
func (p *Pipeline) Run(ctx context.Context) (res Result, err error) {
	start := p.time.Now()
	res = Result{
		Timestamp: chrono.Timestamp(start),
		Date:      chrono.Date(start),
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		res.Status = runlog.StatusError
		res.Records = 0
		res.Err = fmt.Errorf("panic: %v", r)
		p.finish(ctx, res)
		panic(r)
	}()

	err = p.run(ctx, &res)
	if err != nil {
		res.Status = runlog.StatusError
		res.Records = 0
		res.Err = err
		p.tel.ReportBroken(report_pipeline_failed, err)
	}
	p.finish(ctx, res)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	p.tel.ReportDebug(report_pipeline_state, StateCollecting)
	listings, err := CollectListings(ctx, p.source, p.opts.Harvest, p.tel)
	if err != nil {
		return fmt.Errorf("collect listings: %w", err)
	}
	if len(listings) == 0 {
		res.Status = runlog.StatusNoData
		return nil
	}

	p.tel.ReportDebug(report_pipeline_state, StateFetching, len(listings))
	details, err := FetchDetails(ctx, p.source, listings, p.opts.Harvest.PathField, p.tel)
	if err != nil {
		return fmt.Errorf("fetch details: %w", err)
	}

	p.tel.ReportDebug(report_pipeline_state, StateNormalizing)
	table := Normalize(
		listings,
		details,
		p.opts.Harvest.Columns,
		p.opts.Harvest.PathField,
		p.time.Now(),
	)

	p.tel.ReportDebug(report_pipeline_state, StateExporting, table.Len())
	exportOpts := p.opts.Export
	exportOpts.Date = res.Date
	files, err := export.Export(ctx, table, exportOpts, p.tel)
	res.Files = files
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	res.Status = runlog.StatusSuccess
	res.Records = table.Len()
	return nil
}

func (p *Pipeline) finish(ctx context.Context, res Result) {
	entry := runlog.NewEntry(res.Timestamp, res.Date, res.Status, res.Records, res.Err)
	err := p.opts.History.Append(entry)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_history, err, p.opts.History.Path())
	}

	slog.Info(
		"harvest finished",
		"status", res.Status,
		"records", res.Records,
		"files", len(res.Files),
	)

	p.upload(ctx, res)
	p.notify(ctx, res)
}

func (p *Pipeline) upload(ctx context.Context, res Result) {
	if p.opts.Uploader == nil {
		return
	}
	for _, file := range res.Files {
		key := objectstore.Key(p.opts.UploadPrefix, res.Date, file)
		err := p.opts.Uploader.Upload(ctx, key, file)
		if err != nil {
			p.tel.ReportWarning(report_pipeline_upload, err, file)
			continue
		}
		p.tel.ReportDebug(report_pipeline_upload, key)
	}
}

func (p *Pipeline) notify(ctx context.Context, res Result) {
	if p.opts.Notifier == nil || !slices.Contains(p.opts.NotifyOn, res.Status) {
		return
	}
	subject, body := Summary(res)
	err := p.opts.Notifier.Notify(ctx, subject, body)
	if err != nil {
		p.tel.ReportWarning(report_pipeline_notify, err, res.Status)
	}
}

// Summary renders the subject and plain text body describing a run.
func Summary(res Result) (string, string) {
	subject := fmt.Sprintf("jobharvest %s: %s", res.Date, res.Status)

	var body strings.Builder
	fmt.Fprintf(&body, "status: %s\n", res.Status)
	fmt.Fprintf(&body, "started: %s\n", res.Timestamp)
	fmt.Fprintf(&body, "records scraped: %d\n", res.Records)
	if len(res.Files) > 0 {
		body.WriteString("files:\n")
		for _, file := range res.Files {
			fmt.Fprintf(&body, "  - %s\n", filepath.Base(file))
		}
	}
	if res.Err != nil {
		fmt.Fprintf(&body, "error: %s\n", res.Err)
	}
	return subject, body.String()
}
