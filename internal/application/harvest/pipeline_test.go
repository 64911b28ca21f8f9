package harvest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"jobharvest/internal/components/chrono"
	"jobharvest/internal/components/telemetry"
	"jobharvest/internal/export"
	"jobharvest/lib/runlog"

	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	keys []string
	err  error
}

func (f *fakeUploader) Upload(ctx context.Context, key, localPath string) error {
	f.keys = append(f.keys, key)
	return f.err
}

type fakeNotifier struct {
	subjects []string
	bodies   []string
}

func (f *fakeNotifier) Notify(ctx context.Context, subject, body string) error {
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

type env struct {
	output   string
	history  runlog.Log
	uploader *fakeUploader
	notifier *fakeNotifier
	rec      *telemetry.Recorder
}

func newPipeline(t *testing.T, src Source, formats []export.Format) (*Pipeline, env) {
	dir := t.TempDir()
	e := env{
		output:   filepath.Join(dir, "output"),
		history:  runlog.NewLog(filepath.Join(dir, "logs", "run_history.json")),
		uploader: &fakeUploader{},
		notifier: &fakeNotifier{},
		rec:      &telemetry.Recorder{},
	}
	clock := chrono.FixedTime{Time: time.Date(2024, 3, 7, 9, 30, 0, 0, time.UTC)}

	p := NewPipeline(src, PipelineOptions{
		Export: export.Options{
			Folder:  e.output,
			Prefix:  "Acme_Jobs",
			Formats: formats,
		},
		History:      e.history,
		Uploader:     e.uploader,
		UploadPrefix: "exports",
		Notifier:     e.notifier,
		NotifyOn:     []runlog.Status{runlog.StatusError, runlog.StatusNoData},
	}, clock, e.rec)
	return p, e
}

func onePage(n int) *fakeSource {
	src := &fakeSource{details: map[string]map[string]any{}}
	var page []map[string]any
	for i := 0; i < n; i++ {
		page = append(page, posting(i))
		src.details[posting(i)["externalPath"].(string)] = detail(i)
	}
	src.pages = [][]map[string]any{page}
	src.total = n
	return src
}

func loadHistory(t *testing.T, log runlog.Log) []runlog.Entry {
	entries, err := log.Load()
	require.NoError(t, err)
	return entries
}

func TestRunSuccess(t *testing.T) {
	src := onePage(20)
	p, e := newPipeline(t, src, []export.Format{export.FormatCSV, export.FormatJSON})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, runlog.StatusSuccess, res.Status)
	require.Equal(t, 20, res.Records)
	require.Len(t, src.listCalls, 2)
	require.Len(t, src.getCalls, 20)
	require.Equal(t, []string{
		filepath.Join(e.output, "Acme_Jobs_2024-03-07.csv"),
		filepath.Join(e.output, "Acme_Jobs_2024-03-07.json"),
	}, res.Files)

	entries := loadHistory(t, e.history)
	require.Equal(t, []runlog.Entry{{
		Timestamp:      "2024-03-07_09-30-00",
		Date:           "2024-03-07",
		Status:         runlog.StatusSuccess,
		RecordsScraped: 20,
	}}, entries)

	require.Equal(t, []string{
		"exports/2024-03-07/Acme_Jobs_2024-03-07.csv",
		"exports/2024-03-07/Acme_Jobs_2024-03-07.json",
	}, e.uploader.keys)
	// success is not in NotifyOn
	require.Empty(t, e.notifier.subjects)
}

func TestRunNoData(t *testing.T) {
	src := &fakeSource{}
	p, e := newPipeline(t, src, nil)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, runlog.StatusNoData, res.Status)
	require.Empty(t, res.Files)
	require.Empty(t, src.getCalls)

	_, err = os.Stat(e.output)
	require.ErrorIs(t, err, os.ErrNotExist)

	entries := loadHistory(t, e.history)
	require.Len(t, entries, 1)
	require.Equal(t, runlog.StatusNoData, entries[0].Status)
	require.Equal(t, 0, entries[0].RecordsScraped)
	require.Nil(t, entries[0].Error)

	require.Equal(t, []string{"jobharvest 2024-03-07: no_data"}, e.notifier.subjects)
}

func TestRunDetailFailureStillSucceeds(t *testing.T) {
	src := onePage(3)
	src.failing = map[string]bool{"/job/R0001": true}
	p, e := newPipeline(t, src, []export.Format{export.FormatJSON})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, runlog.StatusSuccess, res.Status)
	require.Equal(t, 3, res.Records)
	require.Len(t, e.rec.Find("debug", report_details_fetch), 1)

	contents, err := os.ReadFile(res.Files[0])
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(string(contents), `"Scraped Date"`))
}

func TestRunExportError(t *testing.T) {
	src := onePage(2)
	p, e := newPipeline(t, src, []export.Format{export.FormatCSV, export.FormatJSON})

	require.NoError(t, os.MkdirAll(filepath.Join(e.output, "Acme_Jobs_2024-03-07.csv"), 0777))

	res, err := p.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, runlog.StatusError, res.Status)
	// the formats that did work are still uploaded
	require.Equal(t, []string{"exports/2024-03-07/Acme_Jobs_2024-03-07.json"}, e.uploader.keys)

	entries := loadHistory(t, e.history)
	require.Len(t, entries, 1)
	require.Equal(t, runlog.StatusError, entries[0].Status)
	require.NotNil(t, entries[0].Error)
	require.Contains(t, *entries[0].Error, "export csv")

	require.Len(t, e.notifier.bodies, 1)
	require.Contains(t, e.notifier.bodies[0], "error: export:")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, e := newPipeline(t, onePage(2), nil)
	res, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, runlog.StatusError, res.Status)
	require.Len(t, loadHistory(t, e.history), 1)
}

func TestRunPanicIsRecorded(t *testing.T) {
	src := onePage(2)
	src.panicOn = "/job/R0001"
	p, e := newPipeline(t, src, nil)

	require.PanicsWithValue(t, "detail decoder exploded", func() {
		p.Run(context.Background())
	})

	entries := loadHistory(t, e.history)
	require.Len(t, entries, 1)
	require.Equal(t, runlog.StatusError, entries[0].Status)
	require.Equal(t, "panic: detail decoder exploded", *entries[0].Error)
}

func TestRunAppendsHistory(t *testing.T) {
	p, e := newPipeline(t, onePage(1), []export.Format{export.FormatJSON})

	for i := 0; i < 3; i++ {
		_, err := p.Run(context.Background())
		require.NoError(t, err)
	}
	require.Len(t, loadHistory(t, e.history), 3)
}

func TestUploadFailureIsWarning(t *testing.T) {
	p, e := newPipeline(t, onePage(1), []export.Format{export.FormatJSON})
	e.uploader.err = errors.New("access denied")

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, runlog.StatusSuccess, res.Status)
	require.Len(t, e.rec.Find("warning", report_pipeline_upload), 1)
}

func TestSummary(t *testing.T) {
	subject, body := Summary(Result{
		Status:    runlog.StatusSuccess,
		Records:   2,
		Files:     []string{"output/a.csv"},
		Timestamp: "2024-03-07_09-30-00",
		Date:      "2024-03-07",
	})
	require.Equal(t, "jobharvest 2024-03-07: success", subject)
	require.Equal(t, "status: success\nstarted: 2024-03-07_09-30-00\nrecords scraped: 2\nfiles:\n  - a.csv\n", body)
}
