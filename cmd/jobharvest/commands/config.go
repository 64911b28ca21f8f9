package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
	"jobharvest/internal/application/harvest"
	"jobharvest/internal/export"
	"jobharvest/lib/configutil"
	"jobharvest/lib/notify"
	"jobharvest/lib/objectstore"
	"jobharvest/lib/runlog"
)

type UploadConfig struct {
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Region    string `json:"region"`
	Profile   string `json:"profile"`
	Endpoint  string `json:"endpoint"`
	PathStyle bool   `json:"path_style"`
}

type NotifyConfig struct {
	notify.SmtpConfig
	On []runlog.Status `json:"on"`
}

type Config struct {
	BaseUrl          string            `json:"base_url"`
	FilePrefix       string            `json:"file_prefix"`
	OutputFolder     string            `json:"output_folder"`
	LogFolder        string            `json:"log_folder"`
	Timezone         string            `json:"timezone"`
	PageSize         int               `json:"page_size"`
	MaxOffset        int               `json:"max_offset"`
	TimeoutSeconds   int               `json:"timeout_seconds"`
	DedupField       string            `json:"dedup_field"`
	PathField        string            `json:"path_field"`
	Formats          []string          `json:"formats"`
	Headers          map[string]string `json:"headers"`
	Cookies          map[string]string `json:"cookies"`
	CloudflareBypass bool              `json:"cloudflare_bypass"`
	Columns          []harvest.Column  `json:"columns"`
	Upload           UploadConfig      `json:"upload"`
	Notify           NotifyConfig      `json:"notify"`
	Schedule         string            `json:"schedule"`
}

const defaultSchedule = "0 6 * * 1,4"

func (c Config) withDefaults() Config {
	if c.FilePrefix == "" {
		c.FilePrefix = "Jobs"
	}
	if c.OutputFolder == "" {
		c.OutputFolder = "output"
	}
	if c.LogFolder == "" {
		c.LogFolder = "logs"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Kolkata"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.Schedule == "" {
		c.Schedule = defaultSchedule
	}
	return c
}

func readConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg = cfg.withDefaults()
	if cfg.BaseUrl == "" {
		return Config{}, fmt.Errorf("read config: base_url is required")
	}
	return cfg, nil
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) historyLog() runlog.Log {
	return runlog.NewLog(filepath.Join(c.LogFolder, "run_history.json"))
}

func (c Config) harvestOptions() harvest.Options {
	return harvest.Options{
		PageSize:   c.PageSize,
		MaxOffset:  c.MaxOffset,
		DedupField: c.DedupField,
		PathField:  c.PathField,
		Columns:    c.Columns,
	}.WithDefaults()
}

// pipelineOptions resolves everything in the config except the source.
func (c Config) pipelineOptions(ctx context.Context) (harvest.PipelineOptions, error) {
	formats, err := export.ParseFormats(c.Formats)
	if err != nil {
		return harvest.PipelineOptions{}, err
	}

	opts := harvest.PipelineOptions{
		Harvest: c.harvestOptions(),
		Export: export.Options{
			Folder:  c.OutputFolder,
			Prefix:  c.FilePrefix,
			Formats: formats,
		},
		History:      c.historyLog(),
		UploadPrefix: c.Upload.Prefix,
		NotifyOn:     c.Notify.On,
	}

	if c.Upload.Bucket != "" {
		bucket, err := objectstore.NewBucket(ctx, c.Upload.Bucket, objectstore.S3Config{
			Region:       c.Upload.Region,
			Profile:      c.Upload.Profile,
			Endpoint:     c.Upload.Endpoint,
			UsePathStyle: c.Upload.PathStyle,
		})
		if err != nil {
			return harvest.PipelineOptions{}, err
		}
		opts.Uploader = bucket
	}
	if c.Notify.Enabled() {
		opts.Notifier = notify.NewMailer(c.Notify.SmtpConfig)
	}

	return opts, nil
}
