// Package harvest turns a recruiting site's search and detail endpoints into
// one normalized table: it pages through listings, fetches every posting's
// detail document and merges the two.
package harvest

import (
	"context"
	"jobharvest/internal/components/telemetry"
	"jobharvest/internal/frame"
	"jobharvest/internal/scrapers/workday"
)

const (
	report_collector_page      = "collector.page"
	report_collector_truncated = "collector.truncated"
	report_collector_listings  = "collector.listings"
	report_collector_unique    = "collector.unique-listings"
	report_details_fetch       = "details.fetch"
	report_details_missing     = "details.missing-path"
	report_details_fetched     = "details.fetched"
)

// JoinKey is the field a detail record stores its posting path under.
const JoinKey = "perma"

// Source is the recruiting API as the harvest sees it, *workday.Client
// implements it.
type Source interface {
	ListJobs(ctx context.Context, offset, limit int) (workday.SearchResponse, error)
	GetJob(ctx context.Context, path string) (map[string]any, error)
}

// Column maps one flattened source key to an output column.
type Column struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	// HTML marks free text whose markup is stripped before export.
	HTML bool `json:"html"`
}

// DefaultColumns is the output mapping used when none is configured.
var DefaultColumns = []Column{
	{Source: "jobPostingInfo.title", Name: "Job Title"},
	{Source: "jobPostingInfo.jobDescription", Name: "Job Description", HTML: true},
	{Source: "jobPostingInfo.location", Name: "Location"},
	{Source: "jobPostingInfo.additionalLocations", Name: "Additional Locations"},
	{Source: "jobPostingInfo.startDate", Name: "Start Date"},
	{Source: "jobPostingInfo.jobReqId", Name: "Job ID"},
	{Source: "jobPostingInfo.remoteType", Name: "Remote Type"},
	{Source: "jobPostingInfo.externalUrl", Name: "Application URL"},
}

// Options controls paging, deduplication and the output columns of a harvest.
type Options struct {
	// PageSize is the number of listings requested per page.
	PageSize int
	// MaxOffset is the exclusive upper bound of the page offset.
	MaxOffset int
	// DedupField identifies duplicate listings, ex. bulletFields.
	DedupField string
	// PathField holds the posting path of a listing, ex. externalPath.
	PathField string
	Columns   []Column
}

// WithDefaults fills every zero field.
func (o Options) WithDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 20
	}
	if o.MaxOffset <= 0 {
		o.MaxOffset = 500
	}
	if o.DedupField == "" {
		o.DedupField = "bulletFields"
	}
	if o.PathField == "" {
		o.PathField = "externalPath"
	}
	if len(o.Columns) == 0 {
		o.Columns = DefaultColumns
	}
	return o
}

// CollectListings requests pages at offsets 0, PageSize, 2*PageSize, ... below
// MaxOffset and stops at the first page without postings. A page that fails
// ends pagination like an empty page would. The listings are
// returned in order with duplicates by DedupField dropped.
//
// The only error returned is the context's.
func CollectListings(ctx context.Context, src Source, opts Options, tel telemetry.API) ([]frame.Record, error) {
	opts = opts.WithDefaults()

	var listings []frame.Record
	total := 0
	lastFull := false
	reachedBound := true
	for offset := 0; offset < opts.MaxOffset; offset += opts.PageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := src.ListJobs(ctx, offset, opts.PageSize)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// the source reports its own breakage
			tel.ReportDebug(report_collector_page, err, offset)
			reachedBound = false
			break
		}
		if len(page.JobPostings) == 0 {
			reachedBound = false
			break
		}

		for _, posting := range page.JobPostings {
			listings = append(listings, frame.Flatten(posting))
		}
		if page.Total > total {
			total = page.Total
		}
		lastFull = len(page.JobPostings) >= opts.PageSize
	}

	if (reachedBound && lastFull) || total > len(listings) {
		tel.ReportWarning(report_collector_truncated, opts.MaxOffset, total, len(listings))
	}
	tel.ReportCount(report_collector_listings, int64(len(listings)))

	unique := frame.DropDuplicates(listings, opts.DedupField)
	tel.ReportCount(report_collector_unique, int64(len(unique)))
	return unique, nil
}

// FetchDetails requests the detail document of every distinct listing path,
// one at a time and in listing order. Each detail is flattened and tagged
// with its path under JoinKey. A failed fetch leaves that path without a
// detail record.
//
// The only error returned is the context's.
func FetchDetails(ctx context.Context, src Source, listings []frame.Record, pathField string, tel telemetry.API) ([]frame.Record, error) {
	seen := make(map[string]struct{}, len(listings))
	var details []frame.Record
	for _, listing := range listings {
		path, ok := listing[pathField].(string)
		if !ok || path == "" {
			tel.ReportWarning(report_details_missing, pathField, listing)
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := src.GetJob(ctx, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			tel.ReportDebug(report_details_fetch, err, path)
			continue
		}

		record := frame.Flatten(doc)
		record[JoinKey] = path
		details = append(details, record)
	}

	tel.ReportCount(report_details_fetched, int64(len(details)))
	return details, nil
}
