// client.go contains everything needed to talk to a Workday "cxs" recruiting site,
// it does not know how the postings are merged or exported.

package workday

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
	"jobharvest/internal/components/assert"
	"jobharvest/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const (
	report_client_list_jobs = "client.list-jobs"
	report_client_get_job   = "client.get-job"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

type ClientOptions struct {
	// BaseUrl is the site root, ex. https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/Careers
	BaseUrl string
	// Headers and Cookies identify the session, values may reference
	// environment variables with ${NAME}.
	Headers map[string]string
	Cookies map[string]string
	// Timeout applies to every request, defaults to 30 seconds.
	Timeout time.Duration
	// CloudflareBypass wraps the transport with browser-like TLS and headers.
	CloudflareBypass bool
	// Output receives a dump of every http exchange when non-nil.
	Output telemetry.InstrumentOutput
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.BaseUrl)

	tel = telemetry.NewScopedAPI("workday_scraper", tel)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	httpClient.SetTimeout(timeout)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("accept", "application/json")
	httpClient.SetHeader("accept-language", "en-US")
	httpClient.SetHeader("user-agent", defaultUserAgent)
	for k, v := range opts.Headers {
		httpClient.SetHeader(k, os.ExpandEnv(v))
	}
	for name, value := range opts.Cookies {
		httpClient.SetCookie(&http.Cookie{
			Name:  name,
			Value: os.ExpandEnv(value),
		})
	}

	telemetry.InstrumentResty(httpClient, tel, "jobharvest.workday", opts.Output)

	return &Client{http: httpClient, tel: tel}, nil
}

// ListJobs requests one page of the job search, `offset` counts postings, not pages.
func (c *Client) ListJobs(ctx context.Context, offset, limit int) (SearchResponse, error) {
	req := SearchRequest{
		AppliedFacets: map[string]any{},
		Limit:         limit,
		Offset:        offset,
		SearchText:    "",
	}
	c.tel.ReportDebug(report_client_list_jobs, offset, limit)

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(req).
		Post("/jobs")
	if err != nil {
		c.tel.ReportBroken(
			report_client_list_jobs,
			fmt.Errorf("fetch: %w", err),
			offset,
		)
		return SearchResponse{}, err
	}
	if res.IsError() {
		err = fmt.Errorf("unexpected status: %s", res.Status())
		c.tel.ReportBroken(report_client_list_jobs, err, offset)
		return SearchResponse{}, err
	}

	var parsed SearchResponse
	err = json.Unmarshal(res.Body(), &parsed)
	if err != nil {
		c.tel.ReportBroken(
			report_client_list_jobs,
			fmt.Errorf("unmarshal json: %w", err),
			offset,
		)
		return SearchResponse{}, err
	}

	return parsed, nil
}

// GetJob requests the detail document of a posting, `path` is the posting's
// externalPath (ex. /job/New-York-NY/Analyst_R0001).
func (c *Client) GetJob(ctx context.Context, path string) (map[string]any, error) {
	c.tel.ReportDebug(report_client_get_job, path)

	res, err := c.http.R().
		SetContext(ctx).
		Get(path)
	if err != nil {
		c.tel.ReportBroken(
			report_client_get_job,
			fmt.Errorf("fetch: %w", err),
			path,
		)
		return nil, err
	}
	if res.IsError() {
		err = fmt.Errorf("unexpected status: %s", res.Status())
		c.tel.ReportBroken(report_client_get_job, err, path)
		return nil, err
	}

	var parsed map[string]any
	err = json.Unmarshal(res.Body(), &parsed)
	if err != nil {
		c.tel.ReportBroken(
			report_client_get_job,
			fmt.Errorf("unmarshal json: %w", err),
			path,
		)
		return nil, err
	}

	return parsed, nil
}
