// Package coverage fetches GeoTIFF coverages and capability listings from a
// WCS 2.0 endpoint.
package coverage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eapache/go-resiliency/retrier"

	"github.com/mohammed-shakir/soilgrids-stats/internal/core/observability"
	"github.com/mohammed-shakir/soilgrids-stats/internal/core/ogc"
)

// Request names one GetCoverage call.
type Request struct {
	Product    string
	CoverageID string
	Subsets    []ogc.Subset
	CRS        string
}

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Retries  int
	Backoff  time.Duration
	Jitter   float64
	MaxBytes int64
	// Upstream labels latency metrics.
	Upstream string
}

type Client struct {
	logger   *slog.Logger
	client   *http.Client
	base     *url.URL
	opts     Options
	retry    *retrier.Retrier
	startNow func() time.Time // for tests
}

func New(logger *slog.Logger, client *http.Client, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse coverage url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("coverage url %q is not absolute", opts.BaseURL)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 250 * time.Millisecond
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 64 << 20
	}
	if opts.Upstream == "" {
		opts.Upstream = u.Host
	}

	r := retrier.New(retrier.ExponentialBackoff(max(opts.Retries, 0), opts.Backoff), classifier{})
	r.SetJitter(opts.Jitter)

	return &Client{
		logger:   logger,
		client:   client,
		base:     u,
		opts:     opts,
		retry:    r,
		startNow: time.Now,
	}, nil
}

// GetCoverage downloads one coverage subset. The body is guaranteed to start
// with a TIFF signature.
func (c *Client) GetCoverage(ctx context.Context, q Request) ([]byte, error) {
	params := ogc.BuildGetCoverageParams(ogc.GetCoverageRequest{
		MapRoute:   ogc.MapRoute(q.Product),
		CoverageID: q.CoverageID,
		Subsets:    q.Subsets,
		Format:     ogc.FormatGeoTIFF,
		CRS:        q.CRS,
	})
	c.logger.DebugContext(ctx, "wcs GetCoverage",
		"coverage", q.CoverageID,
		"subsets", fmt.Sprint(q.Subsets))

	body, err := c.do(ctx, params)
	if err != nil {
		return nil, err
	}
	if !isTIFF(body) {
		return nil, &FetchError{Message: fmt.Sprintf("response is not a GeoTIFF (%d bytes)", len(body))}
	}
	return body, nil
}

// ListCoverages returns the coverage ids a product's map advertises.
func (c *Client) ListCoverages(ctx context.Context, product string) ([]string, error) {
	body, err := c.do(ctx, ogc.BuildGetCapabilitiesParams(ogc.MapRoute(product)))
	if err != nil {
		return nil, err
	}
	ids, err := ogc.ParseCapabilities(body)
	if err != nil {
		var rep *ogc.ExceptionReport
		if errors.As(err, &rep) {
			return nil, &FetchError{Code: rep.Code(), Message: rep.Error()}
		}
		return nil, &FetchError{Message: "capabilities", Err: err}
	}
	return ids, nil
}

func (c *Client) do(ctx context.Context, params url.Values) ([]byte, error) {
	endpoint := ogc.Endpoint(c.base, params)

	var body []byte
	attempt := 0
	err := c.retry.RunCtx(ctx, func(ctx context.Context) error {
		attempt++
		b, err := c.attempt(ctx, endpoint)
		if err != nil {
			outcome := "permanent"
			if isTemporary(err) {
				outcome = "temporary"
			}
			observability.IncCoverageAttempt(outcome)
			c.logger.WarnContext(ctx, "wcs attempt failed",
				"attempt", attempt,
				"outcome", outcome,
				"err", err)
			return err
		}
		observability.IncCoverageAttempt("ok")
		body = b
		return nil
	})
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Message: "request aborted", Err: err}
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) attempt(ctx context.Context, endpoint string) ([]byte, error) {
	actx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "image/tiff, application/xml;q=0.5")

	start := c.startNow()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Message: "do request", Temporary: ctx.Err() == nil, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBytes+1))
	observability.ObserveUpstreamLatency(c.opts.Upstream, time.Since(start).Seconds())
	if err != nil {
		return nil, &FetchError{Status: resp.StatusCode, Message: "read body", Temporary: ctx.Err() == nil, Err: err}
	}
	if int64(len(body)) > c.opts.MaxBytes {
		return nil, &FetchError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("response exceeds %d bytes", c.opts.MaxBytes),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fe := &FetchError{
			Status:    resp.StatusCode,
			Message:   upstreamMessage(body),
			Temporary: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
		if rep := exceptionReport(body); rep != nil {
			fe.Code = rep.Code()
		}
		return nil, fe
	}
	if rep := exceptionReport(body); rep != nil {
		return nil, &FetchError{Status: resp.StatusCode, Code: rep.Code(), Message: rep.Error()}
	}
	return body, nil
}

func exceptionReport(body []byte) *ogc.ExceptionReport {
	if !ogc.LooksLikeXML(body) {
		return nil
	}
	rep, err := ogc.ParseExceptionReport(body)
	if err != nil || len(rep.Exceptions) == 0 {
		return nil
	}
	return rep
}

func upstreamMessage(body []byte) string {
	if rep := exceptionReport(body); rep != nil {
		return rep.Error()
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}

func isTIFF(b []byte) bool {
	return bytes.HasPrefix(b, []byte("II*\x00")) || bytes.HasPrefix(b, []byte("MM\x00*"))
}
