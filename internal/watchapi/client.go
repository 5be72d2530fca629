// SPDX-License-Identifier: MIT

// Package watchapi fetches the remote airing schedule, one calendar day per
// request, from the provider's GraphQL watch endpoint.
package watchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chasut/eplustv-ah4c/internal/config"
	"github.com/chasut/eplustv-ah4c/internal/log"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// airingsQuery selects the schedule fields the normalizer consumes. The
// upstream schema carries far more; keeping the selection narrow keeps
// responses small.
const airingsQuery = `query Airings($countryCode: String!, $deviceType: DeviceType!, $tz: String!, $day: String!, $limit: Int!) {
  airings(countryCode: $countryCode, deviceType: $deviceType, tz: $tz, day: $day, limit: $limit) {
    id
    airingId
    simulcastAiringId
    name
    shortName
    type
    startDateTime
    endDateTime
    sport { name abbreviation }
    league { name abbreviation }
    network { name shortName }
    packages { name }
  }
}`

const (
	requestTimeout = 20 * time.Second
	airingsLimit   = 500
)

// Airing is one raw schedule row as returned by the API. Fields mirror the
// upstream names; normalization into a store.Event happens in ingest.
type Airing struct {
	ID                string
	AiringID          string
	SimulcastAiringID string
	Name              string
	ShortName         string
	Type              string
	Start             string
	Stop              string
	SportName         string
	LeagueName        string
	LeagueAbbrev      string
	NetworkName       string
	NetworkShort      string
	Packages          []string
}

// Client talks to the watch GraphQL endpoint with retries and client-side
// request pacing.
type Client struct {
	base      string
	key       string
	features  string
	region    string
	tz        string
	device    string
	userAgent string

	http    *retryablehttp.Client
	limiter *rate.Limiter
}

// New builds a client from API configuration. rps bounds outbound request
// rate; userAgent identifies this service to the upstream.
func New(cfg config.APIConfig, rps float64, userAgent string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 4
	rc.RetryWaitMin = time.Second
	rc.RetryWaitMax = 10 * time.Second
	rc.HTTPClient.Timeout = requestTimeout
	rc.Logger = &retryLogger{logger: log.WithComponent("watchapi")}

	if rps <= 0 {
		rps = 2
	}

	return &Client{
		base:      strings.TrimRight(cfg.Base, "/"),
		key:       cfg.Key,
		features:  cfg.Features,
		region:    cfg.Region,
		tz:        cfg.TZ,
		device:    cfg.Device,
		userAgent: userAgent,
		http:      rc,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// endpoint returns the request URL with the key (and optional feature flags)
// in the query string.
func (c *Client) endpoint() string {
	q := url.Values{}
	q.Set("apiKey", c.key)
	if c.features != "" {
		q.Set("features", c.features)
	}
	return c.base + "?" + q.Encode()
}

// Airings fetches the schedule for one calendar day (format 2006-01-02, in
// the configured query timezone).
func (c *Client) Airings(ctx context.Context, day string) ([]Airing, error) {
	if c.key == "" {
		return nil, ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"query": airingsQuery,
		"variables": map[string]any{
			"countryCode": c.region,
			"deviceType":  c.device,
			"tz":          c.tz,
			"day":         day,
			"limit":       airingsLimit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal airings query: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build airings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("airings request for %s: %w", day, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read airings response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, &APIError{Op: "airings " + day, Status: res.StatusCode, Body: bodyPrefix(body)}
	}
	if errs := gjson.GetBytes(body, "errors"); errs.Exists() && len(errs.Array()) > 0 {
		return nil, &APIError{Op: "airings " + day, Body: bodyPrefix([]byte(errs.Raw))}
	}

	return parseAirings(body), nil
}

// parseAirings extracts airing rows from the response. The upstream nests
// nullable objects several levels deep; gjson keeps the extraction tolerant
// of absent branches.
func parseAirings(body []byte) []Airing {
	rows := gjson.GetBytes(body, "data.airings")
	if !rows.Exists() {
		return nil
	}

	out := make([]Airing, 0, len(rows.Array()))
	rows.ForEach(func(_, row gjson.Result) bool {
		a := Airing{
			ID:                row.Get("id").String(),
			AiringID:          row.Get("airingId").String(),
			SimulcastAiringID: row.Get("simulcastAiringId").String(),
			Name:              row.Get("name").String(),
			ShortName:         row.Get("shortName").String(),
			Type:              row.Get("type").String(),
			Start:             row.Get("startDateTime").String(),
			Stop:              row.Get("endDateTime").String(),
			SportName:         row.Get("sport.name").String(),
			LeagueName:        row.Get("league.name").String(),
			LeagueAbbrev:      row.Get("league.abbreviation").String(),
			NetworkName:       row.Get("network.name").String(),
			NetworkShort:      row.Get("network.shortName").String(),
		}
		row.Get("packages.#.name").ForEach(func(_, pkg gjson.Result) bool {
			a.Packages = append(a.Packages, pkg.String())
			return true
		})
		out = append(out, a)
		return true
	})
	return out
}

// retryLogger adapts zerolog to retryablehttp's LeveledLogger.
type retryLogger struct {
	logger zerolog.Logger
}

func (l *retryLogger) Error(msg string, kv ...any) { l.emit(l.logger.Error(), msg, kv) }
func (l *retryLogger) Warn(msg string, kv ...any)  { l.emit(l.logger.Warn(), msg, kv) }
func (l *retryLogger) Info(msg string, kv ...any)  { l.emit(l.logger.Debug(), msg, kv) }
func (l *retryLogger) Debug(msg string, kv ...any) { l.emit(l.logger.Debug(), msg, kv) }

func (l *retryLogger) emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
