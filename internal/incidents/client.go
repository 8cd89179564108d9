// Package incidents fetches PagerDuty incidents and correlates them to
// tenant namespaces. Incident data is an enrichment signal: when the
// fetch fails, assessments proceed on workload data alone.
package incidents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kubehealth/kubehealth-agent/internal/transport"
)

const (
	defaultBaseURL = "https://api.pagerduty.com"

	// pageLimit is PagerDuty's maximum page size.
	pageLimit = 100

	// maxPages bounds pagination so a runaway window cannot stall a run.
	maxPages = 20
)

// RawIncident is a PagerDuty incident as returned by the REST API,
// before any correlation.
type RawIncident struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Status             string     `json:"status"`
	Urgency            string     `json:"urgency"`
	CreatedAt          *time.Time `json:"created_at"`
	LastStatusChangeAt *time.Time `json:"last_status_change_at"`
	HTMLURL            string     `json:"html_url"`
	Service            struct {
		ID      string `json:"id"`
		Summary string `json:"summary"`
	} `json:"service"`
}

type incidentsPage struct {
	Incidents []RawIncident `json:"incidents"`
	More      bool          `json:"more"`
}

// Client fetches incidents from the PagerDuty REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serviceIDs []string
	logger     *slog.Logger
}

// ClientOptions configures a PagerDuty client.
type ClientOptions struct {
	// Token is the REST API token, sent as "Token token=...".
	Token string

	// ServiceIDs optionally narrows the query to specific services.
	ServiceIDs []string

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string

	Timeout    time.Duration
	MaxRetries int
	Logger     *slog.Logger
}

// NewClient creates a PagerDuty client with auth, logging and retry
// middleware applied.
func NewClient(opts ClientOptions) *Client {
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rt := transport.WithAuthHeader("Token token="+opts.Token, base)
	rt = transport.WithRetry(opts.MaxRetries, rt)
	rt = transport.WithLogging(logger.With("component", "pagerduty"), rt)

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: rt},
		baseURL:    baseURL,
		serviceIDs: opts.ServiceIDs,
		logger:     logger,
	}
}

// FetchWindow returns all incidents created or updated inside
// [since, until], paginating until the API reports no more pages.
// Triggered, acknowledged and resolved incidents are all included;
// correlation decides what counts as active.
func (c *Client) FetchWindow(ctx context.Context, since, until time.Time) ([]RawIncident, error) {
	var all []RawIncident

	for page := 0; page < maxPages; page++ {
		batch, more, err := c.fetchPage(ctx, since, until, page*pageLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if !more {
			return all, nil
		}
	}

	c.logger.Warn("incident pagination truncated",
		"pages", maxPages,
		"fetched", len(all),
	)
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, since, until time.Time, offset int) ([]RawIncident, bool, error) {
	q := url.Values{}
	q.Set("since", since.UTC().Format(time.RFC3339))
	q.Set("until", until.UTC().Format(time.RFC3339))
	q.Set("limit", strconv.Itoa(pageLimit))
	q.Set("offset", strconv.Itoa(offset))
	for _, status := range []string{"triggered", "acknowledged", "resolved"} {
		q.Add("statuses[]", status)
	}
	for _, id := range c.serviceIDs {
		q.Add("service_ids[]", id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/incidents?"+q.Encode(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("incidents: building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.pagerduty+json;version=2")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("incidents: request failed: %w", err)
	}
	defer transport.DrainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		var page incidentsPage
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return nil, false, fmt.Errorf("incidents: decoding response: %w", err)
		}
		return page.Incidents, page.More, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("incidents: authentication failed (HTTP %d)", resp.StatusCode)

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, false, fmt.Errorf("incidents: rate limited (HTTP 429)")

	default:
		return nil, false, fmt.Errorf("incidents: unexpected status (HTTP %d)", resp.StatusCode)
	}
}
