package timing

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"timing-notion-sync/internal/apierror"
	"timing-notion-sync/internal/domain"
	"timing-notion-sync/internal/ports"
)

// DefaultBaseURL is the Timing web API root.
const DefaultBaseURL = "https://web.timingapp.com/api/v1"

// rangeLayout always renders a numeric offset, never "Z".
const rangeLayout = "2006-01-02T15:04:05-07:00"

// Client implements ports.TimingClient using the Timing web API v1.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	log      *slog.Logger
}

func NewClient(baseURL, apiToken string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// ListProjects fetches all projects visible to the token.
// GET /projects
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var body struct {
		Data []rawProject `json:"data"`
	}
	if err := c.get(ctx, "list projects", "/projects", nil, &body); err != nil {
		return nil, err
	}
	out := make([]domain.Project, 0, len(body.Data))
	for _, p := range body.Data {
		id := p.Self[strings.LastIndex(p.Self, "/")+1:]
		if id == "" {
			continue
		}
		title := p.Title
		if title == "" {
			title = "Unknown"
		}
		out = append(out, domain.Project{ID: id, Title: title})
	}
	return out, nil
}

// Report fetches report rows whose start lies in [from, to], grouped at every
// project depth and with project data inlined.
// GET /report?start_date_min=...&start_date_max=...
func (c *Client) Report(ctx context.Context, from, to time.Time) ([]domain.TimeEntry, error) {
	q := url.Values{}
	q.Set("start_date_min", from.Format(rangeLayout))
	q.Set("start_date_max", to.Format(rangeLayout))
	q.Set("project_grouping_level", "-1")
	q.Set("include_project_data", "true")

	var body struct {
		Data *[]rawEntry `json:"data"`
	}
	if err := c.get(ctx, "report", "/report", q, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, ports.ErrNoData
	}
	out := make([]domain.TimeEntry, 0, len(*body.Data))
	for _, r := range *body.Data {
		out = append(out, domain.TimeEntry{
			Project:     domain.ParseProjectRef(r.Project),
			DurationSec: r.Duration,
			Title:       r.Title,
		})
	}
	c.log.Debug("timing report fetched", slog.Int("count", len(out)))
	return out, nil
}

func (c *Client) get(ctx context.Context, op, path string, q url.Values, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return errors.WithStack(err)
	}
	if q != nil {
		u.RawQuery = q.Encode()
	}
	apiErr := &apierror.Error{Service: "timing", Op: op, Method: http.MethodGet, URL: u.String()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		apiErr.Err = err
		return errors.WithStack(apiErr)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		apiErr.Err = err
		c.log.Error("timing request failed", slog.String("url", apiErr.URL), slog.String("error", err.Error()))
		return errors.WithStack(apiErr)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr.StatusCode = resp.StatusCode
		apiErr.Body = string(body)
		c.log.Error("timing request failed", slog.String("url", apiErr.URL), slog.Int("status", resp.StatusCode))
		return errors.WithStack(apiErr)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		apiErr.StatusCode = resp.StatusCode
		apiErr.Err = errors.Wrap(err, "decode response")
		return errors.WithStack(apiErr)
	}
	return nil
}

// rawEntry mirrors one row of the Timing report JSON.
type rawEntry struct {
	Project  json.RawMessage `json:"project"`
	Duration float64         `json:"duration"`
	Title    string          `json:"title"`
}

type rawProject struct {
	Self  string `json:"self"`
	Title string `json:"title"`
}
