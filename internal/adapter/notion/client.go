package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"timing-notion-sync/internal/apierror"
	"timing-notion-sync/internal/domain"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"

	// lastSyncLayout keeps the numeric offset of the configured zone.
	lastSyncLayout = "2006-01-02T15:04:05-07:00"
)

// Client implements ports.RecordStore against a Notion database whose
// columns are Date, Project (title), Duration, Hours and Last Sync.
type Client struct {
	baseURL    string
	token      string
	databaseID string
	version    string
	http       *http.Client
	cb         *gobreaker.CircuitBreaker
	log        *slog.Logger
}

// Options tunes the client; zero values fall back to the defaults.
type Options struct {
	BaseURL string
	Version string
	// TripAfter is the number of consecutive failures that opens the breaker.
	TripAfter uint32
}

func NewClient(token, databaseID string, opts Options, log *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.TripAfter == 0 {
		opts.TripAfter = 3
	}
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		token:      token,
		databaseID: databaseID,
		version:    opts.Version,
		http:       &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
	// Consecutive transport failures open the breaker; later calls in the run
	// fail fast. Any HTTP response, 4xx and 5xx included, counts as a success.
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "notion",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.TripAfter
		},
		IsSuccessful: reachedNotion,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return c
}

// FindRecord queries the database for a page whose Date and Project equal
// date and project exactly.
func (c *Client) FindRecord(ctx context.Context, date, project string) (string, bool, error) {
	body := map[string]any{
		"filter": map[string]any{
			"and": []any{
				map[string]any{"property": "Date", "date": map[string]any{"equals": date}},
				map[string]any{"property": "Project", "title": map[string]any{"equals": project}},
			},
		},
	}
	var out struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := c.do(ctx, "query database", http.MethodPost, "/databases/"+c.databaseID+"/query", body, &out); err != nil {
		return "", false, err
	}
	if len(out.Results) == 0 {
		return "", false, nil
	}
	return out.Results[0].ID, true, nil
}

// CreateRecord adds a page to the database.
func (c *Client) CreateRecord(ctx context.Context, rec domain.Record) error {
	body := map[string]any{
		"parent":     map[string]any{"database_id": c.databaseID},
		"properties": properties(rec),
	}
	return c.do(ctx, "create page", http.MethodPost, "/pages", body, nil)
}

// UpdateRecord overwrites the properties of an existing page.
func (c *Client) UpdateRecord(ctx context.Context, id string, rec domain.Record) error {
	body := map[string]any{"properties": properties(rec)}
	return c.do(ctx, "update page", http.MethodPatch, "/pages/"+id, body, nil)
}

func properties(rec domain.Record) map[string]any {
	return map[string]any{
		"Date":      map[string]any{"date": map[string]any{"start": rec.Date}},
		"Project":   map[string]any{"title": []any{textItem(rec.Project)}},
		"Duration":  map[string]any{"rich_text": []any{textItem(rec.Duration)}},
		"Hours":     map[string]any{"number": rec.Hours},
		"Last Sync": map[string]any{"date": map[string]any{"start": rec.LastSync.Format(lastSyncLayout)}},
	}
}

func textItem(s string) map[string]any {
	return map[string]any{"text": map[string]any{"content": s}}
}

// reachedNotion reports whether err left Notion reachable: no error, or an
// error that carries an HTTP status.
func reachedNotion(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *apierror.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode != 0
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.send(ctx, op, method, path, in, out)
	})
	if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		return errors.Wrapf(err, "notion: %s", op)
	}
	return err
}

func (c *Client) send(ctx context.Context, op, method, path string, in, out any) error {
	url := c.baseURL + path
	apiErr := &apierror.Error{Service: "notion", Op: op, Method: method, URL: url}

	payload, err := json.Marshal(in)
	if err != nil {
		apiErr.Err = err
		return errors.WithStack(apiErr)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		apiErr.Err = err
		return errors.WithStack(apiErr)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		apiErr.Err = err
		c.log.Error("notion request failed", slog.String("op", op), slog.String("url", url), slog.String("error", err.Error()))
		return errors.WithStack(apiErr)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr.StatusCode = resp.StatusCode
		apiErr.Body = string(b)
		c.log.Error("notion request failed", slog.String("op", op), slog.String("url", url), slog.Int("status", resp.StatusCode))
		return errors.WithStack(apiErr)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		apiErr.StatusCode = resp.StatusCode
		apiErr.Err = errors.Wrap(err, "decode response")
		return errors.WithStack(apiErr)
	}
	return nil
}
