package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timing-notion-sync/internal/apierror"
	"timing-notion-sync/internal/domain"
)

// fakeDatabase is a minimal stand-in for the three Notion endpoints the
// client uses. Pages are matched on their Date and Project properties.
type fakeDatabase struct {
	t     *testing.T
	mu    sync.Mutex
	pages map[string]map[string]any
	calls []string
}

func newFakeDatabase(t *testing.T) *fakeDatabase {
	return &fakeDatabase{t: t, pages: map[string]map[string]any{}}
}

func (f *fakeDatabase) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	assert.Equal(f.t, "Bearer secret", r.Header.Get("Authorization"))
	assert.Equal(f.t, DefaultVersion, r.Header.Get("Notion-Version"))

	var body map[string]any
	if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body)) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/databases/db1/query":
		and := body["filter"].(map[string]any)["and"].([]any)
		date := and[0].(map[string]any)["date"].(map[string]any)["equals"].(string)
		project := and[1].(map[string]any)["title"].(map[string]any)["equals"].(string)
		results := []any{}
		for id, props := range f.pages {
			if pageDate(props) == date && pageTitle(props) == project {
				results = append(results, map[string]any{"id": id})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	case r.Method == http.MethodPost && r.URL.Path == "/pages":
		assert.Equal(f.t, "db1", body["parent"].(map[string]any)["database_id"])
		id := fmt.Sprintf("page-%d", len(f.pages)+1)
		f.pages[id] = body["properties"].(map[string]any)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/pages/"):
		id := strings.TrimPrefix(r.URL.Path, "/pages/")
		if _, ok := f.pages[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.pages[id] = body["properties"].(map[string]any)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func pageDate(props map[string]any) string {
	return props["Date"].(map[string]any)["date"].(map[string]any)["start"].(string)
}

func pageTitle(props map[string]any) string {
	title := props["Project"].(map[string]any)["title"].([]any)
	return title[0].(map[string]any)["text"].(map[string]any)["content"].(string)
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func upsert(t *testing.T, c *Client, rec domain.Record) {
	t.Helper()
	ctx := context.Background()
	id, found, err := c.FindRecord(ctx, rec.Date, rec.Project)
	require.NoError(t, err)
	if found {
		require.NoError(t, c.UpdateRecord(ctx, id, rec))
		return
	}
	require.NoError(t, c.CreateRecord(ctx, rec))
}

func TestClient_UpsertTwiceKeepsOnePage(t *testing.T) {
	db := newFakeDatabase(t)
	srv := httptest.NewServer(db)
	defer srv.Close()

	c := NewClient("secret", "db1", Options{BaseURL: srv.URL}, discardLogger())
	at := time.Date(2025, 7, 17, 13, 46, 5, 0, time.FixedZone("", -7*3600))
	rec := domain.Record{Date: "2025-07-17", Project: "Work > Dev", Duration: "1:02:05", Hours: 1.035, LastSync: at}

	upsert(t, c, rec)
	upsert(t, c, rec)

	require.Len(t, db.pages, 1)
	props := db.pages["page-1"]
	assert.Equal(t, 1.035, props["Hours"].(map[string]any)["number"])
	assert.Equal(t, "2025-07-17T13:46:05-07:00", props["Last Sync"].(map[string]any)["date"].(map[string]any)["start"])
	duration := props["Duration"].(map[string]any)["rich_text"].([]any)[0].(map[string]any)["text"].(map[string]any)["content"]
	assert.Equal(t, "1:02:05", duration)
	assert.Equal(t, []string{
		"POST /databases/db1/query",
		"POST /pages",
		"POST /databases/db1/query",
		"PATCH /pages/page-1",
	}, db.calls)
}

func TestClient_FindIsCaseSensitive(t *testing.T) {
	db := newFakeDatabase(t)
	srv := httptest.NewServer(db)
	defer srv.Close()

	c := NewClient("secret", "db1", Options{BaseURL: srv.URL}, discardLogger())
	upsert(t, c, domain.Record{Date: "2025-07-17", Project: "Dev", LastSync: time.Now()})

	_, found, err := c.FindRecord(context.Background(), "2025-07-17", "dev")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_HTTPErrorCarriesContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"validation_error"}`)
	}))
	defer srv.Close()

	c := NewClient("secret", "db1", Options{BaseURL: srv.URL}, discardLogger())
	_, _, err := c.FindRecord(context.Background(), "2025-07-17", "Dev")
	require.Error(t, err)

	var apiErr *apierror.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "query database", apiErr.Op)
	assert.Equal(t, srv.URL+"/databases/db1/query", apiErr.URL)
}

func TestClient_BreakerOpensAfterConsecutiveTransportFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		hj, ok := w.(http.Hijacker)
		if !assert.True(t, ok) {
			return
		}
		conn, _, err := hj.Hijack()
		if assert.NoError(t, err) {
			_ = conn.Close()
		}
	}))
	defer srv.Close()

	c := NewClient("secret", "db1", Options{BaseURL: srv.URL, TripAfter: 2}, discardLogger())
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _, err := c.FindRecord(ctx, "2025-07-17", "Dev")
		require.Error(t, err)
		var apiErr *apierror.Error
		require.True(t, errors.As(err, &apiErr))
		assert.Zero(t, apiErr.StatusCode)
	}
	_, _, err := c.FindRecord(ctx, "2025-07-17", "Dev")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_HTTPErrorsDoNotOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1)%2 == 0 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"validation_error"}`)
	}))
	defer srv.Close()

	c := NewClient("secret", "db1", Options{BaseURL: srv.URL, TripAfter: 2}, discardLogger())
	for i := 0; i < 6; i++ {
		_, _, err := c.FindRecord(context.Background(), "2025-07-17", "Dev")
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState), "call %d", i+1)
	}
	assert.Equal(t, int32(6), hits.Load())
}
