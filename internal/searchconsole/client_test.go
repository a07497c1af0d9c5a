package searchconsole

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeSearchConsole struct {
	paths  []string
	bodies []map[string]any
}

func (f *fakeSearchConsole) client(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.paths = append(f.paths, r.URL.Path)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.bodies = append(f.bodies, body)

		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"siteEntry": []map[string]any{{"siteUrl": "https://example.com/", "permissionLevel": "siteOwner"}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"rows":                    []map[string]any{{"keys": []string{"2024-01-01"}, "clicks": 12}},
			"responseAggregationType": "byProperty",
		})
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return c
}

func TestListSites(t *testing.T) {
	fake := &fakeSearchConsole{}
	sites, err := fake.client(t).ListSites(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/webmasters/v3/sites"}, fake.paths)
	require.Len(t, sites.SiteEntry, 1)
	assert.Equal(t, "https://example.com/", sites.SiteEntry[0].SiteUrl)
}

func TestQueryByDate(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantStart  string
		wantEnd    string
	}{
		{name: "defaults", wantStart: "2024-01-01", wantEnd: "2024-12-31"},
		{name: "explicit", start: "2025-02-01", end: "2025-02-28", wantStart: "2025-02-01", wantEnd: "2025-02-28"},
		{name: "only start", start: "2024-06-01", wantStart: "2024-06-01", wantEnd: "2024-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSearchConsole{}
			resp, err := fake.client(t).QueryByDate(context.Background(), "https://example.com/", tt.start, tt.end)
			require.NoError(t, err)

			require.Len(t, fake.bodies, 1)
			body := fake.bodies[0]
			assert.Equal(t, tt.wantStart, body["startDate"])
			assert.Equal(t, tt.wantEnd, body["endDate"])
			assert.Equal(t, []any{"date"}, body["dimensions"])
			assert.Equal(t, float64(1000), body["rowLimit"])
			assert.Equal(t, "/webmasters/v3/sites/https://example.com//searchAnalytics/query", fake.paths[0])

			require.Len(t, resp.Rows, 1)
			assert.Equal(t, float64(12), resp.Rows[0].Clicks)
		})
	}
}

func TestNormalizeSiteURL(t *testing.T) {
	tests := map[string]string{
		"https://example.com/":         "https://example.com/",
		"https%3A%2F%2Fexample.com%2F": "https://example.com/",
		"sc-domain:example.com":        "sc-domain:example.com",
		"https://example.com/%zz":      "https://example.com/%zz",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSiteURL(in), in)
	}
}
