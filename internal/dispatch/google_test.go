package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	tasksapi "google.golang.org/api/tasks/v1"

	"github.com/teemow/safegate/internal/apierror"
)

type upstreamCall struct {
	Method string
	Path   string
	Query  map[string][]string
	Auth   string
	Body   map[string]any
}

// fakeGoogle answers every API the gateway talks to from a single server.
type fakeGoogle struct {
	mu    sync.Mutex
	calls []upstreamCall
	srv   *httptest.Server

	failStatus  int
	failMessage string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoogle) serve(w http.ResponseWriter, r *http.Request) {
	call := upstreamCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Auth: r.Header.Get("Authorization")}
	_ = json.NewDecoder(r.Body).Decode(&call.Body)
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.failStatus != 0 {
		w.WriteHeader(f.failStatus)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": f.failStatus, "message": f.failMessage}})
		return
	}
	path := r.URL.Path
	switch {
	case path == "/tasks/v1/users/@me/lists":
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{{"id": "list-1", "title": "Perso"}}})
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	case strings.HasPrefix(path, "/tasks/v1/lists/"):
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "task-1", "title": "Acheter du lait"})
	case path == "/calendars/primary/events":
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{{"id": "evt-1", "summary": "Réunion"}}, "etagHint": "2"})
	case path == "/webmasters/v3/sites":
		_ = json.NewEncoder(w).Encode(map[string]any{"siteEntry": []map[string]any{{"siteUrl": "https://example.com/"}}, "etagHint": "2"})
	case strings.HasSuffix(path, "/searchAnalytics/query"):
		_ = json.NewEncoder(w).Encode(map[string]any{"rows": []map[string]any{{"keys": []string{"2024-01-01"}, "clicks": 3}}, "etagHint": "2"})
	case strings.HasSuffix(path, ":append"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-1",
			"tableRange":    "Stock!A1:F4",
			"updates":       map[string]any{"updatedRows": 1, "updatedRange": "Stock!A5:F5"},
			"futureField":   map[string]any{"a": 1},
		})
	case strings.HasPrefix(path, "/v4/spreadsheets/"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":  "Stock!A1:F2",
			"values": [][]string{{"Produit", "Quantité"}, {"Café", "12"}},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 404, "message": "not found"}})
	}
}

func (f *fakeGoogle) recorded() []upstreamCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upstreamCall(nil), f.calls...)
}

var fixedNow = time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)

func newTestGoogleBackend(f *fakeGoogle) *GoogleBackend {
	ep := f.srv.URL + "/"
	return NewGoogleBackend(
		WithEndpoint(APITasks, ep),
		WithEndpoint(APICalendar, ep),
		WithEndpoint(APISearchConsole, ep),
		WithEndpoint(APISheets, ep),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func doGoogle(t *testing.T, req Request) (any, upstreamCall) {
	t.Helper()
	f := newFakeGoogle(t)
	b := newTestGoogleBackend(f)

	conf := &oauth2.Config{ClientID: "client", ClientSecret: "secret"}
	body, err := b.Do(context.Background(), conf, validToken(), req)
	require.NoError(t, err)

	calls := f.recorded()
	require.Len(t, calls, 1, "exactly one upstream call per request")
	assert.Equal(t, "Bearer access", calls[0].Auth)
	return body, calls[0]
}

func TestGoogleBackend_Name(t *testing.T) {
	assert.Equal(t, BackendGoogle, NewGoogleBackend().Name())
}

func TestGoogleBackend_ListTaskLists(t *testing.T) {
	body, call := doGoogle(t, Request{Operation: OpListTaskLists})
	assert.Equal(t, http.MethodGet, call.Method)
	assert.Equal(t, "/tasks/v1/users/@me/lists", call.Path)

	raw, ok := body.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"items":[{"id":"list-1","title":"Perso"}]}`, string(raw))
}

func TestGoogleBackend_ListTasks(t *testing.T) {
	_, call := doGoogle(t, Request{Operation: OpListTasks, Params: Params{TaskListID: "list-1"}})
	assert.Equal(t, "/tasks/v1/lists/list-1/tasks", call.Path)
	assert.Equal(t, []string{"true"}, call.Query["showCompleted"])
	assert.Equal(t, []string{"100"}, call.Query["maxResults"])
}

func TestGoogleBackend_InsertTask(t *testing.T) {
	body, call := doGoogle(t, Request{Operation: OpInsertTask, Params: Params{
		TaskListID: "list-1",
		Task:       &tasksapi.Task{Title: "Acheter du lait"},
	}})
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "Acheter du lait", call.Body["title"])
	assert.JSONEq(t, `{"id":"task-1","title":"Acheter du lait"}`, string(body.(json.RawMessage)))
}

func TestGoogleBackend_UpdateTask(t *testing.T) {
	_, call := doGoogle(t, Request{Operation: OpUpdateTask, Params: Params{
		TaskListID: "list-1",
		TaskID:     "task-1",
		Task:       &tasksapi.Task{Status: "completed"},
	}})
	assert.Equal(t, http.MethodPut, call.Method)
	assert.Equal(t, "/tasks/v1/lists/list-1/tasks/task-1", call.Path)
	assert.Equal(t, "completed", call.Body["status"])
}

func TestGoogleBackend_DeleteTask(t *testing.T) {
	body, call := doGoogle(t, Request{Operation: OpDeleteTask, Params: Params{TaskListID: "list-1", TaskID: "task-1"}})
	assert.Equal(t, http.MethodDelete, call.Method)
	assert.Equal(t, MessageBody{Message: "Tâche supprimée"}, body)
}

func TestGoogleBackend_ListEvents_DefaultWindow(t *testing.T) {
	_, call := doGoogle(t, Request{Operation: OpListEvents})
	assert.Equal(t, "/calendars/primary/events", call.Path)
	assert.Equal(t, []string{"2024-03-10T08:30:00Z"}, call.Query["timeMin"])
	assert.Equal(t, []string{"2024-03-17T08:30:00Z"}, call.Query["timeMax"])
	assert.Equal(t, []string{"true"}, call.Query["singleEvents"])
	assert.Equal(t, []string{"startTime"}, call.Query["orderBy"])
	assert.Equal(t, []string{"50"}, call.Query["maxResults"])
}

func TestGoogleBackend_ListEvents_ExplicitWindow(t *testing.T) {
	_, call := doGoogle(t, Request{Operation: OpListEvents, Params: Params{
		TimeMin: "2024-05-01T00:00:00Z",
		TimeMax: "2024-05-31T00:00:00Z",
	}})
	assert.Equal(t, []string{"2024-05-01T00:00:00Z"}, call.Query["timeMin"])
	assert.Equal(t, []string{"2024-05-31T00:00:00Z"}, call.Query["timeMax"])
}

func TestGoogleBackend_ListSites(t *testing.T) {
	_, call := doGoogle(t, Request{Operation: OpListSites})
	assert.Equal(t, "/webmasters/v3/sites", call.Path)
}

func TestGoogleBackend_QuerySearchAnalytics_Defaults(t *testing.T) {
	_, call := doGoogle(t, Request{Operation: OpQuerySearchAnalytics, Params: Params{SiteURL: "https://example.com/"}})
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "2024-01-01", call.Body["startDate"])
	assert.Equal(t, "2024-12-31", call.Body["endDate"])
	assert.Equal(t, []any{"date"}, call.Body["dimensions"])
	assert.EqualValues(t, 1000, call.Body["rowLimit"])
}

func TestGoogleBackend_GetStock(t *testing.T) {
	body, call := doGoogle(t, Request{Operation: OpGetStock, Params: Params{SpreadsheetID: "sheet-1"}})
	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Stock!A:F", call.Path)

	stock, ok := body.(StockValues)
	require.True(t, ok)
	assert.Equal(t, "Stock!A1:F2", stock.Range)
	require.Len(t, stock.Values, 2)
	assert.Equal(t, "Café", stock.Values[1][0])
}

func TestGoogleBackend_AppendStock_Raw(t *testing.T) {
	body, call := doGoogle(t, Request{Operation: OpAppendStock, Params: Params{
		SpreadsheetID: "sheet-1",
		Values:        [][]interface{}{{"Thé", "=1+1"}},
	}})
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Stock!A:F:append", call.Path)
	assert.Equal(t, []string{"RAW"}, call.Query["valueInputOption"])
	assert.Equal(t, []any{[]any{"Thé", "=1+1"}}, call.Body["values"])

	raw, ok := body.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{
		"spreadsheetId": "sheet-1",
		"tableRange": "Stock!A1:F4",
		"updates": {"updatedRows": 1, "updatedRange": "Stock!A5:F5"},
		"futureField": {"a": 1}
	}`, string(raw))
}

func TestGoogleBackend_RelaysUnknownFields(t *testing.T) {
	for _, op := range []Request{
		{Operation: OpListEvents},
		{Operation: OpListSites},
		{Operation: OpQuerySearchAnalytics, Params: Params{SiteURL: "https://example.com/"}},
	} {
		t.Run(string(op.Operation), func(t *testing.T) {
			body, _ := doGoogle(t, op)
			raw, ok := body.(json.RawMessage)
			require.True(t, ok, "got %T", body)

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(raw, &decoded))
			assert.Equal(t, "2", decoded["etagHint"])
		})
	}
}

func TestGoogleBackend_UpstreamErrorThroughGateway(t *testing.T) {
	f := newFakeGoogle(t)
	f.failStatus = http.StatusForbidden
	f.failMessage = "User does not have sufficient permission for site 'https://example.com/'."

	g, err := NewGateway(GatewayConfig{Configs: fakeConfigs{configured: true}, Backend: newTestGoogleBackend(f)})
	require.NoError(t, err)

	_, err = g.Dispatch(context.Background(), validToken(), Request{
		Operation: OpQuerySearchAnalytics,
		Params:    Params{SiteURL: "https://example.com/"},
	})
	require.Error(t, err)

	apiErr := apierror.As(err)
	assert.Equal(t, apierror.KindUpstreamCallFailure, apiErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, http.StatusForbidden, apiErr.UpstreamStatus)
	assert.Equal(t, f.failMessage, apiErr.Message)
	assert.Len(t, f.recorded(), 1)
}
