package dispatch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/safegate/internal/calendar"
	"github.com/teemow/safegate/internal/google"
	"github.com/teemow/safegate/internal/searchconsole"
	"github.com/teemow/safegate/internal/sheets"
	"github.com/teemow/safegate/internal/tasks"
)

// BackendGoogle is the name of the backend calling Google APIs directly.
const BackendGoogle = "google"

// TaskDeletedMessage is the body returned after a task was deleted.
const TaskDeletedMessage = "Tâche supprimée"

// MessageBody is a JSON body made of a single message.
type MessageBody struct {
	Message string `json:"message"`
}

// StockValues is the body of a stock read.
type StockValues struct {
	Values [][]interface{} `json:"values,omitempty"`
	Range  string          `json:"range,omitempty"`
}

// GoogleBackend calls the Google APIs with a fresh client per call, built from
// the live credential and the session's token set.
type GoogleBackend struct {
	endpoints map[API]string
	now       func() time.Time
}

// GoogleBackendOption configures a GoogleBackend.
type GoogleBackendOption func(*GoogleBackend)

// WithEndpoint sends every call of api to endpoint instead of Google.
func WithEndpoint(api API, endpoint string) GoogleBackendOption {
	return func(b *GoogleBackend) {
		b.endpoints[api] = endpoint
	}
}

// WithClock sets the clock used for the default calendar window.
func WithClock(now func() time.Time) GoogleBackendOption {
	return func(b *GoogleBackend) {
		b.now = now
	}
}

// NewGoogleBackend creates a GoogleBackend.
func NewGoogleBackend(opts ...GoogleBackendOption) *GoogleBackend {
	b := &GoogleBackend{
		endpoints: make(map[API]string),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements Backend.
func (b *GoogleBackend) Name() string {
	return BackendGoogle
}

func (b *GoogleBackend) clientOptions(ctx context.Context, conf *oauth2.Config, tokens *oauth2.Token, api API) ([]option.ClientOption, *bodyRecorder) {
	hc := google.HTTPClient(ctx, conf, tokens)
	rec := newBodyRecorder(hc.Transport)
	hc.Transport = rec

	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if ep := b.endpoints[api]; ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}
	return opts, rec
}

// Do implements Backend. It performs exactly one upstream call and relays the
// upstream body unchanged, except for task deletion and stock reads.
func (b *GoogleBackend) Do(ctx context.Context, conf *oauth2.Config, tokens *oauth2.Token, req Request) (any, error) {
	opts, rec := b.clientOptions(ctx, conf, tokens, req.API())
	body, err := b.call(ctx, opts, req)
	if err != nil {
		return nil, err
	}
	if relaysUpstreamBody(req.Operation) {
		if raw := rec.raw(); raw != nil {
			return raw, nil
		}
	}
	return body, nil
}

func (b *GoogleBackend) call(ctx context.Context, opts []option.ClientOption, req Request) (any, error) {
	p := req.Params

	switch req.API() {
	case APITasks:
		client, err := tasks.NewClient(ctx, opts...)
		if err != nil {
			return nil, err
		}
		switch req.Operation {
		case OpListTaskLists:
			return client.ListTaskLists(ctx)
		case OpListTasks:
			return client.ListTasks(ctx, p.TaskListID)
		case OpInsertTask:
			return client.InsertTask(ctx, p.TaskListID, p.Task)
		case OpUpdateTask:
			return client.UpdateTask(ctx, p.TaskListID, p.TaskID, p.Task)
		case OpDeleteTask:
			if err := client.DeleteTask(ctx, p.TaskListID, p.TaskID); err != nil {
				return nil, err
			}
			return MessageBody{Message: TaskDeletedMessage}, nil
		}

	case APICalendar:
		client, err := calendar.NewClient(ctx, opts...)
		if err != nil {
			return nil, err
		}
		timeMin, timeMax := calendar.Window(b.now(), p.TimeMin, p.TimeMax)
		return client.ListPrimaryEvents(ctx, timeMin, timeMax)

	case APISearchConsole:
		client, err := searchconsole.NewClient(ctx, opts...)
		if err != nil {
			return nil, err
		}
		switch req.Operation {
		case OpListSites:
			return client.ListSites(ctx)
		case OpQuerySearchAnalytics:
			return client.QueryByDate(ctx, p.SiteURL, p.StartDate, p.EndDate)
		}

	case APISheets:
		client, err := sheets.NewClient(ctx, opts...)
		if err != nil {
			return nil, err
		}
		switch req.Operation {
		case OpGetStock:
			vr, err := client.GetValues(ctx, p.SpreadsheetID, p.Range)
			if err != nil {
				return nil, err
			}
			return StockValues{Values: vr.Values, Range: vr.Range}, nil
		case OpAppendStock:
			return client.AppendRows(ctx, p.SpreadsheetID, p.Range, p.Values)
		}
	}

	return nil, fmt.Errorf("unsupported operation %q", req.Operation)
}
