package dispatch

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/safegate/internal/apierror"
)

func TestOperationAPI(t *testing.T) {
	assert.Equal(t, APITasks, OpDeleteTask.API())
	assert.Equal(t, APICalendar, OpListEvents.API())
	assert.Equal(t, APISearchConsole, OpQuerySearchAnalytics.API())
	assert.Equal(t, APISheets, OpAppendStock.API())
	assert.Equal(t, API(""), Operation("bogus").API())
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantMsg string
	}{
		{name: "list task lists", req: Request{Operation: OpListTaskLists}},
		{name: "list events without window", req: Request{Operation: OpListEvents}},
		{name: "list sites", req: Request{Operation: OpListSites}},
		{name: "list tasks", req: Request{Operation: OpListTasks, Params: Params{TaskListID: "l"}}},
		{name: "list tasks without list", req: Request{Operation: OpListTasks}, wantMsg: "listId requis"},
		{name: "insert without list", req: Request{Operation: OpInsertTask}, wantMsg: "listId requis"},
		{name: "update without task", req: Request{Operation: OpUpdateTask, Params: Params{TaskListID: "l"}}, wantMsg: "taskId requis"},
		{name: "delete without list", req: Request{Operation: OpDeleteTask, Params: Params{TaskID: "t"}}, wantMsg: "listId requis"},
		{name: "delete", req: Request{Operation: OpDeleteTask, Params: Params{TaskListID: "l", TaskID: "t"}}},
		{name: "analytics without site", req: Request{Operation: OpQuerySearchAnalytics}, wantMsg: "siteUrl requis"},
		{name: "stock without sheet", req: Request{Operation: OpGetStock}, wantMsg: "spreadsheetId requis"},
		{name: "append without sheet", req: Request{Operation: OpAppendStock}, wantMsg: "spreadsheetId requis"},
		{name: "unknown", req: Request{Operation: "bogus"}, wantMsg: "opération inconnue: bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			apiErr := apierror.As(err)
			assert.Equal(t, apierror.KindInvalidParameter, apiErr.Kind)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestRequestResource(t *testing.T) {
	assert.Equal(t, "list-1", Request{Operation: OpListTasks, Params: Params{TaskListID: "list-1"}}.Resource())
	assert.Equal(t, "sc-domain:example.com", Request{Operation: OpQuerySearchAnalytics, Params: Params{SiteURL: "sc-domain:example.com"}}.Resource())
	assert.Equal(t, "sheet-1", Request{Operation: OpGetStock, Params: Params{SpreadsheetID: "sheet-1"}}.Resource())
	assert.Empty(t, Request{Operation: OpListEvents, Params: Params{TimeMin: "x"}}.Resource())
}
