package dispatch

import (
	"fmt"

	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/safegate/internal/apierror"
	"github.com/teemow/safegate/internal/instrumentation"
)

// API names an upstream surface.
type API string

const (
	APITasks         API = instrumentation.APITasks
	APICalendar      API = instrumentation.APICalendar
	APISearchConsole API = instrumentation.APISearchConsole
	APISheets        API = instrumentation.APISheets
)

// Operation names exactly one upstream call.
type Operation string

const (
	OpListTaskLists        Operation = "list_task_lists"
	OpListTasks            Operation = "list_tasks"
	OpInsertTask           Operation = "insert_task"
	OpUpdateTask           Operation = "update_task"
	OpDeleteTask           Operation = "delete_task"
	OpListEvents           Operation = "list_events"
	OpListSites            Operation = "list_sites"
	OpQuerySearchAnalytics Operation = "query_search_analytics"
	OpGetStock             Operation = "get_stock"
	OpAppendStock          Operation = "append_stock"
)

var operationAPI = map[Operation]API{
	OpListTaskLists:        APITasks,
	OpListTasks:            APITasks,
	OpInsertTask:           APITasks,
	OpUpdateTask:           APITasks,
	OpDeleteTask:           APITasks,
	OpListEvents:           APICalendar,
	OpListSites:            APISearchConsole,
	OpQuerySearchAnalytics: APISearchConsole,
	OpGetStock:             APISheets,
	OpAppendStock:          APISheets,
}

// API returns the surface the operation belongs to, or "" if unknown.
func (o Operation) API() API {
	return operationAPI[o]
}

// Params carries the inputs of every operation. Each operation reads only
// the fields it needs; empty optional fields get the upstream defaults.
type Params struct {
	TaskListID string      `json:"taskListId,omitempty"`
	TaskID     string      `json:"taskId,omitempty"`
	Task       *tasks.Task `json:"task,omitempty"`

	TimeMin string `json:"timeMin,omitempty"`
	TimeMax string `json:"timeMax,omitempty"`

	SiteURL   string `json:"siteUrl,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`

	SpreadsheetID string          `json:"spreadsheetId,omitempty"`
	Range         string          `json:"range,omitempty"`
	Values        [][]interface{} `json:"values,omitempty"`
}

// Request is one call to dispatch.
type Request struct {
	Operation Operation `json:"operation"`
	Params    Params    `json:"params"`
}

// API returns the upstream surface of the request.
func (r Request) API() API {
	return r.Operation.API()
}

// Resource returns the Google resource the request targets, for audit and
// detailed metrics. It is empty for listing operations.
func (r Request) Resource() string {
	switch r.API() {
	case APITasks:
		return r.Params.TaskListID
	case APISearchConsole:
		return r.Params.SiteURL
	case APISheets:
		return r.Params.SpreadsheetID
	}
	return ""
}

// Validate checks that the parameters an operation cannot run without are set.
func (r Request) Validate() error {
	p := r.Params
	switch r.Operation {
	case OpListTaskLists, OpListEvents, OpListSites:
		return nil
	case OpListTasks, OpInsertTask:
		return requireParam(p.TaskListID, "listId")
	case OpUpdateTask, OpDeleteTask:
		if err := requireParam(p.TaskListID, "listId"); err != nil {
			return err
		}
		return requireParam(p.TaskID, "taskId")
	case OpQuerySearchAnalytics:
		return requireParam(p.SiteURL, "siteUrl")
	case OpGetStock, OpAppendStock:
		return requireParam(p.SpreadsheetID, "spreadsheetId")
	}
	return apierror.ErrInvalidParameter(fmt.Sprintf("opération inconnue: %s", r.Operation))
}

func requireParam(value, name string) error {
	if value == "" {
		return apierror.ErrInvalidParameter(name + " requis")
	}
	return nil
}
