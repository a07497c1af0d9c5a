package google

import (
	calendar "google.golang.org/api/calendar/v3"
	searchconsole "google.golang.org/api/searchconsole/v1"
	sheets "google.golang.org/api/sheets/v4"
	tasks "google.golang.org/api/tasks/v1"
)

// DefaultOAuthScopes is the closed set of scopes requested from Google.
// Previously granted scopes are kept through include_granted_scopes.
//
// The scopes provide access to:
//   - Google Tasks: full access and read-only
//   - Search Console: read-only
//   - Google Sheets: full access
//   - Google Calendar: read-only
var DefaultOAuthScopes = []string{
	tasks.TasksScope,
	tasks.TasksReadonlyScope,
	searchconsole.WebmastersReadonlyScope,
	sheets.SpreadsheetsScope,
	calendar.CalendarReadonlyScope,
}
