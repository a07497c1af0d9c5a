package instrumentation

import "strings"

// UnmatchedRoute is the path label for requests no route matched.
const UnmatchedRoute = "unmatched"

// RouteLabel turns a ServeMux pattern such as "GET /api/tasks/{listId}" into
// the path label "/api/tasks/{listId}". Raw URL paths carry task list and
// task ids and must never be used as a label.
//
// Example:
//
//	RouteLabel("GET /api/tasks/{listId}")  // "/api/tasks/{listId}"
//	RouteLabel("/health")                  // "/health"
//	RouteLabel("")                         // "unmatched"
func RouteLabel(pattern string) string {
	if pattern == "" {
		return UnmatchedRoute
	}
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = strings.TrimSpace(pattern[i+1:])
	}
	return pattern
}
