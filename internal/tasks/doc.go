// Package tasks wraps the Google Tasks API (tasks/v1) for the gateway.
//
// It covers the operations the dashboard uses:
//   - listing task lists
//   - listing the tasks of a list, completed ones included
//   - inserting, replacing and deleting a task
//
// A Client is built per upstream call from the session's authenticated HTTP
// client and is not reused across sessions.
//
// # Example Usage
//
//	client, err := tasks.NewClient(ctx, option.WithHTTPClient(httpClient))
//	if err != nil {
//	    return err
//	}
//	lists, err := client.ListTaskLists(ctx)
package tasks
