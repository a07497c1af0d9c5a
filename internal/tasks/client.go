package tasks

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"
)

// MaxTasks caps the number of tasks returned by ListTasks.
const MaxTasks = 100

// Client wraps the Google Tasks service for one upstream call. Responses are
// returned as the API's own types so they serialize like Google's JSON.
type Client struct {
	svc *tasks.Service
}

// NewClient creates a Tasks client. Pass option.WithHTTPClient with the
// session's authenticated client; option.WithEndpoint points it elsewhere.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tasks service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ListTaskLists lists the task lists of the authenticated user
func (c *Client) ListTaskLists(ctx context.Context) (*tasks.TaskLists, error) {
	result, err := c.svc.Tasklists.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list task lists: %w", err)
	}
	return result, nil
}

// ListTasks lists the tasks of a list, completed ones included, up to MaxTasks.
func (c *Client) ListTasks(ctx context.Context, taskListID string) (*tasks.Tasks, error) {
	result, err := c.svc.Tasks.List(taskListID).
		ShowCompleted(true).
		MaxResults(MaxTasks).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return result, nil
}

// InsertTask creates a task in a list
func (c *Client) InsertTask(ctx context.Context, taskListID string, task *tasks.Task) (*tasks.Task, error) {
	if task == nil {
		task = &tasks.Task{}
	}
	created, err := c.svc.Tasks.Insert(taskListID, task).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return created, nil
}

// UpdateTask replaces a task with the given body. Fields missing from task are
// cleared upstream, as with a PUT.
func (c *Client) UpdateTask(ctx context.Context, taskListID, taskID string, task *tasks.Task) (*tasks.Task, error) {
	if task == nil {
		task = &tasks.Task{}
	}
	updated, err := c.svc.Tasks.Update(taskListID, taskID, task).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return updated, nil
}

// DeleteTask deletes a task
func (c *Client) DeleteTask(ctx context.Context, taskListID, taskID string) error {
	if err := c.svc.Tasks.Delete(taskListID, taskID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
