package calendar

import (
	"context"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	// PrimaryCalendarID is the calendar the dashboard reads from.
	PrimaryCalendarID = "primary"

	// MaxEvents caps the number of events returned by ListPrimaryEvents.
	MaxEvents = 50

	// DefaultWindow is the span of the default query window starting now.
	DefaultWindow = 7 * 24 * time.Hour
)

// Client wraps the Google Calendar service for one upstream call.
type Client struct {
	svc *calendar.Service
}

// NewClient creates a Calendar client from the given client options.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Window returns the RFC 3339 bounds of a query. An empty bound is replaced by
// now for timeMin and now+DefaultWindow for timeMax; given bounds are kept
// verbatim and validated by Google.
func Window(now time.Time, timeMin, timeMax string) (string, string) {
	if timeMin == "" {
		timeMin = now.UTC().Format(time.RFC3339)
	}
	if timeMax == "" {
		timeMax = now.Add(DefaultWindow).UTC().Format(time.RFC3339)
	}
	return timeMin, timeMax
}

// ListPrimaryEvents lists events of the primary calendar between timeMin and
// timeMax. Recurring events are expanded into single instances ordered by
// start time, up to MaxEvents.
func (c *Client) ListPrimaryEvents(ctx context.Context, timeMin, timeMax string) (*calendar.Events, error) {
	events, err := c.svc.Events.List(PrimaryCalendarID).
		TimeMin(timeMin).
		TimeMax(timeMax).
		MaxResults(MaxEvents).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
