package searchconsole

import (
	"context"
	"fmt"
	"net/url"

	"google.golang.org/api/option"
	searchconsole "google.golang.org/api/searchconsole/v1"
)

const (
	// DefaultStartDate and DefaultEndDate bound a query without explicit dates.
	DefaultStartDate = "2024-01-01"
	DefaultEndDate   = "2024-12-31"

	// MaxRows caps the rows returned by a search analytics query.
	MaxRows = 1000
)

// Client wraps the Search Console service for one upstream call.
type Client struct {
	svc *searchconsole.Service
}

// NewClient creates a Search Console client from the given client options.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := searchconsole.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Search Console service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ListSites lists the sites the user has access to in Search Console.
func (c *Client) ListSites(ctx context.Context) (*searchconsole.SitesListResponse, error) {
	sites, err := c.svc.Sites.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	return sites, nil
}

// QueryByDate returns search analytics for siteURL grouped by date. Empty
// dates fall back to DefaultStartDate and DefaultEndDate.
func (c *Client) QueryByDate(ctx context.Context, siteURL, startDate, endDate string) (*searchconsole.SearchAnalyticsQueryResponse, error) {
	if startDate == "" {
		startDate = DefaultStartDate
	}
	if endDate == "" {
		endDate = DefaultEndDate
	}

	req := &searchconsole.SearchAnalyticsQueryRequest{
		StartDate:  startDate,
		EndDate:    endDate,
		Dimensions: []string{"date"},
		RowLimit:   MaxRows,
	}

	resp, err := c.svc.Searchanalytics.Query(siteURL, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query search analytics: %w", err)
	}
	return resp, nil
}

// NormalizeSiteURL undoes a second layer of percent-encoding some clients add
// to the siteUrl parameter. Values that do not decode are returned unchanged.
func NormalizeSiteURL(siteURL string) string {
	decoded, err := url.PathUnescape(siteURL)
	if err != nil {
		return siteURL
	}
	return decoded
}
