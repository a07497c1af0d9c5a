package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// DefaultRange is the stock range read when the caller names none.
const DefaultRange = "Stock!A:F"

// ValueInputRaw stores appended values as given, without parsing formulas,
// dates or numbers.
const ValueInputRaw = "RAW"

// Client wraps the Google Sheets service for one upstream call.
type Client struct {
	svc *sheets.Service
}

// NewClient creates a Sheets client from the given client options.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// GetValues reads a range of a spreadsheet. An empty range reads DefaultRange.
func (c *Client) GetValues(ctx context.Context, spreadsheetID, readRange string) (*sheets.ValueRange, error) {
	if readRange == "" {
		readRange = DefaultRange
	}
	vr, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", readRange, err)
	}
	return vr, nil
}

// AppendRows appends rows after the table found in appendRange, with raw
// value input. The upstream response is returned as is.
func (c *Client) AppendRows(ctx context.Context, spreadsheetID, appendRange string, rows [][]interface{}) (*sheets.AppendValuesResponse, error) {
	if appendRange == "" {
		appendRange = DefaultRange
	}
	body := &sheets.ValueRange{Values: rows}

	resp, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, appendRange, body).
		ValueInputOption(ValueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to append to range %s: %w", appendRange, err)
	}
	return resp, nil
}
