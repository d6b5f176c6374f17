package warehouse

import (
	"context"

	"google.golang.org/api/googleapi"

	"github.com/user/syncengine/pkg/syncerr"
)

// ReadSheetRange reads a single A1-notation range, retrying 429/5xx per
// spec §4.1. Returns rows as raw string cells (the caller performs type
// inference, since a fresh sheet has no declared schema).
func (c *Client) ReadSheetRange(ctx context.Context, spreadsheetID, a1Range string) ([][]any, error) {
	var values [][]any
	err := withRetry(ctx, func() error {
		resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, a1Range).Context(ctx).Do()
		if err != nil {
			if status := statusCode(err); status != 0 {
				return &statusError{status: status, err: err}
			}
			return err
		}
		values = resp.Values
		return nil
	})
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindSourceUnavailable, "read sheet range", err)
	}
	return values, nil
}

func statusCode(err error) int {
	if gerr, ok := err.(*googleapi.Error); ok {
		return gerr.Code
	}
	return 0
}
