// Package warehouse implements the Source Client (spec §4.1): warehouse
// metadata and paginated extraction via BigQuery's REST API, spreadsheet
// row reads via Sheets, and the shared service-account credential cache.
package warehouse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/user/syncengine/pkg/obslog"
	"github.com/user/syncengine/pkg/syncerr"
	"github.com/user/syncengine/pkg/syncmodel"
)

// scopedTokenSource adapts TokenSource to oauth2.TokenSource for a fixed
// scope, so each generated API client gets its own independently-cached
// token (spec: "warehouse and spreadsheet scopes are independent").
type scopedTokenSource struct {
	ctx    context.Context
	tokens *TokenSource
	scope  string
}

func (s *scopedTokenSource) Token() (*oauth2.Token, error) {
	access, err := s.tokens.Token(s.ctx, s.scope)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
}

// Client is the Source Client: a warehouse (BigQuery) surface and a
// spreadsheet (Sheets) surface sharing one credential cache.
type Client struct {
	tokens *TokenSource
	logger obslog.Logger

	bq     *bigquery.Service
	sheets *sheets.Service
}

// New builds a Client from a parsed service-account key. The BigQuery and
// Sheets generated clients are constructed eagerly with scope-specific
// token sources so each maintains its own cached bearer token.
func New(ctx context.Context, sa *ServiceAccount, logger obslog.Logger) (*Client, error) {
	tokens, err := NewTokenSource(sa)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindConfigInvalid, "build token source", err)
	}
	if logger == nil {
		logger = obslog.Nop{}
	}

	bqSvc, err := bigquery.NewService(ctx, option.WithTokenSource(&scopedTokenSource{ctx: ctx, tokens: tokens, scope: ScopeBigQuery}))
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindSourceUnavailable, "build bigquery service", err)
	}
	sheetsSvc, err := sheets.NewService(ctx, option.WithTokenSource(&scopedTokenSource{ctx: ctx, tokens: tokens, scope: ScopeSheets}))
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindSourceUnavailable, "build sheets service", err)
	}

	return &Client{tokens: tokens, logger: logger, bq: bqSvc, sheets: sheetsSvc}, nil
}

// GetMetadata returns the ordered field list of a warehouse table (spec
// §4.1 get_metadata).
func (c *Client) GetMetadata(ctx context.Context, project, dataset, table string) (syncmodel.Schema, error) {
	t, err := c.bq.Tables.Get(project, dataset, table).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, syncerr.Wrap(syncerr.KindNotFound, fmt.Sprintf("table %s.%s.%s", project, dataset, table), err)
		}
		if isForbidden(err) {
			return nil, syncerr.Wrap(syncerr.KindPermissionDenied, "get table metadata", err)
		}
		return nil, syncerr.Wrap(syncerr.KindSourceUnavailable, "get table metadata", err)
	}
	if t.Schema == nil {
		return syncmodel.Schema{}, nil
	}
	fields := make(syncmodel.Schema, 0, len(t.Schema.Fields))
	for _, f := range t.Schema.Fields {
		fields = append(fields, syncmodel.SchemaField{
			Name:     f.Name,
			Class:    classForBigQueryType(f.Type),
			Nullable: f.Mode != "REQUIRED",
		})
	}
	return fields, nil
}

// QueryParameter binds one named parameter into a query submitted through
// QueryPaginated, avoiding literal interpolation of cursor/filter values
// into SQL text (mirrors the teacher's parameterized `WHERE id > ?` query
// in pkg/source/clickhouse/clickhouse.go, adapted to BigQuery's named
// `@param` placeholder style).
type QueryParameter struct {
	Name  string
	Value any

	// Class is the column's normalized type, used to give the BigQuery
	// parameter a matching type instead of a bare STRING; comparisons like
	// `date_col > @cursor_inc` reject an untyped STRING parameter with no
	// implicit coercion. Zero value falls back to STRING.
	Class syncmodel.FieldClass
}

// QueryPaginated submits sql and streams every result row, following
// pageToken continuation, decoding cells per spec §4.1.
func (c *Client) QueryPaginated(ctx context.Context, project, sql string, forceStringSet map[string]bool, params []QueryParameter, yield func(Row) error) error {
	req := &bigquery.QueryRequest{
		Query:           sql,
		UseLegacySql:    false,
		ForceSendFields: []string{"UseLegacySql"},
	}
	if len(params) > 0 {
		req.ParameterMode = "NAMED"
		req.QueryParameters = toBQParameters(params)
	}
	resp, err := c.bq.Jobs.Query(project, req).Context(ctx).Do()
	if err != nil {
		return syncerr.Wrap(syncerr.KindQueryRejected, "submit query", err)
	}
	if !resp.JobComplete {
		return syncerr.New(syncerr.KindQueryIncomplete, "query did not complete within synchronous window")
	}

	classes := make(map[string]syncmodel.FieldClass, len(resp.Schema.Fields))
	order := make([]string, 0, len(resp.Schema.Fields))
	for _, f := range resp.Schema.Fields {
		classes[f.Name] = classForBigQueryType(f.Type)
		order = append(order, f.Name)
	}

	if err := emitRows(resp.Rows, order, classes, forceStringSet, yield); err != nil {
		return err
	}

	pageToken := resp.PageToken
	jobRef := resp.JobReference
	for pageToken != "" {
		page, err := c.bq.Jobs.GetQueryResults(project, jobRef.JobId).
			Location(jobRef.Location).PageToken(pageToken).Context(ctx).Do()
		if err != nil {
			return syncerr.Wrap(syncerr.KindPaginationFailed, "get query results page", err)
		}
		if err := emitRows(page.Rows, order, classes, forceStringSet, yield); err != nil {
			return err
		}
		pageToken = page.PageToken
	}
	return nil
}

func emitRows(rows []*bigquery.TableRow, order []string, classes map[string]syncmodel.FieldClass, forceStringSet map[string]bool, yield func(Row) error) error {
	for _, r := range rows {
		row := make(Row, len(order))
		for i, name := range order {
			if i >= len(r.F) || r.F[i].V == nil {
				row[name] = nil
				continue
			}
			raw, ok := r.F[i].V.(string)
			if !ok {
				row[name] = r.F[i].V
				continue
			}
			row[name] = decodeCell(classes[name], name, raw, forceStringSet)
		}
		if err := yield(row); err != nil {
			return err
		}
	}
	return nil
}

// LoadJobResult is returned by LoadNDJSON.
type LoadJobResult struct {
	RowsLoaded int
	ErrorRows  []string
}

// LoadNDJSON submits a multipart load job for newline-delimited JSON and
// polls it to completion (spec §4.1 load_ndjson).
func (c *Client) LoadNDJSON(ctx context.Context, project, dataset, table string, ndjson []byte, mode string, schema syncmodel.Schema) (*LoadJobResult, error) {
	disposition := "WRITE_APPEND"
	if mode == "truncate" {
		disposition = "WRITE_TRUNCATE"
	}

	load := &bigquery.JobConfigurationLoad{
		DestinationTable: &bigquery.TableReference{
			ProjectId: project,
			DatasetId: dataset,
			TableId:   table,
		},
		SourceFormat:     "NEWLINE_DELIMITED_JSON",
		WriteDisposition: disposition,
	}
	if schema != nil {
		load.Schema = &bigquery.TableSchema{Fields: toBQFields(schema)}
	} else {
		load.Autodetect = true
	}

	job := &bigquery.Job{
		Configuration: &bigquery.JobConfiguration{Load: load},
	}

	inserted, err := c.bq.Jobs.Insert(project, job).Media(bytes.NewReader(ndjson)).Context(ctx).Do()
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindLoadJobFailed, "insert load job", err)
	}

	result, err := c.pollLoadJob(ctx, project, inserted.JobReference)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) pollLoadJob(ctx context.Context, project string, ref *bigquery.JobReference) (*LoadJobResult, error) {
	for {
		j, err := c.bq.Jobs.Get(project, ref.JobId).Location(ref.Location).Context(ctx).Do()
		if err != nil {
			return nil, syncerr.Wrap(syncerr.KindLoadJobFailed, "poll load job", err)
		}
		if j.Status.State != "DONE" {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
			continue
		}
		result := &LoadJobResult{}
		if j.Status.ErrorResult != nil {
			result.ErrorRows = append(result.ErrorRows, j.Status.ErrorResult.Message)
		}
		for _, e := range j.Status.Errors {
			result.ErrorRows = append(result.ErrorRows, e.Message)
		}
		if j.Statistics != nil && j.Statistics.Load != nil {
			result.RowsLoaded = int(j.Statistics.Load.OutputRows)
		}
		if len(result.ErrorRows) > 0 {
			return result, syncerr.New(syncerr.KindLoadJobFailed, fmt.Sprintf("load job reported %d error rows", len(result.ErrorRows)))
		}
		return result, nil
	}
}

// UpdateSchema adds nullable string columns to table, preserving existing
// ones (spec §4.1 update_schema).
func (c *Client) UpdateSchema(ctx context.Context, project, dataset, table string, newColumns []string) error {
	existing, err := c.bq.Tables.Get(project, dataset, table).Context(ctx).Do()
	if err != nil {
		return syncerr.Wrap(syncerr.KindSourceUnavailable, "get table for schema update", err)
	}
	fields := existing.Schema.Fields
	have := make(map[string]bool, len(fields))
	for _, f := range fields {
		have[f.Name] = true
	}
	for _, col := range newColumns {
		if have[col] {
			continue
		}
		fields = append(fields, &bigquery.TableFieldSchema{Name: col, Type: "STRING", Mode: "NULLABLE"})
	}
	patch := &bigquery.Table{Schema: &bigquery.TableSchema{Fields: fields}}
	if _, err := c.bq.Tables.Patch(project, dataset, table, patch).Context(ctx).Do(); err != nil {
		return syncerr.Wrap(syncerr.KindSourceUnavailable, "patch table schema", err)
	}
	return nil
}

func toBQFields(schema syncmodel.Schema) []*bigquery.TableFieldSchema {
	fields := make([]*bigquery.TableFieldSchema, 0, len(schema))
	for _, f := range schema {
		mode := "NULLABLE"
		if !f.Nullable {
			mode = "REQUIRED"
		}
		fields = append(fields, &bigquery.TableFieldSchema{
			Name: f.Name,
			Type: bqTypeForClass(f.Class),
			Mode: mode,
		})
	}
	return fields
}

func bqTypeForClass(class syncmodel.FieldClass) string {
	switch class {
	case syncmodel.ClassInt:
		return "INTEGER"
	case syncmodel.ClassFloat:
		return "FLOAT"
	case syncmodel.ClassBool:
		return "BOOLEAN"
	case syncmodel.ClassDate:
		return "DATE"
	case syncmodel.ClassDatetime:
		return "DATETIME"
	case syncmodel.ClassTimestamp:
		return "TIMESTAMP"
	case syncmodel.ClassNumeric:
		return "NUMERIC"
	default:
		return "STRING"
	}
}

func toBQParameters(params []QueryParameter) []*bigquery.QueryParameter {
	out := make([]*bigquery.QueryParameter, 0, len(params))
	for _, p := range params {
		out = append(out, &bigquery.QueryParameter{
			Name:           p.Name,
			ParameterType:  &bigquery.QueryParameterType{Type: bqTypeForClass(p.Class)},
			ParameterValue: &bigquery.QueryParameterValue{Value: fmt.Sprint(p.Value)},
		})
	}
	return out
}

func isNotFound(err error) bool  { return hasStatusCode(err, 404) }
func isForbidden(err error) bool { return hasStatusCode(err, 403) }

func hasStatusCode(err error, code int) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == code
	}
	return false
}
