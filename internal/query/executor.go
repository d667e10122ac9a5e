package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ga4cli/internal/api"
	"ga4cli/internal/results"

	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

// MaxBatchRequests is the most report requests the API accepts in one batch call.
const MaxBatchRequests = 5

// Reporter is the part of the Data API client the executor needs.
type Reporter interface {
	RunReport(ctx context.Context, request *api.RunReportRequest) (*api.RunReportResponse, error)
	BatchRunReports(
		ctx context.Context,
		property string,
		requests []*api.RunReportRequest,
	) (*api.BatchRunReportsResponse, error)
}

// Executor compiles queries and runs them against the Data API.
type Executor struct {
	reporter Reporter
}

func NewExecutor(reporter Reporter) *Executor {
	return &Executor{reporter: reporter}
}

// BatchError reports which batch call failed. Results of earlier calls are discarded.
type BatchError struct {
	Chunk int // zero-based index of the failed call
	Names []string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch call %d failed (queries: %s): %v", e.Chunk+1, strings.Join(e.Names, ", "), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Run compiles and runs a single standard report.
func (e *Executor) Run(ctx context.Context, target string, q Query) (*results.Report, error) {
	request, err := BuildReportRequest(target, q)
	if err != nil {
		return nil, err
	}

	response, err := e.reporter.RunReport(ctx, request)
	if err != nil {
		return nil, err
	}
	return results.NewReport(response.ReportTable), nil
}

type namedRequest struct {
	name    string
	request *api.RunReportRequest
}

// RunBatch compiles every query before making any call, then sends them in
// sequential calls of at most maxPerCall requests. Queries without a name are
// named query_<index>. The Nth report of a response belongs to the Nth query of
// its call.
func (e *Executor) RunBatch(
	ctx context.Context,
	target string,
	queries []Query,
	maxPerCall int,
) (*results.Batch, error) {
	if maxPerCall <= 0 || maxPerCall > MaxBatchRequests {
		maxPerCall = MaxBatchRequests
	}

	property, err := requireProperty(target)
	if err != nil {
		return nil, err
	}

	compiled := make([]namedRequest, len(queries))
	for i, q := range queries {
		name := q.Name
		if name == "" {
			name = fmt.Sprintf("query_%d", i)
		}

		request, err := BuildReportRequest(property, q)
		if err != nil {
			return nil, wrap.Errorf(err, "invalid query '%s'", name)
		}
		compiled[i] = namedRequest{name: name, request: request}
	}

	batch := results.NewBatch()
	for start, chunkIndex := 0, 0; start < len(compiled); start, chunkIndex = start+maxPerCall, chunkIndex+1 {
		chunk := compiled[start:min(start+maxPerCall, len(compiled))]

		names := make([]string, len(chunk))
		requests := make([]*api.RunReportRequest, len(chunk))
		for i, entry := range chunk {
			names[i] = entry.name
			requests[i] = entry.request
		}

		log.Debug(
			"running batch call",
			slog.Int("chunk", chunkIndex),
			slog.Int("requests", len(requests)),
			slog.String("queries", strings.Join(names, ",")),
		)

		response, err := e.reporter.BatchRunReports(ctx, property, requests)
		if err != nil {
			return nil, &BatchError{Chunk: chunkIndex, Names: names, Err: err}
		}

		if len(response.Reports) != len(chunk) {
			log.Infof(
				"batch call %d returned %d reports for %d queries",
				chunkIndex+1, len(response.Reports), len(chunk),
			)
		}
		for i, report := range response.Reports {
			if i >= len(names) {
				break
			}
			batch.Set(names[i], results.NewReport(report.ReportTable))
		}
	}

	return batch, nil
}
