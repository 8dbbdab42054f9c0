package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opshelm/worklog/pkg/worklog"
)

// addCurationTools registers the store health tools.
func (s *Server) addCurationTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_curation_status",
		Description: "Report knowledge store health: table counts, recent curation runs, orphan rate, tag coverage, pending duplicates, and stale staging memories, with alerts for indicators past their thresholds.",
	}, s.handleGetCurationStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_curation",
		Description: "Record a completed curation run in the history log.",
	}, s.handleRecordCuration)
}

// GetCurationStatusInput represents the (empty) input of the
// get_curation_status tool.
type GetCurationStatusInput struct{}

func (s *Server) handleGetCurationStatus(ctx context.Context, _ *mcp.CallToolRequest, _ GetCurationStatusInput) (*mcp.CallToolResult, *worklog.CurationReport, error) {
	report, err := s.config.Service.CurationStatus(ctx)
	if err != nil {
		return s.failure("get_curation_status", err), nil, nil
	}

	return jsonResult(report)
}

// RecordCurationInput represents the input arguments for the
// record_curation tool.
type RecordCurationInput struct {
	Operation    string         `json:"operation" jsonschema:"the curation operation that ran"`
	Stats        map[string]any `json:"stats,omitempty" jsonschema:"operation statistics recorded as JSON"`
	DurationMs   int64          `json:"duration_ms,omitempty" jsonschema:"run duration in milliseconds"`
	Success      *bool          `json:"success,omitempty" jsonschema:"whether the run succeeded (default: true)"`
	ErrorMessage string         `json:"error_message,omitempty" jsonschema:"error message for a failed run"`
}

func (s *Server) handleRecordCuration(ctx context.Context, _ *mcp.CallToolRequest, input RecordCurationInput) (*mcp.CallToolResult, *worklog.StoreResult, error) {
	success := true
	if input.Success != nil {
		success = *input.Success
	}

	result, err := s.config.Service.RecordCuration(ctx, worklog.RecordCurationParams{
		Operation:    input.Operation,
		Stats:        input.Stats,
		DurationMs:   input.DurationMs,
		Success:      success,
		ErrorMessage: input.ErrorMessage,
	})
	if err != nil {
		return s.failure("record_curation", err), nil, nil
	}

	return jsonResult(result)
}
