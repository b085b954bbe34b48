package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/cruxreport/core/agg"
	"github.com/huangsam/cruxreport/core/fetch"
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/internal/outwriter"
	"github.com/huangsam/cruxreport/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	runner  contract.CruxRunner
}

// parseRequest builds a validated lookup request from the tool arguments.
func (h *toolHandler) parseRequest(request mcp.CallToolRequest) (schema.CruxRequest, error) {
	var urls []string
	for u := range strings.SplitSeq(request.GetString("urls", ""), ",") {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}

	metrics, err := contract.ParseMetrics(request.GetString("metrics", ""))
	if err != nil {
		return schema.CruxRequest{}, err
	}
	ff, err := contract.ParseFormFactor(request.GetString("form_factor", ""))
	if err != nil {
		return schema.CruxRequest{}, err
	}

	return contract.ValidateCruxRequest(schema.CruxRequest{URLs: urls, Metrics: metrics, FormFactor: ff}, h.baseCfg.MaxURLs)
}

// toolError maps a pipeline error to a tool error result.
func toolError(err error) *mcp.CallToolResult {
	var unavailable *agg.UnavailableError
	switch {
	case errors.Is(err, fetch.ErrConfig):
		return mcp.NewToolResultError(fmt.Sprintf("server configuration error: %v", err))
	case errors.As(err, &unavailable):
		return mcp.NewToolResultError(unavailable.Error())
	default:
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err))
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleFetchRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := h.parseRequest(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	results, err := h.runner.Results(ctx, req)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results)
}

func (h *toolHandler) handleSummarize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := h.parseRequest(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	report, _, err := h.runner.Summary(ctx, req)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleListMetrics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(outwriter.MetricDefinitions())
}
