// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/cruxreport/core"
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Shared tool parameter descriptions.
const (
	urlsDescription       = "Comma-separated list of page URLs to look up."
	metricsDescription    = "Comma-separated CrUX metric names. Defaults to every supported metric."
	formFactorDescription = "Device form factor (Phone, Desktop, Tablet). Defaults to all devices combined."
)

// NewMCPServer initializes and configures the CrUX MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, runner contract.CruxRunner) *server.MCPServer {
	s := server.NewMCPServer(
		"CrUX Report Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		runner:  runner,
	}

	// --- 1. Tool: fetch_crux_records ---
	s.AddTool(mcp.NewTool("fetch_crux_records",
		mcp.WithDescription("Fetch Chrome UX Report field data for each URL. Per-URL failures are reported inline."),
		mcp.WithString("urls", mcp.Description(urlsDescription), mcp.Required()),
		mcp.WithString("metrics", mcp.Description(metricsDescription)),
		mcp.WithString("form_factor", mcp.Description(formFactorDescription), mcp.Enum("Phone", "Desktop", "Tablet")),
	), h.handleFetchRecords)

	// --- 2. Tool: summarize_crux_metrics ---
	s.AddTool(mcp.NewTool("summarize_crux_metrics",
		mcp.WithDescription("Average the good / needs-improvement / poor densities and p75 of each metric across URLs, with performance insights."),
		mcp.WithString("urls", mcp.Description(urlsDescription), mcp.Required()),
		mcp.WithString("metrics", mcp.Description(metricsDescription)),
		mcp.WithString("form_factor", mcp.Description(formFactorDescription), mcp.Enum("Phone", "Desktop", "Tablet")),
	), h.handleSummarize)

	// --- 3. Tool: list_metrics ---
	s.AddTool(mcp.NewTool("list_metrics",
		mcp.WithDescription("List the supported CrUX metrics with their p75 rating thresholds."),
	), h.handleListMetrics)

	return s
}

// StartMCPServer starts the CrUX MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	runner := core.NewRunner(baseCfg, mgr, core.WithLogger(contract.GetLogger()))
	s := NewMCPServer(baseCfg, runner)
	return server.ServeStdio(s)
}
