// Package tools provides MCP tool implementations for the metrics engine.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/fleetlens/mrrpv-engine/pkg/llm"
	"github.com/fleetlens/mrrpv-engine/pkg/metrics"
	"github.com/fleetlens/mrrpv-engine/pkg/services"
)

// MetricToolDeps contains dependencies for the metric MCP tool.
type MetricToolDeps struct {
	Executor *services.MetricsToolExecutor
	Presets  *metrics.PresetStore
	Logger   *zap.Logger
}

func stringItems() map[string]any {
	return map[string]any{"type": "string"}
}

// RegisterMetricTool registers the MRR-per-vehicle query tool. MCP calls are
// stateless: each call stands alone, with no view carried between calls.
func RegisterMetricTool(s *server.MCPServer, deps *MetricToolDeps) {
	tool := mcp.NewTool(
		llm.MetricToolName,
		mcp.WithDescription(
			"Query monthly recurring revenue per vehicle (MRR per vehicle) from the "+
				"revenue warehouse. Results are grouped by fiscal quarter, and optionally by a "+
				"dimension, with a weighted Overall summary. "+
				"Presets: "+strings.Join(deps.Presets.Keys(), ", ")+". "+
				"Sources: "+strings.Join(metrics.SourceKeys(), ", ")+".",
		),
		mcp.WithString("preset",
			mcp.Description("Preset key supplying default source, window, and grouping")),
		mcp.WithString("data_source",
			mcp.Description("Source table key; required unless preset is set")),
		mcp.WithString("time_window",
			mcp.Description("Comma-separated fiscal quarter labels, e.g. 'FY26 Q1,FY26 Q2'")),
		mcp.WithString("group_by",
			mcp.Description("Grouping dimension: industry, segment, geo, or geo_segment")),
		mcp.WithString("region", mcp.Description("Single region filter value")),
		mcp.WithArray("include_regions", mcp.Description("Regions to include"), mcp.Items(stringItems())),
		mcp.WithArray("exclude_regions", mcp.Description("Regions to exclude"), mcp.Items(stringItems())),
		mcp.WithString("segment", mcp.Description("Single segment filter value")),
		mcp.WithArray("include_segments", mcp.Description("Segments to include"), mcp.Items(stringItems())),
		mcp.WithArray("exclude_segments", mcp.Description("Segments to exclude"), mcp.Items(stringItems())),
		mcp.WithString("industry", mcp.Description("Single industry filter value")),
		mcp.WithArray("include_industries", mcp.Description("Industries to include"), mcp.Items(stringItems())),
		mcp.WithArray("exclude_industries", mcp.Description("Industries to exclude"), mcp.Items(stringItems())),
		mcp.WithArray("products", mcp.Description("Product keys; rows must hold every listed product"), mcp.Items(stringItems())),
		mcp.WithBoolean("include_account_count", mcp.Description("Add distinct account counts")),
		mcp.WithBoolean("include_avg_deal_size", mcp.Description("Add average deal size")),
		mcp.WithBoolean("include_acv", mcp.Description("Add total annual contract value")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return nil, fmt.Errorf("marshal tool arguments: %w", err)
		}

		turn := deps.Executor.ForTurn(nil, "")
		output, err := turn.ExecuteTool(ctx, llm.MetricToolName, string(args))
		if err != nil {
			deps.Logger.Error("metric tool failed", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(output), nil
	})
}
