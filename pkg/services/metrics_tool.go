// Package services orchestrates the conversational turn loop and the metric
// tool dispatched to it.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
	"github.com/fleetlens/mrrpv-engine/pkg/llm"
	"github.com/fleetlens/mrrpv-engine/pkg/metrics"
	"github.com/fleetlens/mrrpv-engine/pkg/reconcile"
)

// MetricsToolExecutor dispatches the metric tool: reconcile the proposal
// against the current view, then compile and run the query. It does no
// arithmetic of its own; every number comes from the compiler.
type MetricsToolExecutor struct {
	compiler   *metrics.Compiler
	reconciler *reconcile.Reconciler
	presets    *metrics.PresetStore
	logger     *zap.Logger
}

// NewMetricsToolExecutor creates the executor.
func NewMetricsToolExecutor(compiler *metrics.Compiler, reconciler *reconcile.Reconciler, presets *metrics.PresetStore, logger *zap.Logger) *MetricsToolExecutor {
	return &MetricsToolExecutor{
		compiler:   compiler,
		reconciler: reconciler,
		presets:    presets,
		logger:     logger.Named("metrics-tool"),
	}
}

// ForTurn binds the executor to one conversational turn: the current view
// and the user's utterance drive reconciliation, and the turn records what
// actually ran so the caller can update stored state afterwards.
func (e *MetricsToolExecutor) ForTurn(currentView *metrics.QueryParams, utterance string) *TurnExecutor {
	return &TurnExecutor{parent: e, currentView: currentView, utterance: utterance}
}

// TurnExecutor implements llm.ToolExecutor for a single turn.
type TurnExecutor struct {
	parent      *MetricsToolExecutor
	currentView *metrics.QueryParams
	utterance   string

	// Set by ExecuteTool on the last successful invocation.
	EffectiveParams *metrics.QueryParams
	Result          *metrics.Result
	Outcome         *reconcile.Outcome
}

var _ llm.ToolExecutor = (*TurnExecutor)(nil)

// metricToolArgs is the flat argument shape of the exposed tool.
type metricToolArgs struct {
	Preset             string   `json:"preset"`
	DataSource         string   `json:"data_source"`
	TimeWindow         string   `json:"time_window"`
	GroupBy            string   `json:"group_by"`
	Region             string   `json:"region"`
	IncludeRegions     []string `json:"include_regions"`
	ExcludeRegions     []string `json:"exclude_regions"`
	Segment            string   `json:"segment"`
	IncludeSegments    []string `json:"include_segments"`
	ExcludeSegments    []string `json:"exclude_segments"`
	Industry           string   `json:"industry"`
	IncludeIndustries  []string `json:"include_industries"`
	ExcludeIndustries  []string `json:"exclude_industries"`
	Products           []string `json:"products"`
	IncludeAccounts    bool     `json:"include_account_count"`
	IncludeAvgDealSize bool     `json:"include_avg_deal_size"`
	IncludeACV         bool     `json:"include_acv"`
}

func (a *metricToolArgs) toParams() metrics.QueryParams {
	params := metrics.QueryParams{
		Preset:          a.Preset,
		Source:          a.DataSource,
		GroupBy:         metrics.Dimension(a.GroupBy),
		Products:        a.Products,
		IncludeAccounts: a.IncludeAccounts,
		IncludeAvgDeal:  a.IncludeAvgDealSize,
		IncludeACV:      a.IncludeACV,
	}

	// The tool schema carries the window as comma-joined quarter labels.
	if a.TimeWindow != "" {
		for _, period := range strings.Split(a.TimeWindow, ",") {
			if p := strings.TrimSpace(period); p != "" {
				params.TimeWindow = append(params.TimeWindow, p)
			}
		}
	}

	filters := make(map[metrics.Dimension]metrics.FilterArg)
	if a.Region != "" || len(a.IncludeRegions) > 0 || len(a.ExcludeRegions) > 0 {
		filters[metrics.DimGeo] = metrics.FilterArg{Value: a.Region, Include: a.IncludeRegions, Exclude: a.ExcludeRegions}
	}
	if a.Segment != "" || len(a.IncludeSegments) > 0 || len(a.ExcludeSegments) > 0 {
		filters[metrics.DimSegment] = metrics.FilterArg{Value: a.Segment, Include: a.IncludeSegments, Exclude: a.ExcludeSegments}
	}
	if a.Industry != "" || len(a.IncludeIndustries) > 0 || len(a.ExcludeIndustries) > 0 {
		filters[metrics.DimIndustry] = metrics.FilterArg{Value: a.Industry, Include: a.IncludeIndustries, Exclude: a.ExcludeIndustries}
	}
	if len(filters) > 0 {
		params.Filters = filters
	}
	return params
}

// toolSuccess is the tool output shape on success.
type toolSuccess struct {
	Success  bool             `json:"success"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	Overall  *metrics.Overall `json:"overall,omitempty"`
}

// toolFailure is the tool output shape on failure. Caller-correctable
// failures go back to the model as JSON rather than Go errors so it can
// read the allowed values and self-correct.
type toolFailure struct {
	Success bool   `json:"success"`
	Type    string `json:"error_type"`
	Message string `json:"error"`
}

// ExecuteTool implements llm.ToolExecutor.
func (t *TurnExecutor) ExecuteTool(ctx context.Context, name string, arguments string) (string, error) {
	if name != llm.MetricToolName {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	var args metricToolArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return marshalFailure("invalid_parameter", fmt.Sprintf("invalid arguments: %v", err))
	}

	proposed := args.toParams()
	if proposed.Preset == "" && proposed.Source == "" {
		return marshalFailure("invalid_parameter",
			fmt.Sprintf("preset or data_source is required (presets: %s; sources: %s)",
				strings.Join(t.parent.presets.Keys(), ", "),
				strings.Join(metrics.SourceKeys(), ", ")))
	}

	effective, outcome := t.parent.reconciler.Reconcile(t.currentView, proposed, t.utterance)

	result, err := t.parent.compiler.Run(ctx, effective)
	if err != nil {
		t.parent.logger.Warn("metric query failed",
			zap.String("source", effective.Source),
			zap.Error(err))
		return marshalFailure(errorType(err), err.Error())
	}

	t.EffectiveParams = &effective
	t.Result = result
	t.Outcome = &outcome

	out, err := json.Marshal(toolSuccess{
		Success:  true,
		Columns:  result.Columns,
		Rows:     result.Rows,
		RowCount: result.RowCount,
		Overall:  result.Overall,
	})
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}
	return string(out), nil
}

func errorType(err error) string {
	switch {
	case apperrors.IsTimeout(err):
		return "timeout"
	case apperrors.IsInvalidParameter(err):
		return "invalid_parameter"
	case apperrors.IsFilterTooLarge(err):
		return "filter_too_large"
	case apperrors.IsExecution(err):
		return "execution_error"
	default:
		return "error"
	}
}

func marshalFailure(errType, message string) (string, error) {
	out, err := json.Marshal(toolFailure{Success: false, Type: errType, Message: message})
	if err != nil {
		return "", fmt.Errorf("marshal tool failure: %w", err)
	}
	return string(out), nil
}
