package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/fleetlens/mrrpv-engine/pkg/apperrors"
	"github.com/fleetlens/mrrpv-engine/pkg/metrics"
)

// MetricsHandler exposes the query compiler directly, bypassing the
// conversational layer. Useful for dashboards and debugging.
type MetricsHandler struct {
	compiler *metrics.Compiler
	presets  *metrics.PresetStore
	logger   *zap.Logger
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(compiler *metrics.Compiler, presets *metrics.PresetStore, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{compiler: compiler, presets: presets, logger: logger}
}

// RegisterRoutes registers the metrics handler's routes on the given mux.
func (h *MetricsHandler) RegisterRoutes(mux *http.ServeMux, secret func(http.Handler) http.Handler) {
	mux.Handle("POST /api/metrics/query", secret(http.HandlerFunc(h.Query)))
	mux.Handle("GET /api/presets", secret(http.HandlerFunc(h.ListPresets)))
	mux.Handle("GET /api/sources", secret(http.HandlerFunc(h.ListSources)))
}

// Query handles POST /api/metrics/query with a metrics.QueryParams body.
func (h *MetricsHandler) Query(w http.ResponseWriter, r *http.Request) {
	var params metrics.QueryParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if params.Preset != "" {
		preset, err := h.presets.Get(params.Preset)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
			return
		}
		params = preset.Apply(params)
	}

	result, err := h.compiler.Run(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}

// ListPresets handles GET /api/presets.
func (h *MetricsHandler) ListPresets(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, map[string]any{
		"presets": h.presets.List(),
	}); err != nil {
		h.logger.Error("Failed to encode presets response", zap.Error(err))
	}
}

// SourceInfo describes one registered source for API consumers.
type SourceInfo struct {
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	Dimensions []string `json:"dimensions"`
}

// ListSources handles GET /api/sources.
func (h *MetricsHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources := make([]SourceInfo, 0)
	for _, key := range metrics.SourceKeys() {
		desc, err := metrics.Describe(key)
		if err != nil {
			continue
		}
		dims := make([]string, 0, len(desc.AllowedGroupBy))
		for _, d := range desc.AllowedGroupBy {
			dims = append(dims, string(d))
		}
		sources = append(sources, SourceInfo{
			Key:        key,
			Label:      desc.Label,
			Dimensions: dims,
		})
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{
		"sources": sources,
	}); err != nil {
		h.logger.Error("Failed to encode sources response", zap.Error(err))
	}
}

func (h *MetricsHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsInvalidParameter(err), apperrors.IsFilterTooLarge(err):
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
	case apperrors.IsTimeout(err):
		_ = ErrorResponse(w, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		h.logger.Error("Metric query failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "query failed")
	}
}
