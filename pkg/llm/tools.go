package llm

// ToolDefinition defines a tool that can be called by the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ParameterProperty defines a parameter property in JSON Schema form.
type ParameterProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Items       string   `json:"items,omitempty"` // element type for arrays
}

// NewToolDefinition creates a tool definition with standard JSON Schema
// parameters.
func NewToolDefinition(name, description string, properties map[string]ParameterProperty, required []string) ToolDefinition {
	props := make(map[string]any)
	for k, v := range properties {
		prop := map[string]any{
			"type": v.Type,
		}
		if v.Description != "" {
			prop["description"] = v.Description
		}
		if len(v.Enum) > 0 {
			prop["enum"] = v.Enum
		}
		if v.Items != "" {
			prop["items"] = map[string]any{"type": v.Items}
		}
		props[k] = prop
	}

	return ToolDefinition{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// MetricToolName is the single capability exposed to the model.
const MetricToolName = "query_vehicle_mrr"

// GetMetricTools returns the tool schema for the MRR-per-Vehicle query tool.
// presetKeys and sourceKeys come from the preset store and source registry
// so the enums never drift from what the backend accepts.
func GetMetricTools(presetKeys, sourceKeys []string) []ToolDefinition {
	return []ToolDefinition{
		NewToolDefinition(
			MetricToolName,
			"Query Monthly Recurring Revenue per Vehicle (MRRpV) and related ACV metrics. "+
				"Returns tabular rows plus an Overall weighted summary. "+
				"Pass the user's current view fields unchanged unless the user explicitly asked to change them.",
			map[string]ParameterProperty{
				"preset": {
					Type:        "string",
					Description: "Named view template to run",
					Enum:        presetKeys,
				},
				"data_source": {
					Type:        "string",
					Description: "Which table to aggregate",
					Enum:        sourceKeys,
				},
				"time_window": {
					Type:        "string",
					Description: "Comma-joined fiscal quarter labels, e.g. \"FY26 Q1,FY26 Q2\". Omit for all time.",
				},
				"group_by": {
					Type:        "string",
					Description: "Breakdown dimension",
					Enum:        []string{"industry", "segment", "geo", "geo_segment"},
				},
				"region": {
					Type:        "string",
					Description: "Restrict to a single region/geo",
				},
				"include_regions": {
					Type:        "array",
					Description: "Restrict to these regions",
					Items:       "string",
				},
				"exclude_regions": {
					Type:        "array",
					Description: "Exclude these regions",
					Items:       "string",
				},
				"segment": {
					Type:        "string",
					Description: "Restrict to a single segment",
				},
				"include_segments": {
					Type:        "array",
					Description: "Restrict to these segments",
					Items:       "string",
				},
				"exclude_segments": {
					Type:        "array",
					Description: "Exclude these segments",
					Items:       "string",
				},
				"industry": {
					Type:        "string",
					Description: "Restrict to a single industry (not available on the fleet source)",
				},
				"include_industries": {
					Type:        "array",
					Description: "Restrict to these industries",
					Items:       "string",
				},
				"exclude_industries": {
					Type:        "array",
					Description: "Exclude these industries",
					Items:       "string",
				},
				"products": {
					Type:        "array",
					Description: "Restrict to deals that include ALL of these products (e.g. cameras, telematics)",
					Items:       "string",
				},
				"include_account_count": {
					Type:        "boolean",
					Description: "Add a distinct account count column",
				},
				"include_avg_deal_size": {
					Type:        "boolean",
					Description: "Add an average deal size column (total ACV / distinct accounts)",
				},
				"include_acv": {
					Type:        "boolean",
					Description: "Add a total ACV column",
				},
			},
			[]string{},
		),
	}
}
