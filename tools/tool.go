package tools

import "context"

// Tool is one named operation a non-chat caller can invoke. ParameterSchema
// returns a JSON Schema document describing the params map.
type Tool interface {
	Name() string
	Description() string
	ParameterSchema() string
	Execute(ctx context.Context, params map[string]any) (string, error)
}
