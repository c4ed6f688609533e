package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Tool is a capability the remote agent may invoke during an exchange.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema

	execute func(ctx context.Context, input json.RawMessage) (ToolOutput, error)
}

// ToolOutput is what a tool execution produces: text for the agent to read
// and, for screen-related tools, a screenshot.
type ToolOutput struct {
	Text  string
	Image *ImageBlock
}

// NewTool builds a tool whose input schema is reflected from the parameter
// struct's json tags. The handler receives the agent's arguments already
// unmarshalled.
func NewTool[T any](name, description string, handler func(ctx context.Context, params T) (ToolOutput, error)) Tool {
	reflector := jsonschema.Reflector{DoNotReference: true}
	var params T
	return Tool{
		Name:        name,
		Description: description,
		InputSchema: reflector.Reflect(params),
		execute: func(ctx context.Context, input json.RawMessage) (ToolOutput, error) {
			var params T
			if len(input) > 0 {
				if err := json.Unmarshal(input, &params); err != nil {
					return ToolOutput{}, fmt.Errorf("failed to parse tool input: %w", err)
				}
			}
			return handler(ctx, params)
		},
	}
}

// Execute runs the tool against the raw JSON input.
func (t Tool) Execute(ctx context.Context, input json.RawMessage) (ToolOutput, error) {
	if t.execute == nil {
		return ToolOutput{}, fmt.Errorf("tool %q has no handler", t.Name)
	}
	return t.execute(ctx, input)
}
