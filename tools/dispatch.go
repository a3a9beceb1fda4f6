package tools

import (
	"context"
	"errors"
	"log/slog"

	"github.com/quailyquaily/petirbridge/telegram"
)

// TextContent is one textual result item. Every tool call returns a list
// containing exactly one of these, including every failure mode.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func textResult(text string) []TextContent {
	return []TextContent{{Type: "text", Text: text}}
}

// Dispatcher routes tool calls by name and converts every outcome,
// including unknown tools and tool errors, into text content. Call never
// fails: the caller on the other side of the wire has no error channel
// besides the result text itself.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

func (d *Dispatcher) Call(ctx context.Context, name string, params map[string]any) []TextContent {
	tool, ok := d.registry.Get(name)
	if !ok {
		return textResult("Error: unknown tool: " + name)
	}
	out, err := tool.Execute(ctx, params)
	if err != nil {
		d.logger.Error("tool_call_error", "tool", name, "error", err.Error())
		var reqErr *telegram.RequestError
		if errors.As(err, &reqErr) {
			return textResult("Telegram error: " + reqErr.Error())
		}
		return textResult("Error: " + err.Error())
	}
	return textResult(out)
}
