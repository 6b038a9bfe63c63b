package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"botbrain/internal/domain"
)

// CurrentTimeTool reports the server's current date and time. Registered
// only for bots with the time capability enabled.
type CurrentTimeTool struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewCurrentTimeTool creates the current time tool.
func NewCurrentTimeTool(logger *slog.Logger) *CurrentTimeTool {
	return &CurrentTimeTool{logger: logger, now: time.Now}
}

func (t *CurrentTimeTool) Name() string { return "current_time" }

func (t *CurrentTimeTool) Description() string {
	return "Get the current date and time. Use when the user asks about the present moment or anything time-dependent."
}

func (t *CurrentTimeTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  json.RawMessage(`{"type":"object","properties":{}}`),
	}
}

type currentTimeParams struct{}

// Execute implements domain.Tool.
func (t *CurrentTimeTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.current_time", t.logger, params,
		func(ctx context.Context, span trace.Span, p currentTimeParams) (any, error) {
			// Always UTC so replies don't depend on the server's zone.
			return t.now().UTC().Format("Mon Jan 2 2006 15:04:05 MST"), nil
		})
}

var _ domain.Tool = (*CurrentTimeTool)(nil)
