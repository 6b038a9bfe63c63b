package tool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botbrain/internal/domain"
)

type fakeTool struct {
	name   string
	params string
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return "fake tool" }
func (t *fakeTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.name,
		Description: t.Description(),
		Parameters:  json.RawMessage(t.params),
	}
}
func (t *fakeTool) Execute(context.Context, json.RawMessage) (*domain.ToolResult, error) {
	return &domain.ToolResult{Content: "ok"}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(testLogger())
	require.NoError(t, r.Register(&fakeTool{name: "alpha"}))

	got, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Name())
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	r := NewRegistry(testLogger())
	require.NoError(t, r.Register(&fakeTool{name: "alpha"}))
	assert.Error(t, r.Register(&fakeTool{name: "alpha"}))
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry(testLogger())
	_, err := r.Get("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrToolNotFound), "got %v", err)
}

func TestRegistrySchemas(t *testing.T) {
	r := NewRegistry(testLogger())
	require.NoError(t, r.Register(&fakeTool{name: "alpha"}))
	require.NoError(t, r.Register(&fakeTool{name: "beta"}))

	schemas := r.Schemas()
	require.Len(t, schemas, 2)
	names := []string{schemas[0].Name, schemas[1].Name}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
}

func TestRegistryValidatesParamsAgainstSchema(t *testing.T) {
	r := NewRegistry(testLogger())
	require.NoError(t, r.Register(&fakeTool{
		name:   "strict",
		params: `{"type":"object","properties":{"n":{"type":"integer"}},"required":["n"]}`,
	}))

	tool, err := r.Get("strict")
	require.NoError(t, err)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"n":"not a number"}`))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "schema validation failed")

	result, err = tool.Execute(context.Background(), json.RawMessage(`{"n":3}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "ok", result.Content)
}

func TestForBotCapabilityFlags(t *testing.T) {
	tests := []struct {
		name     string
		time     bool
		internet bool
		want     []string
	}{
		{"no capabilities", false, false, nil},
		{"time only", true, false, []string{"current_time"}},
		{"internet only", false, true, []string{"webpage"}},
		{"both", true, true, []string{"current_time", "webpage"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := domain.BotConfig{
				ID:               "bot-1",
				Model:            "gpt-4o",
				FunctionTime:     tt.time,
				FunctionInternet: tt.internet,
			}
			r := ForBot(bot, &mockLLM{}, &stubFetcher{}, testLogger())

			var names []string
			for _, s := range r.Schemas() {
				names = append(names, s.Name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}
