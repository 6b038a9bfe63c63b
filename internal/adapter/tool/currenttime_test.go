package tool

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentTimeTool(t *testing.T) {
	tool := NewCurrentTimeTool(testLogger())
	tool.now = func() time.Time {
		return time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)
	}

	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "Fri Mar 15 2024 09:30:00 UTC", result.Content)
}

func TestCurrentTimeToolConvertsToUTC(t *testing.T) {
	tool := NewCurrentTimeTool(testLogger())
	tool.now = func() time.Time {
		return time.Date(2024, time.March, 15, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))
	}

	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "Fri Mar 15 2024 14:30:00 UTC", result.Content)
}

func TestCurrentTimeToolIgnoresExtraParams(t *testing.T) {
	tool := NewCurrentTimeTool(testLogger())
	tool.now = func() time.Time {
		return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"timezone":"UTC"}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestCurrentTimeToolSchema(t *testing.T) {
	tool := NewCurrentTimeTool(testLogger())
	schema := tool.Schema()
	assert.Equal(t, "current_time", schema.Name)
	assert.NotEmpty(t, schema.Description)
	assert.True(t, json.Valid(schema.Parameters))
}
