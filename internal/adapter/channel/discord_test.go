package channel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessageShortTextUntouched(t *testing.T) {
	got := splitMessage("hello", discordMaxMessageLen)
	assert.Equal(t, []string{"hello"}, got)
}

func TestSplitMessagePrefersNewlines(t *testing.T) {
	text := strings.Repeat("a", 60) + "\n" + strings.Repeat("b", 60)
	got := splitMessage(text, 100)

	require.Len(t, got, 2)
	assert.Equal(t, strings.Repeat("a", 60), got[0])
	assert.Equal(t, strings.Repeat("b", 60), got[1])
}

func TestSplitMessageFallsBackToSpaces(t *testing.T) {
	text := strings.Repeat("word ", 50)
	got := splitMessage(strings.TrimSpace(text), 100)

	for i, part := range got {
		assert.LessOrEqual(t, len(part), 100, "part %d too long", i)
		assert.False(t, strings.HasPrefix(part, " "), "part %d has leading space", i)
		assert.False(t, strings.HasSuffix(part, " "), "part %d has trailing space", i)
	}
	assert.Equal(t, strings.Fields(strings.TrimSpace(text)), strings.Fields(strings.Join(got, " ")))
}

func TestSplitMessageHardCutsUnbrokenText(t *testing.T) {
	text := strings.Repeat("x", 250)
	got := splitMessage(text, 100)

	require.Len(t, got, 3)
	assert.Equal(t, strings.Repeat("x", 100), got[0])
	assert.Equal(t, strings.Repeat("x", 100), got[1])
	assert.Equal(t, strings.Repeat("x", 50), got[2])
}

func TestSplitMessageEveryPartWithinLimit(t *testing.T) {
	text := strings.Repeat("some words here\nand a newline ", 300)
	for _, part := range splitMessage(text, discordMaxMessageLen) {
		assert.LessOrEqual(t, len(part), discordMaxMessageLen)
		assert.NotEmpty(t, part)
	}
}
