package catalog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aion-timer/backend/internal/schedule"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefault_LoadsBuiltInEvents(t *testing.T) {
	c, err := Default(discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 12, c.Len())
	assert.Equal(t, "1", c.IDs()[0])

	dredgion, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, []string{"07:00", "12:00", "18:00"}, dredgion.Openings)
	assert.Equal(t, 120, dredgion.DurationMinutes)
	assert.Len(t, dredgion.Days, 7)

	siege, ok := c.Get("5")
	require.True(t, ok)
	assert.Equal(t, []int{schedule.Saturday}, siege.Days)
	assert.Equal(t, []string{"17:00"}, siege.Openings)

	for _, def := range c.All() {
		assert.Empty(t, def.Problems(), "event %s", def.ID)
	}
}

func TestParse_NormalizesShapes(t *testing.T) {
	data := []byte(`
events:
  - id: single-default
    name: Single
    day: 2
    time: "09:00"
  - id: multi-default
    name: Multi
    day: [0, 6]
    open_times: ["08:00", "20:00"]
  - id: single-explicit
    name: Explicit
    day: [1]
    time: "10:00"
    duration: 15
`)

	c, err := Parse(data, discardLogger())
	require.NoError(t, err)

	single, _ := c.Get("single-default")
	assert.Equal(t, []int{2}, single.Days)
	assert.Equal(t, []string{"09:00"}, single.Openings)
	assert.Equal(t, schedule.DefaultDurationMinutes, single.DurationMinutes)

	multi, _ := c.Get("multi-default")
	assert.Equal(t, []string{"08:00", "20:00"}, multi.Openings)
	assert.Equal(t, 0, multi.DurationMinutes)

	explicit, _ := c.Get("single-explicit")
	assert.Equal(t, 15, explicit.DurationMinutes)
}

func TestParse_KeepsMalformedDefinitions(t *testing.T) {
	data := []byte(`
events:
  - id: broken
    name: Broken
    day: [9]
    time: "26:00"
`)

	c, err := Parse(data, discardLogger())
	require.NoError(t, err)
	assert.True(t, c.Has("broken"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "events: [\n"},
		{"missing id", "events:\n  - name: x\n    day: 1\n    time: \"10:00\"\n"},
		{"duplicate id", "events:\n  - id: a\n    day: 1\n  - id: a\n    day: 2\n"},
		{"bad day", "events:\n  - id: a\n    day: monday\n"},
		{"empty", "events: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), discardLogger())
			require.Error(t, err)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte("events:\n  - id: only\n    name: Only\n    day: 3\n    time: \"21:00\"\n"), 0o600))

	c, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, c.IDs())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), discardLogger())
	require.Error(t, err)
}

func TestAll_ReturnsCopy(t *testing.T) {
	c, err := Default(discardLogger())
	require.NoError(t, err)

	defs := c.All()
	defs[0].Name = "changed"

	again, _ := c.Get(defs[0].ID)
	assert.NotEqual(t, "changed", again.Name)
}
