package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TS01: Human-mode status output
// ============================================================================

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, true)

	w.Status("*", "checking embedder...")

	assert.Contains(t, buf.String(), "*")
	assert.Contains(t, buf.String(), "checking embedder...")
}

func TestWriter_NoColor_NeverEmitsEscapeCodes(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, true)

	w.Success("done")
	w.Warning("careful")
	w.Error("failed")

	assert.NotContains(t, buf.String(), "\033[")
}

// ============================================================================
// TS02: JSON mode suppresses human output
// ============================================================================

func TestWriter_JSONMode_SuppressesStatusOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSON(buf)

	w.Status("*", "should not appear")
	w.Heading("should not appear either")
	w.Newline()

	assert.Empty(t, buf.String())
	assert.True(t, w.JSONMode())
}

func TestWriter_JSON_EncodesIndented(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSON(buf)

	require.NoError(t, w.JSON(map[string]int{"count": 3}))
	assert.Contains(t, buf.String(), "\"count\": 3")
}

func TestWriter_Emit_HumanModeRunsCallback(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, true)
	called := false

	require.NoError(t, w.Emit(map[string]int{"count": 1}, func() { called = true }))

	assert.True(t, called)
	assert.Empty(t, buf.String())
}

func TestWriter_Emit_JSONModeSkipsCallback(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSON(buf)
	called := false

	require.NoError(t, w.Emit(map[string]int{"count": 1}, func() { called = true }))

	assert.False(t, called)
	assert.Contains(t, buf.String(), "\"count\": 1")
}

// ============================================================================
// TS03: Table rendering
// ============================================================================

func TestWriter_Table_AlignsColumns(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, true)

	w.Table([]string{"ID", "Title"}, [][]string{
		{"doc-1", "Standup"},
		{"doc-2", "Quarterly planning"},
	})

	out := buf.String()
	assert.True(t, strings.Contains(out, "ID") && strings.Contains(out, "Title"))
	assert.Contains(t, out, "Standup")
	assert.Contains(t, out, "Quarterly planning")
}

func TestWriter_Table_JSONModeSuppressed(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSON(buf)

	w.Table([]string{"ID"}, [][]string{{"doc-1"}})

	assert.Empty(t, buf.String())
}
