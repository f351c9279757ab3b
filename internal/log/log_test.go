package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLog_DisabledUntilInit(t *testing.T) {
	var buf bytes.Buffer
	Info(CatDBInit, "dropped")
	require.Empty(t, buf.String())

	restore := Init(&buf, LevelDebug)
	t.Cleanup(restore)

	Info(CatDBInit, "kept", "pass", "p-1")
	require.Contains(t, buf.String(), "[INFO] [dbinit] kept pass=p-1")
}

func TestLog_MinLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(Init(&buf, LevelWarn))

	Debug(CatContainer, "debug")
	Info(CatContainer, "info")
	Warn(CatContainer, "warn")

	out := buf.String()
	require.NotContains(t, out, "debug")
	require.NotContains(t, out, "] info")
	require.Contains(t, out, "[WARN] [container] warn")
}

func TestLog_OrphanFieldAndError(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(Init(&buf, LevelDebug))

	ErrorErr(CatScript, "failed", errors.New("boom"), "orphan")
	line := strings.TrimSpace(buf.String())
	require.Contains(t, line, "orphan=error")
	require.Contains(t, line, "boom=<missing>")
}

func TestLog_SetEnabled(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(Init(&buf, LevelDebug))

	SetEnabled(false)
	Error(CatCLI, "hidden")
	require.Empty(t, buf.String())

	SetEnabled(true)
	Error(CatCLI, "shown")
	require.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, LevelDebug, lvl)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}
