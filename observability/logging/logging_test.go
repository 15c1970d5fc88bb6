package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWritesStructuredLines(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("termswapd", "test", WithOutput(&buf))
	logger.Info("pool updated", "pair", "0xabc", "maturity", 42)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "termswapd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "pool updated", line["message"])
	require.Contains(t, line, "timestamp")
	require.EqualValues(t, 42, line["maturity"])
}

func TestSetupHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("termswapd", "", WithOutput(&buf), WithLevel("warn"))
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	require.NotContains(t, out, "dropped")
	require.Contains(t, out, "kept")
	require.NotContains(t, out, `"env"`)
}

func TestSetupMirrorsToRotatedFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "termswapd.log")
	logger := Setup("termswapd", "", WithOutput(&buf), WithFile(FileConfig{Path: path, MaxSizeMB: 1}))
	logger.Info("to both sinks")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "to both sinks"))
	require.Contains(t, buf.String(), "to both sinks")
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("authorization", "Bearer abc").Value.String())
	require.Equal(t, "0xabc", MaskField("pair", "0xabc").Value.String())
	require.Equal(t, "", MaskField("authorization", "").Value.String())
	require.Equal(t, RedactedValue, MaskValue("secret"))
	require.Contains(t, RedactionAllowlist(), "request_id")
}
