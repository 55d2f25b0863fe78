package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "sw1", SanitizeFilename("sw1"))
	assert.Equal(t, "sw1", SanitizeFilename(` sw*?1<>| `))
	assert.Equal(t, "ab", SanitizeFilename(`a\/b`))

	long := strings.Repeat("x", 100)
	assert.Len(t, SanitizeFilename(long), 60)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "auth failed: password=***", Redact("auth failed: password=Cisco@123"))
	assert.Equal(t, "Secret=***", Redact("Secret = s3cr3t"))
	assert.Equal(t, "timed out after 20s", Redact("timed out after 20s"))
}

func TestSaveResult(t *testing.T) {
	dest := t.TempDir()
	w := NewWriter(dest)
	w.now = func() time.Time { return time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC) }

	path, err := w.SaveResult("192.168.1.1", "sw1", "show version output\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "result_20240517", "192.168.1.1_sw1.txt"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "=== 192.168.1.1 (sw1) ===\nshow version output\n", string(b))

	// no stray temp files left behind
	entries, err := os.ReadDir(filepath.Join(dest, "result_20240517"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveResultOverwrites(t *testing.T) {
	dest := t.TempDir()
	w := NewWriter(dest)

	_, err := w.SaveResult("10.0.0.1", "sw1", "first")
	require.NoError(t, err)
	path, err := w.SaveResult("10.0.0.1", "sw1", "second")
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "second")
}

func TestSaveResultUnknownHostname(t *testing.T) {
	dest := t.TempDir()
	w := NewWriter(dest)

	path, err := w.SaveResult("10.0.0.1", "", "output")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "10.0.0.1_unknown.txt"))
}

func TestLogError(t *testing.T) {
	dest := t.TempDir()
	w := NewWriter(dest)
	w.now = func() time.Time { return time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC) }

	require.NoError(t, w.LogError("192.168.1.1", "auth failed: password=oops"))
	require.NoError(t, w.LogError("192.168.1.2", "timed out"))

	b, err := os.ReadFile(filepath.Join(dest, "error.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-05-17 10:30:00 | 192.168.1.1 | auth failed: password=***", lines[0])
	assert.Equal(t, "2024-05-17 10:30:00 | 192.168.1.2 | timed out", lines[1])
}
