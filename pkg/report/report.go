package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var unsafeFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// SanitizeFilename strips characters that are unsafe in file names and
// caps the length.
func SanitizeFilename(name string) string {
	clean := unsafeFilenameChars.ReplaceAllString(name, "")
	clean = strings.TrimSpace(clean)
	if len(clean) > 60 {
		clean = clean[:60]
	}
	return clean
}

// Writer stores per-device results under <dest>/result_<YYYYMMDD>/ and
// failures in <dest>/error.log.
type Writer struct {
	dest string
	now  func() time.Time

	errorLogMutex sync.Mutex
}

func NewWriter(dest string) *Writer {
	return &Writer{
		dest: dest,
		now:  time.Now,
	}
}

func (w *Writer) resultDir() (string, error) {
	dir := filepath.Join(w.dest, fmt.Sprintf("result_%s", w.now().Format("20060102")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// SaveResult writes one device's output. The write goes through a temp
// file and a rename so that a crashed run never leaves half a result.
func (w *Writer) SaveResult(host string, hostname string, output string) (string, error) {
	dir, err := w.resultDir()
	if err != nil {
		return "", err
	}

	if hostname == "" {
		hostname = "unknown"
	}
	filename := fmt.Sprintf("%s_%s.txt", SanitizeFilename(host), SanitizeFilename(hostname))
	content := fmt.Sprintf("=== %s (%s) ===\n%s", host, hostname, output)

	tmp, err := os.CreateTemp(dir, ".result-*")
	if err != nil {
		return "", err
	}
	_, err = tmp.WriteString(content)
	if err2 := tmp.Close(); err == nil {
		err = err2
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.Wrapf(err, "failed to write result for %s", host)
	}

	path := filepath.Join(dir, filename)
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

var secretValues = regexp.MustCompile(`(?i)(password|secret)\s*=\s*\S+`)

// Redact masks credential values that might leak into error messages.
func Redact(s string) string {
	return secretValues.ReplaceAllString(s, "${1}=***")
}

// LogError appends a redacted, timestamped line to error.log. Safe for
// concurrent use.
func (w *Writer) LogError(host string, message string) error {
	line := fmt.Sprintf("%s | %s | %s\n", w.now().Format("2006-01-02 15:04:05"), host, Redact(message))

	w.errorLogMutex.Lock()
	defer w.errorLogMutex.Unlock()

	if err := os.MkdirAll(w.dest, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(w.dest, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(line)
	return err
}
