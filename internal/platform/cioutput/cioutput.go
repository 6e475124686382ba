// Package cioutput publishes step outputs to the CI runner. Values are
// appended to the file named by GITHUB_OUTPUT when it is set.
package cioutput

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Output is a pending key/value pair.
type Output struct {
	Key   string
	Value string
}

// Writer appends outputs to a GitHub Actions output file. A Writer with an
// empty path is a no-op, so local runs behave the same as CI runs.
type Writer struct {
	path string
}

// New creates a Writer for the output file at path.
func New(path string) *Writer {
	return &Writer{path: path}
}

// Enabled reports whether outputs are written anywhere.
func (w *Writer) Enabled() bool {
	return w.path != ""
}

// Write appends every output to the file in one write.
func (w *Writer) Write(outputs ...Output) error {
	if w.path == "" || len(outputs) == 0 {
		return nil
	}

	var buf strings.Builder
	for _, o := range outputs {
		if o.Key == "" || strings.ContainsAny(o.Key, "=\n") {
			return fmt.Errorf("invalid output name %q", o.Key)
		}
		if strings.Contains(o.Value, "\n") {
			delim, err := delimiter()
			if err != nil {
				return err
			}
			fmt.Fprintf(&buf, "%s<<%s\n%s\n%s\n", o.Key, delim, o.Value, delim)
			continue
		}
		fmt.Fprintf(&buf, "%s=%s\n", o.Key, o.Value)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening CI output file: %w", err)
	}
	if _, err := f.WriteString(buf.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing CI output file: %w", err)
	}
	return f.Close()
}

// delimiter returns a random heredoc marker that cannot collide with the value.
func delimiter() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating output delimiter: %w", err)
	}
	return "ghadelimiter_" + hex.EncodeToString(b), nil
}
