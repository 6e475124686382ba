// Package nextversion reads the NEXT_VERSION override file.
package nextversion

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
)

// FileName is the conventional override file at the repository root.
const FileName = "NEXT_VERSION"

// Adapter implements ports.OverridePort by reading the first line of a file.
type Adapter struct {
	path   string
	logger *slog.Logger
}

// New creates an override reader for the file at path.
func New(path string, logger *slog.Logger) *Adapter {
	return &Adapter{path: path, logger: logger}
}

// NextVersion returns the first non-empty line of the override file. An
// absent or unreadable file is not an error: it yields "" so the resolver
// falls back to its default.
func (a *Adapter) NextVersion(_ context.Context) (string, error) {
	content, err := os.ReadFile(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Debug("no version override file", "path", a.path)
		return "", nil
	}
	if err != nil {
		a.logger.Warn("unreadable version override file, ignoring", "path", a.path, "error", err)
		return "", nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			a.logger.Debug("version override found", "path", a.path, "override", line)
			return line, nil
		}
	}
	return "", nil
}
