package nextversion

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNextVersion(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		content *string
		want    string
	}{
		{name: "absent file", content: nil, want: ""},
		{name: "single line", content: ptr("2.0.0"), want: "2.0.0"},
		{name: "trailing newline and spaces", content: ptr("  2.1.0  \n"), want: "2.1.0"},
		{name: "first non-empty line wins", content: ptr("\n\n3.0.0\n4.0.0\n"), want: "3.0.0"},
		{name: "empty file", content: ptr(""), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			got, err := New(path, logger).NextVersion(context.Background())
			if err != nil {
				t.Fatalf("NextVersion() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NextVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNextVersion_UnreadableIsIgnored(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// A directory in place of the file cannot be read as one.
	dir := t.TempDir()
	got, err := New(dir, logger).NextVersion(context.Background())
	if err != nil {
		t.Fatalf("NextVersion() unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("NextVersion() = %q, want empty", got)
	}
}

func ptr(s string) *string { return &s }
