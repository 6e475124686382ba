package envdiscovery

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestListEnvironments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	svcDir := filepath.Join(dir, "helm-values", "my-service")
	if err := os.MkdirAll(filepath.Join(svcDir, "archive"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"value-overrides-stage.yaml",
		"value-overrides-dev.yaml",
		"value-overrides-qa.yaml",
		"values.yaml",
		"README.md",
	} {
		if err := os.WriteFile(filepath.Join(svcDir, name), []byte("image:\n  tag: 1.0.0\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	got, err := New().ListEnvironments(context.Background(), dir, "My Service")
	if err != nil {
		t.Fatalf("ListEnvironments failed: %v", err)
	}

	want := []string{"dev", "qa", "stage"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListEnvironments() = %v, want %v", got, want)
	}
}

func TestListEnvironments_MissingFolder(t *testing.T) {
	t.Parallel()

	got, err := New().ListEnvironments(context.Background(), t.TempDir(), "ghost")
	if err != nil {
		t.Fatalf("ListEnvironments failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no environments, got %v", got)
	}
}
