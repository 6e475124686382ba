// Package envdiscovery lists the environments a service is deployed to by
// scanning its values directory in the GitOps checkout.
package envdiscovery

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/nathantilsley/chart-release/internal/release/domain"
)

// Adapter implements ports.EnvironmentListerPort by scanning
// helm-values/<folder>/ for value-overrides-<env>.yaml files.
type Adapter struct{}

// New creates a new environment discovery adapter.
func New() *Adapter {
	return &Adapter{}
}

// ListEnvironments returns the sorted environment names found for folderName
// under dir. A missing folder yields no environments and no error.
func (a *Adapter) ListEnvironments(_ context.Context, dir, folderName string) ([]string, error) {
	valuesDir := filepath.Join(dir, filepath.FromSlash(domain.ValuesDir(folderName)))

	entries, err := os.ReadDir(valuesDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var envs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if env, ok := domain.EnvironmentFromValuesFile(entry.Name()); ok {
			envs = append(envs, env)
		}
	}

	sort.Strings(envs)
	return envs, nil
}
