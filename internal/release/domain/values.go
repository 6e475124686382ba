package domain

import (
	"path"
	"regexp"
	"strings"
)

const (
	// ValuesRoot is the top-level directory of per-service values in the GitOps repo.
	ValuesRoot = "helm-values"
	// BranchPrefix namespaces branches pushed by this tool.
	BranchPrefix = "automated/"

	valuesFilePrefix = "value-overrides-"
	valuesFileSuffix = ".yaml"
)

var (
	folderSeparators = regexp.MustCompile(`[\s_]+`)
	repeatedHyphens  = regexp.MustCompile(`-{2,}`)
)

// PatchTarget is a YAML path to update with the new version. Optional paths
// are skipped when absent instead of failing the patch.
type PatchTarget struct {
	Path     string
	Optional bool
}

// DefaultPatchTargets are the image tag paths of a service values file.
func DefaultPatchTargets() []PatchTarget {
	return []PatchTarget{
		{Path: ".image.tag"},
		{Path: ".migrationJob.image.tag", Optional: true},
	}
}

// NormalizeFolderName lowercases a service folder name and hyphenates
// whitespace and underscores: "My_Service" -> "my-service".
func NormalizeFolderName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = folderSeparators.ReplaceAllString(s, "-")
	s = repeatedHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ValuesFilePath returns the repo-relative values file for an environment.
//
//	ValuesFilePath(EnvQA, "myservice") -> "helm-values/myservice/value-overrides-qa.yaml"
func ValuesFilePath(env Environment, folderName string) string {
	return path.Join(ValuesRoot, NormalizeFolderName(folderName), valuesFilePrefix+string(env)+valuesFileSuffix)
}

// ValuesDir returns the repo-relative directory holding a service's values files.
func ValuesDir(folderName string) string {
	return path.Join(ValuesRoot, NormalizeFolderName(folderName))
}

// EnvironmentFromValuesFile extracts "qa" from "value-overrides-qa.yaml".
// The second result is false for any other file name.
func EnvironmentFromValuesFile(fileName string) (string, bool) {
	if !strings.HasPrefix(fileName, valuesFilePrefix) || !strings.HasSuffix(fileName, valuesFileSuffix) {
		return "", false
	}
	env := strings.TrimSuffix(strings.TrimPrefix(fileName, valuesFilePrefix), valuesFileSuffix)
	return env, env != ""
}

// ReleaseBranchName returns the review branch for a folder and version.
func ReleaseBranchName(folderName, version string) string {
	return BranchPrefix + NormalizeFolderName(folderName) + "-" + version
}
