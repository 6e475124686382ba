package domain

import (
	"regexp"
	"strings"
)

// UnknownBranch is the feature segment used when a branch name sanitizes to nothing.
const UnknownBranch = "unknown"

var disallowedBranchChars = regexp.MustCompile(`[^a-z0-9/-]+`)

// SanitizeBranch turns a branch name into a segment safe for a version
// suffix: lowercase, runs of characters outside [a-z0-9/-] become "-",
// "/" becomes "-", and leading/trailing "-" are trimmed.
//
//	"feature/Add New Thing!!" -> "feature-add-new-thing"
func SanitizeBranch(name string) string {
	s := strings.ToLower(name)
	s = disallowedBranchChars.ReplaceAllString(s, "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return UnknownBranch
	}
	return s
}
