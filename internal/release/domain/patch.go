package domain

// FieldValue is the scalar found at a YAML path.
type FieldValue struct {
	Path  string
	Value string
	Found bool
}

// FieldChange records one verified transition.
type FieldChange struct {
	Path   string
	Before string
	After  string
}

// PatchResult describes a verified write to a values file.
type PatchResult struct {
	File    string
	Version string
	Changes []FieldChange
	Skipped []string // optional paths absent from the file
	Aligned []string // optional paths already at Version
	Diff    string   // unified diff of the file, empty if not computed
}

// AlreadyAligned reports whether an optional target held want before the
// write and still does. Such a target is not a failed patch as long as some
// other target transitioned.
func AlreadyAligned(target PatchTarget, before, after FieldValue, want string) bool {
	return target.Optional && before.Found && before.Value == want && after.Found && after.Value == want
}

// VerifyPatch enforces the read-verify-write-verify invariant for a single
// target. before is the value read prior to the write, after the value read
// back from the written document.
func VerifyPatch(file string, target PatchTarget, before, after FieldValue, want string) error {
	if !before.Found {
		return &PathNotFoundError{File: file, Path: target.Path}
	}
	if !after.Found || after.Value != want {
		return &PatchNoOpError{File: file, Path: target.Path, Before: before.Value, After: after.Value, Want: want}
	}
	if after.Value == before.Value {
		return &PatchNoOpError{File: file, Path: target.Path, Before: before.Value, After: after.Value, Want: want}
	}
	return nil
}

// UpdateRequest asks for a version to be rolled out through the GitOps repo.
type UpdateRequest struct {
	Version    string
	FolderName string
	OpenPR     bool
}

// UpdateResult is the outcome of a GitOps update.
type UpdateResult struct {
	Environment Environment
	ValuesFile  string
	Branch      string
	CommitSHA   string
	Patch       PatchResult

	// PullRequestURL is the opened PR when requested, otherwise a compare
	// URL the operator can use to open one.
	PullRequestURL    string
	PullRequestOpened bool
}
