package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks. Each typed error below unwraps to one of these.
var (
	ErrMalformedTag              = errors.New("malformed tag")
	ErrUnrecognizedVersionFormat = errors.New("unrecognized version format")
	ErrPathNotFound              = errors.New("path not found")
	ErrPatchNoOp                 = errors.New("patch did not change value")
	ErrBranchAlreadyExists       = errors.New("branch already exists")
	ErrGitNetwork                = errors.New("git network operation failed")
	ErrInvalidRunNumber          = errors.New("run number must be non-negative")
)

// MalformedTagError reports a tag or override that could not be fully parsed.
// It is non-fatal: the resolver applies defaults and carries on.
type MalformedTagError struct {
	Tag    string
	Reason string
}

func (e *MalformedTagError) Error() string {
	return fmt.Sprintf("malformed tag %q: %s", e.Tag, e.Reason)
}

func (e *MalformedTagError) Unwrap() error { return ErrMalformedTag }

// UnrecognizedVersionFormatError is returned when a version matches none of
// the environment classification rules.
type UnrecognizedVersionFormatError struct {
	Version string
}

func (e *UnrecognizedVersionFormatError) Error() string {
	return fmt.Sprintf("version %q does not match X.Y.Z, X.Y.Z-rc-N or X.Y.Z-<suffix>", e.Version)
}

func (e *UnrecognizedVersionFormatError) Unwrap() error { return ErrUnrecognizedVersionFormat }

// PathNotFoundError is returned when a values file or a required YAML path
// inside it does not exist.
type PathNotFoundError struct {
	File string
	Path string // empty when the file itself is missing

	// Available lists environments that do have a values file, when known.
	Available []string
}

func (e *PathNotFoundError) Error() string {
	var msg string
	if e.Path == "" {
		msg = fmt.Sprintf("values file %s not found", e.File)
	} else {
		msg = fmt.Sprintf("path %s not found in %s", e.Path, e.File)
	}
	if len(e.Available) > 0 {
		msg += " (available environments: " + strings.Join(e.Available, ", ") + ")"
	}
	return msg
}

func (e *PathNotFoundError) Unwrap() error { return ErrPathNotFound }

// PatchNoOpError is returned when a write did not transition a value to the
// intended version.
type PatchNoOpError struct {
	File   string
	Path   string
	Before string
	After  string
	Want   string
}

func (e *PatchNoOpError) Error() string {
	if e.After != e.Want {
		return fmt.Sprintf("write to %s in %s did not take: read back %q, want %q", e.Path, e.File, e.After, e.Want)
	}
	return fmt.Sprintf("%s in %s already set to %q, nothing to update", e.Path, e.File, e.Before)
}

func (e *PatchNoOpError) Unwrap() error { return ErrPatchNoOp }

// BranchAlreadyExistsError is returned when the release branch is already
// present locally or on the remote.
type BranchAlreadyExistsError struct {
	Branch string
}

func (e *BranchAlreadyExistsError) Error() string {
	return fmt.Sprintf("branch %s already exists", e.Branch)
}

func (e *BranchAlreadyExistsError) Unwrap() error { return ErrBranchAlreadyExists }

// GitNetworkError wraps clone, fetch and push failures verbatim.
type GitNetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *GitNetworkError) Error() string {
	return fmt.Sprintf("git %s %s: %v", e.Op, e.URL, e.Err)
}

// Is matches the ErrGitNetwork sentinel; Unwrap exposes the underlying cause.
func (e *GitNetworkError) Is(target error) bool { return target == ErrGitNetwork }

func (e *GitNetworkError) Unwrap() error { return e.Err }

// KindOf returns the error kind name used in CI annotations, or "Error" when
// err is not one of the domain errors.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrUnrecognizedVersionFormat):
		return "UnrecognizedVersionFormatError"
	case errors.Is(err, ErrPathNotFound):
		return "PathNotFoundError"
	case errors.Is(err, ErrPatchNoOp):
		return "PatchNoOpError"
	case errors.Is(err, ErrBranchAlreadyExists):
		return "BranchAlreadyExistsError"
	case errors.Is(err, ErrGitNetwork):
		return "GitNetworkError"
	case errors.Is(err, ErrMalformedTag):
		return "MalformedTagError"
	default:
		return "Error"
	}
}
