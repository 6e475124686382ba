package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultMainBranch is the integration branch that produces release candidates.
const DefaultMainBranch = "main"

// Kind identifies which of the three version shapes a resolution produced.
type Kind int

const (
	KindRelease          Kind = iota // HEAD is exactly tagged
	KindReleaseCandidate             // untagged HEAD on the main branch
	KindFeature                      // any other branch
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

var kindNames = [...]string{
	KindRelease:          "release",
	KindReleaseCandidate: "rc",
	KindFeature:          "feature",
}

var plainVersion = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// RepoState is a snapshot of the local git repository used for resolution.
type RepoState struct {
	Tags     []string
	Branch   string
	ExactTag string // tag pointing at HEAD, empty if none
}

// ResolveInput holds everything Resolve needs. Override is the raw
// NEXT_VERSION content; empty means DefaultOverride.
type ResolveInput struct {
	State      RepoState
	Override   string
	RunNumber  int
	MainBranch string
}

// Resolution is the outcome of a version resolution.
type Resolution struct {
	Version         string
	Kind            Kind
	LatestTag       string
	CandidateNext   string
	EffectiveNext   string
	OverrideApplied bool

	// Warnings holds non-fatal problems such as *MalformedTagError.
	Warnings []error
}

// ValidateRunNumber rejects run numbers that would produce a version outside
// the rc and feature shapes.
func ValidateRunNumber(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRunNumber, n)
	}
	return nil
}

// Resolve computes the version for a CI run. It never fails: malformed tags
// and overrides fall back to defaults and are reported in Warnings. The run
// number must already have passed ValidateRunNumber.
func Resolve(in ResolveInput) Resolution {
	var res Resolution

	res.LatestTag = LatestTag(in.State.Tags)
	latest, err := ParseTag(res.LatestTag)
	if err != nil {
		res.Warnings = append(res.Warnings, err)
	}
	res.CandidateNext = latest.BumpPatch().String()

	override := strings.TrimSpace(in.Override)
	if override == "" {
		override = DefaultOverride
	}
	if !plainVersion.MatchString(override) {
		res.Warnings = append(res.Warnings, &MalformedTagError{Tag: override, Reason: "override is not X.Y.Z, ignoring"})
		override = DefaultOverride
	}

	// The override wins unless it is strictly lower, so a tie pins the override.
	res.EffectiveNext = res.CandidateNext
	if CompareVersions(override, res.CandidateNext) >= 0 {
		res.EffectiveNext = override
		res.OverrideApplied = true
	}

	mainBranch := in.MainBranch
	if mainBranch == "" {
		mainBranch = DefaultMainBranch
	}

	switch {
	case strings.TrimSpace(in.State.ExactTag) != "":
		res.Kind = KindRelease
		res.Version = strings.TrimSpace(in.State.ExactTag)
	case in.State.Branch == mainBranch:
		res.Kind = KindReleaseCandidate
		res.Version = fmt.Sprintf("%s-rc-%d", res.EffectiveNext, in.RunNumber)
	default:
		res.Kind = KindFeature
		res.Version = fmt.Sprintf("%s-feat-%s-%d", res.EffectiveNext, SanitizeBranch(in.State.Branch), in.RunNumber)
	}

	return res
}

// MalformedTags returns the malformed tag warnings of a resolution.
func (r Resolution) MalformedTags() []*MalformedTagError {
	var out []*MalformedTagError
	for _, w := range r.Warnings {
		var mt *MalformedTagError
		if errors.As(w, &mt) {
			out = append(out, mt)
		}
	}
	return out
}
