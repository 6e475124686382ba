package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
)

const (
	// DefaultTag is used as the latest tag when the repository has none.
	DefaultTag = "0.0.1"
	// DefaultOverride is the NEXT_VERSION value when the file is absent.
	DefaultOverride = "0.0.0"
)

// Version is the numeric MAJOR.MINOR.PATCH core of a tag.
type Version struct {
	Major int
	Minor int
	Patch int
}

// String returns the "X.Y.Z" representation.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// BumpPatch returns a new version with patch incremented.
func (v Version) BumpPatch() Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
}

// ParseTag parses a tag such as "v1.2.3" or "1.2.3-rc1". Leading non-digits
// of MAJOR are stripped and only the leading digits of PATCH are kept.
// Components that cannot be parsed default to 0; in that case the
// best-effort Version is returned together with a *MalformedTagError.
func ParseTag(tag string) (Version, error) {
	var (
		v       Version
		reasons []string
	)

	parts := strings.SplitN(strings.TrimSpace(tag), ".", 3)

	major, ok := leadingInt(strings.TrimLeftFunc(parts[0], func(r rune) bool { return !unicode.IsDigit(r) }))
	if !ok {
		reasons = append(reasons, "major is not numeric")
	}
	v.Major = major

	if len(parts) < 2 {
		reasons = append(reasons, "missing minor")
	} else {
		minor, ok := leadingInt(parts[1])
		if !ok {
			reasons = append(reasons, "minor is not numeric")
		}
		v.Minor = minor
	}

	if len(parts) < 3 {
		reasons = append(reasons, "missing patch")
	} else {
		patch, _ := leadingInt(parts[2])
		if !startsWithDigit(parts[2]) {
			reasons = append(reasons, "patch is not numeric")
		}
		v.Patch = patch
	}

	if len(reasons) > 0 {
		return v, &MalformedTagError{Tag: tag, Reason: strings.Join(reasons, ", ")}
	}
	return v, nil
}

// leadingInt returns the value of the leading run of ASCII digits in s and
// whether s consisted of digits only. Values that overflow int yield 0.
func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, end == len(s)
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// CompareVersions orders two version strings the way a version sort would.
// When both parse as semantic versions, semver precedence applies.
// Otherwise digit runs are compared numerically and everything else
// byte-wise. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		if c := va.Compare(vb); c != 0 {
			return c
		}
		// "v1.0.0" and "1.0.0" are semver-equal; keep the order total.
		return strings.Compare(a, b)
	}
	return naturalCompare(a, b)
}

func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		if startsWithDigit(a) && startsWithDigit(b) {
			da, restA := splitDigits(a)
			db, restB := splitDigits(b)
			da = strings.TrimLeft(da, "0")
			db = strings.TrimLeft(db, "0")
			if len(da) != len(db) {
				if len(da) < len(db) {
					return -1
				}
				return 1
			}
			if c := strings.Compare(da, db); c != 0 {
				return c
			}
			a, b = restA, restB
			continue
		}
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		a, b = a[1:], b[1:]
	}
	return strings.Compare(a, b)
}

func splitDigits(s string) (string, string) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end], s[end:]
}

// LatestTag returns the highest tag under version-sort, or DefaultTag when
// tags is empty. Tags that parse as semantic versions are preferred, so a
// stray "nightly" tag does not shadow real releases.
func LatestTag(tags []string) string {
	var all, versioned []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		all = append(all, t)
		if _, err := semver.NewVersion(t); err == nil {
			versioned = append(versioned, t)
		}
	}
	switch {
	case len(versioned) > 0:
		return slices.MaxFunc(versioned, CompareVersions)
	case len(all) > 0:
		return slices.MaxFunc(all, CompareVersions)
	default:
		return DefaultTag
	}
}
