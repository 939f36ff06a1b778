// Package version resolves semantic versions: validation, ordering of release
// tags, and lookup of the release preceding a working version.
package version

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	goversion "github.com/hashicorp/go-version"

	"github.com/getpup/tablemig"
)

// Parse parses a semantic version string of the form
// MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD], optionally prefixed with "v".
// Returns an error wrapping tablemig.ErrInvalidVersion when s is not valid semver.
func Parse(s string) (*goversion.Version, error) {
	if _, err := semver.StrictNewVersion(strings.TrimPrefix(s, "v")); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", tablemig.ErrInvalidVersion, s, err)
	}
	v, err := goversion.NewSemver(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", tablemig.ErrInvalidVersion, s, err)
	}
	return v, nil
}

// Validate reports whether s is valid semver.
func Validate(s string) error {
	_, err := Parse(s)
	return err
}

// Compare compares two version strings, returning -1, 0 or 1.
func Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// HasPrerelease reports whether s carries a pre-release component.
func HasPrerelease(s string) (bool, error) {
	v, err := Parse(s)
	if err != nil {
		return false, err
	}
	return v.Prerelease() != "", nil
}

// Contains reports whether tags holds a version equal to v.
// Invalid tags are ignored.
func Contains(tags []string, v string) bool {
	target, err := Parse(v)
	if err != nil {
		return false
	}
	for _, tag := range tags {
		if tv, err := Parse(tag); err == nil && tv.Equal(target) {
			return true
		}
	}
	return false
}

type tagged struct {
	raw string
	v   *goversion.Version
}

func parseValid(tags []string) []tagged {
	out := make([]tagged, 0, len(tags))
	for _, tag := range tags {
		v, err := Parse(tag)
		if err != nil {
			continue
		}
		out = append(out, tagged{raw: tag, v: v})
	}
	return out
}

// SortDescending drops tags that are not valid semver and sorts the rest
// highest-first. The original tag strings are returned untouched.
func SortDescending(tags []string) []string {
	valid := parseValid(tags)
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].v.GreaterThan(valid[j].v)
	})

	out := make([]string, len(valid))
	for i, t := range valid {
		out[i] = t.raw
	}
	return out
}

// SortAscending drops tags that are not valid semver and sorts the rest lowest-first.
func SortAscending(tags []string) []string {
	valid := parseValid(tags)
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].v.LessThan(valid[j].v)
	})

	out := make([]string, len(valid))
	for i, t := range valid {
		out[i] = t.raw
	}
	return out
}

// PreviousRelease returns the highest tag strictly lower than current.
// When no such tag exists, current itself is returned.
// Returns an error wrapping tablemig.ErrInvalidVersion if current is not valid semver.
func PreviousRelease(current string, tags []string) (string, error) {
	cv, err := Parse(current)
	if err != nil {
		return "", err
	}

	all := tags
	if !Contains(tags, current) {
		all = append(append(make([]string, 0, len(tags)+1), tags...), current)
	}

	for _, tag := range SortDescending(all) {
		v, _ := Parse(tag)
		if v.LessThan(cv) {
			return tag, nil
		}
	}
	return current, nil
}

// Max returns the highest valid version among versions, or "" when there is none.
func Max(versions []string) string {
	sorted := SortDescending(versions)
	if len(sorted) == 0 {
		return ""
	}
	return sorted[0]
}
