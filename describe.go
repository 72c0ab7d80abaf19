package civers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver"
)

// ErrMalformedDescribe is returned when describe output does not end in
// -<commits>-g<hex>.
var ErrMalformedDescribe = errors.New("malformed describe output")

// The tag is everything before the fixed suffix, so tags containing dashes
// such as v1.0.0-rc.1 are kept whole.
var describePattern = regexp.MustCompile(`^(.+)-(\d+)-g([0-9a-fA-F]+)$`)

// ParseDescribe splits `git describe --long` output into tag, distance and
// abbreviated object id. A single leading "v" is stripped from the tag.
func ParseDescribe(raw string) (Describe, error) {
	trimmed := strings.TrimSpace(raw)
	matches := describePattern.FindStringSubmatch(trimmed)
	if matches == nil {
		return Describe{}, fmt.Errorf("%w: %q", ErrMalformedDescribe, trimmed)
	}

	return Describe{
		Raw:             trimmed,
		Tag:             strings.TrimPrefix(matches[1], "v"),
		CommitsSinceTag: matches[2],
		ObjectID:        matches[3],
	}, nil
}

// IsExact reports whether HEAD is the tagged commit.
func (d Describe) IsExact() bool {
	return d.CommitsSinceTag == "0"
}

// SemVer parses the tag as a semantic version.
func (d Describe) SemVer() (semver.Version, error) {
	version, err := semver.ParseTolerant(d.Tag)
	if err != nil {
		return semver.Version{}, fmt.Errorf("parsing tag %q: %w", d.Tag, err)
	}
	return version, nil
}

// ComposeLongVersion builds the long version: the bare tag when HEAD is
// tagged, otherwise the tag and distance, followed by the object id for
// feature branches and the safe branch name for non-release branches.
func ComposeLongVersion(d Describe, c Classification) string {
	longVersion := d.Tag
	if d.IsExact() {
		return longVersion
	}

	longVersion += "-" + d.CommitsSinceTag
	if c.IsFeatureOrPR() {
		longVersion += "-" + d.ObjectID
	}
	if !c.IsRelease() && c.SafeBranch != "" {
		longVersion += "-" + c.SafeBranch
	}
	return longVersion
}
