package versions

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrUnparseable is returned for slugs with no numeric version structure
// ("latest", "stable", branch names)
var ErrUnparseable = errors.New("unparseable version")

var slugPattern = regexp.MustCompile(`^(\d+(?:\.\d+)*)(?:[-_.]?(alpha|beta|rc|a|b|c|pre|preview)[-_.]?(\d*))?$`)

// pre-release tags, normalized
var tagNames = map[string]string{
	"a":       "alpha",
	"alpha":   "alpha",
	"b":       "beta",
	"beta":    "beta",
	"c":       "rc",
	"rc":      "rc",
	"pre":     "rc",
	"preview": "rc",
}

var shortTags = map[string]string{
	"alpha": "a",
	"beta":  "b",
	"rc":    "rc",
}

// ParsedVersion is the ordered numeric form of a version slug.
// Release components compare left to right with missing components read as
// zero, so 1.2 == 1.2.0. A pre-release sorts before its release and
// alpha < beta < rc.
type ParsedVersion struct {
	release []uint64
	tag     string
	tagNum  uint64
	sem     *semver.Version
}

// Parse turns a slug such as "1.10", "v2.0.1" or "1.0rc1" into a ParsedVersion
func Parse(slug string) (*ParsedVersion, error) {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(slug)), "v")
	m := slugPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("%q: %w", slug, ErrUnparseable)
	}

	parts := strings.Split(m[1], ".")
	release := make([]uint64, len(parts))
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", slug, ErrUnparseable)
		}
		release[i] = n
	}

	pv := &ParsedVersion{release: release}
	prerelease := ""
	if m[2] != "" {
		pv.tag = tagNames[m[2]]
		prerelease = pv.tag
		if m[3] != "" {
			n, err := strconv.ParseUint(m[3], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", slug, ErrUnparseable)
			}
			pv.tagNum = n
			// normalized so "rc01" and "rc1" compare equal
			prerelease += "." + strconv.FormatUint(n, 10)
		}
	}

	pv.sem = semver.New(pv.component(0), pv.component(1), pv.component(2), prerelease, "")
	return pv, nil
}

// FromVersion parses a slug, returning nil when it has no version structure
func FromVersion(slug string) *ParsedVersion {
	pv, err := Parse(slug)
	if err != nil {
		return nil
	}
	return pv
}

func (v *ParsedVersion) component(i int) uint64 {
	if i < len(v.release) {
		return v.release[i]
	}
	return 0
}

// Release returns the numeric release components
func (v *ParsedVersion) Release() []uint64 {
	out := make([]uint64, len(v.release))
	copy(out, v.release)
	return out
}

// Prerelease returns the normalized pre-release ("rc.1") or ""
func (v *ParsedVersion) Prerelease() string {
	return v.sem.Prerelease()
}

// Semver returns the first three release components as a semantic version
func (v *ParsedVersion) Semver() *semver.Version {
	return v.sem
}

// Compare returns -1, 0 or 1 as v is lower than, equal to or higher than o
func (v *ParsedVersion) Compare(o *ParsedVersion) int {
	n := len(v.release)
	if len(o.release) > n {
		n = len(o.release)
	}
	for i := 0; i < n; i++ {
		a, b := v.component(i), o.component(i)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	// releases are equal, so only the pre-release part can differ
	return v.sem.Compare(o.sem)
}

// Equal reports whether v and o order the same
func (v *ParsedVersion) Equal(o *ParsedVersion) bool {
	return v.Compare(o) == 0
}

// String renders the version as e.g. "1.10" or "2.0rc1"
func (v *ParsedVersion) String() string {
	parts := make([]string, len(v.release))
	for i, n := range v.release {
		parts[i] = strconv.FormatUint(n, 10)
	}
	s := strings.Join(parts, ".")
	if v.tag != "" {
		s += shortTags[v.tag]
		if v.tagNum > 0 || v.sem.Prerelease() != v.tag {
			s += strconv.FormatUint(v.tagNum, 10)
		}
	}
	return s
}

// MarshalJSON encodes the version as its string form
func (v *ParsedVersion) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(v.String())), nil
}
