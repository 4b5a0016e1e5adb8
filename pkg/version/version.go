// Package version compares four-segment dotted versions (major.minor.build.revision)
// against patterns that may contain wildcard segments.
package version

import (
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/glorpus-work/extpack/pkg/errutils"
)

const (
	// Wildcard matches any value of a segment.
	Wildcard = "*"
	// Segments is the number of segments of a normalized version.
	Segments = 4
	// MaxSegment is the largest value a single segment may hold.
	MaxSegment = 65535
)

// IsLessThan reports whether version is lower than the lowest version matched by pattern.
// Wildcard segments of pattern count as 0.
func IsLessThan(version, pattern string) (bool, error) {
	v, err := parse(version)
	if err != nil {
		return false, err
	}
	bound, err := boundFor(pattern, 0)
	if err != nil {
		return false, err
	}
	return v.LessThan(bound), nil
}

// IsGreaterThan reports whether version is higher than the highest version matched by pattern.
// Wildcard segments of pattern, and the unspecified segments following one, count as MaxSegment.
func IsGreaterThan(version, pattern string) (bool, error) {
	v, err := parse(version)
	if err != nil {
		return false, err
	}
	bound, err := boundFor(pattern, MaxSegment)
	if err != nil {
		return false, err
	}
	return v.GreaterThan(bound), nil
}

// Compare returns -1, 0 or 1 when a is lower than, equal to, or higher than b.
// Both must be concrete versions.
func Compare(a, b string) (int, error) {
	va, err := parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Normalize returns the four-segment form of a concrete version, so "1.2" becomes "1.2.0.0".
func Normalize(version string) (string, error) {
	segs, err := split(version)
	if err != nil {
		return "", err
	}
	out := make([]string, Segments)
	for i := range out {
		if i >= len(segs) {
			out[i] = "0"
			continue
		}
		if segs[i] == Wildcard {
			return "", errutils.ErrInvalidVersionWithValue(version, "wildcards are only allowed in patterns")
		}
		n, err := segment(version, segs[i])
		if err != nil {
			return "", err
		}
		out[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(out, "."), nil
}

// ValidatePattern checks that pattern is a well-formed, possibly wildcarded version.
func ValidatePattern(pattern string) error {
	_, err := boundFor(pattern, 0)
	return err
}

func parse(version string) (*goversion.Version, error) {
	normalized, err := Normalize(version)
	if err != nil {
		return nil, err
	}
	v, err := goversion.NewVersion(normalized)
	if err != nil {
		return nil, errutils.ErrInvalidVersionWithValue(version, err.Error())
	}
	return v, nil
}

// boundFor builds the concrete version a pattern stands for when every wildcard is replaced by fill.
func boundFor(pattern string, fill uint64) (*goversion.Version, error) {
	if strings.TrimSpace(pattern) == Wildcard {
		pattern = Wildcard + "." + Wildcard
	}
	segs, err := split(pattern)
	if err != nil {
		return nil, err
	}

	out := make([]string, Segments)
	padding := "0"
	for i := range out {
		if i >= len(segs) {
			out[i] = padding
			continue
		}
		if segs[i] == Wildcard {
			out[i] = strconv.FormatUint(fill, 10)
			padding = out[i]
			continue
		}
		n, err := segment(pattern, segs[i])
		if err != nil {
			return nil, err
		}
		out[i] = strconv.FormatUint(n, 10)
		padding = "0"
	}

	v, err := goversion.NewVersion(strings.Join(out, "."))
	if err != nil {
		return nil, errutils.ErrInvalidVersionWithValue(pattern, err.Error())
	}
	return v, nil
}

func split(version string) ([]string, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, errutils.ErrInvalidVersionWithValue(version, "empty version")
	}
	segs := strings.Split(version, ".")
	if len(segs) > Segments {
		return nil, errutils.ErrInvalidVersionWithValue(version, "more than four segments")
	}
	for _, s := range segs {
		if s == "" {
			return nil, errutils.ErrInvalidVersionWithValue(version, "empty segment")
		}
	}
	return segs, nil
}

func segment(version, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, errutils.ErrInvalidVersionWithValue(version, "segment "+strconv.Quote(s)+" is not a number between 0 and 65535")
	}
	return n, nil
}
